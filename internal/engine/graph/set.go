// # internal/engine/graph/set.go
package graph

import (
	"encoding/json"
	"sort"
)

// Set is an unordered collection of strings. The zero value is not usable;
// use NewSet or make(Set).
type Set map[string]struct{}

// SetMap maps an identifier to the set of importers that referenced it.
type SetMap map[string]Set

// NestedSetMap maps an identifier to alias -> importer set.
type NestedSetMap map[string]SetMap

func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set) Add(values ...string) {
	for _, v := range values {
		s[v] = struct{}{}
	}
}

func (s Set) Has(value string) bool {
	_, ok := s[value]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewSet(values...)
	return nil
}

// unionSet adds every member of src to dst and returns dst. A nil dst is
// replaced by a copy of src.
func unionSet(dst, src Set) Set {
	if dst == nil {
		return src.clone()
	}
	for v := range src {
		dst[v] = struct{}{}
	}
	return dst
}

func (m SetMap) clone() SetMap {
	out := make(SetMap, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

func (m NestedSetMap) clone() NestedSetMap {
	out := make(NestedSetMap, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

// unionInto is the single merge routine behind every ImportDetails field.
// Keys missing from dst are adopted through clone so dst never shares
// storage with src; keys present on both sides are merged with merge.
func unionInto[V any](dst map[string]V, src map[string]V, merge func(V, V) V, clone func(V) V) {
	for key, value := range src {
		existing, ok := dst[key]
		if !ok {
			dst[key] = clone(value)
			continue
		}
		dst[key] = merge(existing, value)
	}
}

func unionSetMap(dst, src SetMap) SetMap {
	if dst == nil {
		dst = make(SetMap, len(src))
	}
	unionInto(dst, src, unionSet, Set.clone)
	return dst
}

func unionNestedSetMap(dst, src NestedSetMap) NestedSetMap {
	if dst == nil {
		dst = make(NestedSetMap, len(src))
	}
	unionInto(dst, src, unionSetMap, SetMap.clone)
	return dst
}
