// # internal/engine/graph/export.go
package graph

// SymbolKind tags what an exported identifier is.
type SymbolKind string

const (
	KindUnknown   SymbolKind = "unknown"
	KindFunction  SymbolKind = "function"
	KindClass     SymbolKind = "class"
	KindVariable  SymbolKind = "variable"
	KindType      SymbolKind = "type"
	KindInterface SymbolKind = "interface"
	KindEnum      SymbolKind = "enum"
	KindMember    SymbolKind = "member"
	KindNamespace SymbolKind = "namespace"
	KindDefault   SymbolKind = "default"
)

// Fix is a suggested source edit, as a byte range to remove.
type Fix struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Export struct {
	Identifier string     `json:"identifier"`
	Pos        int        `json:"pos"`
	Line       int        `json:"line"`
	Col        int        `json:"col"`
	Type       SymbolKind `json:"type"`
	Members    []string   `json:"members"`
	JSDocTags  Set        `json:"jsDocTags"`

	RefCount     int  `json:"refs"`
	IsReferenced bool `json:"isReferenced"`

	Fixes      []Fix `json:"fixes"`
	IsReExport bool  `json:"isReExport"`
}

// NewExport returns the canonical empty export for identifier: position
// 0/1/1, unknown kind, empty collections.
func NewExport(identifier string) *Export {
	return &Export{
		Identifier: identifier,
		Pos:        0,
		Line:       1,
		Col:        1,
		Type:       KindUnknown,
		Members:    []string{},
		JSDocTags:  make(Set),
		Fixes:      []Fix{},
	}
}

// merge folds other into e without discarding anything already recorded.
// The earlier position wins; members keep first-seen order.
func (e *Export) merge(other *Export) {
	if other == nil {
		return
	}
	if e.Type == KindUnknown || e.Type == "" {
		e.Type = other.Type
	}
	if other.hasPosition() && (!e.hasPosition() || other.Pos < e.Pos) {
		e.Pos, e.Line, e.Col = other.Pos, other.Line, other.Col
	}
	seen := make(map[string]bool, len(e.Members))
	for _, m := range e.Members {
		seen[m] = true
	}
	for _, m := range other.Members {
		if !seen[m] {
			seen[m] = true
			e.Members = append(e.Members, m)
		}
	}
	e.JSDocTags = unionSet(e.JSDocTags, other.JSDocTags)
	if other.RefCount > e.RefCount {
		e.RefCount = other.RefCount
	}
	e.IsReferenced = e.IsReferenced || other.IsReferenced
	e.IsReExport = e.IsReExport || other.IsReExport
	for _, f := range other.Fixes {
		if !containsFix(e.Fixes, f) {
			e.Fixes = append(e.Fixes, f)
		}
	}
}

func (e *Export) hasPosition() bool {
	return e.Pos != 0 || e.Line != 1 || e.Col != 1
}

func (e *Export) clone() *Export {
	out := *e
	out.Members = append([]string{}, e.Members...)
	out.JSDocTags = unionSet(make(Set), e.JSDocTags)
	out.Fixes = append([]Fix{}, e.Fixes...)
	return &out
}

func containsFix(fixes []Fix, f Fix) bool {
	for _, existing := range fixes {
		if existing == f {
			return true
		}
	}
	return false
}
