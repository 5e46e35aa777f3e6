// # internal/engine/graph/details.go
package graph

// ImportDetails records how symbols of one file are imported or re-exported.
// The same shape is used for a file's outgoing imports (per target) and for
// the aggregated incoming view on the target itself.
//
// Every field only ever grows: Merge unions, it never replaces.
type ImportDetails struct {
	// Refs holds anonymous references such as "ns.member" that do not bind a
	// name of their own.
	Refs Set `json:"refs"`

	Imported   SetMap       `json:"imported"`
	ImportedAs NestedSetMap `json:"importedAs"`
	ImportedNs SetMap       `json:"importedNs"`

	ReExported   SetMap       `json:"reExported"`
	ReExportedAs NestedSetMap `json:"reExportedAs"`
	ReExportedNs SetMap       `json:"reExportedNs"`
}

// ImportMap is what the parser observes for one source file: target path ->
// details of what the source takes from that target.
type ImportMap map[string]*ImportDetails

func NewImportDetails() *ImportDetails {
	return &ImportDetails{
		Refs:         make(Set),
		Imported:     make(SetMap),
		ImportedAs:   make(NestedSetMap),
		ImportedNs:   make(SetMap),
		ReExported:   make(SetMap),
		ReExportedAs: make(NestedSetMap),
		ReExportedNs: make(SetMap),
	}
}

// Merge unions other into d. Merging is commutative, associative and
// idempotent; other is never aliased by d afterwards.
func (d *ImportDetails) Merge(other *ImportDetails) {
	if d == nil || other == nil {
		return
	}
	d.Refs = unionSet(d.Refs, other.Refs)
	d.Imported = unionSetMap(d.Imported, other.Imported)
	d.ImportedAs = unionNestedSetMap(d.ImportedAs, other.ImportedAs)
	d.ImportedNs = unionSetMap(d.ImportedNs, other.ImportedNs)
	d.ReExported = unionSetMap(d.ReExported, other.ReExported)
	d.ReExportedAs = unionNestedSetMap(d.ReExportedAs, other.ReExportedAs)
	d.ReExportedNs = unionSetMap(d.ReExportedNs, other.ReExportedNs)
}

// Clone returns a deep copy.
func (d *ImportDetails) Clone() *ImportDetails {
	out := NewImportDetails()
	out.Merge(d)
	return out
}

// AddImport records a plain named import of identifier by importer.
func (d *ImportDetails) AddImport(identifier, importer string) {
	addToSetMap(&d.Imported, identifier, importer)
}

// AddImportAs records `import { identifier as alias }` by importer.
func (d *ImportDetails) AddImportAs(identifier, alias, importer string) {
	addToNestedSetMap(&d.ImportedAs, identifier, alias, importer)
}

// AddImportNs records `import * as namespace` by importer.
func (d *ImportDetails) AddImportNs(namespace, importer string) {
	addToSetMap(&d.ImportedNs, namespace, importer)
}

func (d *ImportDetails) AddReExport(identifier, importer string) {
	addToSetMap(&d.ReExported, identifier, importer)
}

func (d *ImportDetails) AddReExportAs(identifier, alias, importer string) {
	addToNestedSetMap(&d.ReExportedAs, identifier, alias, importer)
}

func (d *ImportDetails) AddReExportNs(namespace, importer string) {
	addToSetMap(&d.ReExportedNs, namespace, importer)
}

func (d *ImportDetails) AddRef(ref string) {
	if d.Refs == nil {
		d.Refs = make(Set)
	}
	d.Refs.Add(ref)
}

// IsEmpty reports whether no field holds any entry.
func (d *ImportDetails) IsEmpty() bool {
	if d == nil {
		return true
	}
	return len(d.Refs) == 0 &&
		len(d.Imported) == 0 && len(d.ImportedAs) == 0 && len(d.ImportedNs) == 0 &&
		len(d.ReExported) == 0 && len(d.ReExportedAs) == 0 && len(d.ReExportedNs) == 0
}

func addToSetMap(m *SetMap, key, value string) {
	if *m == nil {
		*m = make(SetMap)
	}
	s, ok := (*m)[key]
	if !ok || s == nil {
		s = make(Set)
		(*m)[key] = s
	}
	s.Add(value)
}

func addToNestedSetMap(m *NestedSetMap, key, alias, value string) {
	if *m == nil {
		*m = make(NestedSetMap)
	}
	inner, ok := (*m)[key]
	if !ok || inner == nil {
		inner = make(SetMap)
		(*m)[key] = inner
	}
	addToSetMap(&inner, alias, value)
}
