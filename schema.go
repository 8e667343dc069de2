// Schema & id assignment (§4.3): property/index validation, offset
// computation, and 16-bit id reuse across opens by structural matching.
// Grounded on folio's in-memory catalog plus the original's
// update_with_existing_collection reuse rule (original_source/src/schema/collection_schema.rs).
package embedb

import (
	"fmt"
	"math/rand"
	"sort"
)

// IndexType selects the terminal key form for a composite index's last
// property (§3 "Index").
type IndexType int

const (
	IndexValue IndexType = iota
	IndexHash
	IndexWords
)

// PropertySchema declares one field of a collection, in the caller's chosen
// name; Offset is filled in by Compile.
type PropertySchema struct {
	Name     string
	DataType DataType
	Offset   int
}

// IndexSchema declares a composite secondary index over 1..3 properties.
// Only the last property may be dynamic, and then only String.
type IndexSchema struct {
	ID         uint16
	Name       string
	Properties []string
	Unique     bool
	Replace    bool
	Type       IndexType
	CaseSensitive bool
}

// CollectionSchema is the compiled, validated description of one
// collection: its properties (with assigned offsets), its indexes, and the
// 16-bit ids assigned to it and to each index.
type CollectionSchema struct {
	ID         uint16
	Name       string
	Properties []PropertySchema
	Indexes    []IndexSchema
	OIDName    string
	staticSize int
}

// AddProperty enforces §4.3's ordering rule: properties are declared in
// non-decreasing DataType ordinal, and within a type, strictly increasing by
// name. This lets offset computation be a single deterministic pass with no
// sorting step at Put time.
func (c *CollectionSchema) AddProperty(name string, dt DataType) error {
	if name == "" {
		return illegalArg("property name must not be empty")
	}
	for _, p := range c.Properties {
		if p.Name == name {
			return illegalArg("duplicate property %q", name)
		}
	}
	if n := len(c.Properties); n > 0 {
		last := c.Properties[n-1]
		if dt < last.DataType {
			return illegalArg("properties must be added in non-decreasing DataType order")
		}
		if dt == last.DataType && name <= last.Name {
			return illegalArg("properties of the same type must be added in increasing name order")
		}
	}
	c.Properties = append(c.Properties, PropertySchema{Name: name, DataType: dt})
	return nil
}

// AddIndex enforces §4.3's index validation rules.
func (c *CollectionSchema) AddIndex(names []string, unique, replace bool, typ IndexType, caseSensitive bool) error {
	if len(names) == 0 || len(names) > 3 {
		return illegalArg("index must have between 1 and 3 properties")
	}
	for _, existing := range c.Indexes {
		if samePrefix(existing.Properties, names) {
			return illegalArg("index is a prefix-duplicate of an existing index")
		}
	}
	for i, n := range names {
		p := c.findProperty(n)
		if p == nil {
			return illegalArg("unknown property %q in index", n)
		}
		isTerminal := i == len(names)-1
		if p.DataType.IsDynamic() {
			if p.DataType != String {
				return illegalArg("only String properties may be dynamic index members")
			}
			if !isTerminal {
				return illegalArg("a dynamic property may only be the terminal index member")
			}
		}
	}
	if typ != IndexValue {
		last := c.findProperty(names[len(names)-1])
		if last.DataType != String {
			return illegalArg("Hash/Words index type requires a String terminal property")
		}
	}
	name := fmt.Sprintf("%v", names)
	c.Indexes = append(c.Indexes, IndexSchema{
		Name:          name,
		Properties:    names,
		Unique:        unique,
		Replace:       replace,
		Type:          typ,
		CaseSensitive: caseSensitive,
	})
	return nil
}

func (c *CollectionSchema) findProperty(name string) *PropertySchema {
	for i := range c.Properties {
		if c.Properties[i].Name == name {
			return &c.Properties[i]
		}
	}
	return nil
}

func samePrefix(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Compile computes each property's Offset, packed in the canonical order
// already enforced by AddProperty, and records the total static size
// (excluding the leading OID field).
func (c *CollectionSchema) Compile() {
	offset := 0
	for i := range c.Properties {
		c.Properties[i].Offset = offset
		offset += c.Properties[i].DataType.StaticSize()
	}
	c.staticSize = offset
}

// StaticSize returns the compiled static header size, excluding the OID
// field. Call Compile first.
func (c *CollectionSchema) StaticSize() int { return c.staticSize }

// PropertyList converts the compiled schema into the Property slice used
// by object.go/builder.go.
func (c *CollectionSchema) PropertyList() []Property {
	out := make([]Property, len(c.Properties))
	for i, p := range c.Properties {
		out[i] = Property{Name: p.Name, DataType: p.DataType, Offset: p.Offset}
	}
	return out
}

// Property looks up a compiled Property by name for filter/sort/index
// construction.
func (c *CollectionSchema) Property(name string) (Property, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return Property{Name: p.Name, DataType: p.DataType, Offset: p.Offset}, true
		}
	}
	return Property{}, false
}

// structurallyEqual reports whether two property lists declare the same
// names in the same order with the same types — the id-reuse condition in
// §4.3.
func structurallyEqual(a, b []PropertySchema) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].DataType != b[i].DataType {
			return false
		}
	}
	return true
}

func indexStructurallyEqual(a, b IndexSchema) bool {
	if len(a.Properties) != len(b.Properties) || a.Type != b.Type || a.Unique != b.Unique {
		return false
	}
	for i := range a.Properties {
		if a.Properties[i] != b.Properties[i] {
			return false
		}
	}
	return true
}

// schemaCatalog assigns and persists 16-bit collection/index ids across
// opens, reusing ids by name/structural match the way
// update_with_existing_collection does in the original.
type schemaCatalog struct {
	collections map[string]*CollectionSchema
	usedColIDs  map[uint16]bool
	usedIdxIDs  map[uint16]bool
}

func newSchemaCatalog() *schemaCatalog {
	return &schemaCatalog{
		collections: make(map[string]*CollectionSchema),
		usedColIDs:  make(map[uint16]bool),
		usedIdxIDs:  make(map[uint16]bool),
	}
}

// Reconcile merges newSchema into the persisted catalog: an exact
// structural match keeps its id (and its indexes' ids where the index's
// property list/type is unchanged); anything new draws a random unused
// 16-bit id, matching §4.3's "random 16-bit id from the unused set".
func (cat *schemaCatalog) Reconcile(newSchema *CollectionSchema) *CollectionSchema {
	if old, ok := cat.collections[newSchema.Name]; ok {
		if structurallyEqual(old.Properties, newSchema.Properties) {
			newSchema.ID = old.ID
		} else {
			newSchema.ID = cat.findID(cat.usedColIDs)
		}
		for i := range newSchema.Indexes {
			for _, oldIdx := range old.Indexes {
				if oldIdx.Name == newSchema.Indexes[i].Name && indexStructurallyEqual(oldIdx, newSchema.Indexes[i]) {
					newSchema.Indexes[i].ID = oldIdx.ID
					break
				}
			}
			if newSchema.Indexes[i].ID == 0 {
				newSchema.Indexes[i].ID = cat.findID(cat.usedIdxIDs)
			}
		}
	} else {
		newSchema.ID = cat.findID(cat.usedColIDs)
		for i := range newSchema.Indexes {
			newSchema.Indexes[i].ID = cat.findID(cat.usedIdxIDs)
		}
	}
	cat.usedColIDs[newSchema.ID] = true
	for _, idx := range newSchema.Indexes {
		cat.usedIdxIDs[idx.ID] = true
	}
	cat.collections[newSchema.Name] = newSchema
	return newSchema
}

// findID draws a random id in [1, 0xFFFF] not already in use; 0 is reserved
// to mean "unassigned" so Reconcile can test an index's ID for zero.
func (cat *schemaCatalog) findID(used map[uint16]bool) uint16 {
	for {
		id := uint16(rand.Intn(0xFFFF) + 1)
		if !used[id] {
			return id
		}
	}
}

// sortedNames returns the catalog's collection names in sorted order, so
// saveCatalog persists collections in a stable order.
func (cat *schemaCatalog) sortedNames() []string {
	names := make([]string, 0, len(cat.collections))
	for n := range cat.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
