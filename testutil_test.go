package embedb

import (
	"path/filepath"
	"testing"
)

// openTestEngine opens a fresh storage engine in a temporary directory and
// registers cleanup, mirroring the teacher's openTestDB helper used by
// nearly every test in its suite.
func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := OpenEngine(filepath.Join(dir, "db"), Config{})
	if err != nil {
		t.Fatalf("OpenEngine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

// itemsSchema builds a small representative collection: a Long oid, a
// case-insensitive unique Value index on "name" (Replace=false), a
// non-unique Words index on "bio", and a plain Long property "score" used
// for sort/filter tests.
func itemsSchema(t *testing.T) *CollectionSchema {
	t.Helper()
	s := &CollectionSchema{Name: "items"}
	must(t, s.AddProperty("score", Long))
	must(t, s.AddProperty("bio", String))
	must(t, s.AddProperty("name", String))
	must(t, s.AddIndex([]string{"name"}, true, false, IndexValue, false))
	must(t, s.AddIndex([]string{"bio"}, false, false, IndexWords, false))
	s.Compile()
	return s
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// openTestInstance opens an Instance with the items collection registered,
// returning it alongside the Collection handle for convenience.
func openTestInstance(t *testing.T) (*Instance, *Collection) {
	t.Helper()
	dir := t.TempDir()
	inst, err := Open(dir, Config{}, []*CollectionSchema{itemsSchema(t)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { inst.Close() })
	col, ok := inst.Collection("items")
	if !ok {
		t.Fatalf("items collection missing after Open")
	}
	return inst, col
}

// propByName finds a compiled Property by name, for tests that build
// filters/sorts directly against a Collection.
func propByName(col *Collection, name string) Property {
	for _, p := range col.Properties {
		if p.Name == name {
			return p
		}
	}
	panic("no such property: " + name)
}

// buildItem encodes one row of the items schema into an object blob. The
// Write* call order must match the compiled property order: score, bio,
// name (see itemsSchema).
func buildItem(col *Collection, oid int64, name, bio string, score int64) []byte {
	b := NewObjectBuilder(col.Properties, col.StaticSize)
	b.WriteLong(&score)
	b.WriteString(&bio)
	b.WriteString(&name)
	return b.Finish(oid)
}
