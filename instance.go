// Instance is the host-facing entry point (§6 "Public operations surface",
// generalized from the original's FFI boundary into ordinary exported Go
// methods, per SPEC_FULL.md §6): Open, Close, BeginTxn, and collection
// lookup for Put/Get/Delete/Query/watchers.
package embedb

import (
	json "github.com/goccy/go-json"
)

const catalogKey = "schema"

// Instance is one open database: its storage engine, its reconciled schema
// catalog, and the compiled Collections ready for use in a Txn.
type Instance struct {
	engine      *Engine
	catalog     *schemaCatalog
	collections map[string]*Collection
}

// Open opens or creates the database at dir and reconciles schemas against
// whatever was persisted from a prior open (§4.3 lifecycle).
func Open(dir string, config Config, schemas []*CollectionSchema) (*Instance, error) {
	engine, err := OpenEngine(dir, config)
	if err != nil {
		return nil, err
	}

	cat, err := loadCatalog(engine)
	if err != nil {
		engine.Close()
		return nil, err
	}

	for _, s := range schemas {
		s.Compile()
		cat.Reconcile(s)
	}

	if err := saveCatalog(engine, cat); err != nil {
		engine.Close()
		return nil, err
	}

	inst := &Instance{engine: engine, catalog: cat, collections: make(map[string]*Collection)}
	for _, s := range schemas {
		col, err := buildCollection(s, config.HashAlgorithm)
		if err != nil {
			engine.Close()
			return nil, err
		}
		col.initLastOID(engine)
		inst.collections[s.Name] = col
	}

	return inst, nil
}

func buildCollection(s *CollectionSchema, alg HashAlgorithm) (*Collection, error) {
	col := &Collection{
		ID:         s.ID,
		Name:       s.Name,
		Properties: s.PropertyList(),
		StaticSize: s.StaticSize(),
	}
	for _, is := range s.Indexes {
		props := make([]Property, len(is.Properties))
		for i, name := range is.Properties {
			p, ok := s.Property(name)
			if !ok {
				return nil, illegalArg("index %v references unknown property %q", is.Properties, name)
			}
			props[i] = p
		}
		col.Indexes = append(col.Indexes, newIndex(s.ID, is, props, alg))
	}
	return col, nil
}

// Close closes the underlying storage engine. Any in-flight txns must
// already have been committed or aborted.
func (inst *Instance) Close() error { return inst.engine.Close() }

// Compact rewrites the journal down to the database's current live state,
// archiving everything superseded since the last open/compact into a
// zstd-compressed sibling file. It excludes other txns for its duration, so
// callers should schedule it off the hot path (e.g. periodically, or at
// startup before serving traffic).
func (inst *Instance) Compact() error { return inst.engine.Compact() }

// BeginTxn opens a read or write transaction (§4.9).
func (inst *Instance) BeginTxn(write bool) (*Txn, error) { return inst.engine.BeginTxn(write) }

// Collection looks up a compiled collection by name.
func (inst *Instance) Collection(name string) (*Collection, bool) {
	c, ok := inst.collections[name]
	return c, ok
}

// WatchCollection registers a collection-wide watcher (§4.10).
func (inst *Instance) WatchCollection(name string, cb func()) (*Watcher, error) {
	col, ok := inst.collections[name]
	if !ok {
		return nil, illegalArg("unknown collection %q", name)
	}
	return inst.engine.watchers.WatchCollection(col.ID, cb), nil
}

// WatchObject registers a watcher that fires only when oid changes.
func (inst *Instance) WatchObject(name string, oid int64, cb func()) (*Watcher, error) {
	col, ok := inst.collections[name]
	if !ok {
		return nil, illegalArg("unknown collection %q", name)
	}
	return inst.engine.watchers.WatchObject(col.ID, oid, cb), nil
}

// WatchQuery registers a watcher that fires when a committed change
// satisfies q's where-clauses and filter (§4.10).
func (inst *Instance) WatchQuery(q *Query, cb func()) (*Watcher, error) {
	matches := func(colID uint16, oid int64, bytes []byte) bool {
		return q.matchesWhereClauseAndFilter(oid, bytes)
	}
	return inst.engine.watchers.WatchQuery(q.Collection.ID, matches, cb), nil
}

// --- catalog persistence, under the info table (§6 "info db") ---

func loadCatalog(engine *Engine) (*schemaCatalog, error) {
	cat := newSchemaCatalog()
	raw, ok := engine.info.get([]byte(catalogKey))
	if !ok {
		return cat, nil
	}
	var persisted []CollectionSchema
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return nil, wrapErr(KindDbCorrupted, "decode persisted schema", err)
	}
	for i := range persisted {
		s := persisted[i]
		cat.collections[s.Name] = &s
		cat.usedColIDs[s.ID] = true
		for _, is := range s.Indexes {
			cat.usedIdxIDs[is.ID] = true
		}
	}
	return cat, nil
}

func saveCatalog(engine *Engine, cat *schemaCatalog) error {
	persisted := make([]CollectionSchema, 0, len(cat.collections))
	for _, name := range cat.sortedNames() {
		persisted = append(persisted, *cat.collections[name])
	}
	raw, err := json.Marshal(persisted)
	if err != nil {
		return wrapErr(KindJSONError, "encode schema", err)
	}

	txn, err := engine.BeginTxn(true)
	if err != nil {
		return err
	}
	if err := txn.InfoPut([]byte(catalogKey), raw); err != nil {
		txn.Abort()
		return err
	}
	return txn.Commit()
}
