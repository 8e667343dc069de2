// Watchers / change-set (§4.10). Three registration kinds share one
// registry: collection watchers fire on any change in a collection, object
// watchers fire only for a specific oid, and query watchers fire when a
// change matches the query's where-clauses and filter.
//
// ChangeSet.RegisterChange only records changes. notify applies the
// "first watcher id wins" rule: every watcher of the collection is checked
// against every change, and a watcher already queued by an earlier change
// of the same commit is skipped, so each callback runs at most once per
// commit.
package embedb

import "sync"

// change is one committed mutation recorded for watcher dispatch.
type change struct {
	colID uint16
	oid   int64
	bytes []byte // nil for a delete
}

// ChangeSet accumulates changes during a single write txn and is consumed
// exactly once, by notify, after the txn's commit has already succeeded.
type ChangeSet struct {
	changes []change
	// fired de-dupes per watcher id: a watcher that already matched one
	// change in this txn is not invoked twice.
	fired map[uint64]bool
}

func newChangeSet() *ChangeSet {
	return &ChangeSet{fired: make(map[uint64]bool)}
}

// RegisterChange records a committed (oid, bytes) pair for colID. bytes is
// nil for a delete. Per SPEC_FULL.md's Open Question #1, this is called
// unconditionally — even when Put writes byte-identical content.
func (cs *ChangeSet) RegisterChange(colID uint16, oid int64, bytes []byte) {
	cs.changes = append(cs.changes, change{colID: colID, oid: oid, bytes: bytes})
}

// Watcher is a live registration. Cancel removes it from the registry; a
// cancelled watcher's callback is never invoked again.
type Watcher struct {
	id       uint64
	kind     watcherKind
	colID    uint16
	oid      int64           // object watcher only
	matches  func(colID uint16, oid int64, bytes []byte) bool // query watcher only
	callback func()

	registry *watcherRegistry
}

type watcherKind int

const (
	watcherCollection watcherKind = iota
	watcherObject
	watcherQuery
)

// Cancel unregisters the watcher. Safe to call more than once.
func (w *Watcher) Cancel() {
	w.registry.remove(w.id)
}

// watcherRegistry holds every live watcher across all collections, guarded
// by one mutex — the change-set borrows it for the duration of a write
// txn's notify step (§5 "Shared resources").
type watcherRegistry struct {
	mu      sync.Mutex
	nextID  uint64
	byCol   map[uint16][]*Watcher
}

func newWatcherRegistry() *watcherRegistry {
	return &watcherRegistry{byCol: make(map[uint16][]*Watcher)}
}

func (r *watcherRegistry) register(w *Watcher) *Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	w.id = r.nextID
	w.registry = r
	r.byCol[w.colID] = append(r.byCol[w.colID], w)
	return w
}

func (r *watcherRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for colID, ws := range r.byCol {
		for i, w := range ws {
			if w.id == id {
				r.byCol[colID] = append(ws[:i], ws[i+1:]...)
				return
			}
		}
	}
}

// WatchCollection fires cb on every committed change to colID.
func (r *watcherRegistry) WatchCollection(colID uint16, cb func()) *Watcher {
	return r.register(&Watcher{kind: watcherCollection, colID: colID, callback: cb})
}

// WatchObject fires cb only when oid changes within colID.
func (r *watcherRegistry) WatchObject(colID uint16, oid int64, cb func()) *Watcher {
	return r.register(&Watcher{kind: watcherObject, colID: colID, oid: oid, callback: cb})
}

// WatchQuery fires cb when a change in colID satisfies matches.
func (r *watcherRegistry) WatchQuery(colID uint16, matches func(colID uint16, oid int64, bytes []byte) bool, cb func()) *Watcher {
	return r.register(&Watcher{kind: watcherQuery, colID: colID, matches: matches, callback: cb})
}

// notify invokes each matching watcher's callback at most once per commit,
// strictly after the commit that produced cs has already succeeded
// (§8 invariant 7).
func (r *watcherRegistry) notify(cs *ChangeSet) {
	if cs == nil || len(cs.changes) == 0 {
		return
	}
	r.mu.Lock()
	// Snapshot the watcher list under the lock, then invoke callbacks
	// outside it so a callback that registers/cancels a watcher cannot
	// deadlock against this same mutex.
	type firing struct {
		w *Watcher
	}
	var toFire []firing
	fired := cs.fired

	for _, ch := range cs.changes {
		for _, w := range r.byCol[ch.colID] {
			if fired[w.id] {
				continue // first watcher id wins, per change_set.rs
			}
			switch w.kind {
			case watcherCollection:
				fired[w.id] = true
				toFire = append(toFire, firing{w})
			case watcherObject:
				if w.oid == ch.oid {
					fired[w.id] = true
					toFire = append(toFire, firing{w})
				}
			case watcherQuery:
				if w.matches(ch.colID, ch.oid, ch.bytes) {
					fired[w.id] = true
					toFire = append(toFire, firing{w})
				}
			}
		}
	}
	r.mu.Unlock()

	for _, f := range toFire {
		f.w.callback()
	}
}
