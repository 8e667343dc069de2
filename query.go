// Query engine (§4.8): runs a list of where-clauses (de-duplicating by oid
// when they overlap), applies an optional filter, then either an unsorted
// fast path (distinct → offset/limit, streaming) or a sorted path
// (collect → stable sort → distinct → offset/limit).
package embedb

import (
	"sort"

	json "github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

func marshalRows(rows []map[string]any) ([]byte, error) {
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, wrapErr(KindJSONError, "export_json: encode", err)
	}
	return b, nil
}

// SortKey orders the sorted execution path by one property.
type SortKey struct {
	Property Property
	Order    SortOrder
}

// DistinctKey de-duplicates results by one property's encoded value.
type DistinctKey struct {
	Property      Property
	CaseSensitive bool
}

// Query is a fully-built query ready to execute against a collection.
type Query struct {
	Collection *Collection
	Clauses    []WhereClause
	Filter     Filter
	Sorts      []SortKey
	Distincts  []DistinctKey
	Offset     int
	Limit      int // 0 means unlimited
}

func (q *Query) effectiveClauses() []WhereClause {
	if len(q.Clauses) > 0 {
		return q.Clauses
	}
	return []WhereClause{IdWhereClause{ColID: q.Collection.ID, Lower: MinID, Upper: MaxID, Sort: Asc}}
}

func (q *Query) overlapping() bool {
	clauses := q.effectiveClauses()
	for i := 0; i < len(clauses); i++ {
		for j := i + 1; j < len(clauses); j++ {
			if IsOverlapping(clauses[i], clauses[j]) {
				return true
			}
		}
	}
	return false
}

func (q *Query) passesFilter(obj Object) bool {
	if q.Filter == nil {
		return true
	}
	return q.Filter.Evaluate(obj)
}

// matchesWhereClauseAndFilter reports whether (oid, bytes) lies in at
// least one of this query's where-clause ranges and passes its filter —
// used by query watchers (§4.10) to decide whether a committed change is
// relevant without re-running the whole query.
func (q *Query) matchesWhereClauseAndFilter(oid int64, bytes []byte) bool {
	if bytes == nil {
		return false
	}
	obj := NewObject(bytes)
	if !q.passesFilter(obj) {
		return false
	}
	for _, c := range q.effectiveClauses() {
		if clauseContainsID(c, oid) {
			return true
		}
	}
	return false
}

func clauseContainsID(c WhereClause, oid int64) bool {
	if w, ok := c.(IdWhereClause); ok {
		return oid >= w.Lower && oid <= w.Upper
	}
	return true // index clauses: membership already implied by the caller's data row lookup
}

// candidate is one row that passed the where-clause + filter stage,
// carried through distinct/sort/offset/limit.
type candidate struct {
	oid  int64
	obj  Object
}

// FindWhile runs the query and invokes cb for each matching object in
// order, stopping as soon as cb returns false (§4.8 terminal callback
// protocol).
func (q *Query) FindWhile(txn *Txn, cb func(oid int64, obj Object) bool) error {
	if len(q.Sorts) > 0 {
		return q.findWhileSorted(txn, cb)
	}
	return q.findWhileUnsorted(txn, cb)
}

func (q *Query) findWhileUnsorted(txn *Txn, cb func(oid int64, obj Object) bool) error {
	overlapping := q.overlapping()
	seenIDs := make(map[int64]bool)
	seenDistinct := make(map[uint64]bool)
	produced := 0
	skipped := 0
	stop := false

	for _, clause := range q.effectiveClauses() {
		if stop {
			break
		}
		clause.Iterate(txn, func(oid int64, bytes []byte) bool {
			if overlapping {
				if seenIDs[oid] {
					return true
				}
				seenIDs[oid] = true
			}
			obj := NewObject(bytes)
			if !q.passesFilter(obj) {
				return true
			}
			if len(q.Distincts) > 0 {
				h := distinctHash(obj, q.Distincts)
				if seenDistinct[h] {
					return true
				}
				seenDistinct[h] = true
			}
			if skipped < q.Offset {
				skipped++
				return true
			}
			if q.Limit > 0 && produced >= q.Limit {
				stop = true
				return false
			}
			produced++
			if !cb(oid, obj) {
				stop = true
				return false
			}
			if q.Limit > 0 && produced >= q.Limit {
				stop = true
				return false
			}
			return true
		})
	}
	return nil
}

func (q *Query) findWhileSorted(txn *Txn, cb func(oid int64, obj Object) bool) error {
	overlapping := q.overlapping()
	seenIDs := make(map[int64]bool)
	var all []candidate

	for _, clause := range q.effectiveClauses() {
		clause.Iterate(txn, func(oid int64, bytes []byte) bool {
			if overlapping {
				if seenIDs[oid] {
					return true
				}
				seenIDs[oid] = true
			}
			obj := NewObject(bytes)
			if q.passesFilter(obj) {
				all = append(all, candidate{oid: oid, obj: obj})
			}
			return true
		})
	}

	sort.SliceStable(all, func(i, j int) bool {
		for _, sk := range q.Sorts {
			c := all[i].obj.CompareProperty(all[j].obj, sk.Property, true)
			if sk.Order == Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})

	if len(q.Distincts) > 0 {
		seen := make(map[uint64]bool)
		filtered := all[:0]
		for _, c := range all {
			h := distinctHash(c.obj, q.Distincts)
			if seen[h] {
				continue
			}
			seen[h] = true
			filtered = append(filtered, c)
		}
		all = filtered
	}

	lo := q.Offset
	if lo > len(all) {
		lo = len(all)
	}
	hi := len(all)
	if q.Limit > 0 && lo+q.Limit < hi {
		hi = lo + q.Limit
	}
	for _, c := range all[lo:hi] {
		if !cb(c.oid, c.obj) {
			return nil
		}
	}
	return nil
}

// distinctHash hashes the selected properties' canonical encoded bytes
// with xxh3, the fast 64-bit hasher standing in for wyhash (§4.8).
func distinctHash(obj Object, keys []DistinctKey) uint64 {
	h := xxh3.New()
	for _, k := range keys {
		obj.HashProperty(k.Property, k.CaseSensitive, h)
	}
	return h.Sum64()
}

// Count returns the number of matching rows without materializing them.
func (q *Query) Count(txn *Txn) (int, error) {
	n := 0
	err := q.FindWhile(txn, func(int64, Object) bool {
		n++
		return true
	})
	return n, err
}

// ExportJSON renders every matching row the same way Collection.ExportJSON
// does, but restricted to this query's results.
func (q *Query) ExportJSON(txn *Txn) ([]byte, error) {
	var rows []map[string]any
	err := q.FindWhile(txn, func(oid int64, obj Object) bool {
		rows = append(rows, q.Collection.toJSON(obj))
		return true
	})
	if err != nil {
		return nil, err
	}
	return marshalRows(rows)
}
