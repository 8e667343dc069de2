// Where-clauses (§4.6): ordered range iteration over either the primary
// data table (IdWhereClause) or a secondary index table (IndexWhereClause),
// producing (id, object) pairs for the query engine.
package embedb

// Sort direction for a where-clause's iteration order.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

// idOrObject is one (oid, object-bytes) pair yielded by a where-clause.
type idOrObject struct {
	oid   int64
	bytes []byte
}

// WhereClause is the common iteration interface both clause kinds satisfy;
// the query engine drives it without caring which kind it is.
type WhereClause interface {
	// IsEmpty reports a statically-empty range (upper < lower), §4.6.
	IsEmpty() bool
	// Iterate calls cb for every (oid, bytes) pair in range, in the
	// clause's sort order, stopping early if cb returns false.
	Iterate(txn *Txn, cb func(oid int64, bytes []byte) bool)
	// overlapKey identifies this clause's kind+prefix for IsOverlapping.
	overlapKey() string
	// lowerUpper exposes the raw bound bytes for overlap comparison.
	lowerUpper() (lower, upper []byte)
}

// IdWhereClause iterates the primary table between two oids, inclusive.
type IdWhereClause struct {
	ColID uint16
	Lower int64
	Upper int64
	Sort  SortOrder
}

func (w IdWhereClause) IsEmpty() bool { return w.Upper < w.Lower }

func (w IdWhereClause) Iterate(txn *Txn, cb func(oid int64, bytes []byte) bool) {
	if w.IsEmpty() {
		return
	}
	lowerKey := encodeDataKey(w.ColID, w.Lower)
	upperKey := encodeDataKey(w.ColID, w.Upper)
	cur := txn.DataCursor()

	if w.Sort == Asc {
		for ok := cur.Seek(lowerKey); ok && compareBytes(cur.Key(), upperKey) <= 0; ok = cur.Next() {
			colID, oid := decodeDataKey(cur.Key())
			if colID != w.ColID {
				break
			}
			if !cb(oid, cur.Value()) {
				return
			}
		}
		return
	}

	if !cur.SeekLast(upperKey) {
		return
	}
	for cur.Valid() && compareBytes(cur.Key(), lowerKey) >= 0 {
		colID, oid := decodeDataKey(cur.Key())
		if colID != w.ColID {
			break
		}
		if !cb(oid, cur.Value()) {
			return
		}
		if !cur.Prev() {
			break
		}
	}
}

func (w IdWhereClause) overlapKey() string { return "id" }

func (w IdWhereClause) lowerUpper() (lower, upper []byte) {
	return encodeDataKey(w.ColID, w.Lower), encodeDataKey(w.ColID, w.Upper)
}

// IndexWhereClause iterates a secondary index table between two encoded
// keys, resolving each entry to its data row.
type IndexWhereClause struct {
	ColID          uint16
	IndexID        uint16
	Unique         bool
	LowerKey       []byte
	UpperKey       []byte
	SkipDuplicates bool
	Sort           SortOrder
}

func (w IndexWhereClause) IsEmpty() bool { return compareBytes(w.UpperKey, w.LowerKey) < 0 }

func (w IndexWhereClause) Iterate(txn *Txn, cb func(oid int64, bytes []byte) bool) {
	if w.IsEmpty() {
		return
	}
	var lastKey []byte
	emit := func(dataKey []byte) bool {
		val, ok := txn.DataGet(dataKey)
		if !ok {
			return true
		}
		_, oid := decodeDataKey(dataKey)
		return cb(oid, val)
	}

	if w.Sort == Asc {
		cursor := txn.SecondaryCursor()
		if !w.Unique {
			cursor = txn.SecondaryDupCursor()
		}
		if !cursor.Seek(w.LowerKey) || compareBytes(cursor.Key(), w.UpperKey) > 0 {
			return
		}
		for cursor.Valid() && compareBytes(cursor.Key(), w.UpperKey) <= 0 {
			if w.SkipDuplicates && lastKey != nil && compareBytes(cursor.Key(), lastKey) == 0 {
				if !cursor.Next() {
					return
				}
				continue
			}
			lastKey = append([]byte{}, cursor.Key()...)
			if !emit(cursor.Value()) {
				return
			}
			if !cursor.Next() {
				return
			}
		}
		return
	}

	cursor := txn.SecondaryCursor()
	if !w.Unique {
		cursor = txn.SecondaryDupCursor()
	}
	if !cursor.SeekLast(w.UpperKey) {
		return
	}
	for cursor.Valid() && compareBytes(cursor.Key(), w.LowerKey) >= 0 {
		if w.SkipDuplicates && lastKey != nil && compareBytes(cursor.Key(), lastKey) == 0 {
			if !cursor.Prev() {
				return
			}
			continue
		}
		lastKey = append([]byte{}, cursor.Key()...)
		if !emit(cursor.Value()) {
			return
		}
		if !cursor.Prev() {
			return
		}
	}
}

func (w IndexWhereClause) overlapKey() string {
	return "index"
}

func (w IndexWhereClause) lowerUpper() (lower, upper []byte) { return w.LowerKey, w.UpperKey }

// IsOverlapping reports whether two where-clauses of the same kind and
// index/collection can yield the same oid — their ranges contain each
// other's endpoint (§4.6). Clauses of different kinds (id vs. index) are
// always treated as overlapping, conservatively, since the query engine
// cannot otherwise prove they are disjoint on oid.
func IsOverlapping(a, b WhereClause) bool {
	ak, bk := a.overlapKey(), b.overlapKey()
	if ak != bk {
		return true
	}
	if aw, ok := a.(IndexWhereClause); ok {
		bw := b.(IndexWhereClause)
		if aw.IndexID != bw.IndexID {
			return false
		}
	}
	if aw, ok := a.(IdWhereClause); ok {
		bw := b.(IdWhereClause)
		if aw.ColID != bw.ColID {
			return false
		}
	}
	al, au := a.lowerUpper()
	bl, bu := b.lowerUpper()
	return compareBytes(al, bu) <= 0 && compareBytes(bl, au) <= 0
}
