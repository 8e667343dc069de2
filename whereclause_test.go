// Where-clause iteration and overlap tests (§4.6).
package embedb

import (
	"fmt"
	"testing"
)

func seedRows(t *testing.T, inst *Instance, col *Collection, n int) {
	t.Helper()
	txn, err := inst.BeginTxn(true)
	if err != nil {
		t.Fatalf("BeginTxn: %v", err)
	}
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("user%d", i) // "name" carries a unique index
		_, err := col.Put(txn, buildItem(col, int64(i), name, "bio", int64(i)))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestIdWhereClauseAscendingOrder(t *testing.T) {
	inst, col := openTestInstance(t)
	seedRows(t, inst, col, 5)

	txn, _ := inst.BeginTxn(false)
	defer txn.Abort()
	w := IdWhereClause{ColID: col.ID, Lower: MinID, Upper: MaxID, Sort: Asc}
	var got []int64
	w.Iterate(txn, func(oid int64, bytes []byte) bool {
		got = append(got, oid)
		return true
	})
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("ascending iteration out of order: %v", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("got %d rows, want 5", len(got))
	}
}

func TestIdWhereClauseDescendingOrder(t *testing.T) {
	inst, col := openTestInstance(t)
	seedRows(t, inst, col, 5)

	txn, _ := inst.BeginTxn(false)
	defer txn.Abort()
	w := IdWhereClause{ColID: col.ID, Lower: MinID, Upper: MaxID, Sort: Desc}
	var got []int64
	w.Iterate(txn, func(oid int64, bytes []byte) bool {
		got = append(got, oid)
		return true
	})
	for i := 1; i < len(got); i++ {
		if got[i] >= got[i-1] {
			t.Fatalf("descending iteration out of order: %v", got)
		}
	}
}

func TestIdWhereClauseStopsEarly(t *testing.T) {
	inst, col := openTestInstance(t)
	seedRows(t, inst, col, 5)

	txn, _ := inst.BeginTxn(false)
	defer txn.Abort()
	w := IdWhereClause{ColID: col.ID, Lower: MinID, Upper: MaxID, Sort: Asc}
	count := 0
	w.Iterate(txn, func(oid int64, bytes []byte) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("Iterate must stop as soon as cb returns false, got %d calls", count)
	}
}

func TestIdWhereClauseIsEmptyWhenUpperBelowLower(t *testing.T) {
	w := IdWhereClause{ColID: 1, Lower: 5, Upper: 1}
	if !w.IsEmpty() {
		t.Errorf("IsEmpty() = false for an inverted range, want true")
	}
}

// TestIsOverlappingSameIndexRangesOverlap verifies two index where-clauses
// over the same index whose byte ranges intersect are reported as
// overlapping, so the query engine de-duplicates oids across them.
func TestIsOverlappingSameIndexRangesOverlap(t *testing.T) {
	a := IndexWhereClause{ColID: 1, IndexID: 1, LowerKey: []byte{0, 5}, UpperKey: []byte{0, 15}}
	b := IndexWhereClause{ColID: 1, IndexID: 1, LowerKey: []byte{0, 10}, UpperKey: []byte{0, 20}}
	if !IsOverlapping(a, b) {
		t.Errorf("intersecting ranges over the same index must be reported as overlapping")
	}
}

func TestIsOverlappingDifferentIndexesNeverOverlap(t *testing.T) {
	a := IndexWhereClause{ColID: 1, IndexID: 1, LowerKey: []byte{0, 0}, UpperKey: []byte{255}}
	b := IndexWhereClause{ColID: 1, IndexID: 2, LowerKey: []byte{0, 0}, UpperKey: []byte{255}}
	if IsOverlapping(a, b) {
		t.Errorf("clauses over distinct indexes must never be reported as overlapping")
	}
}

func TestIsOverlappingDisjointIdRangesDoNotOverlap(t *testing.T) {
	a := IdWhereClause{ColID: 1, Lower: 1, Upper: 5}
	b := IdWhereClause{ColID: 1, Lower: 6, Upper: 10}
	if IsOverlapping(a, b) {
		t.Errorf("disjoint id ranges must not be reported as overlapping")
	}
}
