// Index key generation and maintenance tests (§4.5).
package embedb

import "testing"

// TestCreateKeysValueIndexOneKeyPerObject verifies a Value-type terminal
// property produces exactly one key, the common case for a unique index.
func TestCreateKeysValueIndexOneKeyPerObject(t *testing.T) {
	_, col := openTestInstance(t)
	nameIdx := col.Indexes[0] // unique Value index on "name"
	blob := buildItem(col, 1, "Alice", "loves go and rust", 10)
	var keys [][]byte
	nameIdx.CreateKeys(NewObject(blob), func(key []byte) {
		keys = append(keys, append([]byte{}, key...))
	})
	if len(keys) != 1 {
		t.Fatalf("Value index CreateKeys produced %d keys, want 1", len(keys))
	}
}

// TestCreateKeysWordsIndexOneKeyPerUniqueWord verifies a Words index emits
// one key per distinct word, de-duplicating repeats within the same field.
func TestCreateKeysWordsIndexOneKeyPerUniqueWord(t *testing.T) {
	_, col := openTestInstance(t)
	bioIdx := col.Indexes[1] // Words index on "bio"
	blob := buildItem(col, 1, "Alice", "go go rust", 10)
	var keys [][]byte
	bioIdx.CreateKeys(NewObject(blob), func(key []byte) {
		keys = append(keys, append([]byte{}, key...))
	})
	if len(keys) != 2 {
		t.Fatalf("Words index over \"go go rust\" produced %d keys, want 2 (go, rust)", len(keys))
	}
}

func TestUniqueWordsIgnoresPunctuationOnlySegments(t *testing.T) {
	words := uniqueWords("hello, world!!")
	if len(words) != 2 {
		t.Fatalf("uniqueWords(%q) = %v, want 2 words", "hello, world!!", words)
	}
}

// newReplaceSchema builds a collection with a unique index whose Replace
// policy differs per test, isolating the two branches of CreateForObject's
// collision handling.
func newReplaceSchema(t *testing.T, replace bool) *CollectionSchema {
	t.Helper()
	s := &CollectionSchema{Name: "users"}
	must(t, s.AddProperty("email", String))
	must(t, s.AddIndex([]string{"email"}, true, replace, IndexValue, false))
	s.Compile()
	return s
}

func buildUser(col *Collection, oid int64, email string) []byte {
	b := NewObjectBuilder(col.Properties, col.StaticSize)
	b.WriteString(&email)
	return b.Finish(oid)
}

// TestUniqueIndexCollisionFailsWithoutReplace verifies Put rejects a
// second row whose unique-index key matches an existing row's, when the
// index's Replace policy is false.
func TestUniqueIndexCollisionFailsWithoutReplace(t *testing.T) {
	dir := t.TempDir()
	inst, err := Open(dir, Config{}, []*CollectionSchema{newReplaceSchema(t, false)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()
	col, _ := inst.Collection("users")

	txn, _ := inst.BeginTxn(true)
	if _, err := col.Put(txn, buildUser(col, 0, "a@example.com")); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if _, err := col.Put(txn, buildUser(col, 0, "a@example.com")); err == nil {
		t.Errorf("second Put with a colliding unique key must fail when Replace is false")
	}
	txn.Abort()
}

// TestUniqueIndexCollisionReplacesOwnerWhenReplaceTrue verifies a
// colliding Put deletes the prior owning row (and its own index entries)
// instead of failing, when the index's Replace policy is true.
func TestUniqueIndexCollisionReplacesOwnerWhenReplaceTrue(t *testing.T) {
	dir := t.TempDir()
	inst, err := Open(dir, Config{}, []*CollectionSchema{newReplaceSchema(t, true)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()
	col, _ := inst.Collection("users")

	txn, _ := inst.BeginTxn(true)
	firstOID, err := col.Put(txn, buildUser(col, 0, "a@example.com"))
	must(t, err)
	secondOID, err := col.Put(txn, buildUser(col, 0, "a@example.com"))
	must(t, err)
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rtxn, _ := inst.BeginTxn(false)
	if _, ok := col.Get(rtxn, firstOID); ok {
		t.Errorf("the replaced owner row must no longer exist")
	}
	if _, ok := col.Get(rtxn, secondOID); !ok {
		t.Errorf("the new row must exist after replacing the collision")
	}
	rtxn.Abort()
}

// TestIndexClearRemovesAllEntries verifies Collection.Clear wipes every
// index entry, not just the data rows, so a subsequent Put of a
// previously-colliding unique value succeeds.
func TestIndexClearRemovesAllEntries(t *testing.T) {
	dir := t.TempDir()
	inst, err := Open(dir, Config{}, []*CollectionSchema{newReplaceSchema(t, false)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()
	col, _ := inst.Collection("users")

	txn, _ := inst.BeginTxn(true)
	must(t, mustPut(t, col, txn, "a@example.com"))
	if _, err := col.Clear(txn); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := col.Put(txn, buildUser(col, 0, "a@example.com")); err != nil {
		t.Errorf("Put after Clear must succeed, the unique index entry should be gone: %v", err)
	}
	txn.Abort()
}

func mustPut(t *testing.T, col *Collection, txn *Txn, email string) error {
	t.Helper()
	_, err := col.Put(txn, buildUser(col, 0, email))
	return err
}
