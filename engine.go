// Core storage engine: an ordered, byte-keyed key-value store with MVCC
// snapshot reads and a single writer (§5). There is no external KV engine
// to delegate to in this port, so engine.go supplies one directly: each
// logical table is an immutable, sorted entry slice that a commit replaces
// wholesale (copy-on-write), which gives snapshot isolation for free —
// a reader holds a slice reference taken at BeginTxn and never observes
// later writes.
//
// Grounded on folio's DB type (state machine, blockRead/blockWrite,
// fileLock, Config) generalized from folio's single-file line-store to four
// named tables (primary / secondary / secondary_dup / info) per §6's
// storage format.
package embedb

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
)

// State constants for concurrency control, carried over from the teacher
// unchanged: StateNone blocks everyone (used during compaction).
const (
	StateAll    = 0
	StateRead   = 1
	StateNone   = 2
	StateClosed = 3
)

// Config holds storage engine configuration.
type Config struct {
	HashAlgorithm HashAlgorithm // backs String Hash index keys; distinct() always hashes with xxh3
	MaxRecordSize int           // bytes; bounds a single object blob (§3)
	SyncWrites    bool          // fsync the journal after every commit
}

func (c Config) withDefaults() Config {
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = 16 * 1024 * 1024
	}
	return c
}

type entry struct {
	key, value []byte
}

// table is an immutable sorted slice of entries. For non-dup tables each
// key is unique; for dup tables several entries may share a key and are
// ordered by (key, value).
type table struct {
	entries []entry
	dup     bool
}

func newTable(dup bool) *table { return &table{dup: dup} }

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// lowerBound returns the index of the first entry >= key (dup==false) or
// the first entry >= (key, "") (dup==true).
func (t *table) lowerBound(key []byte) int {
	return sort.Search(len(t.entries), func(i int) bool {
		return compareBytes(t.entries[i].key, key) >= 0
	})
}

func (t *table) get(key []byte) ([]byte, bool) {
	i := t.lowerBound(key)
	if i < len(t.entries) && compareBytes(t.entries[i].key, key) == 0 {
		return t.entries[i].value, true
	}
	return nil, false
}

// clone returns a shallow copy whose entries slice can be mutated
// independently (append/splice) without affecting the original — the
// copy-on-write step a write txn performs once at BeginTxn.
func (t *table) clone() *table {
	out := make([]entry, len(t.entries))
	copy(out, t.entries)
	return &table{entries: out, dup: t.dup}
}

// put inserts or overwrites (key, value). For dup tables, (key, value) must
// be unique; a duplicate (key, value) pair is a no-op.
func (t *table) put(key, value []byte) {
	if t.dup {
		i := sort.Search(len(t.entries), func(i int) bool {
			if c := compareBytes(t.entries[i].key, key); c != 0 {
				return c >= 0
			}
			return compareBytes(t.entries[i].value, value) >= 0
		})
		if i < len(t.entries) && compareBytes(t.entries[i].key, key) == 0 && compareBytes(t.entries[i].value, value) == 0 {
			return
		}
		t.entries = append(t.entries, entry{})
		copy(t.entries[i+1:], t.entries[i:])
		t.entries[i] = entry{key: key, value: value}
		return
	}
	i := t.lowerBound(key)
	if i < len(t.entries) && compareBytes(t.entries[i].key, key) == 0 {
		t.entries[i].value = value
		return
	}
	t.entries = append(t.entries, entry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = entry{key: key, value: value}
}

// putNoOverride inserts (key, value) only if key is absent (non-dup
// tables); returns false without mutating if key is already present.
func (t *table) putNoOverride(key, value []byte) bool {
	i := t.lowerBound(key)
	if i < len(t.entries) && compareBytes(t.entries[i].key, key) == 0 {
		return false
	}
	t.entries = append(t.entries, entry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = entry{key: key, value: value}
	return true
}

// delete removes the entry at key (non-dup) or returns false if absent.
func (t *table) delete(key []byte) bool {
	i := t.lowerBound(key)
	if i < len(t.entries) && compareBytes(t.entries[i].key, key) == 0 {
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return true
	}
	return false
}

// deleteKeyVal removes a single (key, value) pair from a dup table.
func (t *table) deleteKeyVal(key, value []byte) bool {
	i := sort.Search(len(t.entries), func(i int) bool {
		if c := compareBytes(t.entries[i].key, key); c != 0 {
			return c >= 0
		}
		return compareBytes(t.entries[i].value, value) >= 0
	})
	if i < len(t.entries) && compareBytes(t.entries[i].key, key) == 0 && compareBytes(t.entries[i].value, value) == 0 {
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return true
	}
	return false
}

// deletePrefix removes every entry whose key starts with prefix, used by
// Index.Clear (§4.5).
func (t *table) deletePrefix(prefix []byte) int {
	lo := t.lowerBound(prefix)
	hi := lo
	for hi < len(t.entries) && hasPrefix(t.entries[hi].key, prefix) {
		hi++
	}
	n := hi - lo
	t.entries = append(t.entries[:lo], t.entries[hi:]...)
	return n
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && compareBytes(b[:len(prefix)], prefix) == 0
}

// Engine is the open storage handle shared by every Txn. Its four tables
// are swapped atomically on commit; readers hold the slice they observed
// at BeginTxn and are unaffected by later swaps (MVCC).
type Engine struct {
	dir    string
	config Config

	mu sync.RWMutex // guards the four table pointers below
	primary,
	secondary,
	secondaryDup,
	info *table

	journal *journal
	lock    *fileLock
	lockF   *os.File

	state atomic.Int32
	cond  *sync.Cond
	condL sync.Mutex

	writeMu sync.Mutex // single writer, acquired for the lifetime of a write txn

	watchers *watcherRegistry
}

// OpenEngine opens or creates the storage engine rooted at dir, replaying
// its journal to rebuild the four in-memory tables.
func OpenEngine(dir string, config Config) (*Engine, error) {
	config = config.withDefaults()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, wrapErr(KindInternal, "mkdir", err)
	}

	lockPath := filepath.Join(dir, "embedb.lock")
	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, wrapErr(KindInternal, "open lock file", err)
	}

	j, err := openJournal(filepath.Join(dir, "embedb.journal"), config.SyncWrites)
	if err != nil {
		lf.Close()
		return nil, wrapErr(KindDbCorrupted, "open journal", err)
	}

	ops, err := replayJournal(filepath.Join(dir, "embedb.journal"))
	if err != nil {
		lf.Close()
		j.Close()
		return nil, wrapErr(KindDbCorrupted, "replay journal", err)
	}

	e := &Engine{
		dir:          dir,
		config:       config,
		primary:      newTable(false),
		secondary:    newTable(false),
		secondaryDup: newTable(true),
		info:         newTable(false),
		journal:      j,
		lockF:        lf,
		lock:         &fileLock{f: lf},
		watchers:     newWatcherRegistry(),
	}
	e.cond = sync.NewCond(&e.condL)

	if err := e.lock.Acquire(); err != nil {
		lf.Close()
		j.Close()
		return nil, err
	}

	for _, op := range ops {
		t := e.tableByName(op.DB)
		if t == nil {
			continue
		}
		switch op.Op {
		case "put":
			t.put(op.Key, op.Value)
		case "del":
			t.delete(op.Key)
		case "delkv":
			t.deleteKeyVal(op.Key, op.Value)
		case "delprefix":
			t.deletePrefix(op.Key)
		}
	}

	return e, nil
}

func (e *Engine) tableByName(name string) *table {
	switch name {
	case "primary":
		return e.primary
	case "secondary":
		return e.secondary
	case "secondary_dup":
		return e.secondaryDup
	case "info":
		return e.info
	default:
		return nil
	}
}

// Close releases the engine's resources. Any open txns must already have
// been committed or aborted.
func (e *Engine) Close() error {
	e.condL.Lock()
	e.state.Store(StateClosed)
	e.cond.Broadcast()
	e.condL.Unlock()

	if e.lock != nil {
		e.lock.Release()
	}
	if err := e.journal.Close(); err != nil {
		return err
	}
	return e.lockF.Close()
}

// blockWrite waits for exclusive access, matching folio's state-machine
// gate: only StateAll permits a new writer. Coordination here is entirely
// in-process (writeMu/cond); fileLock was already claimed once at Open and
// plays no further part per transaction.
func (e *Engine) blockWrite() error {
	if e.state.Load() == StateClosed {
		return ErrClosed
	}
	e.condL.Lock()
	for e.state.Load() != StateAll {
		if e.state.Load() == StateClosed {
			e.condL.Unlock()
			return ErrClosed
		}
		e.cond.Wait()
	}
	e.writeMu.Lock()
	e.condL.Unlock()
	return nil
}

func (e *Engine) unblockWrite() {
	e.writeMu.Unlock()
}

// blockRead waits until reads are permitted (StateNone, set during
// compaction, blocks new readers) and returns an MVCC snapshot of the four
// tables. Unlike folio's Get/Exists (each a single short call), a Txn here
// lives across many Collection calls, so the read-side gate is only
// checked long enough to copy the four pointers, not for the txn's whole
// lifetime — the copy-on-write tables themselves provide the snapshot
// guarantee, so a concurrent writer's commit never blocks on a slow reader.
func (e *Engine) blockRead() (primary, secondary, secondaryDup, info *table, err error) {
	if e.state.Load() == StateClosed {
		return nil, nil, nil, nil, ErrClosed
	}

	e.condL.Lock()
	for e.state.Load() == StateNone {
		if e.state.Load() == StateClosed {
			e.condL.Unlock()
			return nil, nil, nil, nil, ErrClosed
		}
		e.cond.Wait()
	}
	e.condL.Unlock()

	e.mu.RLock()
	primary, secondary, secondaryDup, info = e.primary, e.secondary, e.secondaryDup, e.info
	e.mu.RUnlock()
	return
}

// swap atomically replaces the four tables with a write txn's working
// copies and persists its ops to the journal — the commit step (§4.9).
func (e *Engine) swap(primary, secondary, secondaryDup, info *table, ops []journalOp) error {
	if err := e.journal.appendTxn(ops); err != nil {
		return err
	}
	e.mu.Lock()
	e.primary, e.secondary, e.secondaryDup, e.info = primary, secondary, secondaryDup, info
	e.mu.Unlock()
	return nil
}

// Compact rewrites the journal to hold exactly the engine's current live
// state, archiving everything superseded since the last open into a
// zstd-compressed sibling file (see compactJournal). It excludes new readers
// and writers for its duration via StateNone, the same gate folio uses
// around its own Compact/Rehash pass.
func (e *Engine) Compact() error {
	if e.state.Load() == StateClosed {
		return ErrClosed
	}

	e.condL.Lock()
	for e.state.Load() != StateAll {
		if e.state.Load() == StateClosed {
			e.condL.Unlock()
			return ErrClosed
		}
		e.cond.Wait()
	}
	e.writeMu.Lock()
	e.state.Store(StateNone)
	e.condL.Unlock()

	defer func() {
		e.condL.Lock()
		e.state.Store(StateAll)
		e.cond.Broadcast()
		e.condL.Unlock()
		e.writeMu.Unlock()
	}()

	e.mu.RLock()
	ops := snapshotOps(e.primary, e.secondary, e.secondaryDup, e.info)
	e.mu.RUnlock()

	path := filepath.Join(e.dir, "embedb.journal")
	if err := e.journal.Close(); err != nil {
		return wrapErr(KindInternal, "close journal before compaction", err)
	}
	if err := compactJournal(path, ops); err != nil {
		j, reopenErr := openJournal(path, e.config.SyncWrites)
		if reopenErr == nil {
			e.journal = j
		}
		return wrapErr(KindInternal, "compact journal", err)
	}
	j, err := openJournal(path, e.config.SyncWrites)
	if err != nil {
		return wrapErr(KindDbCorrupted, "reopen journal after compaction", err)
	}
	e.journal = j
	return nil
}

// snapshotOps flattens the four live tables into the "put" ops compactJournal
// needs to rewrite the journal as a single committed transaction.
func snapshotOps(primary, secondary, secondaryDup, info *table) []journalOp {
	tables := []struct {
		name string
		tbl  *table
	}{
		{"primary", primary},
		{"secondary", secondary},
		{"secondary_dup", secondaryDup},
		{"info", info},
	}
	var ops []journalOp
	for _, t := range tables {
		for _, e := range t.tbl.entries {
			ops = append(ops, journalOp{Op: "put", DB: t.name, Key: e.key, Value: e.value})
		}
	}
	return ops
}
