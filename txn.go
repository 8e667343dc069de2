// Transaction & cursors (§4.9). A Txn is either a read-only snapshot or an
// exclusive read-write transaction; BeginTxn blocks until the requested
// mode is available, matching folio's blockRead/blockWrite gate.
package embedb

// Txn holds one transaction's view of the four logical tables and, for a
// write txn, its pending journal ops and accumulated ChangeSet.
type Txn struct {
	engine *Engine
	write  bool
	active bool

	primary, secondary, secondaryDup, info *table

	ops       []journalOp
	changeSet *ChangeSet
}

// BeginTxn opens a transaction. write=true blocks until the exclusive
// writer slot is free; write=false takes an MVCC snapshot immediately
// (subject only to StateNone during compaction).
func (e *Engine) BeginTxn(write bool) (*Txn, error) {
	if write {
		if err := e.blockWrite(); err != nil {
			return nil, err
		}
		return &Txn{
			engine:       e,
			write:        true,
			active:       true,
			primary:      e.primary.clone(),
			secondary:    e.secondary.clone(),
			secondaryDup: e.secondaryDup.clone(),
			info:         e.info.clone(),
			changeSet:    newChangeSet(),
		}, nil
	}

	primary, secondary, secondaryDup, info, err := e.blockRead()
	if err != nil {
		return nil, err
	}
	return &Txn{
		engine:       e,
		write:        false,
		active:       true,
		primary:      primary,
		secondary:    secondary,
		secondaryDup: secondaryDup,
		info:         info,
	}, nil
}

func (t *Txn) requireActive() error {
	if !t.active {
		return ErrTxnInactive
	}
	return nil
}

func (t *Txn) requireWrite() error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if !t.write {
		return ErrWriteTxnRequired
	}
	return nil
}

// Commit persists every mutation made through this txn to the journal,
// atomically swaps it into the engine, and notifies watchers — strictly
// after the swap succeeds, per §4.9/§8 invariant 7.
func (t *Txn) Commit() error {
	if err := t.requireActive(); err != nil {
		return err
	}
	t.active = false
	if !t.write {
		return nil
	}
	defer t.engine.unblockWrite()

	if err := t.engine.swap(t.primary, t.secondary, t.secondaryDup, t.info, t.ops); err != nil {
		return err
	}
	t.engine.watchers.notify(t.changeSet)
	return nil
}

// Abort discards every mutation made through this txn. No watcher fires.
func (t *Txn) Abort() error {
	if err := t.requireActive(); err != nil {
		return err
	}
	t.active = false
	if t.write {
		t.engine.unblockWrite()
	}
	return nil
}

// --- cursor accessors ---

func (t *Txn) DataCursor() *Cursor         { return newCursor(t.primary) }
func (t *Txn) SecondaryCursor() *Cursor    { return newCursor(t.secondary) }
func (t *Txn) SecondaryDupCursor() *Cursor { return newCursor(t.secondaryDup) }
func (t *Txn) InfoCursor() *Cursor         { return newCursor(t.info) }

// --- data table ---

func (t *Txn) DataGet(key []byte) ([]byte, bool) { return t.primary.get(key) }

func (t *Txn) DataPut(key, value []byte) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	t.primary.put(key, value)
	t.ops = append(t.ops, journalOp{Op: "put", DB: "primary", Key: key, Value: value})
	return nil
}

func (t *Txn) DataDelete(key []byte) (bool, error) {
	if err := t.requireWrite(); err != nil {
		return false, err
	}
	if !t.primary.delete(key) {
		return false, nil
	}
	t.ops = append(t.ops, journalOp{Op: "del", DB: "primary", Key: key})
	return true, nil
}

func (t *Txn) DataDeletePrefix(prefix []byte) (int, error) {
	if err := t.requireWrite(); err != nil {
		return 0, err
	}
	n := t.primary.deletePrefix(prefix)
	t.ops = append(t.ops, journalOp{Op: "delprefix", DB: "primary", Key: prefix})
	return n, nil
}

// --- secondary (unique index) table ---

func (t *Txn) SecondaryGet(key []byte) ([]byte, bool) { return t.secondary.get(key) }

func (t *Txn) SecondaryPutNoOverride(key, value []byte) (bool, error) {
	if err := t.requireWrite(); err != nil {
		return false, err
	}
	ok := t.secondary.putNoOverride(key, value)
	if ok {
		t.ops = append(t.ops, journalOp{Op: "put", DB: "secondary", Key: key, Value: value})
	}
	return ok, nil
}

func (t *Txn) SecondaryDelete(key []byte) (bool, error) {
	if err := t.requireWrite(); err != nil {
		return false, err
	}
	if !t.secondary.delete(key) {
		return false, nil
	}
	t.ops = append(t.ops, journalOp{Op: "del", DB: "secondary", Key: key})
	return true, nil
}

func (t *Txn) SecondaryDeletePrefix(prefix []byte) (int, error) {
	if err := t.requireWrite(); err != nil {
		return 0, err
	}
	n := t.secondary.deletePrefix(prefix)
	t.ops = append(t.ops, journalOp{Op: "delprefix", DB: "secondary", Key: prefix})
	return n, nil
}

// --- secondary_dup (non-unique index) table ---

func (t *Txn) SecondaryDupPut(key, value []byte) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	t.secondaryDup.put(key, value)
	t.ops = append(t.ops, journalOp{Op: "put", DB: "secondary_dup", Key: key, Value: value})
	return nil
}

func (t *Txn) SecondaryDupDeleteKeyVal(key, value []byte) (bool, error) {
	if err := t.requireWrite(); err != nil {
		return false, err
	}
	if !t.secondaryDup.deleteKeyVal(key, value) {
		return false, nil
	}
	t.ops = append(t.ops, journalOp{Op: "delkv", DB: "secondary_dup", Key: key, Value: value})
	return true, nil
}

func (t *Txn) SecondaryDupDeletePrefix(prefix []byte) (int, error) {
	if err := t.requireWrite(); err != nil {
		return 0, err
	}
	n := t.secondaryDup.deletePrefix(prefix)
	t.ops = append(t.ops, journalOp{Op: "delprefix", DB: "secondary_dup", Key: prefix})
	return n, nil
}

// --- info (persisted schema blob) table ---

func (t *Txn) InfoGet(key []byte) ([]byte, bool) { return t.info.get(key) }

func (t *Txn) InfoPut(key, value []byte) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	t.info.put(key, value)
	t.ops = append(t.ops, journalOp{Op: "put", DB: "info", Key: key, Value: value})
	return nil
}
