// Durable append-only journal backing the storage engine's crash recovery
// (§0 "Storage engine" in SPEC_FULL.md). Every committed write txn appends
// one JSON line per mutated key, terminated by a commit marker line; replay
// on Open rebuilds the in-memory sorted tables and discards any trailing,
// uncommitted tail left by a crash mid-write.
//
// Grounded on folio's header.go/record.go line-oriented JSON format and its
// Compact/Rehash pattern of archiving superseded data instead of discarding
// it: compactJournal zstd-compresses the retired segment into a sibling
// file rather than truncating it away, so a crash mid-compaction still
// leaves a recoverable prior state.
package embedb

import (
	"bufio"
	"os"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

const journalCommitMarker = "commit"

// journalOp is one mutated key/value within a committed transaction. DB
// names the logical table: "primary", "secondary", "secondary_dup", "info".
type journalOp struct {
	Op    string `json:"op"` // "put", "del", "delkv" (one dup pair) or "delprefix"
	DB    string `json:"db"`
	Key   []byte `json:"key"`
	Value []byte `json:"value,omitempty"`
}

type journalLine struct {
	Marker string    `json:"marker,omitempty"`
	Op     journalOp `json:"-"`
}

// journal is the append-only log file. Appends are serialized by the
// engine's single-writer discipline, so journal itself holds no lock beyond
// the *os.File. Compaction's zstd encoder (see compactJournal) is created
// on demand rather than held here, since compaction runs far less often
// than appendTxn and doesn't need a warm encoder.
type journal struct {
	f    *os.File
	sync bool
}

func openJournal(path string, sync bool) (*journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &journal{f: f, sync: sync}, nil
}

// appendTxn durably records ops as one committed unit: every op line is
// written first, then a commit marker line. A reader that reaches EOF
// without having seen the marker knows to discard the preceding ops.
func (j *journal) appendTxn(ops []journalOp) error {
	if len(ops) == 0 {
		return nil
	}
	var buf []byte
	for _, op := range ops {
		line, err := json.Marshal(op)
		if err != nil {
			return wrapErr(KindInternal, "journal encode", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	marker, _ := json.Marshal(journalLine{Marker: journalCommitMarker})
	buf = append(buf, marker...)
	buf = append(buf, '\n')

	if _, err := j.f.Write(buf); err != nil {
		return wrapErr(KindDbCorrupted, "journal append", err)
	}
	if j.sync {
		if err := j.f.Sync(); err != nil {
			return wrapErr(KindDbCorrupted, "journal sync", err)
		}
	}
	return nil
}

func (j *journal) Close() error {
	return j.f.Close()
}

// replayJournal re-reads every committed transaction's ops, in file order.
// A pending (uncommitted) tail is silently dropped, matching folio's
// tmp-file crash-recovery convention of discarding an incomplete write.
func replayJournal(path string) ([]journalOp, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var committed []journalOp
	var pending []journalOp

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var marker struct {
			Marker string `json:"marker"`
		}
		if err := json.Unmarshal(line, &marker); err == nil && marker.Marker == journalCommitMarker {
			committed = append(committed, pending...)
			pending = nil
			continue
		}
		var op journalOp
		if err := json.Unmarshal(line, &op); err != nil {
			continue // corrupted line from a torn write; skip, matching folio's tolerant scan
		}
		pending = append(pending, op)
	}
	return committed, nil
}

// compactJournal rewrites the journal to contain exactly liveOps (the
// current state of every table), archiving everything previously on disk
// into a zstd-compressed sibling file first — adapted from folio's
// Compact/Rehash, which always preserves superseded data rather than
// discarding it outright.
func compactJournal(path string, liveOps []journalOp) error {
	old, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if len(old) > 0 {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return err
		}
		defer enc.Close()
		archived := enc.EncodeAll(old, nil)
		if err := os.WriteFile(path+".archive.zst", archived, 0644); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	var buf []byte
	for _, op := range liveOps {
		line, err := json.Marshal(op)
		if err != nil {
			f.Close()
			return err
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	marker, _ := json.Marshal(journalLine{Marker: journalCommitMarker})
	buf = append(buf, marker...)
	buf = append(buf, '\n')
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
