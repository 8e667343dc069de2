// Single-instance guard tests (lock.go). Cross-process access itself is out
// of scope; these only check that a second Open against the same directory
// fails fast instead of hanging or silently sharing state.
package embedb

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenEngineTwiceOnSameDirFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	e1, err := OpenEngine(dir, Config{})
	if err != nil {
		t.Fatalf("OpenEngine: %v", err)
	}
	defer e1.Close()

	_, err = OpenEngine(dir, Config{})
	if !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("opening an already-open directory again = %v, want ErrAlreadyOpen", err)
	}
}

func TestOpenEngineAfterCloseSucceeds(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	e1, err := OpenEngine(dir, Config{})
	if err != nil {
		t.Fatalf("OpenEngine: %v", err)
	}
	must(t, e1.Close())

	e2, err := OpenEngine(dir, Config{})
	if err != nil {
		t.Fatalf("reopen after Close must succeed, got: %v", err)
	}
	must(t, e2.Close())
}
