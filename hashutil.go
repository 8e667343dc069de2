// Hashing for string-hash index keys. The query engine's distinct() hashes
// with xxh3 directly (query.go), and overlapping where-clauses de-duplicate
// on the oid itself, with no hashing.
//
// embedb fills the role spec.md assigns to wyhash with zeebo/xxh3 (same
// family: fast, non-cryptographic, 64-bit) since that's the hasher the
// teacher repo already imports for its own document-id hashing. A second,
// slower algorithm (blake2b) is offered as a selectable alternate for
// String Hash indexes, mirroring the teacher's Config.HashAlgorithm knob.
package embedb

import (
	"golang.org/x/crypto/blake2b"

	"github.com/zeebo/xxh3"
)

// HashAlgorithm selects the hash function backing String Hash index keys.
// It has no effect on distinct() or overlap de-duplication.
type HashAlgorithm int

const (
	// HashXXH3 is the default: fastest, used on every Put for indexed
	// string-hash properties.
	HashXXH3 HashAlgorithm = iota
	// HashBlake2b trades speed for a better-distributed, cryptographic
	// hash; offered for callers who hash adversarial input.
	HashBlake2b
)

func hashString(s string, alg HashAlgorithm) uint64 {
	switch alg {
	case HashBlake2b:
		h, _ := blake2b.New(8, nil)
		h.Write([]byte(s))
		sum := h.Sum(nil)
		var v uint64
		for _, b := range sum {
			v = v<<8 | uint64(b)
		}
		return v
	default:
		return xxh3.HashString(s)
	}
}

func hashBytes(b []byte) uint64 {
	return xxh3.Hash(b)
}
