// Index: composite secondary-key generation and maintenance (§4.5).
// create_keys fills non-terminal properties with the fixed-width §4.1
// encodings, then handles the terminal property per its IndexType: Value
// (one key), Hash (one 8-byte hash key), or Words (one key per unique
// unicode word, segmented with rivo/uniseg per UAX #29 — the ecosystem
// equivalent of the original Rust's unicode-segmentation crate).
package embedb

import (
	"encoding/binary"
	"unicode"

	"github.com/rivo/uniseg"
)

// Index is a compiled IndexSchema bound to its collection's resolved
// Property list.
type Index struct {
	ColID      uint16
	Schema     IndexSchema
	Properties []Property // resolved, same order as Schema.Properties
	HashAlg    HashAlgorithm
}

func newIndex(colID uint16, schema IndexSchema, props []Property, alg HashAlgorithm) *Index {
	return &Index{ColID: colID, Schema: schema, Properties: props, HashAlg: alg}
}

func encodeIndexPrefix(indexID uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, indexID)
	return buf
}

// encodeProp encodes a single non-terminal (always scalar, by §4.3
// validation) or value-terminal property for the index key.
func encodeProp(obj Object, p Property, caseSensitive bool) []byte {
	switch p.DataType {
	case Byte:
		return encodeByte(obj.ReadByte(p), obj.IsNull(p))
	case Int:
		return encodeInt(obj.ReadInt(p))
	case Long:
		return encodeLong(obj.ReadLong(p))
	case Float:
		return encodeFloat(obj.ReadFloat(p), obj.IsNull(p))
	case Double:
		return encodeDouble(obj.ReadDouble(p), obj.IsNull(p))
	case String:
		sv, ok := obj.ReadString(p)
		return encodeStringValue(sv, ok, caseSensitive)
	default:
		return nil
	}
}

// CreateKeys emits every key object produces for this index, invoking cb
// once per key (more than once only for a Words index).
func (ix *Index) CreateKeys(obj Object, cb func(key []byte)) {
	prefix := encodeIndexPrefix(ix.Schema.ID)
	buf := make([]byte, len(prefix), len(prefix)+32)
	copy(buf, prefix)

	n := len(ix.Properties)
	for i := 0; i < n-1; i++ {
		buf = append(buf, encodeProp(obj, ix.Properties[i], ix.Schema.CaseSensitive)...)
	}

	terminal := ix.Properties[n-1]
	switch ix.Schema.Type {
	case IndexWords:
		sv, ok := obj.ReadString(terminal)
		if !ok {
			return
		}
		seen := make(map[string]bool)
		for _, w := range uniqueWords(sv) {
			if !ix.Schema.CaseSensitive {
				w = foldCase(w)
			}
			if seen[w] {
				continue
			}
			seen[w] = true
			key := append(append([]byte{}, buf...), encodeStringWord(w, true)...)
			cb(key)
		}
	case IndexHash:
		sv, ok := obj.ReadString(terminal)
		key := append(append([]byte{}, buf...), encodeStringHash(sv, ok, ix.Schema.CaseSensitive, ix.HashAlg)...)
		cb(key)
	default:
		key := append(append([]byte{}, buf...), encodeProp(obj, terminal, ix.Schema.CaseSensitive)...)
		cb(key)
	}
}

// uniqueWords segments s into unicode words per UAX #29 and returns only
// the segments that contain a letter or digit, discarding pure whitespace/
// punctuation segments that the segmenter still yields.
func uniqueWords(s string) []string {
	var words []string
	state := -1
	b := []byte(s)
	for len(b) > 0 {
		var word []byte
		word, b, state = uniseg.FirstWord(b, state)
		if hasWordRune([]rune(string(word))) {
			words = append(words, string(word))
		}
	}
	return words
}

func hasWordRune(rs []rune) bool {
	for _, r := range rs {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// CreateForObject inserts every key produced by CreateKeys. For a unique
// index, collision handling follows §4.5: replace=true deletes the prior
// owning row (via deleteOwner, provided by collection.go so the cascade
// cleans that row's own indexes too) and retries; replace=false fails
// UniqueViolated. For a non-unique index, keys go into the duplicate table
// with the data key as value.
func (ix *Index) CreateForObject(txn *Txn, dataKey []byte, obj Object, deleteOwner func(dataKey []byte) error) error {
	var failErr error
	ix.CreateKeys(obj, func(key []byte) {
		if failErr != nil {
			return
		}
		if ix.Schema.Unique {
			ok, err := txn.SecondaryPutNoOverride(key, dataKey)
			if err != nil {
				failErr = err
				return
			}
			if !ok {
				if !ix.Schema.Replace {
					failErr = ErrUniqueViolated
					return
				}
				owner, _ := txn.SecondaryGet(key)
				if err := deleteOwner(owner); err != nil {
					failErr = err
					return
				}
				if _, err := txn.SecondaryDelete(key); err != nil {
					failErr = err
					return
				}
				if _, err := txn.SecondaryPutNoOverride(key, dataKey); err != nil {
					failErr = err
				}
			}
		} else {
			if err := txn.SecondaryDupPut(key, dataKey); err != nil {
				failErr = err
			}
		}
	})
	return failErr
}

// DeleteForObject removes every key obj would have produced, using the
// value-addressed delete for non-unique entries (§4.5 delete_for_object).
func (ix *Index) DeleteForObject(txn *Txn, dataKey []byte, obj Object) error {
	var failErr error
	ix.CreateKeys(obj, func(key []byte) {
		if failErr != nil {
			return
		}
		if ix.Schema.Unique {
			if _, err := txn.SecondaryDelete(key); err != nil {
				failErr = err
			}
		} else {
			if _, err := txn.SecondaryDupDeleteKeyVal(key, dataKey); err != nil {
				failErr = err
			}
		}
	})
	return failErr
}

// Clear deletes every key sharing this index's 2-byte id prefix.
func (ix *Index) Clear(txn *Txn) error {
	prefix := encodeIndexPrefix(ix.Schema.ID)
	if ix.Schema.Unique {
		_, err := txn.SecondaryDeletePrefix(prefix)
		return err
	}
	_, err := txn.SecondaryDupDeletePrefix(prefix)
	return err
}
