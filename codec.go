// Key codec: pure functions that pack typed values into order-preserving
// bytes, and the next/prev adjacency functions the query builder uses to
// turn exclusive bounds into inclusive ones (§4.1, §4.6).
//
// Invariants (§4.1): for any two values a < b of the same type,
// encode(a) < encode(b) lexicographically; null encodes strictly less than
// any non-null value of the same type; for floats NaN is a single
// canonical value ordered greater than every finite value.
package embedb

import (
	"encoding/binary"
	"math"
)

// encodeDataKey packs the primary-db key: 2-byte big-endian collection id
// followed by the sign-flipped, big-endian object id. Lexicographic order
// over this 10-byte key equals numeric order over (colID, oid), treating
// MinInt64 as the smallest oid (§3 "Data key").
func encodeDataKey(colID uint16, oid int64) []byte {
	buf := make([]byte, 10)
	binary.BigEndian.PutUint16(buf[0:2], colID)
	binary.BigEndian.PutUint64(buf[2:10], flipSignInt64(oid))
	return buf
}

// encodeColPrefix returns the 2-byte collection-id prefix shared by every
// data key belonging to colID, used for prefix scans (Collection.Clear,
// Collection.ExportJSON).
func encodeColPrefix(colID uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, colID)
	return buf
}

func decodeDataKey(buf []byte) (colID uint16, oid int64) {
	colID = binary.BigEndian.Uint16(buf[0:2])
	oid = unflipSignInt64(binary.BigEndian.Uint64(buf[2:10]))
	return
}

func flipSignInt64(v int64) uint64   { return uint64(v) ^ (1 << 63) }
func unflipSignInt64(u uint64) int64 { return int64(u ^ (1 << 63)) }

func flipSignInt32(v int32) uint32   { return uint32(v) ^ (1 << 31) }
func unflipSignInt32(u uint32) int32 { return int32(u ^ (1 << 31)) }

// encodeByte: 1 null-flag byte (0 = null, 1 = present) + 1 value byte. Null
// sorts below every present value because flag 0 < flag 1.
func encodeByte(v byte, isNull bool) []byte {
	if isNull {
		return []byte{0, 0}
	}
	return []byte{1, v}
}

// encodeInt: sign bit flipped, big-endian. Null uses the reserved
// nullInt sentinel, which is the smallest Int value, so it sorts first
// without any extra flag byte.
func encodeInt(v int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, flipSignInt32(v))
	return buf
}

func encodeLong(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, flipSignInt64(v))
	return buf
}

// canonicalNaNBits32/64 give every present NaN payload (regardless of which
// bits the producer set) one fixed ordering position, above all finite
// values — distinct from the null-flag byte below, which is what actually
// sorts null beneath every present value (§4.1 invariant 2).
var (
	canonicalNaNBits32 = math.Float32bits(float32(math.NaN()))
	canonicalNaNBits64 = math.Float64bits(math.NaN())
)

// encodeFloat applies IEEE-754 total ordering: flip the sign bit for
// positive numbers (and positive zero), flip every bit for negative
// numbers, so the resulting big-endian uint32 sorts exactly like the
// mathematical float order. A leading null-flag byte (0 = null, 1 =
// present) puts null strictly below every present value, including
// negative infinity; a present NaN is canonicalized to one bit pattern so
// it still sorts above every finite present value.
func encodeFloat(v float32, isNull bool) []byte {
	buf := make([]byte, 5)
	if isNull {
		return buf
	}
	buf[0] = 1
	bits := math.Float32bits(v)
	if math.IsNaN(float64(v)) {
		bits = canonicalNaNBits32
	}
	var ordered uint32
	if bits&(1<<31) != 0 {
		ordered = ^bits
	} else {
		ordered = bits | (1 << 31)
	}
	binary.BigEndian.PutUint32(buf[1:], ordered)
	return buf
}

func encodeDouble(v float64, isNull bool) []byte {
	buf := make([]byte, 9)
	if isNull {
		return buf
	}
	buf[0] = 1
	bits := math.Float64bits(v)
	if math.IsNaN(v) {
		bits = canonicalNaNBits64
	}
	var ordered uint64
	if bits&(1<<63) != 0 {
		ordered = ^bits
	} else {
		ordered = bits | (1 << 63)
	}
	binary.BigEndian.PutUint64(buf[1:], ordered)
	return buf
}

const maxStringIndexSize = 1024

// encodeStringValue truncates to maxStringIndexSize bytes, case-folds if
// requested, and precedes the bytes with a null-flag byte so an empty
// string (flag 1, zero bytes) still sorts above null (flag 0).
func encodeStringValue(s string, present bool, caseSensitive bool) []byte {
	if !present {
		return []byte{0}
	}
	if !caseSensitive {
		s = foldCase(s)
	}
	b := []byte(s)
	if len(b) > maxStringIndexSize {
		b = b[:maxStringIndexSize]
	}
	out := make([]byte, 0, len(b)+1)
	out = append(out, 1)
	out = append(out, b...)
	return out
}

// encodeStringHash returns an 8-byte hash of the case-folded string,
// preceded by a null-flag byte. See hashutil.go for the selectable
// algorithm.
func encodeStringHash(s string, present bool, caseSensitive bool, alg HashAlgorithm) []byte {
	if !present {
		return []byte{0, 0, 0, 0, 0, 0, 0, 0, 0}
	}
	if !caseSensitive {
		s = foldCase(s)
	}
	h := hashString(s, alg)
	buf := make([]byte, 9)
	buf[0] = 1
	binary.BigEndian.PutUint64(buf[1:], h)
	return buf
}

// encodeStringWord encodes a single unicode word of a Words index,
// reusing the value encoding (already case-folded by the caller).
func encodeStringWord(word string, caseSensitive bool) []byte {
	if !caseSensitive {
		word = foldCase(word)
	}
	b := []byte(word)
	if len(b) > maxStringIndexSize {
		b = b[:maxStringIndexSize]
	}
	out := make([]byte, 0, len(b)+1)
	out = append(out, 1)
	out = append(out, b...)
	return out
}

// --- next/prev adjacency (§4.6) ---
//
// The query builder receives exclusive bounds and must rewrite them to
// inclusive ones before constructing a Between filter or an index
// where-clause. If the adjusted bound crosses the type's extremum, the
// caller reduces the clause to the static-false filter / empty range.

func nextByte(v byte, ok bool) (byte, bool) {
	if !ok || v == math.MaxUint8 {
		return 0, false
	}
	return v + 1, true
}

func prevByte(v byte, ok bool) (byte, bool) {
	if !ok || v == 0 {
		return 0, false
	}
	return v - 1, true
}

func nextInt(v int32, ok bool) (int32, bool) {
	if !ok || v == math.MaxInt32 {
		return 0, false
	}
	return v + 1, true
}

func prevInt(v int32, ok bool) (int32, bool) {
	if !ok || v == math.MinInt32+1 { // MinInt32 is the null sentinel
		return 0, false
	}
	return v - 1, true
}

func nextLong(v int64, ok bool) (int64, bool) {
	if !ok || v == math.MaxInt64 {
		return 0, false
	}
	return v + 1, true
}

func prevLong(v int64, ok bool) (int64, bool) {
	if !ok || v == math.MinInt64+1 {
		return 0, false
	}
	return v - 1, true
}

// nextFloat/prevFloat step to the adjacent representable float32,
// handling +/-Inf and the null/NaN sentinel explicitly per §4.6.
func nextFloat(v float32, ok bool) (float32, bool) {
	if !ok {
		return 0, false
	}
	if math.IsNaN(float64(v)) {
		return 0, false // already the largest possible value
	}
	if math.IsInf(float64(v), 1) {
		return 0, false
	}
	return nextafter32(v, float32(math.Inf(1))), true
}

func prevFloat(v float32, ok bool) (float32, bool) {
	if !ok {
		return 0, false
	}
	if math.IsNaN(float64(v)) {
		return float32(math.Inf(1)), true // +Inf is the value just below NaN
	}
	if math.IsInf(float64(v), -1) {
		return 0, false
	}
	return nextafter32(v, float32(math.Inf(-1))), true
}

func nextDouble(v float64, ok bool) (float64, bool) {
	if !ok {
		return 0, false
	}
	if math.IsNaN(v) {
		return 0, false
	}
	if math.IsInf(v, 1) {
		return 0, false
	}
	return math.Nextafter(v, math.Inf(1)), true
}

func prevDouble(v float64, ok bool) (float64, bool) {
	if !ok {
		return 0, false
	}
	if math.IsNaN(v) {
		return math.Inf(1), true
	}
	if math.IsInf(v, -1) {
		return 0, false
	}
	return math.Nextafter(v, math.Inf(-1)), true
}

// math.Nextafter32 doesn't exist in std; provide it here.
func nextafter32(x, y float32) float32 {
	return float32(math.Nextafter(float64(x), float64(y)))
}
