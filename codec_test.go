// Key codec ordering tests (§4.1). These are the invariants every
// where-clause and filter's byte-comparison correctness depends on: if
// encode ever stopped preserving numeric/lexical order, range scans would
// silently return rows out of order or miss rows entirely.
package embedb

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeDataKeyOrdersByOidWithinCollection(t *testing.T) {
	a := encodeDataKey(1, 5)
	b := encodeDataKey(1, 6)
	if bytes.Compare(a, b) >= 0 {
		t.Errorf("encodeDataKey(1,5) must sort before encodeDataKey(1,6)")
	}
}

func TestEncodeDataKeyOrdersByCollectionFirst(t *testing.T) {
	a := encodeDataKey(1, math.MaxInt64)
	b := encodeDataKey(2, MinID)
	if bytes.Compare(a, b) >= 0 {
		t.Errorf("every key of collection 1 must sort before collection 2's first key")
	}
}

func TestDecodeDataKeyRoundTrip(t *testing.T) {
	key := encodeDataKey(42, -7)
	colID, oid := decodeDataKey(key)
	if colID != 42 || oid != -7 {
		t.Errorf("decodeDataKey(encodeDataKey(42,-7)) = (%d,%d), want (42,-7)", colID, oid)
	}
}

func TestEncodeColPrefixIsDataKeyPrefix(t *testing.T) {
	prefix := encodeColPrefix(7)
	key := encodeDataKey(7, 123)
	if !hasPrefix(key, prefix) {
		t.Errorf("encodeColPrefix(7) must prefix every encodeDataKey(7, ...)")
	}
	other := encodeDataKey(8, 123)
	if hasPrefix(other, prefix) {
		t.Errorf("encodeColPrefix(7) must not prefix collection 8's keys")
	}
}

// TestEncodeByteNullSortsBelowPresent verifies null < any present value,
// per §4.1's "null encodes strictly less than any non-null value".
func TestEncodeByteNullSortsBelowPresent(t *testing.T) {
	null := encodeByte(0, true)
	zero := encodeByte(0, false)
	if bytes.Compare(null, zero) >= 0 {
		t.Errorf("null byte must sort below present byte 0")
	}
}

func TestEncodeIntOrdersSignedRange(t *testing.T) {
	vals := []int32{math.MinInt32 + 1, -100, -1, 0, 1, 100, math.MaxInt32}
	for i := 1; i < len(vals); i++ {
		if bytes.Compare(encodeInt(vals[i-1]), encodeInt(vals[i])) >= 0 {
			t.Errorf("encodeInt(%d) must sort before encodeInt(%d)", vals[i-1], vals[i])
		}
	}
}

func TestEncodeLongOrdersSignedRange(t *testing.T) {
	vals := []int64{math.MinInt64 + 1, -100, -1, 0, 1, 100, math.MaxInt64}
	for i := 1; i < len(vals); i++ {
		if bytes.Compare(encodeLong(vals[i-1]), encodeLong(vals[i])) >= 0 {
			t.Errorf("encodeLong(%d) must sort before encodeLong(%d)", vals[i-1], vals[i])
		}
	}
}

// TestEncodeFloatOrdersAcrossSignAndNaN checks the full IEEE-754 total
// order: negative before zero before positive before NaN, the ordering a
// FloatBetweenFilter's inclusive bounds rely on.
func TestEncodeFloatOrdersAcrossSignAndNaN(t *testing.T) {
	vals := []float32{float32(math.Inf(-1)), -100.5, -0.001, 0, 0.001, 100.5, float32(math.Inf(1))}
	for i := 1; i < len(vals); i++ {
		if bytes.Compare(encodeFloat(vals[i-1], false), encodeFloat(vals[i], false)) >= 0 {
			t.Errorf("encodeFloat(%v) must sort before encodeFloat(%v)", vals[i-1], vals[i])
		}
	}
	nan := encodeFloat(float32(math.NaN()), false)
	if bytes.Compare(encodeFloat(vals[len(vals)-1], false), nan) >= 0 {
		t.Errorf("NaN must sort above +Inf")
	}
}

func TestEncodeFloatCanonicalizesAllNaNs(t *testing.T) {
	a := encodeFloat(math.Float32frombits(0x7fc00001), false)
	b := encodeFloat(math.Float32frombits(0xffc00000), false)
	if !bytes.Equal(a, b) {
		t.Errorf("distinct NaN bit patterns must encode identically")
	}
}

func TestEncodeDoubleOrdersAcrossSignAndNaN(t *testing.T) {
	vals := []float64{math.Inf(-1), -100.5, -0.001, 0, 0.001, 100.5, math.Inf(1)}
	for i := 1; i < len(vals); i++ {
		if bytes.Compare(encodeDouble(vals[i-1], false), encodeDouble(vals[i], false)) >= 0 {
			t.Errorf("encodeDouble(%v) must sort before encodeDouble(%v)", vals[i-1], vals[i])
		}
	}
	nan := encodeDouble(math.NaN(), false)
	if bytes.Compare(encodeDouble(vals[len(vals)-1], false), nan) >= 0 {
		t.Errorf("NaN must sort above +Inf")
	}
}

// TestEncodeFloatNullSortsBelowAllPresentValues locks in §4.1 invariant 2
// for Float: a null encodes strictly below every present value, including
// negative infinity and negative finite values — not just below zero.
func TestEncodeFloatNullSortsBelowAllPresentValues(t *testing.T) {
	null := encodeFloat(0, true)
	presents := []float32{float32(math.Inf(-1)), -100.5, 0, 100.5, float32(math.Inf(1)), float32(math.NaN())}
	for _, v := range presents {
		if bytes.Compare(null, encodeFloat(v, false)) >= 0 {
			t.Errorf("null float must sort below present value %v, including NaN", v)
		}
	}
}

func TestEncodeDoubleNullSortsBelowAllPresentValues(t *testing.T) {
	null := encodeDouble(0, true)
	presents := []float64{math.Inf(-1), -100.5, 0, 100.5, math.Inf(1), math.NaN()}
	for _, v := range presents {
		if bytes.Compare(null, encodeDouble(v, false)) >= 0 {
			t.Errorf("null double must sort below present value %v, including NaN", v)
		}
	}
}

func TestEncodeStringValueNullSortsBelowEmpty(t *testing.T) {
	null := encodeStringValue("", false, true)
	empty := encodeStringValue("", true, true)
	if bytes.Compare(null, empty) >= 0 {
		t.Errorf("absent string must sort below present empty string")
	}
}

func TestEncodeStringValueCaseFolding(t *testing.T) {
	a := encodeStringValue("Hello", true, false)
	b := encodeStringValue("hello", true, false)
	if !bytes.Equal(a, b) {
		t.Errorf("case-insensitive encoding must fold before comparing")
	}
	c := encodeStringValue("Hello", true, true)
	d := encodeStringValue("hello", true, true)
	if bytes.Equal(c, d) {
		t.Errorf("case-sensitive encoding must not fold")
	}
}

func TestEncodeStringValueTruncatesLongStrings(t *testing.T) {
	long := make([]byte, maxStringIndexSize+500)
	for i := range long {
		long[i] = 'a'
	}
	encoded := encodeStringValue(string(long), true, true)
	if len(encoded) != maxStringIndexSize+1 { // +1 for the null-flag byte
		t.Errorf("encodeStringValue must truncate to %d bytes, got %d", maxStringIndexSize+1, len(encoded))
	}
}

// TestNextPrevByteBoundaries verifies the exclusive-to-inclusive bound
// rewriting the query builder depends on: stepping past the type's
// extremum must report failure, not wrap around.
func TestNextPrevByteBoundaries(t *testing.T) {
	if _, ok := nextByte(math.MaxUint8, true); ok {
		t.Errorf("nextByte(MaxUint8) must fail, there is no representable successor")
	}
	if v, ok := nextByte(5, true); !ok || v != 6 {
		t.Errorf("nextByte(5) = (%d,%v), want (6,true)", v, ok)
	}
	if _, ok := prevByte(0, true); ok {
		t.Errorf("prevByte(0) must fail")
	}
}

func TestNextPrevLongBoundaries(t *testing.T) {
	if _, ok := nextLong(math.MaxInt64, true); ok {
		t.Errorf("nextLong(MaxInt64) must fail")
	}
	if _, ok := prevLong(math.MinInt64+1, true); ok {
		t.Errorf("prevLong at the null sentinel boundary must fail")
	}
	if v, ok := nextLong(10, true); !ok || v != 11 {
		t.Errorf("nextLong(10) = (%d,%v), want (11,true)", v, ok)
	}
}

func TestNextPrevFloatStepsOneULP(t *testing.T) {
	v, ok := nextFloat(1.0, true)
	if !ok || v <= 1.0 {
		t.Errorf("nextFloat(1.0) must step strictly upward, got %v", v)
	}
	if _, ok := nextFloat(float32(math.Inf(1)), true); ok {
		t.Errorf("nextFloat(+Inf) must fail")
	}
	if _, ok := nextFloat(float32(math.NaN()), true); ok {
		t.Errorf("nextFloat(NaN), already the largest value, must fail")
	}
}
