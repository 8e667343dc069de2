// Filter tree (§4.7): composable predicates evaluated against a single
// object. Between filters are expected to already be normalized to
// inclusive bounds by the query builder's next/prev adjustment (§4.6);
// Filter itself just compares encoded bytes so null/NaN ordering matches
// the index codec exactly.
package embedb

import (
	"bytes"
	"strings"
)

// Filter is one node of the predicate tree. Evaluate never returns an
// error: an invalid property/type combination is a builder-time bug, not
// a runtime condition.
type Filter interface {
	Evaluate(obj Object) bool
}

// --- logical combinators ---

type AndFilter struct{ Children []Filter }

func (f AndFilter) Evaluate(obj Object) bool {
	for _, c := range f.Children {
		if !c.Evaluate(obj) {
			return false
		}
	}
	return true
}

type OrFilter struct{ Children []Filter }

func (f OrFilter) Evaluate(obj Object) bool {
	for _, c := range f.Children {
		if c.Evaluate(obj) {
			return true
		}
	}
	return false
}

type NotFilter struct{ Child Filter }

func (f NotFilter) Evaluate(obj Object) bool { return !f.Child.Evaluate(obj) }

type StaticFilter struct{ Value bool }

func (f StaticFilter) Evaluate(Object) bool { return f.Value }

// --- null test ---

type IsNullFilter struct {
	Property Property
	IsNull   bool
}

func (f IsNullFilter) Evaluate(obj Object) bool { return obj.IsNull(f.Property) == f.IsNull }

// --- scalar range filters (inclusive after builder normalization) ---

type ByteBetweenFilter struct {
	Property   Property
	Lower, Upper byte
}

func (f ByteBetweenFilter) Evaluate(obj Object) bool {
	lo, hi := encodeByte(f.Lower, false), encodeByte(f.Upper, false)
	v := encodeByte(obj.ReadByte(f.Property), obj.IsNull(f.Property))
	return bytes.Compare(v, lo) >= 0 && bytes.Compare(v, hi) <= 0
}

type IntBetweenFilter struct {
	Property     Property
	Lower, Upper int32
}

func (f IntBetweenFilter) Evaluate(obj Object) bool {
	v := encodeInt(obj.ReadInt(f.Property))
	return bytes.Compare(v, encodeInt(f.Lower)) >= 0 && bytes.Compare(v, encodeInt(f.Upper)) <= 0
}

type LongBetweenFilter struct {
	Property     Property
	Lower, Upper int64
}

func (f LongBetweenFilter) Evaluate(obj Object) bool {
	v := encodeLong(obj.ReadLong(f.Property))
	return bytes.Compare(v, encodeLong(f.Lower)) >= 0 && bytes.Compare(v, encodeLong(f.Upper)) <= 0
}

type FloatBetweenFilter struct {
	Property     Property
	Lower, Upper float32
}

func (f FloatBetweenFilter) Evaluate(obj Object) bool {
	v := encodeFloat(obj.ReadFloat(f.Property), obj.IsNull(f.Property))
	return bytes.Compare(v, encodeFloat(f.Lower, false)) >= 0 && bytes.Compare(v, encodeFloat(f.Upper, false)) <= 0
}

type DoubleBetweenFilter struct {
	Property     Property
	Lower, Upper float64
}

func (f DoubleBetweenFilter) Evaluate(obj Object) bool {
	v := encodeDouble(obj.ReadDouble(f.Property), obj.IsNull(f.Property))
	return bytes.Compare(v, encodeDouble(f.Lower, false)) >= 0 && bytes.Compare(v, encodeDouble(f.Upper, false)) <= 0
}

// --- list-contains filters ---

type ByteListContainsFilter struct {
	Property Property
	Value    byte
}

func (f ByteListContainsFilter) Evaluate(obj Object) bool {
	v, ok := obj.ReadByteList(f.Property)
	if !ok {
		return false
	}
	for _, e := range v {
		if e == f.Value {
			return true
		}
	}
	return false
}

type IntListContainsFilter struct {
	Property Property
	Value    int32
}

func (f IntListContainsFilter) Evaluate(obj Object) bool {
	v, ok := obj.ReadIntList(f.Property)
	if !ok {
		return false
	}
	for _, e := range v {
		if e == f.Value {
			return true
		}
	}
	return false
}

type LongListContainsFilter struct {
	Property Property
	Value    int64
}

func (f LongListContainsFilter) Evaluate(obj Object) bool {
	v, ok := obj.ReadLongList(f.Property)
	if !ok {
		return false
	}
	for _, e := range v {
		if e == f.Value {
			return true
		}
	}
	return false
}

// --- string filters ---

func foldIf(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return foldCase(s)
}

type StringEqualFilter struct {
	Property      Property
	Value         string
	CaseSensitive bool
}

func (f StringEqualFilter) Evaluate(obj Object) bool {
	v, ok := obj.ReadString(f.Property)
	if !ok {
		return false
	}
	return foldIf(v, f.CaseSensitive) == foldIf(f.Value, f.CaseSensitive)
}

type StringStartsWithFilter struct {
	Property      Property
	Value         string
	CaseSensitive bool
}

func (f StringStartsWithFilter) Evaluate(obj Object) bool {
	v, ok := obj.ReadString(f.Property)
	if !ok {
		return false
	}
	return strings.HasPrefix(foldIf(v, f.CaseSensitive), foldIf(f.Value, f.CaseSensitive))
}

type StringEndsWithFilter struct {
	Property      Property
	Value         string
	CaseSensitive bool
}

func (f StringEndsWithFilter) Evaluate(obj Object) bool {
	v, ok := obj.ReadString(f.Property)
	if !ok {
		return false
	}
	return strings.HasSuffix(foldIf(v, f.CaseSensitive), foldIf(f.Value, f.CaseSensitive))
}

type StringContainsFilter struct {
	Property      Property
	Value         string
	CaseSensitive bool
}

func (f StringContainsFilter) Evaluate(obj Object) bool {
	v, ok := obj.ReadString(f.Property)
	if !ok {
		return false
	}
	return strings.Contains(foldIf(v, f.CaseSensitive), foldIf(f.Value, f.CaseSensitive))
}

// StringMatchesFilter implements the "matches" variant via wildMatch,
// supporting '*'/'?' glob wildcards (§4.7).
type StringMatchesFilter struct {
	Property      Property
	Pattern       string
	CaseSensitive bool
}

func (f StringMatchesFilter) Evaluate(obj Object) bool {
	v, ok := obj.ReadString(f.Property)
	if !ok {
		return false
	}
	return wildMatch(foldIf(v, f.CaseSensitive), foldIf(f.Pattern, f.CaseSensitive))
}

type StringListContainsFilter struct {
	Property      Property
	Value         string
	CaseSensitive bool
}

func (f StringListContainsFilter) Evaluate(obj Object) bool {
	v, ok := obj.ReadStringList(f.Property)
	if !ok {
		return false
	}
	target := foldIf(f.Value, f.CaseSensitive)
	for _, e := range v {
		if e == nil {
			continue
		}
		if foldIf(*e, f.CaseSensitive) == target {
			return true
		}
	}
	return false
}
