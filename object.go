// Object view: zero-copy typed access to the fixed header of an object
// record via a property table (§4.2). Given (bytes, property) a read is
// O(1) via the property's offset; string/list reads take one extra slice
// of the dynamic tail.
package embedb

import (
	"bytes"
	"encoding/binary"
	"hash"
	"math"
)

// Object is a read-only view over a single object's serialized bytes.
// Scalar reads and ReadByteList read directly from the backing array;
// ReadString and the other list reads return freshly allocated copies.
type Object struct {
	bytes []byte
}

// NewObject wraps raw bytes produced by an ObjectBuilder.
func NewObject(b []byte) Object { return Object{bytes: b} }

// Bytes returns the raw backing array. Callers must not mutate it.
func (o Object) Bytes() []byte { return o.bytes }

// ReadID returns the object's leading OID field.
func (o Object) ReadID() int64 {
	return int64(binary.LittleEndian.Uint64(o.bytes[0:8]))
}

func (o Object) ReadByte(p Property) byte {
	return o.bytes[p.absOffset()]
}

func (o Object) ReadInt(p Property) int32 {
	return int32(binary.LittleEndian.Uint32(o.bytes[p.absOffset():]))
}

func (o Object) ReadLong(p Property) int64 {
	return int64(binary.LittleEndian.Uint64(o.bytes[p.absOffset():]))
}

func (o Object) ReadFloat(p Property) float32 {
	bits := binary.LittleEndian.Uint32(o.bytes[p.absOffset():])
	return math.Float32frombits(bits)
}

func (o Object) ReadDouble(p Property) float64 {
	bits := binary.LittleEndian.Uint64(o.bytes[p.absOffset():])
	return math.Float64frombits(bits)
}

// IsNull reports whether the property holds its type's null sentinel.
func (o Object) IsNull(p Property) bool {
	switch p.DataType {
	case Byte:
		return o.ReadByte(p) == nullByte
	case Int:
		return o.ReadInt(p) == nullInt
	case Long:
		return o.ReadLong(p) == nullLong
	case Float:
		return isNullFloat(o.ReadFloat(p))
	case Double:
		return isNullDouble(o.ReadDouble(p))
	default:
		off, _ := o.dynHeader(p)
		return off == 0
	}
}

// dynHeader reads the (offset, length) pair for a dynamic property. For
// list types length is an element count; for String/ByteList/StringList it
// is documented per-type below.
func (o Object) dynHeader(p Property) (offset, length uint32) {
	base := p.absOffset()
	offset = binary.LittleEndian.Uint32(o.bytes[base:])
	length = binary.LittleEndian.Uint32(o.bytes[base+4:])
	return
}

// ReadString returns (value, true) or ("", false) if null.
func (o Object) ReadString(p Property) (string, bool) {
	off, length := o.dynHeader(p)
	if off == 0 {
		return "", false
	}
	return string(o.bytes[off : off+length]), true
}

func (o Object) ReadByteList(p Property) ([]byte, bool) {
	off, length := o.dynHeader(p)
	if off == 0 {
		return nil, false
	}
	return o.bytes[off : off+length], true
}

func (o Object) ReadIntList(p Property) ([]int32, bool) {
	off, count := o.dynHeader(p)
	if off == 0 {
		return nil, false
	}
	out := make([]int32, count)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(o.bytes[off+uint32(i*4):]))
	}
	return out, true
}

func (o Object) ReadLongList(p Property) ([]int64, bool) {
	off, count := o.dynHeader(p)
	if off == 0 {
		return nil, false
	}
	out := make([]int64, count)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(o.bytes[off+uint32(i*8):]))
	}
	return out, true
}

func (o Object) ReadFloatList(p Property) ([]float32, bool) {
	off, count := o.dynHeader(p)
	if off == 0 {
		return nil, false
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(o.bytes[off+uint32(i*4):]))
	}
	return out, true
}

func (o Object) ReadDoubleList(p Property) ([]float64, bool) {
	off, count := o.dynHeader(p)
	if off == 0 {
		return nil, false
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(o.bytes[off+uint32(i*8):]))
	}
	return out, true
}

// ReadStringList decodes a sequence of length-prefixed UTF-8 strings. Each
// element is prefixed by a uint32: 0xFFFFFFFF marks a null element,
// otherwise it is the element's byte length.
func (o Object) ReadStringList(p Property) ([]*string, bool) {
	off, count := o.dynHeader(p)
	if off == 0 {
		return nil, false
	}
	out := make([]*string, count)
	pos := off
	for i := range out {
		l := binary.LittleEndian.Uint32(o.bytes[pos:])
		pos += 4
		if l == stringListNullMarker {
			out[i] = nil
			continue
		}
		s := string(o.bytes[pos : pos+l])
		out[i] = &s
		pos += l
	}
	return out, true
}

const stringListNullMarker = 0xFFFFFFFF

// CompareProperty orders two objects by a single property using the same
// order-preserving rules as the key codec: null is smallest, NaN is
// largest, strings compare byte-wise after optional case folding.
func (o Object) CompareProperty(other Object, p Property, caseSensitive bool) int {
	switch p.DataType {
	case Byte:
		return bytes.Compare(encodeByte(o.ReadByte(p), o.IsNull(p)), encodeByte(other.ReadByte(p), other.IsNull(p)))
	case Int:
		return bytes.Compare(encodeInt(o.ReadInt(p)), encodeInt(other.ReadInt(p)))
	case Long:
		return bytes.Compare(encodeLong(o.ReadLong(p)), encodeLong(other.ReadLong(p)))
	case Float:
		return bytes.Compare(encodeFloat(o.ReadFloat(p), o.IsNull(p)), encodeFloat(other.ReadFloat(p), other.IsNull(p)))
	case Double:
		return bytes.Compare(encodeDouble(o.ReadDouble(p), o.IsNull(p)), encodeDouble(other.ReadDouble(p), other.IsNull(p)))
	case String:
		sv, sok := o.ReadString(p)
		ov, ook := other.ReadString(p)
		return bytes.Compare(encodeStringValue(sv, sok, caseSensitive), encodeStringValue(ov, ook, caseSensitive))
	default:
		return 0
	}
}

// HashProperty feeds a property's canonical encoded bytes into hasher,
// used by the query engine's distinct() de-duplication (§4.8).
func (o Object) HashProperty(p Property, caseSensitive bool, hasher hash.Hash64) {
	var b []byte
	switch p.DataType {
	case Byte:
		b = encodeByte(o.ReadByte(p), o.IsNull(p))
	case Int:
		b = encodeInt(o.ReadInt(p))
	case Long:
		b = encodeLong(o.ReadLong(p))
	case Float:
		b = encodeFloat(o.ReadFloat(p), o.IsNull(p))
	case Double:
		b = encodeDouble(o.ReadDouble(p), o.IsNull(p))
	case String:
		sv, sok := o.ReadString(p)
		b = encodeStringValue(sv, sok, caseSensitive)
	default:
		b = nil
	}
	hasher.Write(b)
}
