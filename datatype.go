package embedb

import "math"

// DataType is the closed set of scalar and list property types. The
// ordinal order below is load-bearing: schema.go requires properties to be
// declared with non-decreasing DataType ordinal (CollectionSchema.AddProperty).
type DataType int

const (
	Byte DataType = iota
	Int
	Long
	Float
	Double
	String
	ByteList
	IntList
	LongList
	FloatList
	DoubleList
	StringList
)

func (t DataType) String() string {
	switch t {
	case Byte:
		return "Byte"
	case Int:
		return "Int"
	case Long:
		return "Long"
	case Float:
		return "Float"
	case Double:
		return "Double"
	case String:
		return "String"
	case ByteList:
		return "ByteList"
	case IntList:
		return "IntList"
	case LongList:
		return "LongList"
	case FloatList:
		return "FloatList"
	case DoubleList:
		return "DoubleList"
	case StringList:
		return "StringList"
	default:
		return "Unknown"
	}
}

// IsDynamic reports whether values of this type live in the object's
// dynamic tail, referenced from the static header by an (offset, length)
// pair, rather than being stored inline.
func (t DataType) IsDynamic() bool {
	switch t {
	case String, ByteList, IntList, LongList, FloatList, DoubleList, StringList:
		return true
	default:
		return false
	}
}

// StaticSize is the number of bytes this type occupies in the static
// header: the value itself for scalars, an (offset uint32, length uint32)
// pair for anything dynamic.
func (t DataType) StaticSize() int {
	switch t {
	case Byte:
		return 1
	case Int, Float:
		return 4
	case Long, Double:
		return 8
	default:
		return 8 // offset(4) + length(4)
	}
}

// Null sentinels, §3: a null scalar is encoded as the type's reserved
// sentinel value; a null dynamic field is encoded as length == 0 with the
// offset sentinel below.
const (
	nullByte  byte  = 0xFF
	nullInt   int32 = math.MinInt32
	nullLong  int64 = math.MinInt64
	nullDynOffset uint32 = 0
)

func isNullFloat(f float32) bool  { return math.IsNaN(float64(f)) && nanBits32(f) == nullFloatBits }
func isNullDouble(d float64) bool { return math.IsNaN(d) && nanBits64(d) == nullDoubleBits }

// A single canonical NaN bit pattern represents "null" for Float/Double so
// that IsNull can distinguish a null scalar from a NaN with any other bit
// pattern written by a caller. The codec orders them apart only through the
// isNull flag its callers pass from IsNull: null sorts below every present
// value, a present NaN above every finite value.
var (
	nullFloatBits  = math.Float32bits(float32(math.NaN()))
	nullDoubleBits = math.Float64bits(math.NaN())
)

func nanBits32(f float32) uint32 { return math.Float32bits(f) }
func nanBits64(f float64) uint64 { return math.Float64bits(f) }
