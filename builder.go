// ObjectBuilder writes an object record: scalars are appended in property
// order into the static header, string/list values are packed into the
// dynamic tail with their (offset, length) patched into the header as they
// are written (§4.2).
package embedb

import (
	"encoding/binary"
	"math"
)

// ObjectBuilder assembles one object blob. Callers must call the Write*
// method matching each property's DataType, in schema property order, then
// Finish.
type ObjectBuilder struct {
	properties []Property
	idx        int
	header     []byte
	tail       []byte
	tailStart  uint32
}

// NewObjectBuilder starts a builder for a collection whose schema-computed
// static size (excluding the OID field) is staticSize.
func NewObjectBuilder(properties []Property, staticSize int) *ObjectBuilder {
	return &ObjectBuilder{
		properties: properties,
		header:     make([]byte, staticSize),
		tailStart:  uint32(oidSize + staticSize),
	}
}

func (b *ObjectBuilder) current() Property {
	p := b.properties[b.idx]
	b.idx++
	return p
}

func (b *ObjectBuilder) WriteByte(v *byte) {
	p := b.current()
	if v == nil {
		b.header[p.Offset] = nullByte
	} else {
		b.header[p.Offset] = *v
	}
}

func (b *ObjectBuilder) WriteInt(v *int32) {
	p := b.current()
	val := nullInt
	if v != nil {
		val = *v
	}
	binary.LittleEndian.PutUint32(b.header[p.Offset:], uint32(val))
}

func (b *ObjectBuilder) WriteLong(v *int64) {
	p := b.current()
	val := nullLong
	if v != nil {
		val = *v
	}
	binary.LittleEndian.PutUint64(b.header[p.Offset:], uint64(val))
}

func (b *ObjectBuilder) WriteFloat(v *float32) {
	p := b.current()
	bits := nullFloatBits
	if v != nil {
		bits = math.Float32bits(*v)
	}
	binary.LittleEndian.PutUint32(b.header[p.Offset:], bits)
}

func (b *ObjectBuilder) WriteDouble(v *float64) {
	p := b.current()
	bits := nullDoubleBits
	if v != nil {
		bits = math.Float64bits(*v)
	}
	binary.LittleEndian.PutUint64(b.header[p.Offset:], bits)
}

func (b *ObjectBuilder) WriteString(v *string) {
	p := b.current()
	if v == nil {
		b.writeDynHeader(p, 0, 0)
		return
	}
	data := []byte(*v)
	off := b.appendTail(data)
	b.writeDynHeader(p, off, uint32(len(data)))
}

func (b *ObjectBuilder) WriteByteList(v []byte) {
	p := b.current()
	if v == nil {
		b.writeDynHeader(p, 0, 0)
		return
	}
	off := b.appendTail(v)
	b.writeDynHeader(p, off, uint32(len(v)))
}

func (b *ObjectBuilder) WriteIntList(v []int32) {
	p := b.current()
	if v == nil {
		b.writeDynHeader(p, 0, 0)
		return
	}
	buf := make([]byte, len(v)*4)
	for i, e := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(e))
	}
	off := b.appendTail(buf)
	b.writeDynHeader(p, off, uint32(len(v)))
}

func (b *ObjectBuilder) WriteLongList(v []int64) {
	p := b.current()
	if v == nil {
		b.writeDynHeader(p, 0, 0)
		return
	}
	buf := make([]byte, len(v)*8)
	for i, e := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(e))
	}
	off := b.appendTail(buf)
	b.writeDynHeader(p, off, uint32(len(v)))
}

func (b *ObjectBuilder) WriteFloatList(v []float32) {
	p := b.current()
	if v == nil {
		b.writeDynHeader(p, 0, 0)
		return
	}
	buf := make([]byte, len(v)*4)
	for i, e := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(e))
	}
	off := b.appendTail(buf)
	b.writeDynHeader(p, off, uint32(len(v)))
}

func (b *ObjectBuilder) WriteDoubleList(v []float64) {
	p := b.current()
	if v == nil {
		b.writeDynHeader(p, 0, 0)
		return
	}
	buf := make([]byte, len(v)*8)
	for i, e := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(e))
	}
	off := b.appendTail(buf)
	b.writeDynHeader(p, off, uint32(len(v)))
}

func (b *ObjectBuilder) WriteStringList(v []*string) {
	p := b.current()
	if v == nil {
		b.writeDynHeader(p, 0, 0)
		return
	}
	var buf []byte
	for _, e := range v {
		if e == nil {
			lb := make([]byte, 4)
			binary.LittleEndian.PutUint32(lb, stringListNullMarker)
			buf = append(buf, lb...)
			continue
		}
		data := []byte(*e)
		lb := make([]byte, 4)
		binary.LittleEndian.PutUint32(lb, uint32(len(data)))
		buf = append(buf, lb...)
		buf = append(buf, data...)
	}
	off := b.appendTail(buf)
	b.writeDynHeader(p, off, uint32(len(v)))
}

func (b *ObjectBuilder) appendTail(data []byte) uint32 {
	off := b.tailStart + uint32(len(b.tail))
	b.tail = append(b.tail, data...)
	return off
}

func (b *ObjectBuilder) writeDynHeader(p Property, offset, length uint32) {
	binary.LittleEndian.PutUint32(b.header[p.Offset:], offset)
	binary.LittleEndian.PutUint32(b.header[p.Offset+4:], length)
}

// Finish assembles the final blob: the OID field, the static header, then
// the dynamic tail. oid may be 0 to request auto-increment (collection.go
// patches the real id back into byte 0..8 after reserving it).
func (b *ObjectBuilder) Finish(oid int64) []byte {
	out := make([]byte, oidSize+len(b.header)+len(b.tail))
	binary.LittleEndian.PutUint64(out[0:8], uint64(oid))
	copy(out[oidSize:], b.header)
	copy(out[oidSize+len(b.header):], b.tail)
	return out
}

// patchID overwrites the leading OID field of an already-built blob. Used
// by Collection.Put after auto-increment reserves the real id.
func patchID(blob []byte, oid int64) {
	binary.LittleEndian.PutUint64(blob[0:8], uint64(oid))
}
