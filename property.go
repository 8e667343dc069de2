package embedb

// oidSize is the fixed width of the leading OID field in every object
// blob. The engine supports int/string oids internally in principle (§3)
// but this port restricts new data to Long, an 8-byte signed integer.
const oidSize = 8

// Property is a named, typed field with a fixed offset in the object
// header. Offset is relative to the first byte *after* the OID field —
// schema.go computes it that way so the OID's width never leaks into
// property arithmetic, and object.go/builder.go re-add oidSize when
// indexing into the raw blob.
type Property struct {
	Name     string
	DataType DataType
	Offset   int
}

// absOffset is this property's byte offset from the start of the blob.
func (p Property) absOffset() int { return oidSize + p.Offset }
