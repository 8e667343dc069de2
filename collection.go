// Collection: CRUD over the primary data table plus per-collection
// indexes, auto-increment, and JSON import/export (§4.4). Every operation
// here runs within a caller-supplied *Txn.
package embedb

import (
	"sort"
	"sync/atomic"

	json "github.com/goccy/go-json"
)

// Collection binds a compiled schema to its resolved Property list, its
// Index instances, and the auto-increment counter tracked across opens.
type Collection struct {
	ID         uint16
	Name       string
	Properties []Property
	StaticSize int
	Indexes    []*Index

	lastOID atomic.Int64
}

// dataKey builds this collection's primary-table key for oid.
func (c *Collection) dataKey(oid int64) []byte {
	return encodeDataKey(c.ID, oid)
}

// Get returns the object at oid, or (zero, false) if absent.
func (c *Collection) Get(txn *Txn, oid int64) (Object, bool) {
	b, ok := txn.DataGet(c.dataKey(oid))
	if !ok {
		return Object{}, false
	}
	return NewObject(b), true
}

// Put upserts obj, running the put algorithm in §4.4: auto-increment if
// unset, remove the prior row's stale index entries, insert/replace new
// index entries, upsert the data row, then register the change.
func (c *Collection) Put(txn *Txn, blob []byte) (int64, error) {
	if err := txn.requireWrite(); err != nil {
		return 0, err
	}
	obj := NewObject(blob)
	oid := obj.ReadID()
	if oid == 0 {
		next, err := c.AutoIncrement(txn)
		if err != nil {
			return 0, err
		}
		oid = next
		patchID(blob, oid)
		obj = NewObject(blob)
	} else {
		c.bumpLastOID(oid)
	}

	key := c.dataKey(oid)

	if old, exists := txn.DataGet(key); exists {
		oldObj := NewObject(old)
		for _, ix := range c.Indexes {
			if err := ix.DeleteForObject(txn, key, oldObj); err != nil {
				return 0, err
			}
		}
	}

	deleteOwner := func(ownerKey []byte) error {
		return c.deleteByDataKey(txn, ownerKey)
	}
	for _, ix := range c.Indexes {
		if err := ix.CreateForObject(txn, key, obj, deleteOwner); err != nil {
			return 0, err
		}
	}

	if err := txn.DataPut(key, blob); err != nil {
		return 0, err
	}
	txn.changeSet.RegisterChange(c.ID, oid, blob)
	return oid, nil
}

// deleteByDataKey removes the row at an already-encoded data key and all
// of its index entries, without touching the change-set — used only as
// the replace-policy cascade inside Put (§4.5 create_for_object_key).
func (c *Collection) deleteByDataKey(txn *Txn, key []byte) error {
	old, exists := txn.DataGet(key)
	if !exists {
		return nil
	}
	oldObj := NewObject(old)
	for _, ix := range c.Indexes {
		if err := ix.DeleteForObject(txn, key, oldObj); err != nil {
			return err
		}
	}
	_, err := txn.DataDelete(key)
	return err
}

// Delete removes oid's row and every index entry it owns, reporting
// whether it existed.
func (c *Collection) Delete(txn *Txn, oid int64) (bool, error) {
	if err := txn.requireWrite(); err != nil {
		return false, err
	}
	key := c.dataKey(oid)
	old, exists := txn.DataGet(key)
	if !exists {
		return false, nil
	}
	oldObj := NewObject(old)
	for _, ix := range c.Indexes {
		if err := ix.DeleteForObject(txn, key, oldObj); err != nil {
			return false, err
		}
	}
	if _, err := txn.DataDelete(key); err != nil {
		return false, err
	}
	txn.changeSet.RegisterChange(c.ID, oid, nil)
	return true, nil
}

// Clear deletes every row and index entry belonging to this collection.
func (c *Collection) Clear(txn *Txn) (int, error) {
	if err := txn.requireWrite(); err != nil {
		return 0, err
	}
	for _, ix := range c.Indexes {
		if err := ix.Clear(txn); err != nil {
			return 0, err
		}
	}
	n, err := txn.DataDeletePrefix(encodeColPrefix(c.ID))
	if err != nil {
		return 0, err
	}
	return n, nil
}

// bumpLastOID records oid as having been issued, so a later AutoIncrement
// never reissues it (§4.4 "tracks the maximum oid ever issued").
func (c *Collection) bumpLastOID(oid int64) {
	for {
		cur := c.lastOID.Load()
		if oid <= cur {
			return
		}
		if c.lastOID.CompareAndSwap(cur, oid) {
			return
		}
	}
}

// AutoIncrement reserves and returns the next oid for this collection.
func (c *Collection) AutoIncrement(txn *Txn) (int64, error) {
	if err := txn.requireWrite(); err != nil {
		return 0, err
	}
	for {
		cur := c.lastOID.Load()
		if cur == MaxID {
			return 0, wrapErr(KindDbFull, "auto_increment overflow", nil)
		}
		next := cur + 1
		if next < MinID {
			next = MinID
		}
		if c.lastOID.CompareAndSwap(cur, next) {
			return next, nil
		}
	}
}

// initLastOID seeds the auto-increment counter from the highest oid
// already present in the data table, scanning the collection's key range
// — the persisted-by-last-key-lookup behavior of §4.4.
func (c *Collection) initLastOID(engine *Engine) {
	cur := newCursor(engine.primary)
	upper := encodeDataKey(c.ID, MaxID)
	if cur.SeekLast(upper) {
		if colID, oid := decodeDataKey(cur.Key()); colID == c.ID {
			c.lastOID.Store(oid)
		}
	}
}

// GetAll resolves each oid to its object (nil entries for missing oids),
// preserving input order — the original's raw_object_set.rs bulk pattern.
func (c *Collection) GetAll(txn *Txn, oids []int64) []*Object {
	out := make([]*Object, len(oids))
	for i, oid := range oids {
		if obj, ok := c.Get(txn, oid); ok {
			o := obj
			out[i] = &o
		}
	}
	return out
}

// PutAll upserts every blob in order, returning the assigned oids.
func (c *Collection) PutAll(txn *Txn, blobs [][]byte) ([]int64, error) {
	oids := make([]int64, len(blobs))
	for i, b := range blobs {
		oid, err := c.Put(txn, b)
		if err != nil {
			return nil, err
		}
		oids[i] = oid
	}
	return oids, nil
}

// DeleteAll deletes every oid, reporting which existed.
func (c *Collection) DeleteAll(txn *Txn, oids []int64) ([]bool, error) {
	out := make([]bool, len(oids))
	for i, oid := range oids {
		existed, err := c.Delete(txn, oid)
		if err != nil {
			return nil, err
		}
		out[i] = existed
	}
	return out, nil
}

// ImportJSON decodes a JSON array of objects and Puts each one, coercing
// fields to this collection's schema (§4.4 import_json).
func (c *Collection) ImportJSON(txn *Txn, data []byte) ([]int64, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, wrapErr(KindJSONError, "import_json: decode", err)
	}
	oids := make([]int64, 0, len(raw))
	for _, obj := range raw {
		blob, err := c.buildFromJSON(obj)
		if err != nil {
			return nil, err
		}
		oid, err := c.Put(txn, blob)
		if err != nil {
			return nil, err
		}
		oids = append(oids, oid)
	}
	return oids, nil
}

// ExportJSON renders every row, in oid order, as a JSON array of
// {name: value} objects with one field per property plus an "id" field.
// Each row is a map, so the encoder writes its keys sorted by name.
func (c *Collection) ExportJSON(txn *Txn) ([]byte, error) {
	prefix := encodeColPrefix(c.ID)
	cur := txn.DataCursor()
	var out []map[string]any
	for ok := cur.Seek(prefix); ok && hasPrefix(cur.Key(), prefix); ok = cur.Next() {
		obj := NewObject(cur.Value())
		out = append(out, c.toJSON(obj))
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, wrapErr(KindJSONError, "export_json: encode", err)
	}
	return b, nil
}

func (c *Collection) toJSON(obj Object) map[string]any {
	m := map[string]any{"id": obj.ReadID()}
	for _, p := range c.Properties {
		if obj.IsNull(p) {
			m[p.Name] = nil
			continue
		}
		switch p.DataType {
		case Byte:
			m[p.Name] = obj.ReadByte(p)
		case Int:
			m[p.Name] = obj.ReadInt(p)
		case Long:
			m[p.Name] = obj.ReadLong(p)
		case Float:
			m[p.Name] = obj.ReadFloat(p)
		case Double:
			m[p.Name] = obj.ReadDouble(p)
		case String:
			v, _ := obj.ReadString(p)
			m[p.Name] = v
		case ByteList:
			v, _ := obj.ReadByteList(p)
			m[p.Name] = v
		case IntList:
			v, _ := obj.ReadIntList(p)
			m[p.Name] = v
		case LongList:
			v, _ := obj.ReadLongList(p)
			m[p.Name] = v
		case FloatList:
			v, _ := obj.ReadFloatList(p)
			m[p.Name] = v
		case DoubleList:
			v, _ := obj.ReadDoubleList(p)
			m[p.Name] = v
		case StringList:
			v, _ := obj.ReadStringList(p)
			strs := make([]*string, len(v))
			copy(strs, v)
			m[p.Name] = strs
		}
	}
	return m
}

func (c *Collection) buildFromJSON(raw map[string]any) ([]byte, error) {
	b := NewObjectBuilder(c.Properties, c.StaticSize)
	for _, p := range c.Properties {
		v, present := raw[p.Name]
		if !present || v == nil {
			writeNullProperty(b, p.DataType)
			continue
		}
		if err := writeJSONProperty(b, p, v); err != nil {
			return nil, err
		}
	}
	var oid int64
	if v, ok := raw["id"]; ok && v != nil {
		if f, ok := v.(float64); ok {
			oid = int64(f)
		}
	}
	return b.Finish(oid), nil
}

func writeNullProperty(b *ObjectBuilder, dt DataType) {
	switch dt {
	case Byte:
		b.WriteByte(nil)
	case Int:
		b.WriteInt(nil)
	case Long:
		b.WriteLong(nil)
	case Float:
		b.WriteFloat(nil)
	case Double:
		b.WriteDouble(nil)
	case String:
		b.WriteString(nil)
	case ByteList:
		b.WriteByteList(nil)
	case IntList:
		b.WriteIntList(nil)
	case LongList:
		b.WriteLongList(nil)
	case FloatList:
		b.WriteFloatList(nil)
	case DoubleList:
		b.WriteDoubleList(nil)
	case StringList:
		b.WriteStringList(nil)
	}
}

func writeJSONProperty(b *ObjectBuilder, p Property, v any) error {
	switch p.DataType {
	case Byte:
		f, ok := v.(float64)
		if !ok {
			return illegalArg("property %q: expected number", p.Name)
		}
		bv := byte(f)
		b.WriteByte(&bv)
	case Int:
		f, ok := v.(float64)
		if !ok {
			return illegalArg("property %q: expected number", p.Name)
		}
		iv := int32(f)
		b.WriteInt(&iv)
	case Long:
		f, ok := v.(float64)
		if !ok {
			return illegalArg("property %q: expected number", p.Name)
		}
		lv := int64(f)
		b.WriteLong(&lv)
	case Float:
		f, ok := v.(float64)
		if !ok {
			return illegalArg("property %q: expected number", p.Name)
		}
		fv := float32(f)
		b.WriteFloat(&fv)
	case Double:
		f, ok := v.(float64)
		if !ok {
			return illegalArg("property %q: expected number", p.Name)
		}
		b.WriteDouble(&f)
	case String:
		s, ok := v.(string)
		if !ok {
			return illegalArg("property %q: expected string", p.Name)
		}
		b.WriteString(&s)
	case ByteList:
		arr, ok := v.([]any)
		if !ok {
			return illegalArg("property %q: expected array", p.Name)
		}
		out := make([]byte, len(arr))
		for i, e := range arr {
			f, _ := e.(float64)
			out[i] = byte(f)
		}
		b.WriteByteList(out)
	case IntList:
		arr, ok := v.([]any)
		if !ok {
			return illegalArg("property %q: expected array", p.Name)
		}
		out := make([]int32, len(arr))
		for i, e := range arr {
			f, _ := e.(float64)
			out[i] = int32(f)
		}
		b.WriteIntList(out)
	case LongList:
		arr, ok := v.([]any)
		if !ok {
			return illegalArg("property %q: expected array", p.Name)
		}
		out := make([]int64, len(arr))
		for i, e := range arr {
			f, _ := e.(float64)
			out[i] = int64(f)
		}
		b.WriteLongList(out)
	case FloatList:
		arr, ok := v.([]any)
		if !ok {
			return illegalArg("property %q: expected array", p.Name)
		}
		out := make([]float32, len(arr))
		for i, e := range arr {
			f, _ := e.(float64)
			out[i] = float32(f)
		}
		b.WriteFloatList(out)
	case DoubleList:
		arr, ok := v.([]any)
		if !ok {
			return illegalArg("property %q: expected array", p.Name)
		}
		out := make([]float64, len(arr))
		for i, e := range arr {
			f, _ := e.(float64)
			out[i] = f
		}
		b.WriteDoubleList(out)
	case StringList:
		arr, ok := v.([]any)
		if !ok {
			return illegalArg("property %q: expected array", p.Name)
		}
		out := make([]*string, len(arr))
		for i, e := range arr {
			if e == nil {
				continue
			}
			s, _ := e.(string)
			sc := s
			out[i] = &sc
		}
		b.WriteStringList(out)
	}
	return nil
}

// sortProperties returns a copy of props sorted by name. Nothing in the
// package calls it; JSON export does not need it, since the encoder already
// sorts map keys.
func sortProperties(props []Property) []Property {
	out := make([]Property, len(props))
	copy(out, props)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
