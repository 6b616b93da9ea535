package tiff

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/jpfielding/tiff.go/pkg/tiff/tag"
)

// Entry is one typed value list of a directory
type Entry struct {
	Type  tag.FieldType
	Count uint64
	// Values holds SHORT, LONG, LONG8 and IFD values; RATIONAL values are
	// stored as numerator/denominator pairs.
	Values []uint64
	// Data holds BYTE, ASCII and UNDEFINED values, and the raw encoding of
	// any other type read back from a file.
	Data []byte
}

// Uint returns value i as an unsigned integer
func (e Entry) Uint(i int) uint64 {
	if i < 0 || i >= len(e.Values) {
		if e.Type == tag.Byte && i >= 0 && i < len(e.Data) {
			return uint64(e.Data[i])
		}
		return 0
	}
	return e.Values[i]
}

// String returns an ASCII value without its terminator
func (e Entry) String() string {
	if e.Type == tag.ASCII {
		return strings.TrimRight(string(e.Data), "\x00")
	}
	if len(e.Values) == 1 {
		return fmt.Sprint(e.Values[0])
	}
	return fmt.Sprint(e.Values)
}

func (e Entry) clone() Entry {
	return Entry{
		Type:   e.Type,
		Count:  e.Count,
		Values: slices.Clone(e.Values),
		Data:   slices.Clone(e.Data),
	}
}

// Directory is an image file directory: a tag ordered set of entries.
// Directories handed to the writer are copied, never mutated.
type Directory struct {
	entries map[tag.Tag]Entry
}

// NewDirectory returns an empty directory
func NewDirectory() *Directory {
	return &Directory{entries: make(map[tag.Tag]Entry)}
}

func (d *Directory) put(t tag.Tag, e Entry) {
	if d.entries == nil {
		d.entries = make(map[tag.Tag]Entry)
	}
	d.entries[t] = e
}

// PutShort sets a SHORT entry
func (d *Directory) PutShort(t tag.Tag, v ...uint16) {
	vals := make([]uint64, len(v))
	for i, x := range v {
		vals[i] = uint64(x)
	}
	d.put(t, Entry{Type: tag.Short, Count: uint64(len(v)), Values: vals})
}

// PutLong sets a LONG entry
func (d *Directory) PutLong(t tag.Tag, v ...uint32) {
	vals := make([]uint64, len(v))
	for i, x := range v {
		vals[i] = uint64(x)
	}
	d.put(t, Entry{Type: tag.Long, Count: uint64(len(v)), Values: vals})
}

// PutLong8 sets a LONG8 entry. Classic files store it as LONG when every
// value fits in 32 bits.
func (d *Directory) PutLong8(t tag.Tag, v ...uint64) {
	d.put(t, Entry{Type: tag.Long8, Count: uint64(len(v)), Values: slices.Clone(v)})
}

// PutRational sets a single RATIONAL entry
func (d *Directory) PutRational(t tag.Tag, num, den uint32) {
	d.put(t, Entry{Type: tag.Rational, Count: 1, Values: []uint64{uint64(num), uint64(den)}})
}

// PutASCII sets a NUL terminated ASCII entry
func (d *Directory) PutASCII(t tag.Tag, s string) {
	data := append([]byte(s), 0)
	d.put(t, Entry{Type: tag.ASCII, Count: uint64(len(data)), Data: data})
}

// PutBytes sets a BYTE or UNDEFINED entry
func (d *Directory) PutBytes(t tag.Tag, ft tag.FieldType, data []byte) {
	d.put(t, Entry{Type: ft, Count: uint64(len(data)), Data: slices.Clone(data)})
}

// Put stores an entry as is
func (d *Directory) Put(t tag.Tag, e Entry) {
	d.put(t, e.clone())
}

// Get returns the entry for t
func (d *Directory) Get(t tag.Tag) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	e, ok := d.entries[t]
	return e, ok
}

// Uint returns the first value of t, 0 if absent
func (d *Directory) Uint(t tag.Tag) uint64 {
	e, ok := d.Get(t)
	if !ok {
		return 0
	}
	return e.Uint(0)
}

// Has reports whether t is present
func (d *Directory) Has(t tag.Tag) bool {
	_, ok := d.Get(t)
	return ok
}

// Delete removes t
func (d *Directory) Delete(t tag.Tag) {
	delete(d.entries, t)
}

// Len returns the number of entries
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Tags returns the tags in ascending order
func (d *Directory) Tags() []tag.Tag {
	if d == nil {
		return nil
	}
	var keys []tag.Tag
	for t := range d.entries {
		keys = append(keys, t)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a deep copy
func (d *Directory) Clone() *Directory {
	c := NewDirectory()
	if d == nil {
		return c
	}
	for t, e := range d.entries {
		c.entries[t] = e.clone()
	}
	return c
}

var requiredTags = []tag.Tag{
	tag.ImageWidth, tag.ImageLength, tag.BitsPerSample, tag.Compression,
	tag.PhotometricInterpretation, tag.XResolution, tag.YResolution,
	tag.ResolutionUnit, tag.PlanarConfiguration, tag.SampleFormat,
}

// Validate checks that the directory carries every tag a reader needs
func (d *Directory) Validate() error {
	var missing []string
	for _, t := range requiredTags {
		if !d.Has(t) {
			missing = append(missing, t.String())
		}
	}
	switch {
	case d.Has(tag.TileWidth) || d.Has(tag.TileLength):
		for _, t := range []tag.Tag{tag.TileWidth, tag.TileLength, tag.TileOffsets, tag.TileByteCounts} {
			if !d.Has(t) {
				missing = append(missing, t.String())
			}
		}
	default:
		for _, t := range []tag.Tag{tag.RowsPerStrip, tag.StripOffsets, tag.StripByteCounts} {
			if !d.Has(t) {
				missing = append(missing, t.String())
			}
		}
	}
	if len(missing) > 0 {
		return stateErr("validate", "directory missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Format describes the offset width of a file
type Format struct {
	Order   binary.ByteOrder
	BigTIFF bool
}

func (f Format) countSize() int {
	if f.BigTIFF {
		return 8
	}
	return 2
}

func (f Format) entrySize() int {
	if f.BigTIFF {
		return 20
	}
	return 12
}

func (f Format) pointerSize() int {
	if f.BigTIFF {
		return 8
	}
	return 4
}

// HeaderSize is the byte length of the file header
func (f Format) HeaderSize() int {
	if f.BigTIFF {
		return 16
	}
	return 8
}

// FirstIFDPointer is the file position of the first directory offset
func (f Format) FirstIFDPointer() int64 {
	if f.BigTIFF {
		return 8
	}
	return 4
}

// NextPointer is the position of the next directory offset relative to the
// start of a directory with n entries.
func (f Format) NextPointer(n int) int64 {
	return int64(f.countSize() + n*f.entrySize())
}

func (f Format) putPointer(b []byte, v uint64) {
	if f.BigTIFF {
		f.Order.PutUint64(b, v)
		return
	}
	f.Order.PutUint32(b, uint32(v))
}

// Header returns the file header with a zero first directory pointer
func (f Format) Header() []byte {
	b := make([]byte, f.HeaderSize())
	if littleEndian(f.Order) {
		copy(b, "II")
	} else {
		copy(b, "MM")
	}
	if f.BigTIFF {
		f.Order.PutUint16(b[2:], 43)
		f.Order.PutUint16(b[4:], 8)
		f.Order.PutUint16(b[6:], 0)
	} else {
		f.Order.PutUint16(b[2:], 42)
	}
	return b
}

// storedType maps an entry type to the type written in format f
func (f Format) storedType(t tag.Tag, e Entry) (tag.FieldType, error) {
	switch e.Type {
	case tag.Long8, tag.IFD8:
		if f.BigTIFF {
			return e.Type, nil
		}
		for _, v := range e.Values {
			if v > 0xFFFFFFFF {
				return 0, capacityErr("encode", "%s value %d needs 64-bit offsets", t, v)
			}
		}
		if e.Type == tag.IFD8 {
			return tag.IFD, nil
		}
		return tag.Long, nil
	case tag.Long:
		if f.BigTIFF && (t.IsOffsets() || t.IsByteCounts()) {
			return tag.Long8, nil
		}
	case tag.SLong8:
		if !f.BigTIFF {
			return 0, configErr("encode", "%s: SLONG8 requires BigTIFF", t)
		}
	}
	return e.Type, nil
}

func (f Format) valueBytes(t tag.Tag, e Entry, ft tag.FieldType) ([]byte, uint64, error) {
	switch ft {
	case tag.Short, tag.SShort:
		b := make([]byte, 2*len(e.Values))
		for i, v := range e.Values {
			f.Order.PutUint16(b[2*i:], uint16(v))
		}
		return b, uint64(len(e.Values)), nil
	case tag.Long, tag.SLong, tag.IFD:
		if len(e.Values) == 0 && len(e.Data) > 0 {
			break
		}
		b := make([]byte, 4*len(e.Values))
		for i, v := range e.Values {
			f.Order.PutUint32(b[4*i:], uint32(v))
		}
		return b, uint64(len(e.Values)), nil
	case tag.Long8, tag.SLong8, tag.IFD8:
		if len(e.Values) == 0 && len(e.Data) > 0 {
			break
		}
		b := make([]byte, 8*len(e.Values))
		for i, v := range e.Values {
			f.Order.PutUint64(b[8*i:], v)
		}
		return b, uint64(len(e.Values)), nil
	case tag.Rational, tag.SRational:
		if len(e.Values) == 0 && len(e.Data) > 0 {
			break
		}
		if len(e.Values)%2 != 0 {
			return nil, 0, configErr("encode", "%s: odd rational value count", t)
		}
		b := make([]byte, 4*len(e.Values))
		for i, v := range e.Values {
			f.Order.PutUint32(b[4*i:], uint32(v))
		}
		return b, uint64(len(e.Values) / 2), nil
	}
	size := ft.Size()
	if size == 0 {
		size = 1
	}
	return e.Data, uint64(len(e.Data) / size), nil
}

// EncodedSize returns the byte length Encode produces
func (f Format) EncodedSize(d *Directory) (int64, error) {
	b, err := f.Encode(d, 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// Encode serializes d for placement at offset with the given next pointer.
// Entries are sorted by tag and values too large to inline follow the entry
// table, word aligned.
func (f Format) Encode(d *Directory, offset, next int64) ([]byte, error) {
	tags := d.Tags()
	inline := f.pointerSize()
	head := int(f.NextPointer(len(tags))) + f.pointerSize()
	out := make([]byte, head)
	if f.BigTIFF {
		f.Order.PutUint64(out, uint64(len(tags)))
	} else {
		if len(tags) > 0xFFFF {
			return nil, configErr("encode", "%d entries exceed a classic directory", len(tags))
		}
		f.Order.PutUint16(out, uint16(len(tags)))
	}
	for i, t := range tags {
		e := d.entries[t]
		ft, err := f.storedType(t, e)
		if err != nil {
			return nil, err
		}
		data, count, err := f.valueBytes(t, e, ft)
		if err != nil {
			return nil, err
		}
		p := f.countSize() + i*f.entrySize()
		f.Order.PutUint16(out[p:], uint16(t))
		f.Order.PutUint16(out[p+2:], uint16(ft))
		vp := p + 4
		if f.BigTIFF {
			f.Order.PutUint64(out[vp:], count)
			vp += 8
		} else {
			f.Order.PutUint32(out[vp:], uint32(count))
			vp += 4
		}
		if len(data) <= inline {
			copy(out[vp:vp+inline], data)
			continue
		}
		pos := offset + int64(len(out))
		if !f.BigTIFF && pos > 0xFFFFFFFF {
			return nil, capacityErr("encode", "%s value at %d needs 64-bit offsets", t, pos)
		}
		f.putPointer(out[vp:], uint64(pos))
		out = append(out, data...)
		if len(out)%2 != 0 {
			out = append(out, 0)
		}
	}
	if !f.BigTIFF && next > 0xFFFFFFFF {
		return nil, capacityErr("encode", "next directory at %d needs 64-bit offsets", next)
	}
	f.putPointer(out[f.NextPointer(len(tags)):], uint64(next))
	return out, nil
}

// decodeEntry parses one raw entry; data is the value bytes in file order
func (f Format) decodeEntry(ft tag.FieldType, count uint64, data []byte) Entry {
	e := Entry{Type: ft, Count: count}
	switch ft {
	case tag.Short, tag.SShort:
		e.Values = make([]uint64, count)
		for i := range e.Values {
			e.Values[i] = uint64(f.Order.Uint16(data[2*i:]))
		}
	case tag.Long, tag.SLong, tag.IFD:
		e.Values = make([]uint64, count)
		for i := range e.Values {
			e.Values[i] = uint64(f.Order.Uint32(data[4*i:]))
		}
	case tag.Long8, tag.SLong8, tag.IFD8:
		e.Values = make([]uint64, count)
		for i := range e.Values {
			e.Values[i] = f.Order.Uint64(data[8*i:])
		}
	case tag.Rational, tag.SRational:
		e.Values = make([]uint64, 2*count)
		for i := range e.Values {
			e.Values[i] = uint64(f.Order.Uint32(data[4*i:]))
		}
	default:
		e.Data = slices.Clone(data)
	}
	return e
}
