package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jpfielding/tiff.go/pkg/tiff/tag"
)

// ErrNotTIFF is returned when a stream does not start with a TIFF header
var ErrNotTIFF = errors.New("not a TIFF stream")

// maxDirectories bounds chain walks of corrupt files
const maxDirectories = 1 << 20

// ReadHeader parses the file header and returns the format and the offset of
// the first directory
func ReadHeader(r io.ReaderAt) (Format, int64, error) {
	var b [16]byte
	if _, err := r.ReadAt(b[:8], 0); err != nil {
		return Format{}, 0, fmt.Errorf("read header: %w", err)
	}
	var f Format
	switch string(b[:2]) {
	case "II":
		f.Order = binary.LittleEndian
	case "MM":
		f.Order = binary.BigEndian
	default:
		return Format{}, 0, ErrNotTIFF
	}
	switch f.Order.Uint16(b[2:]) {
	case 42:
		return f, int64(f.Order.Uint32(b[4:])), nil
	case 43:
		if f.Order.Uint16(b[4:]) != 8 {
			return Format{}, 0, fmt.Errorf("%w: unsupported BigTIFF offset size %d", ErrNotTIFF, f.Order.Uint16(b[4:]))
		}
		if _, err := r.ReadAt(b[8:16], 8); err != nil {
			return Format{}, 0, fmt.Errorf("read header: %w", err)
		}
		f.BigTIFF = true
		return f, int64(f.Order.Uint64(b[8:])), nil
	}
	return Format{}, 0, fmt.Errorf("%w: bad version %d", ErrNotTIFF, f.Order.Uint16(b[2:]))
}

// ReadDirectory parses the directory at offset and returns it with the offset
// of the next one
func ReadDirectory(r io.ReaderAt, f Format, offset int64) (*Directory, int64, error) {
	cb := make([]byte, f.countSize())
	if _, err := r.ReadAt(cb, offset); err != nil {
		return nil, 0, fmt.Errorf("read directory at %d: %w", offset, err)
	}
	var n uint64
	if f.BigTIFF {
		n = f.Order.Uint64(cb)
	} else {
		n = uint64(f.Order.Uint16(cb))
	}
	if n > 0xFFFF {
		return nil, 0, fmt.Errorf("read directory at %d: %d entries", offset, n)
	}
	table := make([]byte, int(n)*f.entrySize()+f.pointerSize())
	if _, err := r.ReadAt(table, offset+int64(f.countSize())); err != nil {
		return nil, 0, fmt.Errorf("read directory at %d: %w", offset, err)
	}
	d := NewDirectory()
	for i := 0; i < int(n); i++ {
		p := table[i*f.entrySize():]
		t := tag.Tag(f.Order.Uint16(p))
		ft := tag.FieldType(f.Order.Uint16(p[2:]))
		var count uint64
		var vp []byte
		if f.BigTIFF {
			count = f.Order.Uint64(p[4:])
			vp = p[12:20]
		} else {
			count = uint64(f.Order.Uint32(p[4:]))
			vp = p[8:12]
		}
		size := ft.Size()
		if size == 0 {
			size = 1
		}
		length := count * uint64(size)
		if length > 1<<30 {
			return nil, 0, fmt.Errorf("read directory at %d: %s has %d values", offset, t, count)
		}
		data := vp[:min(int(length), len(vp))]
		if int(length) > len(vp) {
			var at int64
			if f.BigTIFF {
				at = int64(f.Order.Uint64(vp))
			} else {
				at = int64(f.Order.Uint32(vp))
			}
			data = make([]byte, length)
			if _, err := r.ReadAt(data, at); err != nil {
				return nil, 0, fmt.Errorf("read %s values at %d: %w", t, at, err)
			}
		}
		d.put(t, f.decodeEntry(ft, count, data))
	}
	np := table[int(n)*f.entrySize():]
	var next int64
	if f.BigTIFF {
		next = int64(f.Order.Uint64(np))
	} else {
		next = int64(f.Order.Uint32(np))
	}
	return d, next, nil
}

// ReadDirectoryOffsets walks the directory chain starting at first
func ReadDirectoryOffsets(r io.ReaderAt, f Format, first int64) ([]int64, error) {
	var offsets []int64
	seen := map[int64]bool{}
	for off := first; off != 0; {
		if seen[off] {
			return offsets, fmt.Errorf("directory chain loops at offset %d", off)
		}
		if len(offsets) >= maxDirectories {
			return offsets, fmt.Errorf("directory chain longer than %d", maxDirectories)
		}
		seen[off] = true
		offsets = append(offsets, off)
		next, err := readNext(r, f, off)
		if err != nil {
			return offsets, err
		}
		off = next
	}
	return offsets, nil
}

func readNext(r io.ReaderAt, f Format, offset int64) (int64, error) {
	cb := make([]byte, f.countSize())
	if _, err := r.ReadAt(cb, offset); err != nil {
		return 0, fmt.Errorf("read directory at %d: %w", offset, err)
	}
	var n int
	if f.BigTIFF {
		n = int(min(f.Order.Uint64(cb), 0xFFFF))
	} else {
		n = int(f.Order.Uint16(cb))
	}
	pb := make([]byte, f.pointerSize())
	if _, err := r.ReadAt(pb, offset+f.NextPointer(n)); err != nil {
		return 0, fmt.Errorf("read next pointer of %d: %w", offset, err)
	}
	if f.BigTIFF {
		return int64(f.Order.Uint64(pb)), nil
	}
	return int64(f.Order.Uint32(pb)), nil
}

// ReadDirectories parses every directory of the chain
func ReadDirectories(r io.ReaderAt) (Format, []int64, []*Directory, error) {
	f, first, err := ReadHeader(r)
	if err != nil {
		return Format{}, nil, nil, err
	}
	offsets, err := ReadDirectoryOffsets(r, f, first)
	if err != nil {
		return f, nil, nil, err
	}
	dirs := make([]*Directory, len(offsets))
	for i, off := range offsets {
		if dirs[i], _, err = ReadDirectory(r, f, off); err != nil {
			return f, offsets, nil, err
		}
	}
	return f, offsets, dirs, nil
}
