package tiff

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Stream is the random access output of a writer
type Stream interface {
	io.ReadWriteSeeker
	Length() (int64, error)
}

type syncer interface {
	Sync() error
}

// FileStream adapts an *os.File
type FileStream struct {
	*os.File
}

// NewFileStream wraps f
func NewFileStream(f *os.File) *FileStream {
	return &FileStream{File: f}
}

// Length implements Stream
func (s *FileStream) Length() (int64, error) {
	fi, err := s.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// MemoryStream is a growable in-memory Stream
type MemoryStream struct {
	buf []byte
	pos int64
}

// NewMemoryStream returns an empty stream, or one holding a copy of data
func NewMemoryStream(data ...byte) *MemoryStream {
	return &MemoryStream{buf: append([]byte(nil), data...)}
}

// Bytes returns the stream contents
func (m *MemoryStream) Bytes() []byte {
	return m.buf
}

// Length implements Stream
func (m *MemoryStream) Length() (int64, error) {
	return int64(len(m.buf)), nil
}

func (m *MemoryStream) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

// ReadAt implements io.ReaderAt
func (m *MemoryStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("memory stream: negative offset")
	}
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemoryStream) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		if end > int64(cap(m.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(m.buf))))
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *MemoryStream) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = m.pos + offset
	case io.SeekEnd:
		pos = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("memory stream: invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, errors.New("memory stream: negative position")
	}
	m.pos = pos
	return pos, nil
}

// streamIO does positioned reads and writes on a Stream
type streamIO struct {
	s Stream
}

func (w streamIO) writeAt(p []byte, off int64) error {
	if _, err := w.s.Seek(off, io.SeekStart); err != nil {
		return err
	}
	_, err := w.s.Write(p)
	return err
}

// ReadAt implements io.ReaderAt over the stream
func (w streamIO) ReadAt(p []byte, off int64) (int, error) {
	if ra, ok := w.s.(io.ReaderAt); ok {
		return ra.ReadAt(p, off)
	}
	if _, err := w.s.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(w.s, p)
}

// append writes p at the end of the stream, word aligned, and returns its offset
func (w streamIO) append(p []byte) (int64, error) {
	end, err := w.s.Length()
	if err != nil {
		return 0, err
	}
	if end%2 != 0 {
		if err := w.writeAt([]byte{0}, end); err != nil {
			return 0, err
		}
		end++
	}
	return end, w.writeAt(p, end)
}

func (w streamIO) sync() error {
	if s, ok := w.s.(syncer); ok {
		return s.Sync()
	}
	return nil
}
