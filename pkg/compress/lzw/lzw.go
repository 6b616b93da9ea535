// Package lzw implements the LZW variant of TIFF compression 5: 8-bit
// literals, codes packed MSB first, and the code width growing one code
// earlier than in GIF.
package lzw

import (
	"bytes"
	"fmt"
	"io"

	xlzw "golang.org/x/image/tiff/lzw"
)

const (
	clearCode = 256
	eoiCode   = 257
	firstCode = 258
	minWidth  = 9
	// the table is reset before its last entries so that codes never
	// need more than 12 bits
	resetCode = 4094
)

// bitWriter packs codes most significant bit first
type bitWriter struct {
	out   []byte
	bits  uint32
	nBits uint
}

func (w *bitWriter) write(code uint16, width uint) {
	w.bits |= uint32(code) << (32 - width - w.nBits)
	w.nBits += width
	for w.nBits >= 8 {
		w.out = append(w.out, byte(w.bits>>24))
		w.bits <<= 8
		w.nBits -= 8
	}
}

func (w *bitWriter) flush() []byte {
	if w.nBits > 0 {
		w.out = append(w.out, byte(w.bits>>24))
	}
	return w.out
}

// Encode compresses data into one TIFF LZW stream
func Encode(data []byte) []byte {
	w := &bitWriter{out: make([]byte, 0, len(data)/2+4)}
	width := uint(minWidth)
	w.write(clearCode, width)
	if len(data) == 0 {
		w.write(eoiCode, width)
		return w.flush()
	}

	table := make(map[uint32]uint16, resetCode)
	next := uint16(firstCode)
	// advance accounts for the table entry that follows each emitted code
	advance := func() {
		next++
		switch {
		case next == resetCode:
			w.write(clearCode, width)
			clear(table)
			next, width = firstCode, minWidth
		case next > 1<<width-1:
			width++
		}
	}

	prefix := uint16(data[0])
	for _, c := range data[1:] {
		key := uint32(prefix)<<8 | uint32(c)
		if code, ok := table[key]; ok {
			prefix = code
			continue
		}
		w.write(prefix, width)
		table[key] = next
		advance()
		prefix = uint16(c)
	}
	w.write(prefix, width)
	advance()
	w.write(eoiCode, width)
	return w.flush()
}

// Decode expands a TIFF LZW stream, expecting expectedLen bytes
func Decode(data []byte, expectedLen int) ([]byte, error) {
	r := xlzw.NewReader(bytes.NewReader(data), xlzw.MSB, 8)
	defer r.Close()
	out := make([]byte, expectedLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("lzw: %w", err)
	}
	return out, nil
}
