// Package packbits implements the PackBits run-length scheme used by TIFF
// compression 32773. Rows are packed independently so that a reader can seek
// to any scanline boundary.
package packbits

import (
	"bytes"
	"errors"
	"fmt"
)

// maxRun is the longest literal or replicate run one header byte can describe
const maxRun = 128

// Encode packs data, restarting the run state every rowBytes bytes.
// A rowBytes <= 0 packs data as a single row.
func Encode(data []byte, rowBytes int) []byte {
	if len(data) == 0 {
		return nil
	}
	if rowBytes <= 0 {
		rowBytes = len(data)
	}
	var buf bytes.Buffer
	buf.Grow(len(data) + len(data)/maxRun + 1)
	for start := 0; start < len(data); start += rowBytes {
		end := start + rowBytes
		if end > len(data) {
			end = len(data)
		}
		encodeRow(&buf, data[start:end])
	}
	return buf.Bytes()
}

func encodeRow(buf *bytes.Buffer, row []byte) {
	i := 0
	for i < len(row) {
		run := 1
		for i+run < len(row) && run < maxRun && row[i+run] == row[i] {
			run++
		}
		if run > 1 {
			buf.WriteByte(byte(int8(-(run - 1))))
			buf.WriteByte(row[i])
			i += run
			continue
		}

		// literal until three identical bytes start a worthwhile run
		lit := 1
		for i+lit < len(row) && lit < maxRun {
			if i+lit+2 < len(row) && row[i+lit] == row[i+lit+1] && row[i+lit] == row[i+lit+2] {
				break
			}
			lit++
		}
		buf.WriteByte(byte(int8(lit - 1)))
		buf.Write(row[i : i+lit])
		i += lit
	}
}

// Decode unpacks data. When expectedLen > 0 decoding stops once that many
// bytes have been produced and a short result is an error.
func Decode(data []byte, expectedLen int) ([]byte, error) {
	var buf bytes.Buffer
	if expectedLen > 0 {
		buf.Grow(expectedLen)
	}

	i := 0
	for i < len(data) {
		if expectedLen > 0 && buf.Len() >= expectedLen {
			break
		}
		n := int8(data[i])
		i++
		switch {
		case n == -128:
			// no-op
		case n >= 0:
			count := int(n) + 1
			if i+count > len(data) {
				return nil, fmt.Errorf("packbits: truncated literal run (i=%d, count=%d, len=%d)", i, count, len(data))
			}
			buf.Write(data[i : i+count])
			i += count
		default:
			if i >= len(data) {
				return nil, errors.New("packbits: truncated replicate run")
			}
			val := data[i]
			i++
			for k := 0; k < int(-n)+1; k++ {
				buf.WriteByte(val)
			}
		}
	}
	if expectedLen > 0 {
		if buf.Len() < expectedLen {
			return nil, fmt.Errorf("packbits: decoded %d bytes, want %d", buf.Len(), expectedLen)
		}
		return buf.Bytes()[:expectedLen], nil
	}
	return buf.Bytes(), nil
}
