package lzw

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xlzw "golang.org/x/image/tiff/lzw"
)

func TestLZWRoundTrip(t *testing.T) {
	random := make([]byte, 200_000)
	rand.New(rand.NewSource(5)).Read(random)
	ramp := make([]byte, 100_000)
	for i := range ramp {
		ramp[i] = byte(i / 97)
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Single", []byte{0x42}},
		{"Repeat", bytes.Repeat([]byte{7}, 5000)},
		{"KwKwK", []byte("abababababababab")},
		{"Ramp", ramp},
		{"Random", random},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := Encode(tt.data)

			// an independent reader must accept the stream up to its end code
			all, err := io.ReadAll(xlzw.NewReader(bytes.NewReader(enc), xlzw.MSB, 8))
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), len(all))
			assert.True(t, bytes.Equal(tt.data, all))

			dec, err := Decode(enc, len(tt.data))
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.data, dec))
		})
	}
}

func TestLZWCompresses(t *testing.T) {
	data := bytes.Repeat([]byte("tile row "), 1000)
	assert.Less(t, len(Encode(data)), len(data)/4)
}

func TestLZWDecodeShort(t *testing.T) {
	enc := Encode([]byte{1, 2, 3})
	_, err := Decode(enc, 10)
	assert.Error(t, err)
}
