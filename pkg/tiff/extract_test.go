package tiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seq fills n bytes with 0, 1, 2, ...
func seq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestExtractTilePlanar(t *testing.T) {
	src := Region{X: 10, Y: 20, Width: 4, Height: 3}
	buf := seq(4 * 3 * 2) // two channel planes of 12 bytes
	tile := Region{X: 11, Y: 21, Width: 2, Height: 2}
	out, err := ExtractTile(buf, tile, src, 2, 1, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 9, 10, 17, 18, 21, 22}, out)
}

func TestExtractTileInterleaved(t *testing.T) {
	src := Region{Width: 3, Height: 2}
	buf := seq(3 * 2 * 3)
	out, err := ExtractTile(buf, Region{X: 1, Y: 1, Width: 2, Height: 1}, src, 3, 1, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{12, 13, 14, 15, 16, 17}, out)
}

func TestExtractTileMultiByte(t *testing.T) {
	src := Region{Width: 2, Height: 2}
	buf := seq(2 * 2 * 2)
	out, err := ExtractTile(buf, Region{X: 1, Y: 0, Width: 1, Height: 2}, src, 1, 2, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 6, 7}, out)
}

func TestInsertTileInverse(t *testing.T) {
	outer := Region{X: 16, Y: 16, Width: 16, Height: 16}
	for _, interleaved := range []bool{false, true} {
		dst := make([]byte, 16*16*3)
		tile := Region{X: 20, Y: 18, Width: 5, Height: 7}
		data := seq(5 * 7 * 3)
		require.NoError(t, InsertTile(dst, outer, data, tile, 3, 1, interleaved))
		back, err := ExtractTile(dst, tile, outer, 3, 1, interleaved)
		require.NoError(t, err)
		assert.Equal(t, data, back)
	}
}

func TestExtractTileErrors(t *testing.T) {
	src := Region{Width: 4, Height: 4}
	_, err := ExtractTile(seq(16), Region{X: 2, Y: 2, Width: 4, Height: 1}, src, 1, 1, false)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = ExtractTile(seq(15), Region{Width: 1, Height: 1}, src, 1, 1, false)
	assert.ErrorIs(t, err, ErrConfiguration)
	err = InsertTile(make([]byte, 16), src, seq(3), Region{Width: 2, Height: 2}, 1, 1, false)
	assert.ErrorIs(t, err, ErrConfiguration)
}
