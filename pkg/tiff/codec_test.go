package tiff

import (
	"encoding/binary"
	"testing"

	"github.com/jpfielding/tiff.go/pkg/tiff/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(b Block) []byte {
	out := make([]byte, b.Len())
	bpp := b.PixelType.BytesPerPixel()
	for i := 0; i < b.Width*b.Height*b.Samples; i++ {
		px := i / b.Samples
		v := (px%b.Width)*4 + (px/b.Width)*2 + (i%b.Samples)*10
		switch bpp {
		case 1:
			out[i] = byte(v)
		case 2:
			b.ByteOrder.PutUint16(out[2*i:], uint16(v*100))
		}
	}
	return out
}

func TestLosslessCodecs(t *testing.T) {
	blocks := []Block{
		{Width: 32, Height: 16, Samples: 1, PixelType: Uint8, ByteOrder: binary.LittleEndian},
		{Width: 16, Height: 16, Samples: 3, PixelType: Uint8, ByteOrder: binary.LittleEndian},
		{Width: 16, Height: 8, Samples: 1, PixelType: Uint16, ByteOrder: binary.BigEndian},
	}
	for _, name := range []string{
		compression.NameUncompressed,
		compression.NamePackBits,
		compression.NameLZW,
		compression.NameZlib,
		compression.NameZSTD,
		compression.NameJPEG2000,
	} {
		c := CodecByName(name)
		require.NotNil(t, c, name)
		assert.Equal(t, name, c.Name())
		for _, b := range blocks {
			t.Run(name+"/"+b.PixelType.String(), func(t *testing.T) {
				src := gradient(b)
				if c.Code() == compression.JPEG2000 && b.Samples > 1 {
					_, err := c.Compress(src, b)
					assert.Error(t, err)
					return
				}
				enc, err := c.Compress(src, b)
				require.NoError(t, err)
				dec, err := c.Decompress(enc, b)
				require.NoError(t, err)
				assert.Equal(t, src, dec)
			})
		}
	}
}

func TestJPEGCodec(t *testing.T) {
	c := CodecByCode(compression.JPEG)
	require.NotNil(t, c)
	b := Block{Width: 16, Height: 16, Samples: 1, PixelType: Uint8, ByteOrder: binary.LittleEndian}
	src := make([]byte, b.Len())
	for i := range src {
		src[i] = 128
	}
	enc, err := c.Compress(src, b)
	require.NoError(t, err)
	dec, err := c.Decompress(enc, b)
	require.NoError(t, err)
	require.Len(t, dec, len(src))
	for i := range dec {
		assert.InDelta(t, 128, int(dec[i]), 2)
	}

	_, err = c.Compress(make([]byte, 16*16*2), Block{Width: 16, Height: 16, Samples: 1, PixelType: Uint16, ByteOrder: binary.LittleEndian})
	assert.Error(t, err)
}

func TestCodecRegistry(t *testing.T) {
	assert.Nil(t, CodecByCode(compression.Code(2)))
	assert.Equal(t, compression.LZW, CodecByName("lzw").Code())
	assert.Nil(t, CodecByName("nope"))
	assert.Equal(t, compression.Deflate, CodecByName("deflate").Code())
	assert.Equal(t, compression.JPEG2000Lossy, CodecByName("JPEG-2000 Lossy").Code())

	code, err := codecFor("LZW")
	require.NoError(t, err)
	assert.Equal(t, compression.LZW, code)
	_, err = codecFor("bogus")
	assert.ErrorIs(t, err, ErrConfiguration)
	code, err = codecFor("")
	require.NoError(t, err)
	assert.Equal(t, compression.Uncompressed, code)
}

func TestPixelTypesFor(t *testing.T) {
	assert.Equal(t, []PixelType{Int8, Uint8}, PixelTypesFor("JPEG"))
	assert.NotContains(t, PixelTypesFor("JPEG-2000"), Float64)
	assert.Len(t, PixelTypesFor("zlib"), 8)
	assert.Len(t, PixelTypesFor(""), 8)
}
