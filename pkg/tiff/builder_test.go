package tiff

import (
	"encoding/binary"
	"image/color"
	"testing"

	"github.com/jpfielding/tiff.go/pkg/tiff/compression"
	"github.com/jpfielding/tiff.go/pkg/tiff/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plane(w, h, samples int, pt PixelType) PlaneDescriptor {
	return PlaneDescriptor{Width: w, Height: h, SamplesPerPixel: samples, PixelType: pt, ByteOrder: binary.LittleEndian}
}

func TestBuildDirectoryGray(t *testing.T) {
	p := plane(100, 50, 1, Int16)
	d := BuildDirectory(nil, p, NewLayout(p, 32, 32, false), DirectoryOptions{
		Compression:   compression.Deflate,
		PhysicalSizeX: 0.5,
		SizeC:         2, SizeZ: 3, SizeT: 4,
		Software: "tiffctl",
	})
	assert.EqualValues(t, 100, d.Uint(tag.ImageWidth))
	assert.EqualValues(t, 50, d.Uint(tag.ImageLength))
	assert.EqualValues(t, 16, d.Uint(tag.BitsPerSample))
	assert.EqualValues(t, compression.Deflate, d.Uint(tag.Compression))
	assert.EqualValues(t, tag.PhotometricBlackIsZero, d.Uint(tag.PhotometricInterpretation))
	assert.EqualValues(t, 1, d.Uint(tag.SamplesPerPixel))
	assert.EqualValues(t, 32, d.Uint(tag.TileWidth))
	assert.EqualValues(t, 32, d.Uint(tag.TileLength))
	assert.False(t, d.Has(tag.RowsPerStrip))
	assert.EqualValues(t, tag.PlanarChunky, d.Uint(tag.PlanarConfiguration))
	assert.EqualValues(t, tag.SampleSigned, d.Uint(tag.SampleFormat))
	assert.EqualValues(t, tag.ResolutionCentimeter, d.Uint(tag.ResolutionUnit))
	assert.False(t, d.Has(tag.ColorMap))
	assert.False(t, d.Has(tag.ExtraSamples))

	x, _ := d.Get(tag.XResolution)
	assert.Equal(t, []uint64{20000000, 1000}, x.Values)
	y, _ := d.Get(tag.YResolution)
	assert.Equal(t, []uint64{0, 1000}, y.Values)

	desc, _ := d.Get(tag.ImageDescription)
	assert.Equal(t, "ImageJ=\nhyperstack=true\nimages=24\nchannels=2\nslices=3\nframes=4", desc.String())
	sw, _ := d.Get(tag.Software)
	assert.Equal(t, "tiffctl", sw.String())
}

func TestBuildDirectoryLayouts(t *testing.T) {
	tests := []struct {
		name        string
		samples     int
		interleaved bool
		photometric uint16
		planar      uint16
		extra       int
	}{
		{"rgb planar", 3, false, tag.PhotometricRGB, tag.PlanarPlanar, 0},
		{"rgb interleaved", 3, true, tag.PhotometricRGB, tag.PlanarChunky, 0},
		{"rgba", 4, true, tag.PhotometricRGB, tag.PlanarChunky, 1},
		{"two channel", 2, false, tag.PhotometricBlackIsZero, tag.PlanarPlanar, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := plane(20, 10, tt.samples, Float32)
			l := NewLayout(p, 0, 0, tt.interleaved)
			d := BuildDirectory(nil, p, l, DirectoryOptions{})
			assert.EqualValues(t, tt.photometric, d.Uint(tag.PhotometricInterpretation))
			assert.EqualValues(t, tt.planar, d.Uint(tag.PlanarConfiguration))
			assert.EqualValues(t, 10, d.Uint(tag.RowsPerStrip))
			assert.False(t, d.Has(tag.TileWidth))
			sf, _ := d.Get(tag.SampleFormat)
			assert.Len(t, sf.Values, tt.samples)
			assert.EqualValues(t, tag.SampleFloat, sf.Values[0])
			extra, _ := d.Get(tag.ExtraSamples)
			assert.Len(t, extra.Values, tt.extra)
			if tt.planar == tag.PlanarPlanar {
				assert.Equal(t, tt.samples, l.CellCount())
			} else {
				assert.Equal(t, 1, l.CellCount())
			}
		})
	}
}

func TestBuildDirectoryPalette(t *testing.T) {
	p := plane(8, 8, 1, Uint8)
	lut8 := Palette8{{0, 255}, {1, 128}, {2, 3}}
	d := BuildDirectory(nil, p, NewLayout(p, 0, 0, false), DirectoryOptions{Palette: lut8})
	assert.EqualValues(t, tag.PhotometricPalette, d.Uint(tag.PhotometricInterpretation))
	cm, _ := d.Get(tag.ColorMap)
	assert.Equal(t, []uint64{0, 255 << 8, 1 << 8, 128 << 8, 2 << 8, 3 << 8}, cm.Values)

	lut16 := PaletteFromColor(color.Palette{color.RGBA64{R: 1, G: 2, B: 3, A: 0xffff}, color.RGBA64{R: 4, G: 5, B: 6, A: 0xffff}})
	d = BuildDirectory(nil, p, NewLayout(p, 0, 0, false), DirectoryOptions{Palette: lut16})
	cm, _ = d.Get(tag.ColorMap)
	assert.Equal(t, []uint64{1, 4, 2, 5, 3, 6}, cm.Values)

	rgb := plane(8, 8, 3, Uint8)
	d = BuildDirectory(nil, rgb, NewLayout(rgb, 0, 0, true), DirectoryOptions{Palette: lut8})
	assert.EqualValues(t, tag.PhotometricRGB, d.Uint(tag.PhotometricInterpretation))
}

func TestBuildDirectoryKeepsCallerTags(t *testing.T) {
	in := NewDirectory()
	in.PutShort(tag.Compression, uint16(compression.PackBits))
	in.PutASCII(tag.ImageDescription, "mine")
	in.PutASCII(tag.DateTime, "2024:01:01 00:00:00")
	in.PutLong(tag.ImageWidth, 1)

	p := plane(64, 64, 1, Uint8)
	d := BuildDirectory(in, p, NewLayout(p, 16, 16, false), DirectoryOptions{Compression: compression.Deflate})
	assert.EqualValues(t, compression.PackBits, d.Uint(tag.Compression))
	desc, _ := d.Get(tag.ImageDescription)
	assert.Equal(t, "mine", desc.String())
	assert.True(t, d.Has(tag.DateTime))
	assert.EqualValues(t, 64, d.Uint(tag.ImageWidth))
	// input untouched
	assert.EqualValues(t, 1, in.Uint(tag.ImageWidth))
	assert.False(t, in.Has(tag.TileWidth))
}

func TestLayoutCells(t *testing.T) {
	p := plane(100, 40, 2, Uint16)
	l := NewLayout(p, 32, 16, false)
	require.True(t, l.Tiled())
	assert.Equal(t, 4, l.Across)
	assert.Equal(t, 3, l.Down)
	assert.Equal(t, 24, l.CellCount())
	assert.Equal(t, 12+4+1, l.CellIndex(1, 1, 1))
	assert.Equal(t, Region{X: 96, Y: 32, Width: 32, Height: 16}, l.CellRegion(11))
	assert.Equal(t, Region{X: 96, Y: 32, Width: 4, Height: 8}, l.Visible(l.CellRegion(23)))
	assert.Equal(t, 32*16*2, l.CellBytes(0, 2))

	cx, cy := l.CellAt(97, 33)
	assert.Equal(t, [2]int{3, 2}, [2]int{cx, cy})
}

func TestLayoutStrips(t *testing.T) {
	p := plane(10, 40, 3, Uint8)
	l := NewLayout(p, 0, 0, false)
	require.False(t, l.Tiled())
	assert.Equal(t, StripRows, l.RowsPerStrip)
	assert.Equal(t, 3, l.Down)
	assert.Equal(t, 9, l.CellCount())
	assert.Equal(t, Region{Y: 32, Width: 10, Height: 8}, l.CellRegion(2))
	assert.Equal(t, l.CellRegion(2), l.CellRegion(5))
	assert.Equal(t, 80, l.CellBytes(2, 1))
	cx, cy := l.CellAt(9, 33)
	assert.Equal(t, [2]int{0, 2}, [2]int{cx, cy})

	l = l.WithRowsPerStrip(1000)
	assert.Equal(t, 40, l.RowsPerStrip)
	assert.Equal(t, 3, l.CellCount())

	short := plane(10, 5, 1, Uint8)
	assert.Equal(t, 5, NewLayout(short, 0, 0, false).RowsPerStrip)
}
