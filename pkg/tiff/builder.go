package tiff

import (
	"fmt"
	"math"

	"github.com/jpfielding/tiff.go/pkg/tiff/compression"
	"github.com/jpfielding/tiff.go/pkg/tiff/tag"
)

// Layout is how the pixels of a plane are cut into stored cells: tiles when
// TileWidth and TileHeight are set, otherwise strips of RowsPerStrip rows.
// Planar layouts store one set of cells per sample.
type Layout struct {
	Width, Height int
	TileWidth     int
	TileHeight    int
	RowsPerStrip  int
	Samples       int
	Planar        bool
	Across, Down  int
}

// StripRows is the strip height of untiled planes. Row bands that start on a
// multiple of it replace whole strips.
const StripRows = 16

// NewLayout returns the cell layout of plane. A zero tile size stores the
// plane in strips of StripRows rows.
func NewLayout(plane PlaneDescriptor, tileWidth, tileHeight int, interleaved bool) Layout {
	l := Layout{
		Width:   plane.Width,
		Height:  plane.Height,
		Samples: max(plane.SamplesPerPixel, 1),
	}
	l.Planar = !interleaved && l.Samples > 1
	if tileWidth > 0 && tileHeight > 0 {
		l.TileWidth, l.TileHeight = tileWidth, tileHeight
		l.Across = ceilDiv(plane.Width, tileWidth)
		l.Down = ceilDiv(plane.Height, tileHeight)
		return l
	}
	return l.WithRowsPerStrip(StripRows)
}

// WithRowsPerStrip returns an untiled layout with strips of rows rows,
// clamped to the plane height
func (l Layout) WithRowsPerStrip(rows int) Layout {
	l.TileWidth, l.TileHeight = 0, 0
	l.RowsPerStrip = min(max(rows, 1), l.Height)
	l.Across, l.Down = 1, ceilDiv(l.Height, l.RowsPerStrip)
	return l
}

// Tiled reports whether cells are tiles
func (l Layout) Tiled() bool {
	return l.TileWidth > 0
}

// CellSamples is the number of samples stored in each cell
func (l Layout) CellSamples() int {
	if l.Planar {
		return 1
	}
	return l.Samples
}

// CellCount is the number of offsets in the directory
func (l Layout) CellCount() int {
	n := l.Across * l.Down
	if l.Planar {
		n *= l.Samples
	}
	return n
}

// CellIndex returns the index of the cell at grid position cx, cy for sample
func (l Layout) CellIndex(cx, cy, sample int) int {
	i := cy*l.Across + cx
	if l.Planar {
		i += sample * l.Across * l.Down
	}
	return i
}

// CellRegion returns the plane area stored by cell i. Tiles always have the
// full tile size and may extend past the plane edge.
func (l Layout) CellRegion(i int) Region {
	i %= l.Across * l.Down
	cx, cy := i%l.Across, i/l.Across
	if l.Tiled() {
		return Region{X: cx * l.TileWidth, Y: cy * l.TileHeight, Width: l.TileWidth, Height: l.TileHeight}
	}
	y := cy * l.RowsPerStrip
	return Region{X: 0, Y: y, Width: l.Width, Height: min(l.RowsPerStrip, l.Height-y)}
}

// CellAt returns the grid position of the cell containing plane pixel x, y
func (l Layout) CellAt(x, y int) (int, int) {
	if l.Tiled() {
		return x / l.TileWidth, y / l.TileHeight
	}
	return 0, y / l.RowsPerStrip
}

// Visible returns the part of cell region r that lies inside the plane
func (l Layout) Visible(r Region) Region {
	return Region{X: r.X, Y: r.Y, Width: min(r.Width, l.Width-r.X), Height: min(r.Height, l.Height-r.Y)}
}

// CellBytes is the uncompressed size of cell i
func (l Layout) CellBytes(i, bytesPerPixel int) int {
	r := l.CellRegion(i)
	return r.Width * r.Height * l.CellSamples() * bytesPerPixel
}

// DirectoryOptions carries the values of descriptive tags
type DirectoryOptions struct {
	Compression   compression.Code
	Palette       Palette
	PhysicalSizeX float64
	PhysicalSizeY float64
	SizeZ         int
	SizeC         int
	SizeT         int
	Software      string
}

// BuildDirectory returns a copy of dir completed with the tags describing
// plane stored in layout. Structural tags always reflect the plane; Compression
// and descriptive tags already present in dir are kept. Offsets and byte counts
// are left to the writer.
func BuildDirectory(dir *Directory, plane PlaneDescriptor, layout Layout, opts DirectoryOptions) *Directory {
	d := dir.Clone()
	samples := layout.Samples

	d.PutLong(tag.ImageWidth, uint32(plane.Width))
	d.PutLong(tag.ImageLength, uint32(plane.Height))
	bits := make([]uint16, samples)
	for i := range bits {
		bits[i] = uint16(plane.PixelType.BytesPerPixel() * 8)
	}
	d.PutShort(tag.BitsPerSample, bits...)
	d.PutShort(tag.SamplesPerPixel, uint16(samples))

	if !d.Has(tag.Compression) {
		c := opts.Compression
		if c == 0 {
			c = compression.Uncompressed
		}
		d.PutShort(tag.Compression, uint16(c))
	}

	cmap := colorMap(opts.Palette)
	if !d.Has(tag.PhotometricInterpretation) {
		switch {
		case len(cmap) > 0 && samples == 1:
			d.PutShort(tag.PhotometricInterpretation, tag.PhotometricPalette)
		case samples >= 3:
			d.PutShort(tag.PhotometricInterpretation, tag.PhotometricRGB)
		default:
			d.PutShort(tag.PhotometricInterpretation, tag.PhotometricBlackIsZero)
		}
	}
	if !d.Has(tag.ExtraSamples) {
		extra := 0
		switch photometric := d.Uint(tag.PhotometricInterpretation); {
		case photometric == uint64(tag.PhotometricRGB) && samples > 3:
			extra = samples - 3
		case photometric != uint64(tag.PhotometricRGB) && samples > 1:
			extra = samples - 1
		}
		if extra > 0 {
			d.PutShort(tag.ExtraSamples, make([]uint16, extra)...)
		}
	}
	if len(cmap) > 0 && !d.Has(tag.ColorMap) {
		d.PutShort(tag.ColorMap, cmap...)
	}

	if layout.Tiled() {
		d.Delete(tag.RowsPerStrip)
		d.Delete(tag.StripOffsets)
		d.Delete(tag.StripByteCounts)
		d.PutLong(tag.TileWidth, uint32(layout.TileWidth))
		d.PutLong(tag.TileLength, uint32(layout.TileHeight))
	} else {
		d.Delete(tag.TileWidth)
		d.Delete(tag.TileLength)
		d.Delete(tag.TileOffsets)
		d.Delete(tag.TileByteCounts)
		d.PutLong(tag.RowsPerStrip, uint32(layout.RowsPerStrip))
	}

	if !d.Has(tag.XResolution) {
		d.PutRational(tag.XResolution, resolution(opts.PhysicalSizeX), 1000)
	}
	if !d.Has(tag.YResolution) {
		d.PutRational(tag.YResolution, resolution(opts.PhysicalSizeY), 1000)
	}
	if !d.Has(tag.ResolutionUnit) {
		d.PutShort(tag.ResolutionUnit, tag.ResolutionCentimeter)
	}

	planar := tag.PlanarChunky
	if layout.Planar {
		planar = tag.PlanarPlanar
	}
	d.PutShort(tag.PlanarConfiguration, planar)
	sf := make([]uint16, samples)
	for i := range sf {
		sf[i] = plane.PixelType.SampleFormat()
	}
	d.PutShort(tag.SampleFormat, sf...)

	if !d.Has(tag.ImageDescription) {
		d.PutASCII(tag.ImageDescription, hyperstackDescription(opts.SizeC, opts.SizeZ, opts.SizeT))
	}
	if opts.Software != "" && !d.Has(tag.Software) {
		d.PutASCII(tag.Software, opts.Software)
	}
	return d
}

// resolution converts a pixel size in micrometers to pixels per centimeter
// scaled by the 1000 denominator. Unknown sizes are 0.
func resolution(um float64) uint32 {
	if um <= 0 || math.IsNaN(um) || math.IsInf(um, 0) {
		return 0
	}
	v := int64((1 / um) * 1000 * 10000)
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func hyperstackDescription(c, z, t int) string {
	c, z, t = max(c, 1), max(z, 1), max(t, 1)
	return fmt.Sprintf("ImageJ=\nhyperstack=true\nimages=%d\nchannels=%d\nslices=%d\nframes=%d", c*z*t, c, z, t)
}
