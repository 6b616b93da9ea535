package tiff

import (
	"encoding/binary"
	"fmt"
)

// Size is a width/height pair
type Size struct {
	Width  int
	Height int
}

// SeriesInfo is what the writer needs to know about one series
type SeriesInfo struct {
	SizeX, SizeY int
	SizeZ        int
	SizeC        int
	SizeT        int

	// SamplesPerPixel channels are stored together in one plane, 0 means 1
	SamplesPerPixel int
	PixelType       PixelType
	ByteOrder       binary.ByteOrder

	// Physical pixel size in micrometers, 0 if unknown
	PhysicalSizeX float64
	PhysicalSizeY float64

	// Resolutions lists the pyramid levels; level 0 must match SizeX/SizeY.
	// Empty means a single full-resolution level.
	Resolutions []Size
}

// Samples returns SamplesPerPixel defaulting to 1
func (s SeriesInfo) Samples() int {
	if s.SamplesPerPixel <= 0 {
		return 1
	}
	return s.SamplesPerPixel
}

// PlaneCount is the number of 2-D planes per resolution level
func (s SeriesInfo) PlaneCount() int {
	c := s.SizeC / s.Samples()
	if c < 1 {
		c = 1
	}
	return max(s.SizeZ, 1) * c * max(s.SizeT, 1)
}

// ResolutionCount returns the number of pyramid levels
func (s SeriesInfo) ResolutionCount() int {
	if len(s.Resolutions) == 0 {
		return 1
	}
	return len(s.Resolutions)
}

// ResolutionSize returns the plane dimensions at level r
func (s SeriesInfo) ResolutionSize(r int) Size {
	if len(s.Resolutions) == 0 || r <= 0 || r >= len(s.Resolutions) {
		return Size{Width: s.SizeX, Height: s.SizeY}
	}
	return s.Resolutions[r]
}

// TotalBytes is the uncompressed size of all full-resolution planes
func (s SeriesInfo) TotalBytes() int64 {
	return int64(s.SizeX) * int64(s.SizeY) * int64(max(s.SizeZ, 1)) *
		int64(max(s.SizeC, 1)) * int64(max(s.SizeT, 1)) * int64(s.PixelType.BytesPerPixel())
}

func (s SeriesInfo) validate(i int) error {
	switch {
	case s.SizeX <= 0 || s.SizeY <= 0:
		return configErr("metadata", "series %d: invalid dimensions %dx%d", i, s.SizeX, s.SizeY)
	case !s.PixelType.Valid():
		return configErr("metadata", "series %d: invalid pixel type %d", i, int(s.PixelType))
	}
	for r, sz := range s.Resolutions {
		if sz.Width <= 0 || sz.Height <= 0 {
			return configErr("metadata", "series %d resolution %d: invalid dimensions %dx%d", i, r, sz.Width, sz.Height)
		}
	}
	return nil
}

// MetadataSource supplies per-series image facts to the writer
type MetadataSource interface {
	SeriesCount() int
	Series(i int) (SeriesInfo, error)
}

// Metadata is a static MetadataSource
type Metadata []SeriesInfo

// SeriesCount implements MetadataSource
func (m Metadata) SeriesCount() int {
	return len(m)
}

// Series implements MetadataSource
func (m Metadata) Series(i int) (SeriesInfo, error) {
	if i < 0 || i >= len(m) {
		return SeriesInfo{}, fmt.Errorf("series %d out of range (0-%d)", i, len(m)-1)
	}
	return m[i], nil
}

// PlaneRef addresses one plane of one resolution level of one series
type PlaneRef struct {
	Series     int
	Resolution int
	Plane      int
}

func (r PlaneRef) String() string {
	return fmt.Sprintf("series=%d resolution=%d plane=%d", r.Series, r.Resolution, r.Plane)
}

// PlaneDescriptor is the resolved description of the plane being written
type PlaneDescriptor struct {
	PlaneRef
	Width           int
	Height          int
	SamplesPerPixel int
	PixelType       PixelType
	ByteOrder       binary.ByteOrder
}

// Bytes returns the uncompressed size of the whole plane
func (p PlaneDescriptor) Bytes() int64 {
	return int64(p.Width) * int64(p.Height) * int64(p.SamplesPerPixel) * int64(p.PixelType.BytesPerPixel())
}

// Describe resolves ref against the series information
func (s SeriesInfo) Describe(ref PlaneRef) PlaneDescriptor {
	sz := s.ResolutionSize(ref.Resolution)
	bo := canonicalOrder(s.ByteOrder)
	return PlaneDescriptor{
		PlaneRef:        ref,
		Width:           sz.Width,
		Height:          sz.Height,
		SamplesPerPixel: s.Samples(),
		PixelType:       s.PixelType,
		ByteOrder:       bo,
	}
}

// canonicalOrder maps any byte order, such as binary.NativeEndian, onto
// binary.LittleEndian or binary.BigEndian. Nil is big-endian.
func canonicalOrder(o binary.ByteOrder) binary.ByteOrder {
	if littleEndian(o) {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func littleEndian(o binary.ByteOrder) bool {
	return o != nil && o.Uint16([]byte{1, 0}) == 1
}
