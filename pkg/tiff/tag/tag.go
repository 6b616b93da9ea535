// Package tag defines baseline and extension TIFF tags and field types
package tag

// Tag is a TIFF directory entry identifier
type Tag uint16

// Baseline tags
const (
	NewSubfileType            Tag = 254
	ImageWidth                Tag = 256
	ImageLength               Tag = 257
	BitsPerSample             Tag = 258
	Compression               Tag = 259
	PhotometricInterpretation Tag = 262
	ImageDescription          Tag = 270
	StripOffsets              Tag = 273
	SamplesPerPixel           Tag = 277
	RowsPerStrip              Tag = 278
	StripByteCounts           Tag = 279
	XResolution               Tag = 282
	YResolution               Tag = 283
	PlanarConfiguration       Tag = 284
	ResolutionUnit            Tag = 296
	Software                  Tag = 305
	DateTime                  Tag = 306
	Predictor                 Tag = 317
	ColorMap                  Tag = 320
	TileWidth                 Tag = 322
	TileLength                Tag = 323
	TileOffsets               Tag = 324
	TileByteCounts            Tag = 325
	ExtraSamples              Tag = 338
	SampleFormat              Tag = 339
)

// IsOffsets returns true for tags that hold pixel block offsets
func (t Tag) IsOffsets() bool {
	return t == StripOffsets || t == TileOffsets
}

// IsByteCounts returns true for tags that hold pixel block sizes
func (t Tag) IsByteCounts() bool {
	return t == StripByteCounts || t == TileByteCounts
}

// FieldType is the TIFF data type of a directory entry
type FieldType uint16

// Field types, 16-18 are BigTIFF only
const (
	Byte      FieldType = 1
	ASCII     FieldType = 2
	Short     FieldType = 3
	Long      FieldType = 4
	Rational  FieldType = 5
	SByte     FieldType = 6
	Undefined FieldType = 7
	SShort    FieldType = 8
	SLong     FieldType = 9
	SRational FieldType = 10
	Float     FieldType = 11
	Double    FieldType = 12
	IFD       FieldType = 13
	Long8     FieldType = 16
	SLong8    FieldType = 17
	IFD8      FieldType = 18
)

// Size returns the width in bytes of one value of the type, 0 if unknown
func (ft FieldType) Size() int {
	switch ft {
	case Byte, ASCII, SByte, Undefined:
		return 1
	case Short, SShort:
		return 2
	case Long, SLong, Float, IFD:
		return 4
	case Rational, SRational, Double, Long8, SLong8, IFD8:
		return 8
	}
	return 0
}

// Photometric interpretations
const (
	PhotometricWhiteIsZero uint16 = 0
	PhotometricBlackIsZero uint16 = 1
	PhotometricRGB         uint16 = 2
	PhotometricPalette     uint16 = 3
)

// Planar configurations
const (
	PlanarChunky uint16 = 1
	PlanarPlanar uint16 = 2
)

// Resolution units
const (
	ResolutionNone       uint16 = 1
	ResolutionInch       uint16 = 2
	ResolutionCentimeter uint16 = 3
)

// Sample formats
const (
	SampleUnsigned uint16 = 1
	SampleSigned   uint16 = 2
	SampleFloat    uint16 = 3
)
