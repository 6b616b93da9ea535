package tag

import (
	"encoding/json"
	"fmt"
)

var names = map[Tag]string{
	NewSubfileType:            "NewSubfileType",
	ImageWidth:                "ImageWidth",
	ImageLength:               "ImageLength",
	BitsPerSample:             "BitsPerSample",
	Compression:               "Compression",
	PhotometricInterpretation: "PhotometricInterpretation",
	ImageDescription:          "ImageDescription",
	StripOffsets:              "StripOffsets",
	SamplesPerPixel:           "SamplesPerPixel",
	RowsPerStrip:              "RowsPerStrip",
	StripByteCounts:           "StripByteCounts",
	XResolution:               "XResolution",
	YResolution:               "YResolution",
	PlanarConfiguration:       "PlanarConfiguration",
	ResolutionUnit:            "ResolutionUnit",
	Software:                  "Software",
	DateTime:                  "DateTime",
	Predictor:                 "Predictor",
	ColorMap:                  "ColorMap",
	TileWidth:                 "TileWidth",
	TileLength:                "TileLength",
	TileOffsets:               "TileOffsets",
	TileByteCounts:            "TileByteCounts",
	ExtraSamples:              "ExtraSamples",
	SampleFormat:              "SampleFormat",
}

// String returns the tag name, or its number for unknown tags
func (t Tag) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Tag(%d)", uint16(t))
}

// MarshalJSON returns a JSON representation of the Tag
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// String returns the TIFF type name
func (ft FieldType) String() string {
	switch ft {
	case Byte:
		return "BYTE"
	case ASCII:
		return "ASCII"
	case Short:
		return "SHORT"
	case Long:
		return "LONG"
	case Rational:
		return "RATIONAL"
	case SByte:
		return "SBYTE"
	case Undefined:
		return "UNDEFINED"
	case SShort:
		return "SSHORT"
	case SLong:
		return "SLONG"
	case SRational:
		return "SRATIONAL"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case IFD:
		return "IFD"
	case Long8:
		return "LONG8"
	case SLong8:
		return "SLONG8"
	case IFD8:
		return "IFD8"
	}
	return fmt.Sprintf("Type(%d)", uint16(ft))
}
