package tiff

import (
	"fmt"
	"strings"

	"github.com/jpfielding/tiff.go/pkg/tiff/tag"
)

// PixelType is the storage type of one sample
type PixelType int

// Supported pixel types
const (
	Int8 PixelType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

var pixelTypeNames = []string{"int8", "uint8", "int16", "uint16", "int32", "uint32", "float", "double"}

func (p PixelType) String() string {
	if p < 0 || int(p) >= len(pixelTypeNames) {
		return fmt.Sprintf("PixelType(%d)", int(p))
	}
	return pixelTypeNames[p]
}

// ParsePixelType accepts the names produced by String
func ParsePixelType(s string) (PixelType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	}
	for i, n := range pixelTypeNames {
		if n == s {
			return PixelType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pixel type %q", s)
}

// BytesPerPixel returns the byte width of one sample
func (p PixelType) BytesPerPixel() int {
	switch p {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// IsSigned returns true for signed integer and floating point types
func (p PixelType) IsSigned() bool {
	switch p {
	case Int8, Int16, Int32, Float32, Float64:
		return true
	}
	return false
}

// IsFloat returns true for floating point types
func (p PixelType) IsFloat() bool {
	return p == Float32 || p == Float64
}

// Valid reports whether p is one of the declared types
func (p PixelType) Valid() bool {
	return p >= Int8 && p <= Float64
}

// SampleFormat returns the value of the SampleFormat tag
func (p PixelType) SampleFormat() uint16 {
	switch {
	case p.IsFloat():
		return tag.SampleFloat
	case p.IsSigned():
		return tag.SampleSigned
	}
	return tag.SampleUnsigned
}
