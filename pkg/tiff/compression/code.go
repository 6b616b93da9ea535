// Package compression defines TIFF compression codes
package compression

import "strings"

// Code represents the value of the TIFF Compression tag
type Code uint16

// Standard compression codes
const (
	Uncompressed Code = 1
	LZW          Code = 5
	JPEG         Code = 7
	Deflate      Code = 8
	PackBits     Code = 32773

	// JPEG 2000 codes as written by Bio-Formats
	JPEG2000      Code = 33003
	JPEG2000Lossy Code = 33004

	// libtiff extension
	ZSTD Code = 50000
)

// Symbolic names accepted by FromName
const (
	NameUncompressed  = "Uncompressed"
	NameLZW           = "LZW"
	NameJPEG          = "JPEG"
	NameZlib          = "zlib"
	NamePackBits      = "PackBits"
	NameJPEG2000      = "JPEG-2000"
	NameJPEG2000Lossy = "JPEG-2000 Lossy"
	NameZSTD          = "zstd"
)

// IsLossy returns true if this compression discards information
func (c Code) IsLossy() bool {
	return c == JPEG || c == JPEG2000Lossy
}

// Name returns the symbolic name for the compression code
func (c Code) Name() string {
	switch c {
	case Uncompressed:
		return NameUncompressed
	case LZW:
		return NameLZW
	case JPEG:
		return NameJPEG
	case Deflate:
		return NameZlib
	case PackBits:
		return NamePackBits
	case JPEG2000:
		return NameJPEG2000
	case JPEG2000Lossy:
		return NameJPEG2000Lossy
	case ZSTD:
		return NameZSTD
	default:
		return "Unknown"
	}
}

// FromName maps a symbolic compression name to its code.
// The empty string selects Uncompressed.
func FromName(name string) (Code, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "uncompressed", "none":
		return Uncompressed, true
	case "lzw":
		return LZW, true
	case "jpeg":
		return JPEG, true
	case "zlib", "deflate":
		return Deflate, true
	case "packbits":
		return PackBits, true
	case "jpeg-2000", "jpeg2000", "j2k":
		return JPEG2000, true
	case "jpeg-2000 lossy", "j2k-lossy":
		return JPEG2000Lossy, true
	case "zstd":
		return ZSTD, true
	}
	return 0, false
}

// Names lists the symbolic names in a stable order
func Names() []string {
	return []string{
		NameUncompressed, NameLZW, NameJPEG2000, NameJPEG2000Lossy,
		NameJPEG, NameZlib, NamePackBits, NameZSTD,
	}
}
