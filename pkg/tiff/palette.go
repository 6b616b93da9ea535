package tiff

import "image/color"

// Palette supplies a colour lookup table, channel-major: [channel][entry].
// Implementations return nil from the method they do not support.
type Palette interface {
	Lookup8() [][]byte
	Lookup16() [][]uint16
}

// Palette8 is an 8-bit lookup table
type Palette8 [][]byte

// Lookup8 implements Palette
func (p Palette8) Lookup8() [][]byte { return p }

// Lookup16 implements Palette
func (p Palette8) Lookup16() [][]uint16 { return nil }

// Palette16 is a 16-bit lookup table
type Palette16 [][]uint16

// Lookup8 implements Palette
func (p Palette16) Lookup8() [][]byte { return nil }

// Lookup16 implements Palette
func (p Palette16) Lookup16() [][]uint16 { return p }

// PaletteFromColor converts a color.Palette into a 16-bit RGB lookup table
func PaletteFromColor(p color.Palette) Palette16 {
	lut := Palette16{make([]uint16, len(p)), make([]uint16, len(p)), make([]uint16, len(p))}
	for i, c := range p {
		r, g, b, _ := c.RGBA()
		lut[0][i], lut[1][i], lut[2][i] = uint16(r), uint16(g), uint16(b)
	}
	return lut
}

// colorMap flattens a palette into ColorMap tag values. 8-bit entries are
// scaled into the high byte.
func colorMap(p Palette) []uint16 {
	if p == nil {
		return nil
	}
	if lut := p.Lookup8(); len(lut) > 0 {
		out := make([]uint16, 0, len(lut)*len(lut[0]))
		for _, ch := range lut {
			for _, v := range ch {
				out = append(out, uint16(v)<<8)
			}
		}
		return out
	}
	if lut := p.Lookup16(); len(lut) > 0 {
		out := make([]uint16, 0, len(lut)*len(lut[0]))
		for _, ch := range lut {
			out = append(out, ch...)
		}
		return out
	}
	return nil
}
