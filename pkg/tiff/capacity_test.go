package tiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldUseWideOffsets(t *testing.T) {
	tests := []struct {
		name     string
		declared int64
		explicit bool
		auto     bool
		file     string
		want     bool
		reason   Reason
	}{
		{"small", 1 << 20, false, true, "a.tif", false, ReasonDefault},
		{"explicit", 0, true, false, "a.tif", true, ReasonExplicit},
		{"suffix tf8", 0, false, false, "a.tf8", true, ReasonSuffix},
		{"suffix btf upper", 0, false, false, "/data/A.BTF", true, ReasonSuffix},
		{"suffix tf2", 0, false, false, "x.tf2", true, ReasonSuffix},
		{"size", BigTIFFCutoff, false, true, "a.tif", true, ReasonSize},
		{"size just under", BigTIFFCutoff - 1, false, true, "a.tif", false, ReasonDefault},
		{"size without auto", BigTIFFCutoff * 2, false, false, "a.tif", false, ReasonDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ShouldUseWideOffsets(tt.declared, tt.explicit, tt.auto, tt.file)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestDeclaredBytes(t *testing.T) {
	meta := Metadata{
		{SizeX: 100, SizeY: 100, SizeZ: 2, SizeC: 3, SizeT: 1, PixelType: Uint16},
		{SizeX: 10, SizeY: 10, SizeZ: 1, SizeC: 1, SizeT: 5, PixelType: Float64},
	}
	assert.EqualValues(t, 100*100*2*3*2+10*10*5*8, DeclaredBytes(meta))

	huge := Metadata{{SizeX: 65536, SizeY: 65536, SizeZ: 1, SizeC: 1, SizeT: 1, PixelType: Uint8}}
	assert.Equal(t, BigTIFFCutoff, DeclaredBytes(huge))
}

func TestCheckCapacity(t *testing.T) {
	assert.NoError(t, CheckCapacity(0, 1<<30))
	assert.NoError(t, CheckCapacity(1<<31, 1<<30-1))
	err := CheckCapacity(1<<31, 1<<30)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.ErrorIs(t, CheckCapacity(0, 1<<31), ErrCapacity)
}
