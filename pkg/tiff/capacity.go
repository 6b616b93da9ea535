package tiff

import (
	"path/filepath"
	"strings"
)

// BigTIFFCutoff is the first byte count that needs 64-bit offsets
const BigTIFFCutoff int64 = 1 << 32

var wideSuffixes = []string{"tf2", "tf8", "btf"}

// Reason records why an offset width was chosen
type Reason int

const (
	ReasonDefault Reason = iota
	ReasonExplicit
	ReasonSuffix
	ReasonSize
)

func (r Reason) String() string {
	switch r {
	case ReasonExplicit:
		return "explicit"
	case ReasonSuffix:
		return "file extension"
	case ReasonSize:
		return "file size"
	}
	return "default"
}

// ShouldUseWideOffsets decides between classic and BigTIFF output: an
// explicit request wins, then a BigTIFF file suffix, then the declared pixel
// byte total when auto detection is enabled.
func ShouldUseWideOffsets(declaredTotalBytes int64, explicit, autoDetect bool, name string) (bool, Reason) {
	switch {
	case explicit:
		return true, ReasonExplicit
	case hasWideSuffix(name):
		return true, ReasonSuffix
	case autoDetect && declaredTotalBytes >= BigTIFFCutoff:
		return true, ReasonSize
	}
	return false, ReasonDefault
}

func hasWideSuffix(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, s := range wideSuffixes {
		if ext == s {
			return true
		}
	}
	return false
}

// DeclaredBytes sums the uncompressed pixel bytes of every series
func DeclaredBytes(meta MetadataSource) int64 {
	var total int64
	for i := 0; i < meta.SeriesCount(); i++ {
		s, err := meta.Series(i)
		if err != nil {
			continue
		}
		total += s.TotalBytes()
	}
	return total
}

// CheckCapacity fails when writing incoming more bytes (with room for a
// second copy) could push narrow offsets past 4 GiB.
func CheckCapacity(currentLength, incoming int64) error {
	if currentLength+2*incoming >= BigTIFFCutoff {
		return capacityErr("capacity", "file is too large for 32-bit offsets (%d + 2*%d bytes), enable BigTIFF", currentLength, incoming)
	}
	return nil
}
