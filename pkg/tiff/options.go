package tiff

import (
	"context"
	"log/slog"

	"github.com/jpfielding/tiff.go/pkg/tiff/compression"
)

// Option configures a Writer before it is opened
type Option func(*Writer) error

// WithTileSize sets the tile size, rounded to multiples of 16. Zero writes
// strips.
func WithTileSize(x, y int) Option {
	return func(w *Writer) error {
		if x < 0 || y < 0 {
			return configErr("options", "negative tile size %dx%d", x, y)
		}
		w.tileW, w.tileH = RoundTileSize(x), RoundTileSize(y)
		return nil
	}
}

// WithCompression selects the codec by symbolic name
func WithCompression(name string) Option {
	return func(w *Writer) error {
		code, err := codecFor(name)
		if err != nil {
			return err
		}
		w.compression = code
		return nil
	}
}

// WithBigTIFF forces 64-bit offsets
func WithBigTIFF(big bool) Option {
	return func(w *Writer) error {
		w.bigTIFF = big
		return nil
	}
}

// WithAutoBigTIFF enables switching to 64-bit offsets by size (default true)
func WithAutoBigTIFF(auto bool) Option {
	return func(w *Writer) error {
		w.autoBigTIFF = auto
		return nil
	}
}

// WithInterleaved declares that buffers carry all samples of a pixel together
func WithInterleaved(interleaved bool) Option {
	return func(w *Writer) error {
		w.interleaved = interleaved
		return nil
	}
}

// WithPalette attaches a colour lookup table to single sample planes
func WithPalette(p Palette) Option {
	return func(w *Writer) error {
		w.palette = p
		return nil
	}
}

// WithLogger replaces the default logger
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) error {
		if l != nil {
			w.log = l
		}
		return nil
	}
}

// WithContext sets the context passed to every log record, so attributes
// added with logging.AppendCtx reach the writer's logs
func WithContext(ctx context.Context) Option {
	return func(w *Writer) error {
		if ctx != nil {
			w.ctx = ctx
		}
		return nil
	}
}

// WithSoftware sets the Software tag
func WithSoftware(s string) Option {
	return func(w *Writer) error {
		w.software = s
		return nil
	}
}

// WithWorkers bounds the goroutines compressing the tiles of one call
func WithWorkers(n int) Option {
	return func(w *Writer) error {
		w.workers = n
		return nil
	}
}

func codecFor(name string) (compression.Code, error) {
	code, ok := compression.FromName(name)
	if !ok {
		if c := CodecByName(name); c != nil {
			return c.Code(), nil
		}
		return 0, configErr("compression", "unknown compression %q", name)
	}
	if CodecByCode(code) == nil {
		return 0, configErr("compression", "no encoder registered for %s", code.Name())
	}
	return code, nil
}
