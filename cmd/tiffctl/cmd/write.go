package cmd

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jpfielding/tiff.go/pkg/tiff"
	"github.com/spf13/cobra"
)

// writeParams collects the flags of the write command
type writeParams struct {
	In          string
	Out         string
	Width       int
	Height      int
	Planes      int
	Samples     int
	PixelType   string
	Order       string
	Tile        int
	Rows        int
	Compression string
	BigTIFF     bool
	NoAuto      bool
	Interleaved bool
	Workers     int
	Software    string
}

// NewWriteCmd converts a raw pixel dump into a TIFF
func NewWriteCmd(ctx context.Context) *cobra.Command {
	p := &writeParams{}
	cmd := &cobra.Command{
		Use:   "write",
		Short: "write raw planes into a TIFF",
		Long: "Reads --planes consecutive planes of --width x --height pixels from --in and writes " +
			"them to --out, one directory per plane. Each plane is written by its own goroutine in " +
			"bands of --rows rows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.In == "" && len(args) > 0 {
				p.In = args[0]
			}
			if p.In == "" || p.Out == "" {
				return fmt.Errorf("--in and --out are required")
			}
			return runWrite(ctx, p)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&p.In, "in", "i", "", "raw input file")
	pf.StringVarP(&p.Out, "out", "o", "", "output TIFF path (.tf8/.btf force BigTIFF)")
	pf.IntVar(&p.Width, "width", 0, "plane width in pixels")
	pf.IntVar(&p.Height, "height", 0, "plane height in pixels")
	pf.IntVar(&p.Planes, "planes", 1, "number of planes in the input")
	pf.IntVar(&p.Samples, "samples", 1, "samples per pixel")
	pf.StringVar(&p.PixelType, "pixel-type", "uint8", "int8|uint8|int16|uint16|int32|uint32|float|double")
	pf.StringVar(&p.Order, "order", "little", "input byte order (little|big)")
	pf.IntVar(&p.Tile, "tile", 0, "tile edge in pixels, 0 writes strips")
	pf.IntVar(&p.Rows, "rows", 0, "rows per write call, 0 writes whole planes")
	pf.StringVarP(&p.Compression, "compression", "c", "Uncompressed", "compression name (see codecs)")
	pf.BoolVar(&p.BigTIFF, "bigtiff", false, "always write BigTIFF")
	pf.BoolVar(&p.NoAuto, "no-auto-bigtiff", false, "fail instead of switching to BigTIFF for large files")
	pf.BoolVar(&p.Interleaved, "interleaved", false, "input and output samples are interleaved")
	pf.IntVar(&p.Workers, "workers", 0, "tile compression workers, 0 uses GOMAXPROCS")
	pf.StringVar(&p.Software, "software", "tiffctl", "Software tag value")
	return cmd
}

func (p *writeParams) metadata() (tiff.Metadata, error) {
	pt, err := tiff.ParsePixelType(p.PixelType)
	if err != nil {
		return nil, err
	}
	var order binary.ByteOrder
	switch strings.ToLower(p.Order) {
	case "little", "le", "ii":
		order = binary.LittleEndian
	case "big", "be", "mm":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("unknown byte order %q", p.Order)
	}
	return tiff.Metadata{{
		SizeX:           p.Width,
		SizeY:           p.Height,
		SizeZ:           p.Planes,
		SizeC:           p.Samples,
		SizeT:           1,
		SamplesPerPixel: p.Samples,
		PixelType:       pt,
		ByteOrder:       order,
	}}, nil
}

func runWrite(ctx context.Context, p *writeParams) error {
	meta, err := p.metadata()
	if err != nil {
		return err
	}
	in, err := os.Open(p.In)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	opts := []tiff.Option{
		tiff.WithCompression(p.Compression),
		tiff.WithInterleaved(p.Interleaved),
		tiff.WithAutoBigTIFF(!p.NoAuto),
		tiff.WithSoftware(p.Software),
		tiff.WithWorkers(p.Workers),
		tiff.WithLogger(slog.Default()),
		tiff.WithContext(ctx),
	}
	if p.BigTIFF {
		opts = append(opts, tiff.WithBigTIFF(true))
	}
	if p.Tile > 0 {
		opts = append(opts, tiff.WithTileSize(p.Tile, p.Tile))
	}
	w, err := tiff.CreateFile(p.Out, meta, opts...)
	if err != nil {
		return err
	}

	planeBytes := meta[0].Describe(tiff.PlaneRef{}).Bytes()
	rows := p.Rows
	if rows <= 0 || rows > p.Height {
		rows = p.Height
	}
	rowBytes := planeBytes / int64(p.Height)

	var wg sync.WaitGroup
	errs := make([]error, p.Planes)
	for i := 0; i < p.Planes; i++ {
		wg.Add(1)
		go func(plane int) {
			defer wg.Done()
			errs[plane] = p.writePlane(ctx, w, io.NewSectionReader(in, int64(plane)*planeBytes, planeBytes), plane, rows, rowBytes)
		}(i)
	}
	wg.Wait()
	if err := errors.Join(append(errs, w.Close())...); err != nil {
		return err
	}
	slog.InfoContext(ctx, "wrote tiff", "out", p.Out, "planes", p.Planes, "bigtiff", w.BigTIFF())
	return nil
}

// writePlane streams one plane into w in bands of rows. Planar input is read
// one sample plane at a time, so each band gathers its rows from every sample.
func (p *writeParams) writePlane(ctx context.Context, w *tiff.Writer, r io.ReaderAt, plane, rows int, rowBytes int64) error {
	height := p.Height
	data := make([]byte, rowBytes*int64(height))
	if _, err := r.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("plane %d: %w", plane, err)
	}
	ref := tiff.PlaneRef{Plane: plane}
	if rows == height {
		return w.WritePlane(ref, data)
	}
	samples := 1
	if !p.Interleaved {
		samples = max(p.Samples, 1)
	}
	sampleRow := rowBytes / int64(samples)
	sampleBytes := sampleRow * int64(height)
	for y := 0; y < height; y += rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		h := min(rows, height-y)
		band := make([]byte, 0, rowBytes*int64(h))
		for s := 0; s < samples; s++ {
			start := int64(s)*sampleBytes + int64(y)*sampleRow
			band = append(band, data[start:start+int64(h)*sampleRow]...)
		}
		if err := w.WriteRegion(ref, band, tiff.Region{Y: y, Width: p.Width, Height: h}); err != nil {
			return fmt.Errorf("plane %d rows %d-%d: %w", plane, y, y+h, err)
		}
		slog.DebugContext(ctx, "wrote band", "plane", plane, "y", y, "rows", h)
	}
	return nil
}
