package tiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strings"
	"sync"

	"github.com/jpfielding/tiff.go/pkg/compress/lzw"
	"github.com/jpfielding/tiff.go/pkg/compress/packbits"
	"github.com/jpfielding/tiff.go/pkg/tiff/compression"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/mrjoshuak/go-jpeg2000"
)

// Block describes the uncompressed pixels of one cell
type Block struct {
	Width     int
	Height    int
	Samples   int
	PixelType PixelType
	ByteOrder binary.ByteOrder
}

// Len returns the uncompressed byte length
func (b Block) Len() int {
	return b.Width * b.Height * b.Samples * b.PixelType.BytesPerPixel()
}

// RowBytes returns the byte length of one row
func (b Block) RowBytes() int {
	return b.Width * b.Samples * b.PixelType.BytesPerPixel()
}

// Codec compresses the cells of a plane
type Codec interface {
	// Compress encodes one chunky cell
	Compress(src []byte, b Block) ([]byte, error)
	// Decompress restores a cell written by Compress
	Decompress(src []byte, b Block) ([]byte, error)
	// Name returns the symbolic compression name
	Name() string
	// Code returns the Compression tag value
	Code() compression.Code
}

// uncompressedCodec stores cells verbatim
type uncompressedCodec struct{}

func (c *uncompressedCodec) Compress(src []byte, b Block) ([]byte, error) {
	return src, nil
}

func (c *uncompressedCodec) Decompress(src []byte, b Block) ([]byte, error) {
	if len(src) < b.Len() {
		return nil, fmt.Errorf("uncompressed cell has %d bytes, want %d", len(src), b.Len())
	}
	return bytes.Clone(src[:b.Len()]), nil
}

func (c *uncompressedCodec) Name() string           { return compression.NameUncompressed }
func (c *uncompressedCodec) Code() compression.Code { return compression.Uncompressed }

// packBitsCodec implements TIFF PackBits, rows packed independently
type packBitsCodec struct{}

func (c *packBitsCodec) Compress(src []byte, b Block) ([]byte, error) {
	return packbits.Encode(src, b.RowBytes()), nil
}

func (c *packBitsCodec) Decompress(src []byte, b Block) ([]byte, error) {
	return packbits.Decode(src, b.Len())
}

func (c *packBitsCodec) Name() string           { return compression.NamePackBits }
func (c *packBitsCodec) Code() compression.Code { return compression.PackBits }

// lzwCodec writes one TIFF LZW stream per cell
type lzwCodec struct{}

func (c *lzwCodec) Compress(src []byte, b Block) ([]byte, error) {
	return lzw.Encode(src), nil
}

func (c *lzwCodec) Decompress(src []byte, b Block) ([]byte, error) {
	return lzw.Decode(src, b.Len())
}

func (c *lzwCodec) Name() string           { return compression.NameLZW }
func (c *lzwCodec) Code() compression.Code { return compression.LZW }

var zlibWriterPool = sync.Pool{
	New: func() any {
		w, _ := zlib.NewWriterLevel(nil, zlib.DefaultCompression)
		return w
	},
}

// deflateCodec implements Adobe deflate (zlib framing)
type deflateCodec struct{}

func (c *deflateCodec) Compress(src []byte, b Block) ([]byte, error) {
	var buf bytes.Buffer
	w := zlibWriterPool.Get().(*zlib.Writer)
	defer zlibWriterPool.Put(w)
	w.Reset(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *deflateCodec) Decompress(src []byte, b Block) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer r.Close()
	out := make([]byte, b.Len())
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return out, nil
}

func (c *deflateCodec) Name() string           { return compression.NameZlib }
func (c *deflateCodec) Code() compression.Code { return compression.Deflate }

// zstdCodec uses stateless EncodeAll/DecodeAll on shared coders
type zstdCodec struct {
	once sync.Once
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	err  error
}

func (c *zstdCodec) init() error {
	c.once.Do(func() {
		c.enc, c.err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if c.err != nil {
			return
		}
		c.dec, c.err = zstd.NewReader(nil)
	})
	return c.err
}

func (c *zstdCodec) Compress(src []byte, b Block) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return c.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func (c *zstdCodec) Decompress(src []byte, b Block) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	out, err := c.dec.DecodeAll(src, make([]byte, 0, b.Len()))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if len(out) != b.Len() {
		return nil, fmt.Errorf("zstd: decoded %d bytes, want %d", len(out), b.Len())
	}
	return out, nil
}

func (c *zstdCodec) Name() string           { return compression.NameZSTD }
func (c *zstdCodec) Code() compression.Code { return compression.ZSTD }

// jpegCodec writes one baseline JPEG stream per cell
type jpegCodec struct {
	Quality int
}

func (c *jpegCodec) Compress(src []byte, b Block) ([]byte, error) {
	img, err := toImage(src, b)
	if err != nil {
		return nil, fmt.Errorf("jpeg: %w", err)
	}
	if b.PixelType.BytesPerPixel() != 1 {
		return nil, fmt.Errorf("jpeg: %s samples are not supported", b.PixelType)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil, fmt.Errorf("jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *jpegCodec) Decompress(src []byte, b Block) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("jpeg: %w", err)
	}
	return fromImage(img, b)
}

func (c *jpegCodec) Name() string           { return compression.NameJPEG }
func (c *jpegCodec) Code() compression.Code { return compression.JPEG }

// sampleLimited is implemented by codecs that store a bounded number of
// samples in one cell
type sampleLimited interface {
	maxSamples() int
}

// jpeg2000Codec writes raw J2K codestreams of one component. Multi-sample
// planes are stored planar.
type jpeg2000Codec struct {
	lossless bool
}

func (c *jpeg2000Codec) maxSamples() int { return 1 }

func (c *jpeg2000Codec) Compress(src []byte, b Block) ([]byte, error) {
	if b.Samples != 1 {
		return nil, fmt.Errorf("jpeg2000: %d samples per cell are not supported", b.Samples)
	}
	img, err := toImage(src, b)
	if err != nil {
		return nil, fmt.Errorf("jpeg2000: %w", err)
	}
	levels := 1
	for n := min(b.Width, b.Height); n >= 64 && levels < 6; n /= 2 {
		levels++
	}
	opts := &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K,
		Lossless:       c.lossless,
		NumResolutions: levels,
	}
	var buf bytes.Buffer
	if err := jpeg2000.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("jpeg2000: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *jpeg2000Codec) Decompress(src []byte, b Block) ([]byte, error) {
	if b.Samples != 1 {
		return nil, fmt.Errorf("jpeg2000: %d samples per cell are not supported", b.Samples)
	}
	img, err := jpeg2000.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("jpeg2000: %w", err)
	}
	return fromImage(img, b)
}

func (c *jpeg2000Codec) Name() string {
	if c.lossless {
		return compression.NameJPEG2000
	}
	return compression.NameJPEG2000Lossy
}

func (c *jpeg2000Codec) Code() compression.Code {
	if c.lossless {
		return compression.JPEG2000
	}
	return compression.JPEG2000Lossy
}

// toImage wraps an 8 or 16-bit integer cell with 1 or 3 samples
func toImage(src []byte, b Block) (image.Image, error) {
	if len(src) < b.Len() {
		return nil, fmt.Errorf("cell has %d bytes, want %d", len(src), b.Len())
	}
	if b.PixelType.IsFloat() || b.PixelType.BytesPerPixel() > 2 {
		return nil, fmt.Errorf("%s samples are not supported", b.PixelType)
	}
	rect := image.Rect(0, 0, b.Width, b.Height)
	wide := b.PixelType.BytesPerPixel() == 2
	n := b.Width * b.Height
	sample := func(i int) uint16 {
		if wide {
			return b.ByteOrder.Uint16(src[2*i:])
		}
		return uint16(src[i])
	}
	switch {
	case b.Samples == 1 && !wide:
		img := image.NewGray(rect)
		copy(img.Pix, src[:n])
		return img, nil
	case b.Samples == 1:
		img := image.NewGray16(rect)
		for i := 0; i < n; i++ {
			binary.BigEndian.PutUint16(img.Pix[2*i:], sample(i))
		}
		return img, nil
	case b.Samples == 3 && !wide:
		img := image.NewRGBA(rect)
		for i := 0; i < n; i++ {
			copy(img.Pix[4*i:4*i+3], src[3*i:3*i+3])
			img.Pix[4*i+3] = 0xFF
		}
		return img, nil
	case b.Samples == 3:
		img := image.NewRGBA64(rect)
		for i := 0; i < n; i++ {
			for s := 0; s < 3; s++ {
				binary.BigEndian.PutUint16(img.Pix[8*i+2*s:], sample(3*i+s))
			}
			binary.BigEndian.PutUint16(img.Pix[8*i+6:], 0xFFFF)
		}
		return img, nil
	}
	return nil, fmt.Errorf("%d samples per pixel are not supported", b.Samples)
}

// fromImage is the inverse of toImage
func fromImage(img image.Image, b Block) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() != b.Width || bounds.Dy() != b.Height {
		return nil, fmt.Errorf("decoded %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), b.Width, b.Height)
	}
	bpp := b.PixelType.BytesPerPixel()
	out := make([]byte, b.Len())
	put := func(i int, v uint16) {
		if bpp == 2 {
			b.ByteOrder.PutUint16(out[2*i:], v)
			return
		}
		out[i] = uint8(v >> 8)
	}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			if b.Samples == 1 {
				put(i, color.Gray16Model.Convert(c).(color.Gray16).Y)
				i++
				continue
			}
			r, g, bl, _ := c.RGBA()
			put(i, uint16(r))
			put(i+1, uint16(g))
			put(i+2, uint16(bl))
			i += 3
		}
	}
	return out, nil
}

var (
	codecMu     sync.RWMutex
	codecByCode = map[compression.Code]Codec{}
	codecByName = map[string]Codec{}
)

func init() {
	for _, c := range []Codec{
		&uncompressedCodec{},
		&packBitsCodec{},
		&lzwCodec{},
		&deflateCodec{},
		&zstdCodec{},
		&jpegCodec{Quality: 90},
		&jpeg2000Codec{lossless: true},
		&jpeg2000Codec{lossless: false},
	} {
		RegisterCodec(c)
	}
}

// RegisterCodec adds or replaces the codec for c.Code()
func RegisterCodec(c Codec) {
	codecMu.Lock()
	defer codecMu.Unlock()
	codecByCode[c.Code()] = c
	codecByName[strings.ToLower(c.Name())] = c
}

// CodecByCode returns the codec registered for code, or nil if not found
func CodecByCode(code compression.Code) Codec {
	codecMu.RLock()
	defer codecMu.RUnlock()
	return codecByCode[code]
}

// CodecByName returns the codec for a symbolic compression name, or nil if
// not found
func CodecByName(name string) Codec {
	code, ok := compression.FromName(name)
	if !ok {
		codecMu.RLock()
		defer codecMu.RUnlock()
		return codecByName[strings.ToLower(strings.TrimSpace(name))]
	}
	return CodecByCode(code)
}

// PixelTypesFor lists the pixel types a compression can store
func PixelTypesFor(name string) []PixelType {
	code, _ := compression.FromName(name)
	switch code {
	case compression.JPEG:
		return []PixelType{Int8, Uint8}
	case compression.JPEG2000, compression.JPEG2000Lossy:
		return []PixelType{Int8, Uint8, Int16, Uint16}
	}
	return []PixelType{Int8, Uint8, Int16, Uint16, Int32, Uint32, Float32, Float64}
}
