package tiff

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jpfielding/tiff.go/pkg/tiff/compression"
	"github.com/jpfielding/tiff.go/pkg/tiff/tag"
)

// FormatWriter is the capability set shared by image writers
type FormatWriter interface {
	WriteRegion(ref PlaneRef, buf []byte, region Region) error
	SetTileSize(x, y int) (int, int, error)
	Close() error
}

var _ FormatWriter = (*Writer)(nil)

// cell is the stored location of one tile or strip
type cell struct {
	offset   int64
	size     int64
	capacity int64
}

// planeState is everything written so far for one directory
type planeState struct {
	layout    Layout
	desc      PlaneDescriptor
	codec     Codec
	dir       *Directory
	dirOffset int64
	dirSize   int64
	cells     []cell
}

// Writer writes the planes of every series of a MetadataSource into one
// TIFF stream. Regions of different planes may be written concurrently; all
// structural changes to the stream happen under one lock.
type Writer struct {
	mu sync.Mutex

	series      []SeriesInfo
	planeCounts []int
	resCounts   []int
	total       int
	declared    int64

	stream Stream
	io     streamIO
	name   string
	log    *slog.Logger
	ctx    context.Context

	tileW, tileH int
	compression  compression.Code
	interleaved  bool
	palette      Palette
	software     string
	workers      int

	bigTIFF       bool
	autoBigTIFF   bool
	format        Format
	headerWritten bool
	opened        bool
	closed        bool

	planes map[int]*planeState
	// chain holds the global indices linked into the file, ascending
	chain []int
}

// NewWriter returns an unopened writer for the series of meta
func NewWriter(meta MetadataSource, opts ...Option) (*Writer, error) {
	if meta == nil || meta.SeriesCount() == 0 {
		return nil, configErr("new", "no series to write")
	}
	w := &Writer{
		compression: compression.Uncompressed,
		autoBigTIFF: true,
		ctx:         context.Background(),
		planes:      make(map[int]*planeState),
	}
	for i := 0; i < meta.SeriesCount(); i++ {
		s, err := meta.Series(i)
		if err != nil {
			return nil, &Error{Kind: KindConfiguration, Op: "new", Err: err}
		}
		if err := s.validate(i); err != nil {
			return nil, err
		}
		w.series = append(w.series, s)
		w.planeCounts = append(w.planeCounts, s.PlaneCount())
		w.resCounts = append(w.resCounts, s.ResolutionCount())
		w.total += s.PlaneCount() * s.ResolutionCount()
	}
	w.declared = DeclaredBytes(meta)
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	w.log = w.log.With("session", uuid.NewString())
	w.format = Format{Order: canonicalOrder(w.series[0].ByteOrder)}
	return w, nil
}

// Open binds the writer to s. name is only used to recognise BigTIFF file
// suffixes. A non-empty stream is parsed so that its directories can be
// rewritten in place.
func (w *Writer) Open(s Stream, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.opened || w.closed {
		return stateErr("open", "writer already opened")
	}
	w.stream, w.io, w.name = s, streamIO{s: s}, name

	length, err := s.Length()
	if err != nil {
		return ioErr("open", err)
	}
	if length > 0 {
		if err := w.seed(); err != nil {
			return err
		}
		w.opened = true
		return nil
	}

	big, reason := ShouldUseWideOffsets(w.declared, w.bigTIFF, w.autoBigTIFF, name)
	switch {
	case big && reason != ReasonExplicit:
		w.log.InfoContext(w.ctx, "switching to BigTIFF", "reason", reason.String(), "bytes", w.declared)
	case !big && w.declared >= BigTIFFCutoff:
		w.log.InfoContext(w.ctx, "automatic BigTIFF disabled", "bytes", w.declared)
	}
	w.bigTIFF = big
	w.format.BigTIFF = big
	w.opened = true
	return nil
}

// seed loads the directories of an existing file as already written planes
func (w *Writer) seed() error {
	f, first, err := ReadHeader(w.io)
	if err != nil {
		return ioErr("open", err)
	}
	offsets, err := ReadDirectoryOffsets(w.io, f, first)
	if err != nil {
		return ioErr("open", err)
	}
	w.format = f
	w.bigTIFF = f.BigTIFF
	w.headerWritten = true
	for i, off := range offsets {
		d, _, err := ReadDirectory(w.io, f, off)
		if err != nil {
			return ioErr("open", err)
		}
		// the space used by a foreign directory is unknown, so its first
		// rewrite is relocated
		st := &planeState{dir: d, dirOffset: off}
		offs, counts := tag.StripOffsets, tag.StripByteCounts
		if d.Has(tag.TileOffsets) {
			offs, counts = tag.TileOffsets, tag.TileByteCounts
		}
		oe, _ := d.Get(offs)
		ce, _ := d.Get(counts)
		for j := range oe.Values {
			c := cell{offset: int64(oe.Values[j]), size: int64(ce.Uint(j))}
			c.capacity = c.size
			st.cells = append(st.cells, c)
		}
		w.planes[i] = st
		w.chain = append(w.chain, i)
	}
	w.log.DebugContext(w.ctx, "opened existing file", "directories", len(offsets), "bigtiff", f.BigTIFF)
	return nil
}

// SetBigTIFF forces 64-bit offsets. It must be called before Open.
func (w *Writer) SetBigTIFF(big bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.opened {
		return stateErr("bigtiff", "offset width is fixed once the writer is open")
	}
	w.bigTIFF = big
	return nil
}

// BigTIFF reports whether 64-bit offsets are used
func (w *Writer) BigTIFF() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bigTIFF
}

// SetAutoBigTIFF enables switching to 64-bit offsets by size. It must be
// called before Open.
func (w *Writer) SetAutoBigTIFF(auto bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.opened {
		return stateErr("auto bigtiff", "offset width is fixed once the writer is open")
	}
	w.autoBigTIFF = auto
	return nil
}

// AutoBigTIFF reports whether size based BigTIFF detection is enabled
func (w *Writer) AutoBigTIFF() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.autoBigTIFF
}

// SetTileSize sets the tile size of planes not yet written and returns the
// rounded values. Zero writes strips.
func (w *Writer) SetTileSize(x, y int) (int, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.opened {
		return 0, 0, configErr("tile size", "writer is not open")
	}
	if x < 0 || y < 0 {
		return 0, 0, configErr("tile size", "negative tile size %dx%d", x, y)
	}
	w.tileW, w.tileH = RoundTileSize(x), RoundTileSize(y)
	return w.tileW, w.tileH, nil
}

// TileSize returns the current tile size
func (w *Writer) TileSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tileW, w.tileH
}

// SetCompression selects the codec of planes not yet written
func (w *Writer) SetCompression(name string) error {
	code, err := codecFor(name)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return stateErr("compression", "writer is closed")
	}
	w.compression = code
	return nil
}

// SetInterleaved declares the sample layout of subsequent buffers
func (w *Writer) SetInterleaved(interleaved bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interleaved = interleaved
}

// SetPalette attaches a colour lookup table to planes not yet written
func (w *Writer) SetPalette(p Palette) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.palette = p
}

// GlobalIndex returns the directory position of ref
func (w *Writer) GlobalIndex(ref PlaneRef) (int, error) {
	return ResolvePlaneIndex(ref.Series, ref.Resolution, ref.Plane, w.planeCounts, w.resCounts)
}

// WriteRegion writes the pixels of region of the plane ref. buf holds exactly
// the region, channel-major unless the writer is interleaved.
func (w *Writer) WriteRegion(ref PlaneRef, buf []byte, region Region) error {
	return w.writeRegion(ref, buf, region, nil)
}

// WritePlane writes a whole plane
func (w *Writer) WritePlane(ref PlaneRef, buf []byte) error {
	if ref.Series < 0 || ref.Series >= len(w.series) {
		return configErr("write", "series %d out of range", ref.Series)
	}
	sz := w.series[ref.Series].ResolutionSize(ref.Resolution)
	return w.writeRegion(ref, buf, Region{Width: sz.Width, Height: sz.Height}, nil)
}

// WriteRegionWithDirectory is WriteRegion with caller supplied tags. The
// directory is copied and completed; it is not modified.
func (w *Writer) WriteRegionWithDirectory(ref PlaneRef, buf []byte, region Region, dir *Directory) error {
	if dir == nil {
		dir = NewDirectory()
	}
	return w.writeRegion(ref, buf, region, dir)
}

// job is a validated write request
type job struct {
	index       int
	desc        PlaneDescriptor
	layout      Layout
	codec       Codec
	base        *Directory
	interleaved bool
	swap        bool
	final       bool
	workers     int
	opts        DirectoryOptions
}

// piece is the part of one cell covered by one write
type piece struct {
	cell  int
	tile  Region
	data  []byte
	full  bool
	coded []byte
}

func (w *Writer) writeRegion(ref PlaneRef, buf []byte, region Region, dir *Directory) error {
	j, err := w.prepare(ref, buf, region, dir)
	if err != nil {
		return err
	}
	pieces, err := w.cut(j, buf, region)
	if err != nil {
		return err
	}
	bpp := j.desc.PixelType.BytesPerPixel()
	err = parallelForWithError(len(pieces), j.workers, func(i int) error {
		p := &pieces[i]
		if !p.full {
			return nil
		}
		cr := j.layout.CellRegion(p.cell)
		raw := p.data
		if cr != p.tile {
			raw = make([]byte, j.layout.CellBytes(p.cell, bpp))
			if err := InsertTile(raw, cr, p.data, p.tile, j.layout.CellSamples(), bpp, true); err != nil {
				return err
			}
		}
		coded, err := j.codec.Compress(raw, j.block(p.cell))
		if err != nil {
			return &Error{Kind: KindConfiguration, Op: "compress", Err: err}
		}
		p.coded = coded
		return nil
	})
	if err != nil {
		return err
	}
	return w.commit(j, pieces)
}

func (j *job) block(cell int) Block {
	r := j.layout.CellRegion(cell)
	return Block{
		Width:     r.Width,
		Height:    r.Height,
		Samples:   j.layout.CellSamples(),
		PixelType: j.desc.PixelType,
		ByteOrder: j.desc.ByteOrder,
	}
}

// prepare validates a request and snapshots the settings it is written with
func (w *Writer) prepare(ref PlaneRef, buf []byte, region Region, dir *Directory) (*job, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.closed:
		return nil, stateErr("write", "writer is closed")
	case !w.opened:
		return nil, stateErr("write", "writer is not open")
	}
	index, err := w.GlobalIndex(ref)
	if err != nil {
		return nil, err
	}
	info := w.series[ref.Series]
	desc := info.Describe(ref)
	if region.Empty() || region.X < 0 || region.Y < 0 ||
		region.X+region.Width > desc.Width || region.Y+region.Height > desc.Height {
		return nil, configErr("write", "region %s outside %dx%d plane (%s)", region, desc.Width, desc.Height, ref)
	}
	bpp := desc.PixelType.BytesPerPixel()
	if need := region.Width * region.Height * desc.SamplesPerPixel * bpp; need > len(buf) {
		c := len(buf) / (region.Width * region.Height * bpp)
		if c == 0 {
			return nil, configErr("write", "buffer has %d bytes, region needs %d", len(buf), need)
		}
		w.log.WarnContext(w.ctx, "buffer shorter than region, reducing channel count",
			"plane", ref.String(), "channels", desc.SamplesPerPixel, "using", c)
		desc.SamplesPerPixel = c
	}
	swap := w.format.Order != desc.ByteOrder && bpp > 1
	desc.ByteOrder = w.format.Order

	j := &job{
		index:   index,
		desc:    desc,
		swap:    swap,
		final:   index == w.total-1,
		workers: w.workers,
		opts: DirectoryOptions{
			Compression:   w.compression,
			Palette:       w.palette,
			PhysicalSizeX: info.PhysicalSizeX,
			PhysicalSizeY: info.PhysicalSizeY,
			SizeZ:         info.SizeZ,
			SizeC:         info.SizeC,
			SizeT:         info.SizeT,
			Software:      w.software,
		},
	}
	st := w.planes[index]
	switch {
	case st != nil && st.layout.Width > 0:
		if st.layout.Samples != desc.SamplesPerPixel {
			return nil, configErr("write", "%s was written with %d channels, buffer has %d", ref, st.layout.Samples, desc.SamplesPerPixel)
		}
		j.layout = st.layout
	case st != nil && st.dir.Has(tag.TileWidth):
		j.layout = NewLayout(desc, int(st.dir.Uint(tag.TileWidth)), int(st.dir.Uint(tag.TileLength)), st.dir.Uint(tag.PlanarConfiguration) != uint64(tag.PlanarPlanar))
	case st != nil:
		j.layout = NewLayout(desc, 0, 0, st.dir.Uint(tag.PlanarConfiguration) != uint64(tag.PlanarPlanar))
		if rows := st.dir.Uint(tag.RowsPerStrip); rows > 0 {
			j.layout = j.layout.WithRowsPerStrip(int(min(rows, uint64(desc.Height))))
		}
	default:
		j.layout = NewLayout(desc, w.tileW, w.tileH, w.interleaved)
	}
	if planar := !w.interleaved && desc.SamplesPerPixel > 1; planar != j.layout.Planar {
		return nil, configErr("write", "%s is stored with planar=%t, buffer has planar=%t", ref, j.layout.Planar, planar)
	}
	j.interleaved = !j.layout.Planar

	switch {
	case dir != nil:
		j.base = dir.Clone()
	case st != nil:
		j.base = st.dir.Clone()
	default:
		j.base = NewDirectory()
	}
	code := w.compression
	switch {
	case dir != nil && dir.Has(tag.Compression):
		code = compression.Code(dir.Uint(tag.Compression))
	case st != nil && st.codec != nil:
		code = st.codec.Code()
	case j.base.Has(tag.Compression):
		code = compression.Code(j.base.Uint(tag.Compression))
	}
	if j.codec = CodecByCode(code); j.codec == nil {
		return nil, configErr("write", "no encoder registered for compression %d (%s)", uint16(code), code.Name())
	}
	if sl, ok := j.codec.(sampleLimited); ok && j.layout.CellSamples() > sl.maxSamples() {
		return nil, configErr("write", "%s stores %d sample per cell, %s has %d interleaved samples", j.codec.Name(), sl.maxSamples(), ref, j.layout.CellSamples())
	}
	j.base.PutShort(tag.Compression, uint16(code))
	return j, nil
}

// cut extracts the parts of buf that fall into each stored cell
func (w *Writer) cut(j *job, buf []byte, region Region) ([]piece, error) {
	tw, th := j.layout.TileWidth, j.layout.TileHeight
	if !j.layout.Tiled() {
		tw, th = j.layout.Width, j.layout.RowsPerStrip
	}
	grid, err := Partition(region, tw, th)
	if err != nil {
		return nil, err
	}
	bpp := j.desc.PixelType.BytesPerPixel()
	samples := j.layout.Samples
	var pieces []piece
	for _, t := range grid.Tiles {
		data, err := ExtractTile(buf, t, region, samples, bpp, j.interleaved)
		if err != nil {
			return nil, err
		}
		if j.swap {
			swapBytes(data, bpp)
		}
		cx, cy := j.layout.CellAt(t.X, t.Y)
		full := j.layout.Visible(j.layout.CellRegion(j.layout.CellIndex(cx, cy, 0))) == t
		if !j.layout.Planar {
			pieces = append(pieces, piece{cell: j.layout.CellIndex(cx, cy, 0), tile: t, data: data, full: full})
			continue
		}
		n := t.Width * t.Height * bpp
		for s := 0; s < samples; s++ {
			pieces = append(pieces, piece{cell: j.layout.CellIndex(cx, cy, s), tile: t, data: data[s*n : (s+1)*n], full: full})
		}
	}
	return pieces, nil
}

func swapBytes(b []byte, size int) {
	for i := 0; i+size <= len(b); i += size {
		slices.Reverse(b[i : i+size])
	}
}

// commit stores the pieces of one write and links the plane's directory
func (w *Writer) commit(j *job, pieces []piece) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return stateErr("write", "writer is closed")
	}
	if err := w.ensureCapacity(j.desc); err != nil {
		return err
	}

	st := w.planes[j.index]
	if st == nil {
		st = &planeState{}
		w.planes[j.index] = st
	}
	if st.layout.Width == 0 {
		st.layout, st.desc, st.codec = j.layout, j.desc, j.codec
		if len(st.cells) != j.layout.CellCount() {
			st.cells = make([]cell, j.layout.CellCount())
		}
	} else if st.layout != j.layout {
		return stateErr("write", "layout of %s changed during the write", j.desc.PlaneRef)
	} else if st.codec.Code() != j.codec.Code() {
		return stateErr("write", "compression of %s changed during the write", j.desc.PlaneRef)
	}

	bpp := j.desc.PixelType.BytesPerPixel()
	for _, p := range pieces {
		data := p.coded
		if !p.full {
			merged, err := w.merge(st, j, p, bpp)
			if err != nil {
				return err
			}
			data = merged
		}
		if err := w.storeCell(&st.cells[p.cell], data); err != nil {
			return err
		}
	}

	st.dir = BuildDirectory(j.base, j.desc, st.layout, j.opts)
	offsets := make([]uint64, len(st.cells))
	counts := make([]uint64, len(st.cells))
	for i, c := range st.cells {
		offsets[i], counts[i] = uint64(c.offset), uint64(c.size)
	}
	if st.layout.Tiled() {
		st.dir.PutLong8(tag.TileOffsets, offsets...)
		st.dir.PutLong8(tag.TileByteCounts, counts...)
	} else {
		st.dir.PutLong8(tag.StripOffsets, offsets...)
		st.dir.PutLong8(tag.StripByteCounts, counts...)
	}
	if err := st.dir.Validate(); err != nil {
		return err
	}
	if err := w.writeDirectory(j.index, st); err != nil {
		return err
	}
	if j.final {
		return w.finish()
	}
	return nil
}

// ensureCapacity commits the header on first use and guards narrow offsets
func (w *Writer) ensureCapacity(desc PlaneDescriptor) error {
	length, err := w.stream.Length()
	if err != nil {
		return ioErr("write", err)
	}
	if !w.bigTIFF {
		if err := CheckCapacity(length, desc.Bytes()); err != nil {
			if w.headerWritten || !w.autoBigTIFF {
				return err
			}
			w.log.InfoContext(w.ctx, "switching to BigTIFF", "reason", ReasonSize.String(), "plane", desc.PlaneRef.String(), "bytes", desc.Bytes())
			w.bigTIFF = true
			w.format.BigTIFF = true
		}
	}
	if w.headerWritten {
		return nil
	}
	if length == 0 {
		if err := w.io.writeAt(w.format.Header(), 0); err != nil {
			return ioErr("write header", err)
		}
	}
	w.headerWritten = true
	return nil
}

// merge patches a partial tile into the stored contents of its cell
func (w *Writer) merge(st *planeState, j *job, p piece, bpp int) ([]byte, error) {
	blk := j.block(p.cell)
	c := st.cells[p.cell]
	var raw []byte
	if c.size > 0 {
		stored := make([]byte, c.size)
		if _, err := w.io.ReadAt(stored, c.offset); err != nil {
			return nil, ioErr("read cell", err)
		}
		decoded, err := st.codec.Decompress(stored, blk)
		if err != nil {
			w.log.WarnContext(w.ctx, "cannot decode stored cell, rewriting with zeros",
				"plane", j.desc.PlaneRef.String(), "cell", p.cell, "error", err)
		} else {
			raw = decoded
		}
	}
	if raw == nil {
		raw = make([]byte, blk.Len())
	}
	if err := InsertTile(raw, j.layout.CellRegion(p.cell), p.data, p.tile, j.layout.CellSamples(), bpp, true); err != nil {
		return nil, err
	}
	coded, err := st.codec.Compress(raw, blk)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "compress", Err: err}
	}
	return coded, nil
}

// storeCell writes data over the cell's old bytes if it fits, else appends
func (w *Writer) storeCell(c *cell, data []byte) error {
	n := int64(len(data))
	if c.offset > 0 && n <= c.capacity {
		if err := w.io.writeAt(data, c.offset); err != nil {
			return ioErr("write cell", err)
		}
		c.size = n
		return nil
	}
	off, err := w.io.append(data)
	if err != nil {
		return ioErr("write cell", err)
	}
	if !w.format.BigTIFF && off+n > 0xFFFFFFFF {
		return capacityErr("write cell", "cell at %d exceeds 32-bit offsets", off)
	}
	*c = cell{offset: off, size: n, capacity: n}
	return nil
}

// writeDirectory stores the directory of plane index, in place when it fits,
// and links it between its neighbours in index order
func (w *Writer) writeDirectory(index int, st *planeState) error {
	size, err := w.format.EncodedSize(st.dir)
	if err != nil {
		return err
	}
	pos, linked := slices.BinarySearch(w.chain, index)
	succ := pos
	if linked {
		succ++
	}
	var next int64
	if succ < len(w.chain) {
		next = w.planes[w.chain[succ]].dirOffset
	}

	if linked && st.dirOffset > 0 && size <= st.dirSize {
		b, err := w.format.Encode(st.dir, st.dirOffset, next)
		if err != nil {
			return err
		}
		if err := w.io.writeAt(b, st.dirOffset); err != nil {
			return ioErr("write directory", err)
		}
		w.log.DebugContext(w.ctx, "rewrote directory", "index", index, "offset", st.dirOffset)
		return nil
	}

	end, err := w.stream.Length()
	if err != nil {
		return ioErr("write directory", err)
	}
	end += end % 2
	b, err := w.format.Encode(st.dir, end, next)
	if err != nil {
		return err
	}
	off, err := w.io.append(b)
	if err != nil {
		return ioErr("write directory", err)
	}
	st.dirOffset, st.dirSize = off, int64(len(b))
	if !linked {
		w.chain = slices.Insert(w.chain, pos, index)
	}

	ptr := w.format.FirstIFDPointer()
	if pos > 0 {
		prev := w.planes[w.chain[pos-1]]
		ptr = prev.dirOffset + w.format.NextPointer(prev.dir.Len())
	}
	if err := w.writePointer(ptr, off); err != nil {
		return err
	}
	w.log.DebugContext(w.ctx, "wrote directory", "index", index, "offset", off, "next", next)
	return nil
}

func (w *Writer) writePointer(at, value int64) error {
	b := make([]byte, w.format.pointerSize())
	if !w.format.BigTIFF && value > 0xFFFFFFFF {
		return capacityErr("link", "directory at %d exceeds 32-bit offsets", value)
	}
	w.format.putPointer(b, uint64(value))
	if err := w.io.writeAt(b, at); err != nil {
		return ioErr("link", err)
	}
	return nil
}

// finish terminates the chain at its last directory and flushes
func (w *Writer) finish() error {
	if len(w.chain) > 0 {
		tail := w.planes[w.chain[len(w.chain)-1]]
		if err := w.writePointer(tail.dirOffset+w.format.NextPointer(tail.dir.Len()), 0); err != nil {
			return err
		}
	}
	return ioErr("sync", w.io.sync())
}

// Close flushes and closes the stream. Writes after Close fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.stream == nil {
		return nil
	}
	if err := w.io.sync(); err != nil {
		return ioErr("close", err)
	}
	if c, ok := w.stream.(io.Closer); ok {
		return ioErr("close", c.Close())
	}
	return nil
}
