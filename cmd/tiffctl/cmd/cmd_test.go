package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jpfielding/tiff.go/pkg/logging"
	"github.com/jpfielding/tiff.go/pkg/tiff"
	"github.com/jpfielding/tiff.go/pkg/tiff/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRoot(context.Background(), "test-sha")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "ERROR"))
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func rawFile(t *testing.T, n int) string {
	t.Helper()
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	path := filepath.Join(t.TempDir(), "in.raw")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "test-sha\n", run(t, "version"))
}

func TestWriteAndInspect(t *testing.T) {
	in := rawFile(t, 64*48*2)
	out := filepath.Join(t.TempDir(), "out.tif")
	run(t, "write", "--in", in, "--out", out,
		"--width", "64", "--height", "48", "--planes", "2",
		"--tile", "16", "--rows", "10", "-c", "zlib")

	var rep struct {
		BigTIFF     bool
		Directories []struct {
			Offset  int64
			Entries []struct {
				Code  uint16
				Value string
			}
		}
	}
	require.NoError(t, json.Unmarshal([]byte(run(t, "inspect", out, "--format", "json")), &rep))
	assert.False(t, rep.BigTIFF)
	require.Len(t, rep.Directories, 2)
	for _, d := range rep.Directories {
		values := map[tag.Tag]string{}
		for _, e := range d.Entries {
			values[tag.Tag(e.Code)] = e.Value
		}
		assert.Equal(t, "64", values[tag.ImageWidth])
		assert.Equal(t, "48", values[tag.ImageLength])
		assert.Equal(t, "16", values[tag.TileWidth])
		assert.Equal(t, "8", values[tag.Compression])
		assert.Equal(t, "tiffctl", values[tag.Software])
	}

	text := run(t, "inspect", "-f", out)
	assert.Contains(t, text, "2 directories")
	assert.Contains(t, text, "TileOffsets")
}

func TestWritePlanarBands(t *testing.T) {
	const w, h, samples = 20, 15, 3
	in := rawFile(t, w*h*samples)
	out := filepath.Join(t.TempDir(), "out.btf")
	run(t, "write", in, "--out", out,
		"--width", strconv.Itoa(w), "--height", strconv.Itoa(h), "--samples", strconv.Itoa(samples),
		"--rows", "4")

	raw, err := os.ReadFile(in)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	f, _, dirs, err := tiff.ReadDirectories(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, f.BigTIFF)
	require.Len(t, dirs, 1)
	assert.EqualValues(t, 2, dirs[0].Uint(tag.PlanarConfiguration))

	offsets, _ := dirs[0].Get(tag.StripOffsets)
	counts, _ := dirs[0].Get(tag.StripByteCounts)
	require.Len(t, offsets.Values, samples)
	for s := 0; s < samples; s++ {
		off, n := offsets.Values[s], counts.Values[s]
		require.EqualValues(t, w*h, n)
		assert.Equal(t, raw[s*w*h:(s+1)*w*h], data[off:off+n], "sample %d", s)
	}
}

func TestCodecs(t *testing.T) {
	out := run(t, "codecs")
	assert.Contains(t, out, "PackBits")
	assert.Contains(t, out, "zstd")
	assert.Contains(t, out, "LZW")
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	in := rawFile(t, 32*32)
	logPath := filepath.Join(dir, "tiffctl.log")
	ctx := logging.AppendCtx(context.Background(), slog.String("git", "test-sha"))

	root := NewRoot(ctx, "test-sha")
	root.SetOut(io.Discard)
	root.SetArgs([]string{"write", in, "--out", filepath.Join(dir, "out.tif"),
		"--width", "32", "--height", "32", "--log-file", logPath})
	require.NoError(t, root.Execute())

	logs, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "wrote tiff")
	assert.Contains(t, string(logs), "git=test-sha")
}
