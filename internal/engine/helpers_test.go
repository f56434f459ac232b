package engine

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/packguard/packguard/internal/artifacts"
	"github.com/packguard/packguard/internal/imaging"
	"github.com/stretchr/testify/require"
)

func makeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, _ = w.Write(content)
	}
	require.NoError(t, zw.Close())
}

func writeFile(t *testing.T, path string, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// atlasPNG renders a 256px atlas; when hollow is set every opaque block tile
// gets all five sample points cleared.
func atlasPNG(t *testing.T, hollow bool) []byte {
	t.Helper()
	const size = 256
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 90, G: 90, B: 90, A: 255})
		}
	}
	if hollow {
		tile := size / imaging.AtlasColumns
		for _, tl := range imaging.OpaqueBlockTiles {
			ox, oy := tl.Col*tile, tl.Row*tile
			for _, p := range [][2]int{
				{ox + tile/2, oy + tile/2},
				{ox + 2, oy + 2},
				{ox + tile - 3, oy + 2},
				{ox + 2, oy + tile - 3},
				{ox + tile - 3, oy + tile - 3},
			} {
				img.SetNRGBA(p[0], p[1], color.NRGBA{})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// countingInspector records how often archives are opened.
type countingInspector struct {
	inner artifacts.Inspector
	lists int
	reads int
}

func (c *countingInspector) ListEntries(p string) ([]string, error) {
	c.lists++
	return c.inner.ListEntries(p)
}

func (c *countingInspector) ReadEntry(p, name string) ([]byte, error) {
	c.reads++
	return c.inner.ReadEntry(p, name)
}

func newCounting() *countingInspector {
	return &countingInspector{inner: artifacts.NewZipInspector(artifacts.Limits{})}
}

func newEngine(t *testing.T, dir string, insp artifacts.Inspector) *Engine {
	t.Helper()
	e, err := New(Config{GameDir: dir, Inspector: insp})
	require.NoError(t, err)
	return e
}
