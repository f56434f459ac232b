// Package imaging flags terrain atlases whose opaque ore tiles were hollowed
// out, the usual way x-ray resource packs are built.
//
// The sampling constants below are tied to one atlas layout (16 columns, ore
// tiles at fixed positions). A future layout change silently defeats the
// check without any error; treat it as a narrow, version-coupled heuristic.
package imaging

import (
	"bytes"
	"image"
	"image/color"

	// decoders for image.Decode; atlases are normally PNG
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// AtlasColumns is the tile count across the atlas.
	AtlasColumns = 16
	// AlphaThreshold: a sample with alpha below this (of 255) is transparent.
	AlphaThreshold = 20
	// cornerInset keeps corner samples off antialiased tile borders.
	cornerInset = 2
)

// Tile is a (row, column) position in the atlas grid.
type Tile struct {
	Row, Col int
}

// OpaqueBlockTiles are the atlas tiles that must never be see-through.
var OpaqueBlockTiles = []Tile{
	{0, 1}, {0, 2}, {2, 2}, {2, 1}, {2, 0}, {3, 2},
}

// LooksLikeXray decodes data and reports whether any opaque block tile has all
// five of its sample points near-fully transparent. Undecodable input yields
// false.
func LooksLikeXray(data []byte) bool {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false
	}
	_, hit := FirstHollowTile(img)
	return hit
}

// FirstHollowTile returns the first opaque block tile whose five samples are
// all transparent.
func FirstHollowTile(img image.Image) (Tile, bool) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	tile := width / AtlasColumns
	for _, t := range OpaqueBlockTiles {
		transparent := 0
		for _, p := range samplePoints(t, tile) {
			// out-of-bounds samples count as neither transparent nor opaque
			if p.X < 0 || p.Y < 0 || p.X >= width || p.Y >= height {
				continue
			}
			if alphaAt(img, b.Min.X+p.X, b.Min.Y+p.Y) < AlphaThreshold {
				transparent++
			}
		}
		if transparent == 5 {
			return t, true
		}
	}
	return Tile{}, false
}

// samplePoints returns the tile center and its four corners inset by
// cornerInset pixels (cornerInset+1 on the far edges), relative to the image
// origin.
func samplePoints(t Tile, tile int) [5]image.Point {
	ox, oy := t.Col*tile, t.Row*tile
	far := tile - (cornerInset + 1)
	return [5]image.Point{
		{ox + tile/2, oy + tile/2},
		{ox + cornerInset, oy + cornerInset},
		{ox + far, oy + cornerInset},
		{ox + cornerInset, oy + far},
		{ox + far, oy + far},
	}
}

func alphaAt(img image.Image, x, y int) uint8 {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
}
