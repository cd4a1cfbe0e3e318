// Package band reconstructs spectral bands and the display composite from
// a tiled raw multi-band frame.
package band

import (
	"phenotrace/internal/raster"
)

// Spectral band names, in the order tiles are assigned.
const (
	Green   = "green"
	Red     = "red"
	RedEdge = "red_edge"
	NIR     = "nir"
)

// TileOrder is the row-major assignment of raw frame tiles to bands.
var TileOrder = []string{Green, Red, RedEdge, NIR}

// Stack maps band name to its reconstructed float plane. All planes share
// identical dimensions.
type Stack map[string]*raster.Map

// Decompose splits a single-band raw frame into its 2x2 tiling of spectral
// bands and builds the display composite. Tile size is the integer-divided
// half of each frame dimension; odd dimensions degrade gracefully. If the
// tiling yields fewer than four tiles the last tile is replicated; extra
// tiles beyond four are dropped.
func Decompose(frame *raster.Map) (Stack, *Composite) {
	dh := frame.H / 2
	if dh < 1 {
		dh = 1
	}
	dw := frame.W / 2
	if dw < 1 {
		dw = 1
	}

	// Row-major tile walk. Tiles that overhang the frame edge read zero
	// outside the frame, so every tile has identical dimensions.
	var tiles []*raster.Map
	for ty := 0; ty < frame.H; ty += dh {
		for tx := 0; tx < frame.W; tx += dw {
			tiles = append(tiles, cropTile(frame, tx, ty, dw, dh))
		}
	}

	for len(tiles) < len(TileOrder) {
		tiles = append(tiles, tiles[len(tiles)-1].Clone())
	}
	tiles = tiles[:len(TileOrder)]

	stack := make(Stack, len(TileOrder))
	for i, name := range TileOrder {
		stack[name] = tiles[i]
	}

	return stack, NewComposite(stack[Green], stack[RedEdge], stack[Red])
}

func cropTile(frame *raster.Map, x0, y0, w, h int) *raster.Map {
	tile := raster.NewMap(w, h)
	for y := 0; y < h; y++ {
		sy := y0 + y
		if sy >= frame.H {
			continue
		}
		for x := 0; x < w; x++ {
			sx := x0 + x
			if sx >= frame.W {
				continue
			}
			tile.Pix[y*w+x] = frame.Pix[sy*frame.W+sx]
		}
	}
	return tile
}
