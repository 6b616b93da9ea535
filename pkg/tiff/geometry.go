package tiff

import (
	"fmt"
	"image"
)

// Region is a rectangle of a plane in pixel coordinates
type Region struct {
	X, Y          int
	Width, Height int
}

// Rect converts the region to an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// RegionOf converts an image.Rectangle to a Region
func RegionOf(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Contains reports whether o lies entirely within r
func (r Region) Contains(o Region) bool {
	return o.X >= r.X && o.Y >= r.Y &&
		o.X+o.Width <= r.X+r.Width && o.Y+o.Height <= r.Y+r.Height
}

// Empty reports whether the region covers no pixels
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// TileGrid is the set of tiles a region is split into
type TileGrid struct {
	TileWidth  int
	TileHeight int
	Tiles      []Region
}

// Partition splits region along the absolute tile grid of the plane.
// Tiles start on multiples of the tile size; the first row and column start at
// the region origin and the last ones are clipped to the region. A zero tile
// size yields the region as a single tile.
func Partition(region Region, tileWidth, tileHeight int) (TileGrid, error) {
	if region.Empty() {
		return TileGrid{}, configErr("partition", "empty region %s", region)
	}
	if region.X < 0 || region.Y < 0 {
		return TileGrid{}, configErr("partition", "negative region origin %s", region)
	}
	if tileWidth < 0 || tileHeight < 0 {
		return TileGrid{}, configErr("partition", "negative tile size %dx%d", tileWidth, tileHeight)
	}
	if tileWidth == 0 || tileHeight == 0 {
		return TileGrid{Tiles: []Region{region}}, nil
	}

	nx := ceilDiv(region.Width+region.X%tileWidth, tileWidth)
	ny := ceilDiv(region.Height+region.Y%tileHeight, tileHeight)
	grid := TileGrid{
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		Tiles:      make([]Region, 0, nx*ny),
	}
	x1, y1 := region.X+region.Width, region.Y+region.Height
	for ty := 0; ty < ny; ty++ {
		y0 := region.Y
		if ty > 0 {
			y0 = (region.Y/tileHeight + ty) * tileHeight
		}
		yEnd := min((y0/tileHeight+1)*tileHeight, y1)
		for tx := 0; tx < nx; tx++ {
			x0 := region.X
			if tx > 0 {
				x0 = (region.X/tileWidth + tx) * tileWidth
			}
			xEnd := min((x0/tileWidth+1)*tileWidth, x1)
			grid.Tiles = append(grid.Tiles, Region{X: x0, Y: y0, Width: xEnd - x0, Height: yEnd - y0})
		}
	}
	return grid, nil
}

// RoundTileSize rounds n to the nearest multiple of 16, the smallest
// non-zero tile edge. Zero is kept and means untiled.
func RoundTileSize(n int) int {
	switch {
	case n <= 0:
		return 0
	case n < 16:
		return 16
	}
	return ((n + 8) / 16) * 16
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
