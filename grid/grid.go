// Package grid aligns extents to a CRS-wide pixel grid and splits the
// aligned bounding box into tiles when it exceeds a max pixel count.
package grid

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-spatial/geom"

	"github.com/pdok/gridbox/mathhelp"
)

// DefaultMaxPixels is the max pixel count along either axis before an
// aligned bounding box is split into tiles.
const DefaultMaxPixels = 3500

var (
	ErrInvalidResolution = errors.New("invalid resolution")
	ErrInvalidMaxPixels  = errors.New("invalid max pixels")
	ErrUnknownSourceCRS  = errors.New("unknown source CRS")
	ErrCRSMismatch       = errors.New("source CRS mismatch")
	ErrEmptyExtent       = errors.New("empty aligned extent")
)

// Config carries the declared CRS, the pixel resolution, the grid origin
// and the split threshold. It is passed by value and never mutated.
type Config struct {
	EPSG        int
	ResolutionX float64
	ResolutionY float64
	MaxPixels   int
	// OriginX and OriginY are the coordinates of a pixel center anchoring
	// the CRS-wide alignment grid, see gridcrs.
	OriginX float64
	OriginY float64
}

// Validate fails fast on a non-positive resolution or max pixel count,
// before any geometry is touched.
func (c Config) Validate() error {
	if c.ResolutionX <= 0 {
		return fmt.Errorf("%w: resolution X must be positive, got %v", ErrInvalidResolution, c.ResolutionX)
	}
	if c.ResolutionY <= 0 {
		return fmt.Errorf("%w: resolution Y must be positive, got %v", ErrInvalidResolution, c.ResolutionY)
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("%w: max pixels must be positive, got %v", ErrInvalidMaxPixels, c.MaxPixels)
	}
	return nil
}

// ValidateSourceSRID checks the SRID detected on the source collection
// against the declared EPSG code. 0 means the source CRS was
// undeterminable. The input is never reprojected.
func (c Config) ValidateSourceSRID(srid int) error {
	if srid == 0 {
		return fmt.Errorf("%w: could not determine an EPSG code for the source, expected EPSG:%d",
			ErrUnknownSourceCRS, c.EPSG)
	}
	if srid != c.EPSG {
		return fmt.Errorf("%w: source is EPSG:%d but the target is EPSG:%d, reproject the source first (nothing is reprojected automatically)",
			ErrCRSMismatch, srid, c.EPSG)
	}
	return nil
}

// Tile is one cell of the (possibly unsplit) aligned bounding box, with its
// size in pixels. Tiles are emitted in row-major order with ids from 1.
type Tile struct {
	ID         int
	Identifier string
	Width      int
	Height     int
	Extent     geom.Extent
}

// Polygon returns the tile's rectangle as a closed-by-convention ring.
func (t Tile) Polygon() geom.Polygon {
	return geom.Polygon{{
		{t.Extent.MinX(), t.Extent.MinY()},
		{t.Extent.MaxX(), t.Extent.MinY()},
		{t.Extent.MaxX(), t.Extent.MaxY()},
		{t.Extent.MinX(), t.Extent.MaxY()},
	}}
}

// Columns implements processing.Record.
func (t Tile) Columns() []interface{} {
	return []interface{}{int64(t.ID), t.Identifier, int64(t.Width), int64(t.Height)}
}

// Geometry implements processing.Record.
func (t Tile) Geometry() geom.Geometry {
	return t.Polygon()
}

// alignAxis snaps [min, max] outward to the grid lines {origin + k*res}.
// The second pass recomputes alignedMax from a whole number of steps so the
// span is an exact multiple of res despite floating-point drift in the
// ceil above. Do not remove it.
func alignAxis(min, max, origin, res float64) (alignedMin, alignedMax float64) {
	alignedMin = origin + math.Floor((min-origin)/res)*res
	alignedMax = origin + math.Ceil((max-origin)/res)*res

	steps := math.Ceil((alignedMax - alignedMin) / res)
	alignedMax = alignedMin + steps*res

	return alignedMin, alignedMax
}

// splitPixelCounts partitions total into parts near-equal positive counts.
// The first total mod parts counts get one extra pixel, so the larger tiles
// come first along an axis.
func splitPixelCounts(total, parts int) []int {
	base := total / parts
	remainder := total % parts
	counts := make([]int, parts)
	for i := range counts {
		counts[i] = base
		if i < remainder {
			counts[i]++
		}
	}
	return counts
}

// BuildAlignedBoundingBox aligns the extent outward to the pixel grid of the
// configured CRS and returns it as a single tile, or as a row-major grid of
// tiles when it is wider or taller than MaxPixels.
//
// The union of the returned tiles is exactly the aligned bounding box:
// adjacent tiles share their boundary coordinates, there are no gaps and no
// overlaps.
func (c Config) BuildAlignedBoundingBox(extent geom.Extent) ([]Tile, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	// the registered origin is a pixel center, shift it onto a pixel edge
	originX := c.OriginX - c.ResolutionX/2
	originY := c.OriginY - c.ResolutionY/2

	alignedMinX, alignedMaxX := alignAxis(extent.MinX(), extent.MaxX(), originX, c.ResolutionX)
	alignedMinY, alignedMaxY := alignAxis(extent.MinY(), extent.MaxY(), originY, c.ResolutionY)

	// rounding, not truncation, to absorb any residual floating noise
	widthPx := int(math.Round((alignedMaxX - alignedMinX) / c.ResolutionX))
	heightPx := int(math.Round((alignedMaxY - alignedMinY) / c.ResolutionY))
	if widthPx == 0 || heightPx == 0 {
		return nil, fmt.Errorf("%w: aligned extent is %dx%d pixels", ErrEmptyExtent, widthPx, heightPx)
	}

	var tiles []Tile
	if widthPx <= c.MaxPixels && heightPx <= c.MaxPixels {
		tiles = []Tile{{
			Width:  widthPx,
			Height: heightPx,
			Extent: geom.Extent{alignedMinX, alignedMinY, alignedMaxX, alignedMaxY},
		}}
	} else {
		tilesX := max(1, mathhelp.CeilDiv(widthPx, c.MaxPixels))
		tilesY := max(1, mathhelp.CeilDiv(heightPx, c.MaxPixels))
		widths := splitPixelCounts(widthPx, tilesX)
		heights := splitPixelCounts(heightPx, tilesY)

		// walk a coordinate cursor per axis so neighbouring tiles share
		// their edges exactly
		tiles = make([]Tile, 0, tilesX*tilesY)
		minY := alignedMinY
		for _, tileHeight := range heights {
			maxY := minY + float64(tileHeight)*c.ResolutionY
			minX := alignedMinX
			for _, tileWidth := range widths {
				maxX := minX + float64(tileWidth)*c.ResolutionX
				tiles = append(tiles, Tile{
					Width:  tileWidth,
					Height: tileHeight,
					Extent: geom.Extent{minX, minY, maxX, maxY},
				})
				minX = maxX
			}
			minY = maxY
		}
	}

	for i := range tiles {
		tiles[i].ID = i + 1
		tiles[i].Identifier = strconv.Itoa(i + 1)
	}
	return tiles, nil
}
