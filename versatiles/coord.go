package versatiles

// MaxZoom bounds the pyramid depth a TileBBoxPyramid can describe.
const MaxZoom = 30

// TileCoord3 addresses a single tile by zoom level and column/row.
type TileCoord3 struct {
	Z uint8
	X uint32
	Y uint32
}

// Valid reports whether the coordinate lies within the 2^z grid at its zoom level.
func (c TileCoord3) Valid() bool {
	n := uint32(1) << c.Z
	return c.X < n && c.Y < n
}

// TileBBox is an inclusive rectangle of tile columns/rows at one zoom level.
// The zero value is empty.
type TileBBox struct {
	Zoom       uint8
	XMin, YMin uint32
	XMax, YMax uint32
	nonEmpty   bool
}

// NewTileBBox builds a non-empty bbox. Callers must ensure xMin<=xMax and yMin<=yMax.
func NewTileBBox(zoom uint8, xMin, yMin, xMax, yMax uint32) TileBBox {
	return TileBBox{Zoom: zoom, XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax, nonEmpty: true}
}

// EmptyTileBBox returns the empty bbox at a zoom level.
func EmptyTileBBox(zoom uint8) TileBBox {
	return TileBBox{Zoom: zoom}
}

// FullTileBBox returns the bbox covering every valid tile at a zoom level.
func FullTileBBox(zoom uint8) TileBBox {
	n := uint32(1)<<zoom - 1
	return NewTileBBox(zoom, 0, 0, n, n)
}

// IsEmpty reports whether the bbox contains no tiles.
func (b TileBBox) IsEmpty() bool {
	return !b.nonEmpty
}

// Width returns the number of tile columns covered.
func (b TileBBox) Width() uint32 {
	if b.IsEmpty() {
		return 0
	}
	return b.XMax - b.XMin + 1
}

// Height returns the number of tile rows covered.
func (b TileBBox) Height() uint32 {
	if b.IsEmpty() {
		return 0
	}
	return b.YMax - b.YMin + 1
}

// CountTiles returns the number of tiles in the bbox.
func (b TileBBox) CountTiles() uint64 {
	if b.IsEmpty() {
		return 0
	}
	return uint64(b.Width()) * uint64(b.Height())
}

// Contains reports whether (x,y) lies within the bbox.
func (b TileBBox) Contains(x, y uint32) bool {
	if b.IsEmpty() {
		return false
	}
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// Intersect returns the overlap of two bboxes at the same zoom level.
func (b TileBBox) Intersect(other TileBBox) TileBBox {
	if b.IsEmpty() || other.IsEmpty() {
		return EmptyTileBBox(b.Zoom)
	}
	xMin := max32(b.XMin, other.XMin)
	yMin := max32(b.YMin, other.YMin)
	xMax := min32(b.XMax, other.XMax)
	yMax := min32(b.YMax, other.YMax)
	if xMin > xMax || yMin > yMax {
		return EmptyTileBBox(b.Zoom)
	}
	return NewTileBBox(b.Zoom, xMin, yMin, xMax, yMax)
}

// ForEachCoord invokes f for every coordinate in the bbox, in row-major order
// (y ascending outer, x ascending inner), as required for TileIndex layout.
func (b TileBBox) ForEachCoord(f func(TileCoord3)) {
	if b.IsEmpty() {
		return
	}
	for y := b.YMin; y <= b.YMax; y++ {
		for x := b.XMin; x <= b.XMax; x++ {
			f(TileCoord3{Z: b.Zoom, X: x, Y: y})
		}
	}
}

// Coords materializes ForEachCoord into a slice; only safe for bbox sizes bounded
// by a block (<=256x256) or smaller, never for a whole-zoom bbox.
func (b TileBBox) Coords() []TileCoord3 {
	out := make([]TileCoord3, 0, b.CountTiles())
	b.ForEachCoord(func(c TileCoord3) { out = append(out, c) })
	return out
}

// TileIndexOf returns the row-major intra-bbox index of (x,y), and whether it lies in the bbox.
func (b TileBBox) TileIndexOf(x, y uint32) (int, bool) {
	if !b.Contains(x, y) {
		return 0, false
	}
	width := b.Width()
	return int((y-b.YMin)*width + (x - b.XMin)), true
}

// ScaleDown returns the bbox of block coordinates (each block covering `factor`
// tiles per side) that intersect b, e.g. factor=256 maps a tile bbox to its
// covering block bbox.
func (b TileBBox) ScaleDown(factor uint32) TileBBox {
	if b.IsEmpty() {
		return EmptyTileBBox(b.Zoom)
	}
	return NewTileBBox(b.Zoom, b.XMin/factor, b.YMin/factor, b.XMax/factor, b.YMax/factor)
}

// ClampedOffsetFrom shifts b so that (offsetX,offsetY) becomes the new origin,
// clamping to [0, size-1] on both axes. It is used to derive a block's
// local_bbox (tile-space b, block-space offset) relative to the block's corner.
func (b TileBBox) ClampedOffsetFrom(offsetX, offsetY uint32, size uint32) TileBBox {
	block := NewTileBBox(b.Zoom, offsetX, offsetY, offsetX+size-1, offsetY+size-1)
	overlap := b.Intersect(block)
	if overlap.IsEmpty() {
		return EmptyTileBBox(b.Zoom)
	}
	return NewTileBBox(b.Zoom, overlap.XMin-offsetX, overlap.YMin-offsetY, overlap.XMax-offsetX, overlap.YMax-offsetY)
}

// RowStrips splits b into consecutive row-strips of at most maxRows rows each,
// bounding peak memory for adapters that materialize a full row of tiles at once.
func (b TileBBox) RowStrips(maxRows uint32) []TileBBox {
	if b.IsEmpty() || maxRows == 0 {
		return nil
	}
	var strips []TileBBox
	for y := b.YMin; y <= b.YMax; y += maxRows {
		yEnd := y + maxRows - 1
		if yEnd > b.YMax {
			yEnd = b.YMax
		}
		strips = append(strips, NewTileBBox(b.Zoom, b.XMin, y, b.XMax, yEnd))
	}
	return strips
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// TileBBoxPyramid is an ordered z -> TileBBox map for z in [0, MaxZoom].
type TileBBoxPyramid struct {
	levels [MaxZoom + 1]TileBBox
}

// NewTileBBoxPyramid returns a pyramid with every level empty.
func NewTileBBoxPyramid() TileBBoxPyramid {
	p := TileBBoxPyramid{}
	for z := 0; z <= MaxZoom; z++ {
		p.levels[z] = EmptyTileBBox(uint8(z))
	}
	return p
}

// NewFullTileBBoxPyramid returns a pyramid covering every tile at every zoom 0..=maxZoom.
func NewFullTileBBoxPyramid(maxZoom uint8) TileBBoxPyramid {
	p := NewTileBBoxPyramid()
	for z := uint8(0); z <= maxZoom; z++ {
		p.levels[z] = FullTileBBox(z)
	}
	return p
}

// Level returns the bbox at zoom z.
func (p TileBBoxPyramid) Level(z uint8) TileBBox {
	return p.levels[z]
}

// SetLevel replaces the bbox at zoom z.
func (p *TileBBoxPyramid) SetLevel(z uint8, bbox TileBBox) {
	p.levels[z] = bbox
}

// levelRange is a (zoom, bbox) pair yielded by IterLevels.
type levelRange struct {
	Zoom uint8
	BBox TileBBox
}

// IterLevels returns every non-empty level in ascending zoom order.
func (p TileBBoxPyramid) IterLevels() []levelRange {
	var out []levelRange
	for z := 0; z <= MaxZoom; z++ {
		if !p.levels[z].IsEmpty() {
			out = append(out, levelRange{Zoom: uint8(z), BBox: p.levels[z]})
		}
	}
	return out
}

// CountTiles sums CountTiles() across all levels.
func (p TileBBoxPyramid) CountTiles() uint64 {
	var sum uint64
	for _, lvl := range p.levels {
		sum += lvl.CountTiles()
	}
	return sum
}

// Intersect returns the element-wise intersection of two pyramids.
func (p TileBBoxPyramid) Intersect(other TileBBoxPyramid) TileBBoxPyramid {
	result := NewTileBBoxPyramid()
	for z := 0; z <= MaxZoom; z++ {
		result.levels[z] = p.levels[z].Intersect(other.levels[z])
	}
	return result
}

// MaxNonEmptyZoom returns the highest zoom with a non-empty level, and whether any level is non-empty.
func (p TileBBoxPyramid) MaxNonEmptyZoom() (uint8, bool) {
	found := false
	var z uint8
	for i := 0; i <= MaxZoom; i++ {
		if !p.levels[i].IsEmpty() {
			z = uint8(i)
			found = true
		}
	}
	return z, found
}

// MinNonEmptyZoom returns the lowest zoom with a non-empty level, and whether any level is non-empty.
func (p TileBBoxPyramid) MinNonEmptyZoom() (uint8, bool) {
	for i := 0; i <= MaxZoom; i++ {
		if !p.levels[i].IsEmpty() {
			return uint8(i), true
		}
	}
	return 0, false
}
