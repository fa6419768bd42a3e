package versatiles

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/andybalholm/brotli"
)

// BlockSize is the tile-grid size of one block (256x256), per spec.
const BlockSize = 256

// blockRecordLen is the fixed size in bytes of one serialized BlockDefinition.
const blockRecordLen = 29

// BlockDefinition describes one 256x256-aligned block: its grid position, the
// sub-rectangle of tiles actually present, and where its tile/index bytes live.
type BlockDefinition struct {
	Z         uint8
	BlockX    uint32
	BlockY    uint32
	LocalBBox  TileBBox // coordinates relative to the block's (0,0) corner, in [0,255]
	TileRange  ByteRange
	IndexRange ByteRange
}

// BlockKey identifies a block by its grid position.
type BlockKey struct {
	Z      uint8
	BlockX uint32
	BlockY uint32
}

// Key returns the BlockKey for this definition.
func (b BlockDefinition) Key() BlockKey {
	return BlockKey{Z: b.Z, BlockX: b.BlockX, BlockY: b.BlockY}
}

// BlockIndex is the file-wide directory of blocks, keyed by (z, block_x, block_y).
type BlockIndex struct {
	byKey map[BlockKey]BlockDefinition
}

// NewBlockIndex returns an empty BlockIndex.
func NewBlockIndex() *BlockIndex {
	return &BlockIndex{byKey: make(map[BlockKey]BlockDefinition)}
}

// Add inserts or replaces a BlockDefinition.
func (idx *BlockIndex) Add(def BlockDefinition) {
	idx.byKey[def.Key()] = def
}

// Get looks up a block by grid position.
func (idx *BlockIndex) Get(z uint8, blockX, blockY uint32) (BlockDefinition, bool) {
	def, ok := idx.byKey[BlockKey{Z: z, BlockX: blockX, BlockY: blockY}]
	return def, ok
}

// Len returns the number of blocks in the index.
func (idx *BlockIndex) Len() int {
	return len(idx.byKey)
}

// sorted returns the block definitions ordered by (z, block_y, block_x), per §6.
func (idx *BlockIndex) sorted() []BlockDefinition {
	out := make([]BlockDefinition, 0, len(idx.byKey))
	for _, def := range idx.byKey {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.BlockY != b.BlockY {
			return a.BlockY < b.BlockY
		}
		return a.BlockX < b.BlockX
	})
	return out
}

// BBoxPyramid synthesizes the pyramid of present tiles by unioning each
// block's local_bbox shifted into tile-space, per §4.2 get_parameters.
func (idx *BlockIndex) BBoxPyramid() TileBBoxPyramid {
	p := NewTileBBoxPyramid()
	for _, def := range idx.byKey {
		if def.LocalBBox.IsEmpty() {
			continue
		}
		offX := def.BlockX * BlockSize
		offY := def.BlockY * BlockSize
		shifted := NewTileBBox(def.Z,
			def.LocalBBox.XMin+offX, def.LocalBBox.YMin+offY,
			def.LocalBBox.XMax+offX, def.LocalBBox.YMax+offY,
		)
		current := p.Level(def.Z)
		if current.IsEmpty() {
			p.SetLevel(def.Z, shifted)
			continue
		}
		xMin := min32(current.XMin, shifted.XMin)
		yMin := min32(current.YMin, shifted.YMin)
		xMax := max32(current.XMax, shifted.XMax)
		yMax := max32(current.YMax, shifted.YMax)
		p.SetLevel(def.Z, NewTileBBox(def.Z, xMin, yMin, xMax, yMax))
	}
	return p
}

func encodeBlockRecord(def BlockDefinition) []byte {
	buf := make([]byte, blockRecordLen)
	buf[0] = def.Z
	binary.BigEndian.PutUint32(buf[1:5], def.BlockX)
	binary.BigEndian.PutUint32(buf[5:9], def.BlockY)
	if !def.LocalBBox.IsEmpty() {
		buf[9] = byte(def.LocalBBox.XMin)
		buf[10] = byte(def.LocalBBox.YMin)
		buf[11] = byte(def.LocalBBox.XMax)
		buf[12] = byte(def.LocalBBox.YMax)
	}
	binary.BigEndian.PutUint64(buf[13:21], def.TileRange.Offset)
	binary.BigEndian.PutUint32(buf[21:25], uint32(def.TileRange.Length))
	binary.BigEndian.PutUint32(buf[25:29], uint32(def.IndexRange.Length))
	return buf
}

func decodeBlockRecord(buf []byte) BlockDefinition {
	z := buf[0]
	xMin, yMin, xMax, yMax := uint32(buf[9]), uint32(buf[10]), uint32(buf[11]), uint32(buf[12])
	bbox := NewTileBBox(z, xMin, yMin, xMax, yMax)
	tileOffset := binary.BigEndian.Uint64(buf[13:21])
	tileLength := uint64(binary.BigEndian.Uint32(buf[21:25]))
	indexLength := uint64(binary.BigEndian.Uint32(buf[25:29]))
	return BlockDefinition{
		Z:          z,
		BlockX:     binary.BigEndian.Uint32(buf[1:5]),
		BlockY:     binary.BigEndian.Uint32(buf[5:9]),
		LocalBBox:  bbox,
		TileRange:  ByteRange{Offset: tileOffset, Length: tileLength},
		IndexRange: ByteRange{Offset: tileOffset + tileLength, Length: indexLength},
	}
}

// EncodeBrotli serializes the index as fixed-width records sorted by
// (z, block_y, block_x), then Brotli-compresses the result.
func (idx *BlockIndex) EncodeBrotli() (Blob, error) {
	records := idx.sorted()
	var raw bytes.Buffer
	raw.Grow(len(records) * blockRecordLen)
	for _, def := range records {
		raw.Write(encodeBlockRecord(def))
	}
	var compressed bytes.Buffer
	w := brotli.NewWriter(&compressed)
	if _, err := w.Write(raw.Bytes()); err != nil {
		return Blob{}, newErr(ErrCorruptIndex, "brotli-compressing block index", err)
	}
	if err := w.Close(); err != nil {
		return Blob{}, newErr(ErrCorruptIndex, "closing brotli writer for block index", err)
	}
	return NewBlob(compressed.Bytes()), nil
}

// DecodeBlockIndexBrotli Brotli-decompresses and parses a BlockIndex blob.
func DecodeBlockIndexBrotli(b Blob) (*BlockIndex, error) {
	r := brotli.NewReader(bytes.NewReader(b.Bytes()))
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, newErr(ErrCorruptIndex, "brotli-decompressing block index", err)
	}
	if len(raw)%blockRecordLen != 0 {
		return nil, newErr(ErrCorruptIndex, "block index length not a multiple of record size", nil)
	}
	idx := NewBlockIndex()
	for off := 0; off < len(raw); off += blockRecordLen {
		def := decodeBlockRecord(raw[off : off+blockRecordLen])
		idx.Add(def)
	}
	return idx, nil
}
