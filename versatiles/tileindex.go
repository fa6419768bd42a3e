package versatiles

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/andybalholm/brotli"
)

// tileRecordLen is the fixed size in bytes of one serialized TileIndex entry.
const tileRecordLen = 12

// TileIndex is the per-block directory mapping an intra-block row-major index
// to a ByteRange. A zero-length range means the tile is absent.
type TileIndex struct {
	entries []ByteRange
}

// NewTileIndex allocates a TileIndex of size n, all entries absent.
func NewTileIndex(n int) *TileIndex {
	return &TileIndex{entries: make([]ByteRange, n)}
}

// Len returns the number of entries.
func (t *TileIndex) Len() int {
	return len(t.entries)
}

// Set assigns the range at index i.
func (t *TileIndex) Set(i int, r ByteRange) {
	t.entries[i] = r
}

// Get returns the range at index i.
func (t *TileIndex) Get(i int) ByteRange {
	return t.entries[i]
}

// AnyPresent reports whether at least one entry has a non-zero length.
func (t *TileIndex) AnyPresent() bool {
	for _, e := range t.entries {
		if !e.Empty() {
			return true
		}
	}
	return false
}

// EncodeBrotli serializes the entries in row-major order (as allocated),
// then Brotli-compresses the result.
func (t *TileIndex) EncodeBrotli() (Blob, error) {
	var raw bytes.Buffer
	raw.Grow(len(t.entries) * tileRecordLen)
	rec := make([]byte, tileRecordLen)
	for _, e := range t.entries {
		binary.BigEndian.PutUint64(rec[0:8], e.Offset)
		binary.BigEndian.PutUint32(rec[8:12], uint32(e.Length))
		raw.Write(rec)
	}
	var compressed bytes.Buffer
	w := brotli.NewWriter(&compressed)
	if _, err := w.Write(raw.Bytes()); err != nil {
		return Blob{}, newErr(ErrCorruptIndex, "brotli-compressing tile index", err)
	}
	if err := w.Close(); err != nil {
		return Blob{}, newErr(ErrCorruptIndex, "closing brotli writer for tile index", err)
	}
	return NewBlob(compressed.Bytes()), nil
}

// DecodeTileIndexBrotli Brotli-decompresses and parses a TileIndex blob.
func DecodeTileIndexBrotli(b Blob) (*TileIndex, error) {
	r := brotli.NewReader(bytes.NewReader(b.Bytes()))
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, newErr(ErrCorruptIndex, "brotli-decompressing tile index", err)
	}
	if len(raw)%tileRecordLen != 0 {
		return nil, newErr(ErrCorruptIndex, "tile index length not a multiple of record size", nil)
	}
	n := len(raw) / tileRecordLen
	idx := NewTileIndex(n)
	for i := 0; i < n; i++ {
		off := i * tileRecordLen
		offset := binary.BigEndian.Uint64(raw[off : off+8])
		length := uint64(binary.BigEndian.Uint32(raw[off+8 : off+12]))
		idx.entries[i] = ByteRange{Offset: offset, Length: length}
	}
	return idx, nil
}
