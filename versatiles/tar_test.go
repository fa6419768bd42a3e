package versatiles

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTarRoundTripScenario3 is end-to-end scenario 3 from spec §8: a tar
// archive built from PbfFast, served as brotli, yields (0,0,0.pbf) decoding
// back to the fixed ocean tile bytes, with tiles.json carrying the dummy
// meta and unknown paths absent.
func TestTarRoundTripScenario3(t *testing.T) {
	src := NewPbfFast(2)
	var buf bytes.Buffer
	err := WriteTar(src, FormatPBF, CompressionBrotli, false, &buf, nil)
	assert.Nil(t, err)

	reader, err := OpenTarReader(&buf)
	assert.Nil(t, err)

	params := reader.GetParameters()
	assert.Equal(t, FormatPBF, params.TileFormat)
	assert.Equal(t, CompressionBrotli, params.Compression)

	data, ok, err := reader.GetTileData(TileCoord3{Z: 0, X: 0, Y: 0})
	assert.Nil(t, err)
	assert.True(t, ok)

	raw, err := Decompressor(CompressionBrotli).Run(data)
	assert.Nil(t, err)
	assert.Equal(t, oceanTileBytes, raw.Bytes())

	meta, err := reader.GetMeta()
	assert.Nil(t, err)
	decMeta, err := Decompressor(CompressionBrotli).Run(meta)
	assert.Nil(t, err)
	assert.Equal(t, dummyMeta, string(decMeta.Bytes()))

	_, ok = reader.Asset("cheesecake.mp4")
	assert.False(t, ok)

	_, ok, err = reader.GetTileData(TileCoord3{Z: 5, X: 0, Y: 0})
	assert.Nil(t, err)
	assert.False(t, ok)
}

func TestTarWriterSameFormatNoop(t *testing.T) {
	src := NewPbfFast(1)
	var buf bytes.Buffer
	err := WriteTar(src, FormatPBF, CompressionNone, false, &buf, nil)
	assert.Nil(t, err)

	reader, err := OpenTarReader(&buf)
	assert.Nil(t, err)
	data, ok, err := reader.GetTileData(TileCoord3{Z: 1, X: 0, Y: 0})
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, oceanTileBytes, data.Bytes())
}

func TestTarReaderIndexesTileEntriesNotAsAssets(t *testing.T) {
	var buf bytes.Buffer
	src := NewPbfFast(0)
	err := WriteTar(src, FormatPBF, CompressionNone, false, &buf, nil)
	assert.Nil(t, err)

	reader, err := OpenTarReader(&buf)
	assert.Nil(t, err)
	_, ok := reader.Asset("0/0/0.pbf")
	assert.False(t, ok, "tile entries should be indexed as tiles, not assets")
}
