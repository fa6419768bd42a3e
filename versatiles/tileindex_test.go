package versatiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileIndexSetGetAnyPresent(t *testing.T) {
	idx := NewTileIndex(4)
	assert.Equal(t, 4, idx.Len())
	assert.False(t, idx.AnyPresent())

	idx.Set(2, ByteRange{Offset: 10, Length: 20})
	assert.True(t, idx.AnyPresent())
	assert.Equal(t, ByteRange{Offset: 10, Length: 20}, idx.Get(2))
	assert.True(t, idx.Get(0).Empty())
}

func TestTileIndexBrotliRoundTrip(t *testing.T) {
	idx := NewTileIndex(3)
	idx.Set(0, ByteRange{Offset: 0, Length: 100})
	idx.Set(2, ByteRange{Offset: 100, Length: 55})

	blob, err := idx.EncodeBrotli()
	assert.Nil(t, err)

	decoded, err := DecodeTileIndexBrotli(blob)
	assert.Nil(t, err)
	assert.Equal(t, 3, decoded.Len())
	assert.Equal(t, ByteRange{Offset: 0, Length: 100}, decoded.Get(0))
	assert.True(t, decoded.Get(1).Empty())
	assert.Equal(t, ByteRange{Offset: 100, Length: 55}, decoded.Get(2))
}

func TestDecodeTileIndexBrotliCorrupt(t *testing.T) {
	_, err := DecodeTileIndexBrotli(NewBlob([]byte{0x01, 0x02, 0x03}))
	assertErrKind(t, err, ErrCorruptIndex)
}
