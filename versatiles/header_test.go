package versatiles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	h := FileHeader{
		TileFormat:   FormatPBF,
		Compression:  CompressionGzip,
		ZoomMin:      2,
		ZoomMax:      14,
		BBoxWest:     -1800000000,
		BBoxSouth:    -900000000,
		BBoxEast:     1800000000,
		BBoxNorth:    900000000,
		MetaOffset:   62,
		MetaLength:   128,
		BlocksOffset: 190,
	}
	buf := h.Encode()
	assert.Len(t, buf, HeaderLen)
	assert.Equal(t, Magic, string(buf[0:14]))

	got, err := DecodeFileHeader(buf)
	assert.Nil(t, err)
	assert.Equal(t, h, got)
}

func TestFileHeaderMetaRange(t *testing.T) {
	h := FileHeader{MetaOffset: 62, MetaLength: 10}
	assert.Equal(t, ByteRange{Offset: 62, Length: 10}, h.MetaRange())
}

func TestDecodeFileHeaderTruncated(t *testing.T) {
	_, err := DecodeFileHeader(make([]byte, HeaderLen-1))
	assertErrKind(t, err, ErrTruncatedHeader)
}

func TestDecodeFileHeaderBadMagic(t *testing.T) {
	buf := make([]byte, HeaderLen)
	copy(buf, "not_a_versatile")
	_, err := DecodeFileHeader(buf)
	assertErrKind(t, err, ErrBadMagic)
}

func TestByteRangeEmpty(t *testing.T) {
	assert.True(t, ByteRange{}.Empty())
	assert.False(t, ByteRange{Offset: 1, Length: 1}.Empty())
}

// assertErrKind is a shared helper used by every adapter's error-kind tests.
func assertErrKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	assert.NotNil(t, err)
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	assert.Equal(t, kind, verr.Kind)
}
