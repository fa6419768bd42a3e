package versatiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileFormatStringAndExtension(t *testing.T) {
	assert.Equal(t, "PNG", FormatPNG.String())
	assert.Equal(t, ".png", FormatPNG.Extension())
	assert.Equal(t, "image/png", FormatPNG.MimeType())

	assert.Equal(t, "PBF", FormatPBF.String())
	assert.Equal(t, "application/x-protobuf", FormatPBF.MimeType())
}

func TestTileFormatIsVector(t *testing.T) {
	assert.True(t, FormatPBF.isVector())
	assert.True(t, FormatGEOJSON.isVector())
	assert.False(t, FormatPNG.isVector())
	assert.False(t, FormatWEBP.isVector())
}

func TestCompressionExtensionAndContentEncoding(t *testing.T) {
	assert.Equal(t, "", CompressionNone.Extension())
	assert.Equal(t, ".gz", CompressionGzip.Extension())
	assert.Equal(t, ".br", CompressionBrotli.Extension())

	enc, ok := CompressionNone.ContentEncoding()
	assert.False(t, ok)
	assert.Equal(t, "", enc)

	enc, ok = CompressionBrotli.ContentEncoding()
	assert.True(t, ok)
	assert.Equal(t, "br", enc)
}
