package versatiles

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
)

func solidPNG(t *testing.T, size int) Blob {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	assert.Nil(t, png.Encode(&buf, img))
	return NewBlob(buf.Bytes())
}

func TestCompressorDecompressorRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionBrotli} {
		original := NewBlob([]byte("the quick brown fox jumps over the lazy dog"))
		compressed, err := Compressor(c).Run(original)
		assert.Nil(t, err)
		restored, err := Decompressor(c).Run(compressed)
		assert.Nil(t, err)
		assert.Equal(t, original.Bytes(), restored.Bytes())
	}
}

func TestDataConverterDescriptionAndEqual(t *testing.T) {
	a := DataConverter{Stages: []Stage{{Name: "decompress_gzip"}, {Name: "PNG->JPG"}, {Name: "compress_brotli"}}}
	assert.Equal(t, "decompress_gzip, PNG->JPG, compress_brotli", a.Description())

	b := DataConverter{Stages: []Stage{{Name: "decompress_gzip"}, {Name: "PNG->JPG"}, {Name: "compress_brotli"}}}
	assert.True(t, a.Equal(b))

	c := DataConverter{}
	assert.True(t, c.Empty())
	assert.False(t, a.Equal(c))
}

// TestRecompressorPngGzipToJpgBrotli is end-to-end scenario 4 from spec §8.
func TestRecompressorPngGzipToJpgBrotli(t *testing.T) {
	size := 4
	pngBlob := solidPNG(t, size)
	gzipped, err := Compressor(CompressionGzip).Run(pngBlob)
	assert.Nil(t, err)

	conv, err := TileRecompressor(FormatPNG, CompressionGzip, FormatJPG, CompressionBrotli, false)
	assert.Nil(t, err)
	assert.Equal(t, "decompress_gzip, PNG->JPG, compress_brotli", conv.Description())

	out, err := conv.Run(gzipped)
	assert.Nil(t, err)

	raw, err := Decompressor(CompressionBrotli).Run(out)
	assert.Nil(t, err)

	img, err := jpeg.Decode(bytes.NewReader(raw.Bytes()))
	assert.Nil(t, err)
	assert.Equal(t, size, img.Bounds().Dx())
	assert.Equal(t, size, img.Bounds().Dy())
}

// TestRecompressorForceSameFormat is end-to-end scenario 6 from spec §8.
func TestRecompressorForceSameFormat(t *testing.T) {
	conv, err := TileRecompressor(FormatPNG, CompressionNone, FormatPNG, CompressionNone, true)
	assert.Nil(t, err)
	assert.Equal(t, "PNG->PNG", conv.Description())
}

func TestRecompressorNoopWhenAlreadyMatching(t *testing.T) {
	conv, err := TileRecompressor(FormatPBF, CompressionGzip, FormatPBF, CompressionGzip, false)
	assert.Nil(t, err)
	assert.True(t, conv.Empty())
}

func TestRecompressorVectorTranscodeUnsupported(t *testing.T) {
	_, err := TileRecompressor(FormatPBF, CompressionNone, FormatGEOJSON, CompressionNone, false)
	assertErrKind(t, err, ErrUnsupportedConversion)
}

func TestRecompressorVectorForcedSameFormatIsNotAnError(t *testing.T) {
	conv, err := TileRecompressor(FormatPBF, CompressionNone, FormatPBF, CompressionGzip, true)
	assert.Nil(t, err)
	assert.Equal(t, "compress_gzip", conv.Description())
}

// TestEncodeImageWebp exercises whichever webpCGOAvailable build this test
// runs under: a CGO build encodes via libwebp, a non-CGO build reports
// ErrUnsupportedConversion rather than panicking or silently no-opping.
func TestEncodeImageWebp(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	data, err := encodeImage(FormatWEBP, img)
	if webpCGOAvailable {
		assert.Nil(t, err)
		assert.True(t, data.Len() > 0)
	} else {
		assertErrKind(t, err, ErrUnsupportedConversion)
	}
}
