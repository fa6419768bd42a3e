package versatiles

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAcceptEncodingAlwaysAcceptsIdentity(t *testing.T) {
	accepted := parseAcceptEncoding("")
	assert.True(t, accepted[CompressionNone])
	assert.False(t, accepted[CompressionGzip])
}

func TestParseAcceptEncodingParsesQualityAndMultipleTokens(t *testing.T) {
	accepted := parseAcceptEncoding("gzip;q=0.8, br")
	assert.True(t, accepted[CompressionGzip])
	assert.True(t, accepted[CompressionBrotli])
}

func TestNegotiateEncodingServesRawWhenAccepted(t *testing.T) {
	data := NewBlob([]byte("already gzipped"))
	out, comp, err := negotiateEncoding(data, CompressionGzip, map[Compression]bool{CompressionGzip: true})
	assert.Nil(t, err)
	assert.Equal(t, CompressionGzip, comp)
	assert.Equal(t, data.Bytes(), out.Bytes())
}

func TestNegotiateEncodingPrefersBrotliOverGzip(t *testing.T) {
	raw := NewBlob([]byte("some tile bytes"))
	gz, err := Compressor(CompressionGzip).Run(raw)
	assert.Nil(t, err)

	out, comp, err := negotiateEncoding(gz, CompressionGzip, map[Compression]bool{CompressionNone: true, CompressionGzip: true, CompressionBrotli: true})
	assert.Nil(t, err)
	assert.Equal(t, CompressionBrotli, comp)

	back, err := Decompressor(CompressionBrotli).Run(out)
	assert.Nil(t, err)
	assert.Equal(t, raw.Bytes(), back.Bytes())
}

func TestNegotiateEncodingFallsBackToIdentity(t *testing.T) {
	raw := NewBlob([]byte("some tile bytes"))
	gz, err := Compressor(CompressionGzip).Run(raw)
	assert.Nil(t, err)

	out, comp, err := negotiateEncoding(gz, CompressionGzip, map[Compression]bool{CompressionNone: true})
	assert.Nil(t, err)
	assert.Equal(t, CompressionNone, comp)
	assert.Equal(t, raw.Bytes(), out.Bytes())
}

func TestResolveTileMissingCoordinate(t *testing.T) {
	src := NewPbfFast(1)
	_, _, _, found, err := ResolveTile(src, TileCoord3{Z: 5, X: 0, Y: 0}, "")
	assert.Nil(t, err)
	assert.False(t, found)
}

func TestResolveTileInvalidCoordinate(t *testing.T) {
	src := NewPbfFast(2)
	_, _, _, _, err := ResolveTile(src, TileCoord3{Z: 2, X: 9, Y: 0}, "")
	assertErrKind(t, err, ErrInvalidCoord)
}

// TestTileServerHTTPScenario3 mirrors spec §8 scenario 3 over the HTTP
// surface: a tar-backed source served at /tiles/{name}/{z}/{x}/{y}.pbf with
// Accept-Encoding: br returns the ocean tile, brotli-encoded.
func TestTileServerHTTPScenario3(t *testing.T) {
	var buf bytes.Buffer
	assert.Nil(t, WriteTar(NewPbfFast(2), FormatPBF, CompressionGzip, false, &buf, nil))
	reader, err := OpenTarReader(&buf)
	assert.Nil(t, err)

	server := NewTileServer(nil)
	server.AddSource("demo", reader)

	req := httptest.NewRequest(http.MethodGet, "/tiles/demo/0/0/0.pbf", nil)
	req.Header.Set("Accept-Encoding", "br")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))

	decoded, err := Decompressor(CompressionBrotli).Run(NewBlob(rec.Body.Bytes()))
	assert.Nil(t, err)
	assert.Equal(t, oceanTileBytes, decoded.Bytes())
}

func TestTileServerUnknownSourceIs404(t *testing.T) {
	server := NewTileServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/tiles/missing/0/0/0.pbf", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTileServerMissingTileIs404(t *testing.T) {
	server := NewTileServer(nil)
	server.AddSource("demo", NewPbfFast(1))
	req := httptest.NewRequest(http.MethodGet, "/tiles/demo/5/0/0.pbf", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTileServerAssetServing(t *testing.T) {
	var buf bytes.Buffer
	assert.Nil(t, WriteTar(NewPbfFast(1), FormatPBF, CompressionNone, false, &buf, nil))
	reader, err := OpenTarReader(&buf)
	assert.Nil(t, err)

	server := NewTileServer(nil)
	server.AddSource("demo", reader)

	req := httptest.NewRequest(http.MethodGet, "/demo/tiles.json", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dummyMeta, rec.Body.String())
}

func TestTileServerUnknownAssetIs404(t *testing.T) {
	var buf bytes.Buffer
	assert.Nil(t, WriteTar(NewPbfFast(1), FormatPBF, CompressionNone, false, &buf, nil))
	reader, err := OpenTarReader(&buf)
	assert.Nil(t, err)

	server := NewTileServer(nil)
	server.AddSource("demo", reader)

	req := httptest.NewRequest(http.MethodGet, "/demo/cheesecake.mp4", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
