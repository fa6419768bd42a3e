package versatiles

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/klauspost/compress/gzip"
)

// dummyMeta is the metadata payload every dummy source exposes via GetMeta.
const dummyMeta = "dummy meta data"

// oceanTileBytes is a fixed PBF-shaped payload: a protobuf field 3 (wiretype
// 2) submessage of length 0x34 opening with field 1 (wiretype 2) "ocean".
// Used by PbfFast so tests can assert on its literal leading bytes.
var oceanTileBytes = func() []byte {
	const layerLen = 0x34
	b := []byte{0x1A, layerLen, 0x0A, 0x05}
	b = append(b, []byte("ocean")...)
	b = append(b, bytes.Repeat([]byte{0x00}, layerLen-7)...)
	return b
}()

// PbfFast is a dummy Reader that serves the same fixed vector-tile payload
// for every coordinate up to maxZoom, with no per-tile work. It exists for
// deterministic, fast-running conversion and serving tests.
type PbfFast struct {
	maxZoom uint8
}

// NewPbfFast returns a PbfFast covering zooms [0, maxZoom].
func NewPbfFast(maxZoom uint8) *PbfFast {
	return &PbfFast{maxZoom: maxZoom}
}

func (s *PbfFast) GetParameters() ReaderParameters {
	return ReaderParameters{
		TileFormat:  FormatPBF,
		Compression: CompressionNone,
		BBoxPyramid: NewFullTileBBoxPyramid(s.maxZoom),
	}
}

func (s *PbfFast) GetMeta() (Blob, error) {
	return NewBlob([]byte(dummyMeta)), nil
}

func (s *PbfFast) GetTileData(coord TileCoord3) (Blob, bool, error) {
	if !coord.Valid() {
		return Blob{}, false, newErr(ErrInvalidCoord, "coordinate outside 2^z grid", nil)
	}
	if coord.Z > s.maxZoom {
		return Blob{}, false, nil
	}
	return NewBlob(oceanTileBytes), true, nil
}

func (s *PbfFast) GetBBoxTileVec(z uint8, bbox TileBBox) ([]TileEntry, error) {
	return collectBBoxTileVec(z, bbox, s.GetTileData)
}

// PngFast is a dummy Reader that serves one fixed, gzip-compressed PNG image
// for every coordinate up to maxZoom — a raster counterpart to PbfFast for
// exercising the image transcode stages of the codec pipeline.
type PngFast struct {
	maxZoom uint8
	size    int
	tile    Blob
}

// NewPngFast builds a PngFast serving a size x size solid-color PNG,
// gzip-compressed, for zooms [0, maxZoom].
func NewPngFast(maxZoom uint8, size int) (*PngFast, error) {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	fill := color.RGBA{R: 0x20, G: 0x80, B: 0xC0, A: 0xFF}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, newErr(ErrCodec, "encoding dummy PNG tile", err)
	}

	var gzBuf bytes.Buffer
	w := gzip.NewWriter(&gzBuf)
	if _, err := w.Write(pngBuf.Bytes()); err != nil {
		return nil, newErr(ErrCodec, "gzip-compressing dummy PNG tile", err)
	}
	if err := w.Close(); err != nil {
		return nil, newErr(ErrCodec, "closing gzip writer for dummy PNG tile", err)
	}

	return &PngFast{maxZoom: maxZoom, size: size, tile: NewBlob(gzBuf.Bytes())}, nil
}

func (s *PngFast) GetParameters() ReaderParameters {
	return ReaderParameters{
		TileFormat:  FormatPNG,
		Compression: CompressionGzip,
		BBoxPyramid: NewFullTileBBoxPyramid(s.maxZoom),
	}
}

func (s *PngFast) GetMeta() (Blob, error) {
	return NewBlob([]byte(dummyMeta)), nil
}

func (s *PngFast) GetTileData(coord TileCoord3) (Blob, bool, error) {
	if !coord.Valid() {
		return Blob{}, false, newErr(ErrInvalidCoord, "coordinate outside 2^z grid", nil)
	}
	if coord.Z > s.maxZoom {
		return Blob{}, false, nil
	}
	return s.tile, true, nil
}

func (s *PngFast) GetBBoxTileVec(z uint8, bbox TileBBox) ([]TileEntry, error) {
	return collectBBoxTileVec(z, bbox, s.GetTileData)
}
