package versatiles

import (
	"archive/tar"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
)

// tileRowsPerStrip bounds how many tile rows the tar writer materializes at
// once via TileBBox.RowStrips, per the resource-limit supplement.
const tileRowsPerStrip = 1024

var tarTilePattern = regexp.MustCompile(`^(\d+)/(\d+)/(\d+)\.([A-Za-z0-9]+)(\.gz|\.br)?$`)

var extensionToFormat = map[string]TileFormat{
	"bin": FormatBIN, "png": FormatPNG, "jpg": FormatJPG, "jpeg": FormatJPG,
	"webp": FormatWEBP, "avif": FormatAVIF, "svg": FormatSVG, "pbf": FormatPBF,
	"geojson": FormatGEOJSON, "topojson": FormatTOPOJSON, "json": FormatJSON,
}

func compressionFromSuffix(suffix string) Compression {
	switch suffix {
	case ".gz":
		return CompressionGzip
	case ".br":
		return CompressionBrotli
	default:
		return CompressionNone
	}
}

// WriteTar streams src's tiles into a tar archive at dstFormat/dstCompression,
// row-strip by row-strip to bound peak memory, plus a "tiles.json<ext>"
// metadata entry. Mirrors the native Converter's recompress-then-append
// shape, but targets a tar.Writer instead of a NativeWriter.
func WriteTar(src Reader, dstFormat TileFormat, dstCompression Compression, force bool, out io.Writer, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	params := src.GetParameters()
	recompressor, err := TileRecompressor(params.TileFormat, params.Compression, dstFormat, dstCompression, force)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(out)

	metaRaw, err := src.GetMeta()
	if err != nil {
		return err
	}
	decMeta, err := Decompressor(params.Compression).Run(metaRaw)
	if err != nil {
		return err
	}
	encMeta, err := Compressor(dstCompression).Run(decMeta)
	if err != nil {
		return err
	}
	if err := writeTarEntry(tw, "tiles.json"+dstCompression.Extension(), encMeta.Bytes()); err != nil {
		return err
	}

	for _, lvl := range params.BBoxPyramid.IterLevels() {
		for _, strip := range lvl.BBox.RowStrips(tileRowsPerStrip) {
			entries, err := src.GetBBoxTileVec(lvl.Zoom, strip)
			if err != nil {
				return err
			}
			for _, e := range entries {
				recompressed, err := recompressor.Run(e.Data)
				if err != nil {
					logger.Printf("tile (%d,%d,%d): recompression failed, dropping: %v", e.Coord.Z, e.Coord.X, e.Coord.Y, err)
					continue
				}
				name := fmt.Sprintf("%d/%d/%d%s%s", e.Coord.Z, e.Coord.X, e.Coord.Y, dstFormat.Extension(), dstCompression.Extension())
				if err := writeTarEntry(tw, name, recompressed.Bytes()); err != nil {
					return err
				}
			}
		}
	}

	if err := tw.Close(); err != nil {
		return newErr(ErrIO, "closing tar writer", err)
	}
	return nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(data))}
	if err := tw.WriteHeader(hdr); err != nil {
		return newErr(ErrIO, "writing tar header for "+name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return newErr(ErrIO, "writing tar entry for "+name, err)
	}
	return nil
}

// TarReader adapts a tar archive produced by WriteTar (or any archive with
// the same "{z}/{x}/{y}.{ext}[.gz|.br]" naming convention) to the Reader
// contract, plus Asset() for serving arbitrary non-tile entries (static UI,
// tiles.json) the way a tar-backed HTTP server would.
type TarReader struct {
	format      TileFormat
	compression Compression
	pyramid     TileBBoxPyramid
	tiles       map[TileCoord3]Blob
	assets      map[string][]byte
}

// OpenTarReader reads the entire archive into memory and indexes its entries.
func OpenTarReader(r io.Reader) (*TarReader, error) {
	tr := tar.NewReader(r)
	out := &TarReader{
		tiles:   make(map[TileCoord3]Blob),
		pyramid: NewTileBBoxPyramid(),
		assets:  make(map[string][]byte),
	}
	formatSet := false

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newErr(ErrIO, "reading tar entry", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, newErr(ErrIO, "reading tar entry body for "+hdr.Name, err)
		}

		m := tarTilePattern.FindStringSubmatch(hdr.Name)
		if m == nil {
			out.assets[hdr.Name] = data
			continue
		}
		z, _ := strconv.Atoi(m[1])
		x, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		format, known := extensionToFormat[m[4]]
		if !known {
			out.assets[hdr.Name] = data
			continue
		}
		comp := compressionFromSuffix(m[5])
		if !formatSet {
			out.format, out.compression, formatSet = format, comp, true
		}

		coord := TileCoord3{Z: uint8(z), X: uint32(x), Y: uint32(y)}
		out.tiles[coord] = NewBlob(data)
		out.growPyramid(coord)
	}
	return out, nil
}

func (t *TarReader) growPyramid(coord TileCoord3) {
	lvl := t.pyramid.Level(coord.Z)
	if lvl.IsEmpty() {
		t.pyramid.SetLevel(coord.Z, NewTileBBox(coord.Z, coord.X, coord.Y, coord.X, coord.Y))
		return
	}
	t.pyramid.SetLevel(coord.Z, NewTileBBox(coord.Z,
		min32(lvl.XMin, coord.X), min32(lvl.YMin, coord.Y),
		max32(lvl.XMax, coord.X), max32(lvl.YMax, coord.Y)))
}

func (t *TarReader) GetParameters() ReaderParameters {
	return ReaderParameters{TileFormat: t.format, Compression: t.compression, BBoxPyramid: t.pyramid}
}

// GetMeta returns the "tiles.json<ext>" entry, matching the name WriteTar gives it.
func (t *TarReader) GetMeta() (Blob, error) {
	data, ok := t.assets["tiles.json"+t.compression.Extension()]
	if !ok {
		return Blob{}, nil
	}
	return NewBlob(data), nil
}

func (t *TarReader) GetTileData(coord TileCoord3) (Blob, bool, error) {
	if !coord.Valid() {
		return Blob{}, false, newErr(ErrInvalidCoord, "coordinate outside 2^z grid", nil)
	}
	b, ok := t.tiles[coord]
	return b, ok, nil
}

func (t *TarReader) GetBBoxTileVec(z uint8, bbox TileBBox) ([]TileEntry, error) {
	return collectBBoxTileVec(z, bbox, t.GetTileData)
}

// Asset returns a non-tile archive entry by its exact path, for static-asset serving.
func (t *TarReader) Asset(name string) (Blob, bool) {
	data, ok := t.assets[name]
	if !ok {
		return Blob{}, false
	}
	return NewBlob(data), true
}
