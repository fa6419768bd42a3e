package versatiles

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"zombiezen.com/go/sqlite"
)

// MBTilesReader adapts a legacy SQLite-backed tile pyramid (the MBTiles
// schema: a metadata(name,value) table and a tiles(zoom_level,tile_column,
// tile_row,tile_data) table addressed in TMS row order) to the Reader
// contract. sqlite.Conn is not safe for concurrent use, so every query is
// serialized behind mu — this adapter does not declare itself concurrent-safe.
type MBTilesReader struct {
	mu          sync.Mutex
	conn        *sqlite.Conn
	format      TileFormat
	compression Compression
	pyramid     TileBBoxPyramid
	meta        []byte
}

// packZXY combines (z,x,y) into a single sortable key for the tileset bitmap
// pass, in place of the Hilbert tile ID this spec's coordinate model doesn't use.
func packZXY(z uint8, x, y uint32) uint64 {
	return uint64(z)<<58 | uint64(x)<<29 | uint64(y)
}

func unpackZXY(id uint64) (uint8, uint32, uint32) {
	z := uint8(id >> 58)
	x := uint32((id >> 29) & 0x1FFFFFFF)
	y := uint32(id & 0x1FFFFFFF)
	return z, x, y
}

func mbtilesFormat(tag string) TileFormat {
	switch tag {
	case "png":
		return FormatPNG
	case "jpg", "jpeg":
		return FormatJPG
	case "webp":
		return FormatWEBP
	default:
		return FormatPBF
	}
}

// OpenMBTilesReader opens path read-only and runs the two-pass assembly the
// teacher's mbtiles conversion uses: read metadata, then walk the tiles table
// once into a roaring64 bitmap to derive the bbox pyramid up front.
func OpenMBTilesReader(path string) (*MBTilesReader, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, newErr(ErrIO, "opening mbtiles database", err)
	}

	metaMap := make(map[string]string)
	if err := func() error {
		stmt, _, err := conn.PrepareTransient("SELECT name, value FROM metadata")
		if err != nil {
			return newErr(ErrIO, "preparing metadata query", err)
		}
		defer stmt.Finalize()
		for {
			hasRow, err := stmt.Step()
			if err != nil {
				return newErr(ErrIO, "stepping metadata query", err)
			}
			if !hasRow {
				return nil
			}
			metaMap[stmt.ColumnText(0)] = stmt.ColumnText(1)
		}
	}(); err != nil {
		conn.Close()
		return nil, err
	}

	format := mbtilesFormat(metaMap["format"])
	compression := CompressionNone
	if format == FormatPBF {
		compression = CompressionGzip
	}

	tileset := roaring64.New()
	if err := func() error {
		stmt, _, err := conn.PrepareTransient("SELECT zoom_level, tile_column, tile_row FROM tiles")
		if err != nil {
			return newErr(ErrIO, "preparing tileset query", err)
		}
		defer stmt.Finalize()
		for {
			hasRow, err := stmt.Step()
			if err != nil {
				return newErr(ErrIO, "stepping tileset query", err)
			}
			if !hasRow {
				return nil
			}
			z := uint8(stmt.ColumnInt64(0))
			x := uint32(stmt.ColumnInt64(1))
			tmsRow := uint32(stmt.ColumnInt64(2))
			y := (uint32(1)<<z - 1) - tmsRow
			tileset.Add(packZXY(z, x, y))
		}
	}(); err != nil {
		conn.Close()
		return nil, err
	}

	pyramid := NewTileBBoxPyramid()
	it := tileset.Iterator()
	for it.HasNext() {
		z, x, y := unpackZXY(it.Next())
		lvl := pyramid.Level(z)
		if lvl.IsEmpty() {
			pyramid.SetLevel(z, NewTileBBox(z, x, y, x, y))
			continue
		}
		pyramid.SetLevel(z, NewTileBBox(z,
			min32(lvl.XMin, x), min32(lvl.YMin, y),
			max32(lvl.XMax, x), max32(lvl.YMax, y)))
	}

	metaJSON, err := json.Marshal(metaMap)
	if err != nil {
		conn.Close()
		return nil, newErr(ErrIO, "marshaling mbtiles metadata", err)
	}

	return &MBTilesReader{
		conn:        conn,
		format:      format,
		compression: compression,
		pyramid:     pyramid,
		meta:        metaJSON,
	}, nil
}

// Close releases the underlying SQLite connection.
func (m *MBTilesReader) Close() error {
	return m.conn.Close()
}

func (m *MBTilesReader) GetParameters() ReaderParameters {
	return ReaderParameters{TileFormat: m.format, Compression: m.compression, BBoxPyramid: m.pyramid}
}

// GetMeta returns the metadata table re-encoded as JSON, uncompressed.
func (m *MBTilesReader) GetMeta() (Blob, error) {
	return NewBlob(m.meta), nil
}

func (m *MBTilesReader) GetTileData(coord TileCoord3) (Blob, bool, error) {
	if !coord.Valid() {
		return Blob{}, false, newErr(ErrInvalidCoord, "coordinate outside 2^z grid", nil)
	}
	tmsRow := (uint32(1)<<coord.Z - 1) - coord.Y

	m.mu.Lock()
	defer m.mu.Unlock()

	stmt := m.conn.Prep("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	stmt.BindInt64(1, int64(coord.Z))
	stmt.BindInt64(2, int64(coord.X))
	stmt.BindInt64(3, int64(tmsRow))
	defer stmt.Reset()

	hasRow, err := stmt.Step()
	if err != nil {
		return Blob{}, false, newErr(ErrIO, "querying mbtiles tile", err)
	}
	if !hasRow {
		return Blob{}, false, nil
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stmt.ColumnReader(0)); err != nil {
		return Blob{}, false, newErr(ErrIO, "reading mbtiles tile blob", err)
	}
	return NewBlob(buf.Bytes()), true, nil
}

func (m *MBTilesReader) GetBBoxTileVec(z uint8, bbox TileBBox) ([]TileEntry, error) {
	return collectBBoxTileVec(z, bbox, m.GetTileData)
}
