package versatiles

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DataSource answers byte-range reads against an open container, regardless
// of transport (local file, HTTP range request, in-memory buffer).
type DataSource interface {
	Read(offset, length uint64) (Blob, error)
	Size() (uint64, error)
}

// ReaderParameters summarizes a reader's tile format, compression, and pyramid.
type ReaderParameters struct {
	TileFormat  TileFormat
	Compression Compression
	BBoxPyramid TileBBoxPyramid
}

// Reader is the capability record every container adapter implements; the
// core consumes only this surface (native, tar, mbtiles all satisfy it).
type Reader interface {
	GetParameters() ReaderParameters
	GetMeta() (Blob, error)
	GetTileData(coord TileCoord3) (Blob, bool, error)
	GetBBoxTileVec(z uint8, bbox TileBBox) ([]TileEntry, error)
}

// TileEntry pairs a coordinate with its tile bytes, as returned by bbox-range reads.
type TileEntry struct {
	Coord TileCoord3
	Data  Blob
}

// NativeReader opens a native container: eager FileHeader + BlockIndex, lazy
// per-block TileIndex with an unbounded cache and at-most-one concurrent
// fetch per block (singleflight), per the caching policy.
type NativeReader struct {
	header     FileHeader
	blockIndex *BlockIndex
	meta       Blob
	source     DataSource

	tiMu    sync.Mutex
	tiCache map[BlockKey]*TileIndex
	sf      singleflight.Group

	metrics *ServerMetrics
	archive string
}

// metricsSettable is implemented by DataSource adapters (bucket.go) that
// report their own range-request latency; SetMetrics propagates to them.
type metricsSettable interface {
	SetMetrics(m *ServerMetrics, archive string)
}

// SetMetrics wires this reader's per-block TileIndex cache hit/miss counter,
// and (if the underlying DataSource reports its own latency) the bucket
// request duration histogram, under archive. Called by TileServer.AddSource;
// a nil metrics is safe and simply disables recording.
func (r *NativeReader) SetMetrics(m *ServerMetrics, archive string) {
	r.metrics = m
	r.archive = archive
	if s, ok := r.source.(metricsSettable); ok {
		s.SetMetrics(m, archive)
	}
}

// OpenNativeReader reads the header, block index, and metadata blob eagerly.
func OpenNativeReader(source DataSource) (*NativeReader, error) {
	size, err := source.Size()
	if err != nil {
		return nil, newErr(ErrIO, "reading file size", err)
	}
	if size < HeaderLen {
		return nil, newErr(ErrTruncatedHeader, "file shorter than header length", nil)
	}

	headerBlob, err := source.Read(0, HeaderLen)
	if err != nil {
		return nil, newErr(ErrIO, "reading file header", err)
	}
	header, err := DecodeFileHeader(headerBlob.Bytes())
	if err != nil {
		return nil, err
	}

	if header.BlocksOffset > size {
		return nil, newErr(ErrCorruptIndex, "blocks_offset beyond end of file", nil)
	}
	blocksBlob, err := source.Read(header.BlocksOffset, size-header.BlocksOffset)
	if err != nil {
		return nil, newErr(ErrIO, "reading block index", err)
	}
	blockIndex, err := DecodeBlockIndexBrotli(blocksBlob)
	if err != nil {
		return nil, err
	}

	var meta Blob
	if header.MetaLength > 0 {
		meta, err = source.Read(header.MetaOffset, header.MetaLength)
		if err != nil {
			return nil, newErr(ErrIO, "reading metadata blob", err)
		}
	}

	return &NativeReader{
		header:     header,
		blockIndex: blockIndex,
		meta:       meta,
		source:     source,
		tiCache:    make(map[BlockKey]*TileIndex),
	}, nil
}

// GetParameters returns the tile format, compression, and bbox pyramid
// synthesized from the block index.
func (r *NativeReader) GetParameters() ReaderParameters {
	return ReaderParameters{
		TileFormat:  r.header.TileFormat,
		Compression: r.header.Compression,
		BBoxPyramid: r.blockIndex.BBoxPyramid(),
	}
}

// GetMeta returns the raw (still-compressed) metadata blob; callers apply
// Decompressor(header.Compression) themselves.
func (r *NativeReader) GetMeta() (Blob, error) {
	return r.meta, nil
}

func (r *NativeReader) recordCacheRequest(status string) {
	if r.metrics != nil {
		r.metrics.recordCacheRequest(r.archive, status)
	}
}

func (r *NativeReader) loadTileIndex(key BlockKey, def BlockDefinition) (*TileIndex, error) {
	r.tiMu.Lock()
	if idx, ok := r.tiCache[key]; ok {
		r.tiMu.Unlock()
		r.recordCacheRequest("hit")
		return idx, nil
	}
	r.tiMu.Unlock()

	sfKey := fmt.Sprintf("%d/%d/%d", key.Z, key.BlockX, key.BlockY)
	v, err, _ := r.sf.Do(sfKey, func() (interface{}, error) {
		r.tiMu.Lock()
		if idx, ok := r.tiCache[key]; ok {
			r.tiMu.Unlock()
			r.recordCacheRequest("hit")
			return idx, nil
		}
		r.tiMu.Unlock()

		r.recordCacheRequest("miss")
		blob, err := r.source.Read(def.IndexRange.Offset, def.IndexRange.Length)
		if err != nil {
			return nil, newErr(ErrIO, "reading tile index", err)
		}
		idx, err := DecodeTileIndexBrotli(blob)
		if err != nil {
			return nil, err
		}

		r.tiMu.Lock()
		r.tiCache[key] = idx
		r.tiMu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TileIndex), nil
}

// GetTileData resolves a coordinate to its tile bytes, per the block-index ->
// tile-index -> byte-range lookup chain. A false second return means the
// tile is absent (block miss, local_bbox miss, or zero-length range).
func (r *NativeReader) GetTileData(coord TileCoord3) (Blob, bool, error) {
	if !coord.Valid() {
		return Blob{}, false, newErr(ErrInvalidCoord, fmt.Sprintf("(%d,%d,%d) out of range", coord.Z, coord.X, coord.Y), nil)
	}
	blockX, blockY := coord.X/BlockSize, coord.Y/BlockSize
	def, ok := r.blockIndex.Get(coord.Z, blockX, blockY)
	if !ok {
		return Blob{}, false, nil
	}

	idx, err := r.loadTileIndex(def.Key(), def)
	if err != nil {
		return Blob{}, false, err
	}

	localX, localY := coord.X%BlockSize, coord.Y%BlockSize
	i, ok := def.LocalBBox.TileIndexOf(localX, localY)
	if !ok {
		return Blob{}, false, nil
	}
	rng := idx.Get(i)
	if rng.Empty() {
		return Blob{}, false, nil
	}
	blob, err := r.source.Read(rng.Offset, rng.Length)
	if err != nil {
		return Blob{}, false, newErr(ErrIO, "reading tile bytes", err)
	}
	return blob, true, nil
}

// GetBBoxTileVec returns every present tile in bbox at zoom z, for adapters
// (tar writer) that need a materialized slice rather than random-access lookup.
func (r *NativeReader) GetBBoxTileVec(z uint8, bbox TileBBox) ([]TileEntry, error) {
	return collectBBoxTileVec(z, bbox, r.GetTileData)
}

// collectBBoxTileVec is the shared GetBBoxTileVec implementation for every
// Reader adapter: iterate bbox (with zoom forced to z) in row-major order and
// collect present tiles via get.
func collectBBoxTileVec(z uint8, bbox TileBBox, get func(TileCoord3) (Blob, bool, error)) ([]TileEntry, error) {
	bbox.Zoom = z
	var out []TileEntry
	var outerErr error
	bbox.ForEachCoord(func(c TileCoord3) {
		if outerErr != nil {
			return
		}
		data, ok, err := get(c)
		if err != nil {
			outerErr = err
			return
		}
		if ok {
			out = append(out, TileEntry{Coord: c, Data: data})
		}
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return out, nil
}
