package versatiles

import (
	"context"
	"log"
	"runtime"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// dedupThreshold is the encoded-tile size below which tiles are deduplicated
// per block, keyed by the xxhash of their encoded bytes; above it, dedup is
// skipped to cap map memory.
const dedupThreshold = 1000

// ConfigOption mutates a TileConverterConfig under construction.
type ConfigOption func(*TileConverterConfig)

// TileConverterConfig is the conversion plan: destination format/compression
// (defaulting to the source's own when unset), an optional bbox restriction
// intersected with the source's pyramid, and whether to force a full
// decode/re-encode even when src and dst already match.
type TileConverterConfig struct {
	dstFormat       *TileFormat
	dstCompression  *Compression
	forceRecompress bool
	bboxPyramid     *TileBBoxPyramid
	geoWest         int32
	geoSouth        int32
	geoEast         int32
	geoNorth        int32
}

// WithTileFormat pins the destination tile format.
func WithTileFormat(f TileFormat) ConfigOption {
	return func(c *TileConverterConfig) { c.dstFormat = &f }
}

// WithCompression pins the destination compression.
func WithCompression(comp Compression) ConfigOption {
	return func(c *TileConverterConfig) { c.dstCompression = &comp }
}

// WithForceRecompress forces a decode/re-encode pass even when src and dst match.
func WithForceRecompress(force bool) ConfigOption {
	return func(c *TileConverterConfig) { c.forceRecompress = force }
}

// WithBBoxPyramid restricts conversion to the intersection of this pyramid and the source's.
func WithBBoxPyramid(p TileBBoxPyramid) ConfigOption {
	return func(c *TileConverterConfig) { c.bboxPyramid = &p }
}

// WithGeoBBox sets the header's geographic bbox, in micro-degrees (value * 1e7).
func WithGeoBBox(west, south, east, north int32) ConfigOption {
	return func(c *TileConverterConfig) {
		c.geoWest, c.geoSouth, c.geoEast, c.geoNorth = west, south, east, north
	}
}

// NewTileConverterConfig builds a config from functional options.
func NewTileConverterConfig(opts ...ConfigOption) *TileConverterConfig {
	cfg := &TileConverterConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// resolve computes the effective destination format/compression/pyramid
// against a source's parameters, defaulting to the source's own values.
func (c *TileConverterConfig) resolve(src ReaderParameters) (TileFormat, Compression, TileBBoxPyramid) {
	format := src.TileFormat
	if c.dstFormat != nil {
		format = *c.dstFormat
	}
	comp := src.Compression
	if c.dstCompression != nil {
		comp = *c.dstCompression
	}
	pyramid := src.BBoxPyramid
	if c.bboxPyramid != nil {
		pyramid = pyramid.Intersect(*c.bboxPyramid)
	}
	return format, comp, pyramid
}

// Convert runs the full native-target conversion: placeholder header,
// metadata recompression, one Block Job per block in the plan (sequential
// across blocks, parallel over tiles within each), BlockIndex, final header
// rewrite. Per-tile recompression errors are logged and the tile is dropped
// rather than aborting the conversion; header/index errors are fatal.
func Convert(src Reader, cfg *TileConverterConfig, writer *NativeWriter, logger *log.Logger) (FileHeader, error) {
	if logger == nil {
		logger = log.Default()
	}
	params := src.GetParameters()
	dstFormat, dstCompression, plan := cfg.resolve(params)

	recompressor, err := TileRecompressor(params.TileFormat, params.Compression, dstFormat, dstCompression, cfg.forceRecompress)
	if err != nil {
		return FileHeader{}, err
	}
	metaDecompressor := Decompressor(params.Compression)
	metaCompressor := Compressor(dstCompression)

	placeholder := FileHeader{TileFormat: dstFormat, Compression: dstCompression}
	if _, err := writer.Append(NewBlob(placeholder.Encode())); err != nil {
		return FileHeader{}, err
	}

	metaRaw, err := src.GetMeta()
	if err != nil {
		return FileHeader{}, err
	}
	decMeta, err := metaDecompressor.Run(metaRaw)
	if err != nil {
		return FileHeader{}, err
	}
	encMeta, err := metaCompressor.Run(decMeta)
	if err != nil {
		return FileHeader{}, err
	}
	metaRange, err := writer.Append(encMeta)
	if err != nil {
		return FileHeader{}, err
	}

	blockIndex := NewBlockIndex()
	var totalTileBytes uint64
	for _, lvl := range plan.IterLevels() {
		blockGrid := lvl.BBox.ScaleDown(BlockSize)
		for _, bc := range blockGrid.Coords() {
			blockX, blockY := bc.X, bc.Y
			localBBox := lvl.BBox.ClampedOffsetFrom(blockX*BlockSize, blockY*BlockSize, BlockSize)
			if localBBox.IsEmpty() {
				continue
			}
			def, written, err := convertBlock(src, writer, recompressor, lvl.Zoom, blockX, blockY, localBBox, logger)
			if err != nil {
				return FileHeader{}, err
			}
			if def != nil {
				blockIndex.Add(*def)
				totalTileBytes += written
			}
		}
	}
	logger.Printf("converted %d blocks, %s of tile bytes", blockIndex.Len(), humanize.Bytes(totalTileBytes))

	blocksBlob, err := blockIndex.EncodeBrotli()
	if err != nil {
		return FileHeader{}, err
	}
	blocksRange, err := writer.Append(blocksBlob)
	if err != nil {
		return FileHeader{}, err
	}

	zoomMin, hasAny := plan.MinNonEmptyZoom()
	zoomMax, _ := plan.MaxNonEmptyZoom()
	if !hasAny {
		zoomMin, zoomMax = 0, 0
	}

	final := FileHeader{
		TileFormat:   dstFormat,
		Compression:  dstCompression,
		ZoomMin:      uint16(zoomMin),
		ZoomMax:      uint16(zoomMax),
		BBoxWest:     cfg.geoWest,
		BBoxSouth:    cfg.geoSouth,
		BBoxEast:     cfg.geoEast,
		BBoxNorth:    cfg.geoNorth,
		MetaOffset:   metaRange.Offset,
		MetaLength:   metaRange.Length,
		BlocksOffset: blocksRange.Offset,
	}
	if err := writer.WriteStart(NewBlob(final.Encode())); err != nil {
		return FileHeader{}, err
	}
	return final, nil
}

// convertBlock runs one Block Job: tiles within localBBox are recompressed in
// parallel by a work-stealing worker pool (errgroup + bounded semaphore),
// deduplicated per-block by content hash below dedupThreshold bytes, and
// appended under the writer's single-appender lock. Returns nil, 0, nil if
// the block ends up with no present tiles (no BlockDefinition is emitted).
func convertBlock(src Reader, writer *NativeWriter, recompressor DataConverter, zoom uint8, blockX, blockY uint32, localBBox TileBBox, logger *log.Logger) (*BlockDefinition, uint64, error) {
	coords := localBBox.Coords()
	tileIndex := NewTileIndex(len(coords))

	var dedupMu sync.Mutex
	dedup := make(map[uint64]ByteRange)

	var rangeMu sync.Mutex
	var minOffset, maxEnd uint64
	haveRange := false

	g, _ := errgroup.WithContext(context.Background())
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))

	for i, lc := range coords {
		i, lc := i, lc
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			absX := blockX*BlockSize + lc.X
			absY := blockY*BlockSize + lc.Y
			data, ok, err := src.GetTileData(TileCoord3{Z: zoom, X: absX, Y: absY})
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			recompressed, err := recompressor.Run(data)
			if err != nil {
				logger.Printf("tile (%d,%d,%d): recompression failed, dropping: %v", zoom, absX, absY, err)
				return nil
			}

			dedupable := recompressed.Len() < dedupThreshold
			var key uint64
			if dedupable {
				key = xxhash.Sum64(recompressed.Bytes())
				dedupMu.Lock()
				if rng, hit := dedup[key]; hit {
					dedupMu.Unlock()
					tileIndex.Set(i, rng)
					return nil
				}
			}

			// For a dedupable tile dedupMu is still held here, so a worker with
			// the same bytes waits for this append and then finds its range.
			rng, err := writer.Append(recompressed)
			if dedupable {
				if err == nil {
					dedup[key] = rng
				}
				dedupMu.Unlock()
			}
			if err != nil {
				return err
			}
			tileIndex.Set(i, rng)

			rangeMu.Lock()
			if !haveRange || rng.Offset < minOffset {
				minOffset = rng.Offset
			}
			if end := rng.Offset + rng.Length; !haveRange || end > maxEnd {
				maxEnd = end
			}
			haveRange = true
			rangeMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	if !tileIndex.AnyPresent() {
		return nil, 0, nil
	}

	idxBlob, err := tileIndex.EncodeBrotli()
	if err != nil {
		return nil, 0, err
	}
	idxRange, err := writer.Append(idxBlob)
	if err != nil {
		return nil, 0, err
	}

	def := &BlockDefinition{
		Z:          zoom,
		BlockX:     blockX,
		BlockY:     blockY,
		LocalBBox:  localBBox,
		TileRange:  ByteRange{Offset: minOffset, Length: maxEnd - minOffset},
		IndexRange: idxRange,
	}
	return def, maxEnd - minOffset, nil
}
