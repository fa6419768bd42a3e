package versatiles

// TileFormat is the encoding of an individual tile's contents.
type TileFormat uint8

const (
	FormatBIN TileFormat = iota
	FormatPNG
	FormatJPG
	FormatWEBP
	FormatAVIF
	FormatSVG
	FormatPBF
	FormatGEOJSON
	FormatTOPOJSON
	FormatJSON
)

// Compression is the byte-level compression applied to a tile or to index data.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBrotli
)

func (f TileFormat) String() string {
	switch f {
	case FormatBIN:
		return "BIN"
	case FormatPNG:
		return "PNG"
	case FormatJPG:
		return "JPG"
	case FormatWEBP:
		return "WEBP"
	case FormatAVIF:
		return "AVIF"
	case FormatSVG:
		return "SVG"
	case FormatPBF:
		return "PBF"
	case FormatGEOJSON:
		return "GEOJSON"
	case FormatTOPOJSON:
		return "TOPOJSON"
	case FormatJSON:
		return "JSON"
	default:
		return "UNKNOWN"
	}
}

// isVector reports whether a format carries vector/text data rather than a raster image.
func (f TileFormat) isVector() bool {
	switch f {
	case FormatPBF, FormatGEOJSON, FormatTOPOJSON, FormatJSON:
		return true
	default:
		return false
	}
}

// Extension returns the file-extension suffix (without compression suffix), e.g. ".png".
func (f TileFormat) Extension() string {
	switch f {
	case FormatBIN:
		return ".bin"
	case FormatPNG:
		return ".png"
	case FormatJPG:
		return ".jpg"
	case FormatWEBP:
		return ".webp"
	case FormatAVIF:
		return ".avif"
	case FormatSVG:
		return ".svg"
	case FormatPBF:
		return ".pbf"
	case FormatGEOJSON:
		return ".geojson"
	case FormatTOPOJSON:
		return ".topojson"
	case FormatJSON:
		return ".json"
	default:
		return ""
	}
}

// MimeType returns the MIME type associated with the tile format.
func (f TileFormat) MimeType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPG:
		return "image/jpeg"
	case FormatWEBP:
		return "image/webp"
	case FormatAVIF:
		return "image/avif"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPBF:
		return "application/x-protobuf"
	case FormatGEOJSON, FormatTOPOJSON, FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file-extension suffix for the compression, e.g. ".gz".
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionBrotli:
		return ".br"
	default:
		return ""
	}
}

// ContentEncoding returns the HTTP Content-Encoding header value, and whether one applies.
func (c Compression) ContentEncoding() (string, bool) {
	switch c {
	case CompressionGzip:
		return "gzip", true
	case CompressionBrotli:
		return "br", true
	default:
		return "", false
	}
}
