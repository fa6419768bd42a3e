package versatiles

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// AssetReader is implemented by adapters (TarReader) that carry non-tile
// entries alongside the tile pyramid, for the "optional UI" static-asset path.
type AssetReader interface {
	Asset(name string) (Blob, bool)
}

var tileRequestPattern = regexp.MustCompile(`^/tiles/([^/]+)/(\d+)/(\d+)/(\d+)(?:\.[A-Za-z0-9]+)?$`)

// TileServer maps HTTP tile requests to bytes for one or more named sources,
// per §4.6: resolve the source reader, serve in the client's accepted
// encoding when possible, otherwise decompress and re-encode.
type TileServer struct {
	mu      sync.RWMutex
	sources map[string]Reader
	metrics *ServerMetrics
	logger  *log.Logger
}

// NewTileServer returns an empty server; sources are registered with AddSource.
func NewTileServer(logger *log.Logger) *TileServer {
	if logger == nil {
		logger = log.Default()
	}
	return &TileServer{
		sources: make(map[string]Reader),
		metrics: NewServerMetrics("server", logger),
		logger:  logger,
	}
}

// AddSource registers a reader under name, as served at /tiles/{name}/{z}/{x}/{y}.
// If r reports cache/bucket metrics (currently only *NativeReader), they are
// wired to this server's ServerMetrics under name.
func (s *TileServer) AddSource(name string, r Reader) {
	if nr, ok := r.(*NativeReader); ok {
		nr.SetMetrics(s.metrics, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = r
}

func (s *TileServer) source(name string) (Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.sources[name]
	return r, ok
}

// parseAcceptEncoding turns an Accept-Encoding header into an acceptance set.
// Identity (CompressionNone) is always accepted: a client with no header, or
// one naming only encodings we can't produce, can still receive raw bytes.
func parseAcceptEncoding(header string) map[Compression]bool {
	accepted := map[Compression]bool{CompressionNone: true}
	for _, tok := range strings.Split(header, ",") {
		switch strings.TrimSpace(strings.SplitN(tok, ";", 2)[0]) {
		case "gzip":
			accepted[CompressionGzip] = true
		case "br":
			accepted[CompressionBrotli] = true
		}
	}
	return accepted
}

// negotiateEncoding implements §4.6 steps 2-3: serve raw bytes if the
// source's own compression is accepted, otherwise decompress and re-encode
// to the most preferred accepted encoding (brotli > gzip > none).
func negotiateEncoding(data Blob, srcComp Compression, accepted map[Compression]bool) (Blob, Compression, error) {
	if accepted[srcComp] {
		return data, srcComp, nil
	}
	raw, err := Decompressor(srcComp).Run(data)
	if err != nil {
		return Blob{}, CompressionNone, err
	}
	for _, c := range []Compression{CompressionBrotli, CompressionGzip, CompressionNone} {
		if accepted[c] {
			encoded, err := Compressor(c).Run(raw)
			if err != nil {
				return Blob{}, CompressionNone, err
			}
			return encoded, c, nil
		}
	}
	return raw, CompressionNone, nil
}

// ResolveTile runs the full §4.6 lookup-and-negotiate pipeline against one
// reader, independent of HTTP framing, so it can be exercised directly in tests.
func ResolveTile(source Reader, coord TileCoord3, acceptEncodingHeader string) (data Blob, contentType, contentEncoding string, found bool, err error) {
	raw, ok, err := source.GetTileData(coord)
	if err != nil {
		return Blob{}, "", "", false, err
	}
	if !ok {
		return Blob{}, "", "", false, nil
	}
	params := source.GetParameters()
	accepted := parseAcceptEncoding(acceptEncodingHeader)
	encoded, comp, err := negotiateEncoding(raw, params.Compression, accepted)
	if err != nil {
		return Blob{}, "", "", false, err
	}
	enc, _ := comp.ContentEncoding()
	return encoded, params.TileFormat.MimeType(), enc, true, nil
}

func (s *TileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m := tileRequestPattern.FindStringSubmatch(r.URL.Path)
	if m == nil {
		s.serveAsset(w, r)
		return
	}
	name := m[1]
	z, _ := strconv.Atoi(m[2])
	x, _ := strconv.Atoi(m[3])
	y, _ := strconv.Atoi(m[4])

	tracker := s.metrics.startRequest()
	source, ok := s.source(name)
	if !ok {
		tracker.finish(name, "404")
		http.NotFound(w, r)
		return
	}

	coord := TileCoord3{Z: uint8(z), X: uint32(x), Y: uint32(y)}
	data, contentType, contentEncoding, found, err := ResolveTile(source, coord, r.Header.Get("Accept-Encoding"))
	if err != nil {
		var verr *Error
		if errors.As(err, &verr) && verr.Kind == ErrInvalidCoord {
			tracker.finish(name, "400")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tracker.finish(name, "500")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		tracker.finish(name, "404")
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if contentEncoding != "" {
		w.Header().Set("Content-Encoding", contentEncoding)
	}
	tracker.finish(name, "200")
	w.Write(data.Bytes())
}

// serveAsset handles "/{name}/{path}" for sources that carry static assets
// alongside their tile pyramid (the tar adapter's "optional UI" entries).
func (s *TileServer) serveAsset(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	source, ok := s.source(parts[0])
	if !ok {
		http.NotFound(w, r)
		return
	}
	assetSource, ok := source.(AssetReader)
	if !ok {
		http.NotFound(w, r)
		return
	}
	blob, ok := assetSource.Asset(parts[1])
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write(blob.Bytes())
}
