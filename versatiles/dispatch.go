package versatiles

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// GetReader opens uri and returns the Reader adapter matching its scheme/
// extension: "http://"/"https://" -> native container over an HTTP range
// transport; ".versatiles" -> native container over gocloud.dev/blob's
// fileblob driver; ".tar" -> the tar adapter; ".mbtiles" -> the legacy
// SQLite adapter.
func GetReader(uri string) (Reader, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		source := OpenHTTPDataSource(uri)
		return OpenNativeReader(source)
	}

	switch strings.ToLower(filepath.Ext(uri)) {
	case ".versatiles":
		source, err := openLocalBlobDataSource(uri)
		if err != nil {
			return nil, err
		}
		return OpenNativeReader(source)
	case ".tar":
		f, err := os.Open(uri)
		if err != nil {
			return nil, newErr(ErrIO, "opening tar file "+uri, err)
		}
		defer f.Close()
		return OpenTarReader(f)
	case ".mbtiles":
		return OpenMBTilesReader(uri)
	default:
		return nil, newErr(ErrIO, "no reader adapter for "+uri, nil)
	}
}

// openLocalBlobDataSource opens path's containing directory as a fileblob
// bucket and targets path's base name within it, so local ".versatiles"
// reads go through the same gocloud.dev/blob surface as any other bucket
// driver rather than a bespoke os.File path.
func openLocalBlobDataSource(path string) (*BlobDataSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, newErr(ErrIO, "resolving absolute path for "+path, err)
	}
	dir, key := filepath.Dir(abs), filepath.Base(abs)
	return OpenBlobDataSource(context.Background(), "file://"+filepath.ToSlash(dir), key)
}

// GetWriter opens (creating/truncating) uri as a native container writer.
// Only the ".versatiles" extension is supported: the writer contract in §4.3
// is specific to the native append-only format, not the plug-in adapters.
func GetWriter(uri string) (*NativeWriter, error) {
	switch strings.ToLower(filepath.Ext(uri)) {
	case ".versatiles":
		sink, err := OpenFileSink(uri)
		if err != nil {
			return nil, err
		}
		return NewNativeWriter(sink), nil
	default:
		return nil, newErr(ErrIO, "no writer adapter for "+uri, nil)
	}
}
