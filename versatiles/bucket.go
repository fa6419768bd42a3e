package versatiles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
)

// HTTPDataSource is a DataSource backed by HTTP range requests against a
// single origin, per the spec's "single file or single HTTP origin" scope.
type HTTPDataSource struct {
	url     string
	client  *http.Client
	metrics *ServerMetrics
	archive string
}

// OpenHTTPDataSource targets url, using http.DefaultClient.
func OpenHTTPDataSource(url string) *HTTPDataSource {
	return &HTTPDataSource{url: url, client: http.DefaultClient}
}

// SetMetrics wires the bucket request duration histogram under archive; a
// nil metrics disables recording.
func (s *HTTPDataSource) SetMetrics(m *ServerMetrics, archive string) {
	s.metrics = m
	s.archive = archive
}

func (s *HTTPDataSource) Read(offset, length uint64) (Blob, error) {
	start := time.Now()
	data, err := s.doRead(offset, length)
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.observeBucketRequest(s.archive, status, time.Since(start))
	}
	return data, err
}

func (s *HTTPDataSource) doRead(offset, length uint64) (Blob, error) {
	req, err := http.NewRequest(http.MethodGet, s.url, nil)
	if err != nil {
		return Blob{}, newErr(ErrIO, "building range request", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))
	resp, err := s.client.Do(req)
	if err != nil {
		return Blob{}, newErr(ErrIO, "performing range request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return Blob{}, newErr(ErrIO, fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Blob{}, newErr(ErrIO, "reading range response body", err)
	}
	return NewBlob(data), nil
}

func (s *HTTPDataSource) Size() (uint64, error) {
	req, err := http.NewRequest(http.MethodHead, s.url, nil)
	if err != nil {
		return 0, newErr(ErrIO, "building HEAD request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, newErr(ErrIO, "performing HEAD request", err)
	}
	defer resp.Body.Close()
	if resp.ContentLength < 0 {
		return 0, newErr(ErrIO, "origin did not report Content-Length", nil)
	}
	return uint64(resp.ContentLength), nil
}

// BlobDataSource adapts a gocloud.dev/blob.Bucket object to DataSource. Only
// the fileblob driver is wired in (blank-imported above); other drivers
// (s3/gcs/azure) are out of scope per the Non-goal excluding
// network-distributed storage.
type BlobDataSource struct {
	ctx     context.Context
	bucket  *blob.Bucket
	key     string
	metrics *ServerMetrics
	archive string
}

// OpenBlobDataSource opens bucketURL (e.g. "file:///data/tiles") via
// gocloud.dev/blob and targets key within it.
func OpenBlobDataSource(ctx context.Context, bucketURL, key string) (*BlobDataSource, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, newErr(ErrIO, "opening bucket "+bucketURL, err)
	}
	return &BlobDataSource{ctx: ctx, bucket: bucket, key: key}, nil
}

// SetMetrics wires the bucket request duration histogram under archive; a
// nil metrics disables recording.
func (s *BlobDataSource) SetMetrics(m *ServerMetrics, archive string) {
	s.metrics = m
	s.archive = archive
}

func (s *BlobDataSource) Read(offset, length uint64) (Blob, error) {
	start := time.Now()
	data, err := s.doRead(offset, length)
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.observeBucketRequest(s.archive, status, time.Since(start))
	}
	return data, err
}

func (s *BlobDataSource) doRead(offset, length uint64) (Blob, error) {
	r, err := s.bucket.NewRangeReader(s.ctx, s.key, int64(offset), int64(length), nil)
	if err != nil {
		return Blob{}, newErr(ErrIO, "opening bucket range reader", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return Blob{}, newErr(ErrIO, "reading bucket range", err)
	}
	if uint64(len(data)) != length {
		return Blob{}, newErr(ErrIO, fmt.Sprintf("short bucket range read: got %d of %d bytes", len(data), length), nil)
	}
	return NewBlob(data), nil
}

func (s *BlobDataSource) Size() (uint64, error) {
	attrs, err := s.bucket.Attributes(s.ctx, s.key)
	if err != nil {
		return 0, newErr(ErrIO, "reading bucket object attributes", err)
	}
	return uint64(attrs.Size), nil
}

// Close releases the underlying bucket handle.
func (s *BlobDataSource) Close() error {
	return s.bucket.Close()
}
