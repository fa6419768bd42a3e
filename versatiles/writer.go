package versatiles

import (
	"io"
	"os"
	"sync"
)

// Sink is the append-only target a NativeWriter writes to; *os.File satisfies
// it, as does any io.WriterAt + io.Writer combination.
type Sink interface {
	io.WriterAt
	io.Writer
}

// NativeWriter is the append-only writer for one conversion. append() is
// serialized by a single lock, the only global mutation point during a
// conversion (§5 "Writer: one appender").
type NativeWriter struct {
	sink   Sink
	mu     sync.Mutex
	cursor uint64
}

// NewNativeWriter wraps sink, assuming it is currently empty (cursor at 0).
func NewNativeWriter(sink Sink) *NativeWriter {
	return &NativeWriter{sink: sink}
}

// Append writes b at the current cursor and advances it, returning the
// ByteRange it was written to. Safe for concurrent callers.
func (w *NativeWriter) Append(b Blob) (ByteRange, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	offset := w.cursor
	if _, err := w.sink.Write(b.Bytes()); err != nil {
		return ByteRange{}, newErr(ErrIO, "appending to writer", err)
	}
	w.cursor += uint64(b.Len())
	return ByteRange{Offset: offset, Length: uint64(b.Len())}, nil
}

// WriteStart overwrites bytes [0, b.Len()) in place, used to rewrite the
// header with its final ranges (the placeholder header is written by Append).
func (w *NativeWriter) WriteStart(b Blob) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.sink.WriteAt(b.Bytes(), 0); err != nil {
		return newErr(ErrIO, "rewriting file header", err)
	}
	return nil
}

// Cursor returns the current append offset.
func (w *NativeWriter) Cursor() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cursor
}

// OpenFileSink creates (or truncates) a file at path for use as a NativeWriter sink.
func OpenFileSink(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, newErr(ErrIO, "creating output file", err)
	}
	return f, nil
}
