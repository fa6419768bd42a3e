package versatiles

// Blob is an owned, immutable byte buffer. Cloning a Blob only copies the
// slice header (pointer/len/cap); the underlying array is shared, which is
// safe because a Blob is never mutated after construction.
type Blob struct {
	data []byte
}

// NewBlob wraps b without copying. Callers must not mutate b afterwards.
func NewBlob(b []byte) Blob {
	return Blob{data: b}
}

// Bytes returns the underlying byte slice. Callers must treat it as read-only.
func (b Blob) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes in the blob.
func (b Blob) Len() int {
	return len(b.data)
}

// Clone returns a Blob sharing the same backing array as b.
func (b Blob) Clone() Blob {
	return b
}

// Slice returns the sub-blob [i:j), sharing the backing array.
func (b Blob) Slice(i, j int) Blob {
	return Blob{data: b.data[i:j]}
}
