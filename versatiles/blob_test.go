package versatiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlobBasics(t *testing.T) {
	b := NewBlob([]byte("hello"))
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, []byte("hello"), b.Bytes())
}

func TestBlobSliceSharesBackingArray(t *testing.T) {
	data := []byte("hello world")
	b := NewBlob(data)
	sub := b.Slice(6, 11)
	assert.Equal(t, []byte("world"), sub.Bytes())

	data[6] = 'W'
	assert.Equal(t, byte('W'), sub.Bytes()[0])
}

func TestBlobClone(t *testing.T) {
	b := NewBlob([]byte("abc"))
	c := b.Clone()
	assert.Equal(t, b.Bytes(), c.Bytes())
}
