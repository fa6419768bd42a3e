package versatiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNativeWriterAppendAdvancesCursor(t *testing.T) {
	w := NewNativeWriter(&memSink{})
	r1, err := w.Append(NewBlob([]byte("hello")))
	assert.Nil(t, err)
	assert.Equal(t, ByteRange{Offset: 0, Length: 5}, r1)

	r2, err := w.Append(NewBlob([]byte("!!")))
	assert.Nil(t, err)
	assert.Equal(t, ByteRange{Offset: 5, Length: 2}, r2)

	assert.Equal(t, uint64(7), w.Cursor())
}

func TestNativeWriterWriteStartOverwritesHeader(t *testing.T) {
	sink := &memSink{}
	w := NewNativeWriter(sink)
	_, err := w.Append(NewBlob([]byte("0123456789")))
	assert.Nil(t, err)

	err = w.WriteStart(NewBlob([]byte("ABCDE")))
	assert.Nil(t, err)
	assert.Equal(t, []byte("ABCDE56789"), sink.bytes())
}
