package versatiles

import "encoding/binary"

// Magic is the 14-byte ASCII tag at the start of every native container file.
const Magic = "versatiles_v02"

// HeaderLen is the fixed size in bytes of the FileHeader record.
const HeaderLen = 62

// ByteRange is a (offset, length) pair within the container file.
// Length == 0 denotes an absent range.
type ByteRange struct {
	Offset uint64
	Length uint64
}

// Empty reports whether r denotes an absent range.
func (r ByteRange) Empty() bool {
	return r.Length == 0
}

// FileHeader is the fixed 62-byte record at offset 0 of a native container.
type FileHeader struct {
	TileFormat   TileFormat
	Compression  Compression
	ZoomMin      uint16
	ZoomMax      uint16
	BBoxWest     int32 // micro-degrees (value * 1e7)
	BBoxSouth    int32
	BBoxEast     int32
	BBoxNorth    int32
	MetaOffset   uint64
	MetaLength   uint64
	BlocksOffset uint64
}

// Encode serializes h into the bit-exact 62-byte layout.
func (h FileHeader) Encode() []byte {
	buf := make([]byte, HeaderLen)
	copy(buf[0:14], Magic)
	buf[14] = byte(h.TileFormat)
	buf[15] = byte(h.Compression)
	binary.BigEndian.PutUint16(buf[16:18], h.ZoomMin)
	binary.BigEndian.PutUint16(buf[18:20], h.ZoomMax)
	binary.BigEndian.PutUint32(buf[20:24], uint32(h.BBoxWest))
	binary.BigEndian.PutUint32(buf[24:28], uint32(h.BBoxSouth))
	binary.BigEndian.PutUint32(buf[28:32], uint32(h.BBoxEast))
	binary.BigEndian.PutUint32(buf[32:36], uint32(h.BBoxNorth))
	binary.BigEndian.PutUint64(buf[36:44], h.MetaOffset)
	binary.BigEndian.PutUint64(buf[44:52], h.MetaLength)
	binary.BigEndian.PutUint64(buf[52:60], h.BlocksOffset)
	// buf[60:62] stays zero: reserved.
	return buf
}

// DecodeFileHeader parses a 62-byte buffer into a FileHeader, validating the
// magic and length per spec.
func DecodeFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) < HeaderLen {
		return FileHeader{}, newErr(ErrTruncatedHeader, "file shorter than header length", nil)
	}
	if string(buf[0:14]) != Magic {
		return FileHeader{}, newErr(ErrBadMagic, "magic bytes do not match", nil)
	}
	h := FileHeader{
		TileFormat:   TileFormat(buf[14]),
		Compression:  Compression(buf[15]),
		ZoomMin:      binary.BigEndian.Uint16(buf[16:18]),
		ZoomMax:      binary.BigEndian.Uint16(buf[18:20]),
		BBoxWest:     int32(binary.BigEndian.Uint32(buf[20:24])),
		BBoxSouth:    int32(binary.BigEndian.Uint32(buf[24:28])),
		BBoxEast:     int32(binary.BigEndian.Uint32(buf[28:32])),
		BBoxNorth:    int32(binary.BigEndian.Uint32(buf[32:36])),
		MetaOffset:   binary.BigEndian.Uint64(buf[36:44]),
		MetaLength:   binary.BigEndian.Uint64(buf[44:52]),
		BlocksOffset: binary.BigEndian.Uint64(buf[52:60]),
	}
	return h, nil
}

// MetaRange returns the header's metadata ByteRange.
func (h FileHeader) MetaRange() ByteRange {
	return ByteRange{Offset: h.MetaOffset, Length: h.MetaLength}
}
