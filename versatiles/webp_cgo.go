//go:build cgo

package versatiles

/*
#cgo pkg-config: libwebp
#include <stdlib.h>
#include <webp/encode.h>
*/
import "C"
import (
	"image"
	"image/draw"
	"unsafe"
)

// webpCGOAvailable reports whether encodeWebPBytes can actually encode, so
// callers can give a clearer error than a late pkg-config link failure.
const webpCGOAvailable = true

// encodeWebPBytes lossy-encodes img via native libwebp, the same
// WebPEncodeRGBA binding the pack's geotiff2pmtiles encoder uses.
func encodeWebPBytes(img image.Image, quality int) ([]byte, error) {
	rgba := imageToRGBA(img)
	bounds := rgba.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, newErr(ErrCodec, "webp encode: empty image", nil)
	}

	var output *C.uint8_t
	size := C.WebPEncodeRGBA(
		(*C.uint8_t)(unsafe.Pointer(&rgba.Pix[0])),
		C.int(width),
		C.int(height),
		C.int(rgba.Stride),
		C.float(quality),
		&output,
	)
	if size == 0 || output == nil {
		return nil, newErr(ErrCodec, "webp encode: WebPEncodeRGBA failed", nil)
	}
	defer C.WebPFree(unsafe.Pointer(output))

	return C.GoBytes(unsafe.Pointer(output), C.int(size)), nil
}

func imageToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}
