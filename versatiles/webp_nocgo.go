//go:build !cgo

package versatiles

import "image"

// webpCGOAvailable is false in builds with CGO_ENABLED=0: no pure-Go WEBP
// encoder is grounded in the pack (gen2brain/webp exposes decode only), so
// WEBP encoding falls back to libwebp via CGo and is unavailable here.
const webpCGOAvailable = false

func encodeWebPBytes(img image.Image, quality int) ([]byte, error) {
	return nil, newErr(ErrUnsupportedConversion, "webp encode requires CGO_ENABLED=1 and libwebp (libwebp-dev)", nil)
}
