package versatiles

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gen2brain/webp"
	"github.com/klauspost/compress/gzip"
)

// jpegQuality is the quality used by every lossy JPEG encode stage.
const jpegQuality = 85

// webpQuality is the quality used by every lossy WEBP encode stage.
const webpQuality = 85

// StageFn is a pure Blob transform, the unit of composition for a DataConverter.
type StageFn func(Blob) (Blob, error)

// Stage is a named StageFn; the name is what DataConverter equality compares.
type Stage struct {
	Name  string
	Apply StageFn
}

// DataConverter is an ordered sequence of named pure Blob->Blob stages.
// Equality is defined by the stage-name sequence, not by stage identity,
// so two independently constructed pipelines with the same plan compare equal.
type DataConverter struct {
	Stages []Stage
}

// Description joins the stage names with ", ", e.g. "decompress_gzip, PNG->JPG, compress_brotli".
func (c DataConverter) Description() string {
	names := make([]string, len(c.Stages))
	for i, s := range c.Stages {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

// Equal compares two converters by their stage-name sequence.
func (c DataConverter) Equal(other DataConverter) bool {
	return c.Description() == other.Description()
}

// Empty reports whether the pipeline has no stages (pure passthrough).
func (c DataConverter) Empty() bool {
	return len(c.Stages) == 0
}

// Run applies every stage in order, short-circuiting on the first error.
func (c DataConverter) Run(b Blob) (Blob, error) {
	var err error
	for _, s := range c.Stages {
		b, err = s.Apply(b)
		if err != nil {
			return Blob{}, err
		}
	}
	return b, nil
}

func compressGzipStage(b Blob) (Blob, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b.Bytes()); err != nil {
		return Blob{}, newErr(ErrCodec, "gzip compress", err)
	}
	if err := w.Close(); err != nil {
		return Blob{}, newErr(ErrCodec, "gzip compress close", err)
	}
	return NewBlob(buf.Bytes()), nil
}

func decompressGzipStage(b Blob) (Blob, error) {
	r, err := gzip.NewReader(bytes.NewReader(b.Bytes()))
	if err != nil {
		return Blob{}, newErr(ErrCodec, "gzip decompress open", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return Blob{}, newErr(ErrCodec, "gzip decompress read", err)
	}
	return NewBlob(out), nil
}

func compressBrotliStage(b Blob) (Blob, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(b.Bytes()); err != nil {
		return Blob{}, newErr(ErrCodec, "brotli compress", err)
	}
	if err := w.Close(); err != nil {
		return Blob{}, newErr(ErrCodec, "brotli compress close", err)
	}
	return NewBlob(buf.Bytes()), nil
}

func decompressBrotliStage(b Blob) (Blob, error) {
	r := brotli.NewReader(bytes.NewReader(b.Bytes()))
	out, err := io.ReadAll(r)
	if err != nil {
		return Blob{}, newErr(ErrCodec, "brotli decompress", err)
	}
	return NewBlob(out), nil
}

// Compressor builds a DataConverter that compresses to dst, empty if dst is None.
func Compressor(dst Compression) DataConverter {
	switch dst {
	case CompressionGzip:
		return DataConverter{Stages: []Stage{{Name: "compress_gzip", Apply: compressGzipStage}}}
	case CompressionBrotli:
		return DataConverter{Stages: []Stage{{Name: "compress_brotli", Apply: compressBrotliStage}}}
	default:
		return DataConverter{}
	}
}

// Decompressor builds a DataConverter that decompresses from src, empty if src is None.
func Decompressor(src Compression) DataConverter {
	switch src {
	case CompressionGzip:
		return DataConverter{Stages: []Stage{{Name: "decompress_gzip", Apply: decompressGzipStage}}}
	case CompressionBrotli:
		return DataConverter{Stages: []Stage{{Name: "decompress_brotli", Apply: decompressBrotliStage}}}
	default:
		return DataConverter{}
	}
}

// decodeImage decodes an encoded tile to an in-memory bitmap. Only the raster
// formats with a grounded decode library are supported: PNG and JPEG via the
// standard library, WEBP via github.com/gen2brain/webp.
func decodeImage(form TileFormat, b Blob) (image.Image, error) {
	r := bytes.NewReader(b.Bytes())
	switch form {
	case FormatPNG:
		img, err := png.Decode(r)
		if err != nil {
			return nil, newErr(ErrCodec, "png decode", err)
		}
		return img, nil
	case FormatJPG:
		img, err := jpeg.Decode(r)
		if err != nil {
			return nil, newErr(ErrCodec, "jpeg decode", err)
		}
		return img, nil
	case FormatWEBP:
		img, err := webp.Decode(r)
		if err != nil {
			return nil, newErr(ErrCodec, "webp decode", err)
		}
		return img, nil
	default:
		return nil, newErr(ErrUnsupportedConversion, fmt.Sprintf("no decoder for %s", form), nil)
	}
}

// encodeImage encodes a bitmap to dst. PNG and JPEG always work via the
// standard library; WEBP encodes via libwebp through CGo (webp_cgo.go) when
// the build has CGO_ENABLED=1, and reports ErrUnsupportedConversion
// otherwise (webp_nocgo.go) rather than through gen2brain/webp, which only
// exposes Decode.
func encodeImage(form TileFormat, img image.Image) (Blob, error) {
	var buf bytes.Buffer
	switch form {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return Blob{}, newErr(ErrCodec, "png encode", err)
		}
	case FormatJPG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return Blob{}, newErr(ErrCodec, "jpeg encode", err)
		}
	case FormatWEBP:
		data, err := encodeWebPBytes(img, webpQuality)
		if err != nil {
			return Blob{}, err
		}
		return NewBlob(data), nil
	default:
		return Blob{}, newErr(ErrUnsupportedConversion, fmt.Sprintf("no encoder for %s", form), nil)
	}
	return NewBlob(buf.Bytes()), nil
}

// transcodeStage builds the decode/encode round-trip stage between two raster formats.
func transcodeStage(src, dst TileFormat) (Stage, error) {
	name := fmt.Sprintf("%s->%s", src, dst)
	return Stage{
		Name: name,
		Apply: func(b Blob) (Blob, error) {
			img, err := decodeImage(src, b)
			if err != nil {
				return Blob{}, err
			}
			return encodeImage(dst, img)
		},
	}, nil
}

// TileRecompressor builds the minimal stage list implementing a recompression
// plan: (decompress src) -> (format transcode, if needed) -> (compress dst).
// When src and dst formats and compressions both match and force is false,
// the returned pipeline is empty. Vector formats (PBF, GeoJSON, TopoJSON,
// JSON) never transcode between distinct formats.
func TileRecompressor(srcForm TileFormat, srcComp Compression, dstForm TileFormat, dstComp Compression, force bool) (DataConverter, error) {
	if !force && srcForm == dstForm && srcComp == dstComp {
		return DataConverter{}, nil
	}

	var stages []Stage
	stages = append(stages, Decompressor(srcComp).Stages...)

	needsTranscode := srcForm != dstForm || force
	if needsTranscode {
		if srcForm.isVector() || dstForm.isVector() {
			if srcForm != dstForm {
				return DataConverter{}, newErr(ErrUnsupportedConversion,
					fmt.Sprintf("cannot transcode vector format %s to %s", srcForm, dstForm), nil)
			}
			// Same vector format forced "recompress": bytes pass through untouched,
			// only the surrounding (de)compression stages apply.
		} else {
			stage, err := transcodeStage(srcForm, dstForm)
			if err != nil {
				return DataConverter{}, err
			}
			stages = append(stages, stage)
		}
	}

	stages = append(stages, Compressor(dstComp).Stages...)
	return DataConverter{Stages: stages}, nil
}
