// Package imagefmt classifies image assets by their leading bytes and
// prepares them for embedding in a PDF.
//
// PDF writers accept JPEG and 8-bit, non-interlaced PNG directly. GIF, WebP,
// BMP, TIFF and the remaining PNG variants are decoded and re-encoded as
// 8-bit PNG so that they can be embedded too. Everything
// else is rejected with ErrUnsupportedImage instead of being guessed at.
package imagefmt

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned for bytes that are not a recognized image.
var ErrUnsupportedImage = errors.New("imagefmt: unsupported image format")

// Format identifies an image encoding.
type Format string

// Recognized formats.
const (
	Unknown Format = ""
	PNG     Format = "png"
	JPEG    Format = "jpeg"
	GIF     Format = "gif"
	WebP    Format = "webp"
	BMP     Format = "bmp"
	TIFF    Format = "tiff"
)

// Detect classifies data by its magic bytes.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return JPEG
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return GIF
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return WebP
	case bytes.HasPrefix(data, []byte("BM")):
		return BMP
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return TIFF
	}
	return Unknown
}

// Embeddable is an image ready to be registered with a PDF writer.
type Embeddable struct {
	Source Format // format the asset arrived in
	Type   string // PDF writer image type: "PNG" or "JPG"
	Data   []byte
}

// Prepare classifies data and returns it in a form a PDF writer accepts.
// JPEG and embeddable PNG are passed through untouched; other recognized
// formats are transcoded to PNG.
func Prepare(data []byte) (Embeddable, error) {
	format := Detect(data)
	switch format {
	case PNG:
		if embeddablePNG(data) {
			return Embeddable{Source: format, Type: "PNG", Data: data}, nil
		}
	case JPEG:
		return Embeddable{Source: format, Type: "JPG", Data: data}, nil
	case Unknown:
		return Embeddable{}, ErrUnsupportedImage
	}

	img, err := decode(format, data)
	if err != nil {
		return Embeddable{}, fmt.Errorf("imagefmt: decoding %s: %w", format, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Embeddable{}, fmt.Errorf("imagefmt: encoding png: %w", err)
	}
	return Embeddable{Source: format, Type: "PNG", Data: buf.Bytes()}, nil
}

// PNG header offsets: 8-byte signature, IHDR length and type, width and
// height, then bit depth, color type, compression, filter and interlace.
const (
	pngBitDepth  = 24
	pngInterlace = 28
)

// embeddablePNG reports whether data is a PNG the PDF writer can embed as
// is: at most 8 bits per channel and no interlacing.
func embeddablePNG(data []byte) bool {
	if len(data) <= pngInterlace || string(data[12:16]) != "IHDR" {
		return false
	}
	return data[pngBitDepth] <= 8 && data[pngInterlace] == 0
}

func decode(format Format, data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case PNG:
		img, err := png.Decode(r)
		if err != nil {
			return nil, err
		}
		// png.Encode keeps 16-bit models at 16 bits.
		dst := image.NewNRGBA(img.Bounds())
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return dst, nil
	case GIF:
		return gif.Decode(r)
	case WebP:
		return webp.Decode(r)
	case BMP:
		return bmp.Decode(r)
	case TIFF:
		return tiff.Decode(r)
	}
	return nil, ErrUnsupportedImage
}
