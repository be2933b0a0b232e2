package Storage

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// MaxPhotoDimension bounds the longer side of a stored photo.
const MaxPhotoDimension = 1600

// IsImage reports whether contentType is an image mime type.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// DecodeImage decodes any registered format and applies the EXIF orientation.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// NormalizeImage rotates a phone photo upright, scales it down to
// MaxPhotoDimension and re-encodes it as JPEG.
func NormalizeImage(data []byte) ([]byte, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() > MaxPhotoDimension || b.Dy() > MaxPhotoDimension {
		img = imaging.Fit(img, MaxPhotoDimension, MaxPhotoDimension, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
