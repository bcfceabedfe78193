package remote

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const (
	DefaultMaxUploadSide = 1280
	DefaultJPEGQuality   = 85
)

// BoundUpload shrinks img so its longer side is at most maxSide, preserving
// aspect ratio. Smaller images are returned unchanged.
func BoundUpload(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

// EncodeUpload JPEG encodes img and returns the base64 payload along with
// the encoded byte size.
func EncodeUpload(img image.Image, quality int) (string, int, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", 0, fmt.Errorf("encode upload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), buf.Len(), nil
}
