package images

import (
	"bytes"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// EncodePNG encodes an image to PNG bytes. Errors are ignored and may return an empty slice.
func EncodePNG(img image.Image) []byte {
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// FitSize returns the largest w x h within maxW x maxH keeping the aspect
// ratio of src, and the factor applied. Sources that already fit keep their size.
func FitSize(src image.Rectangle, maxW, maxH int) (w, h int, factor float64) {
	w, h = src.Dx(), src.Dy()
	if w <= 0 || h <= 0 {
		return 0, 0, 0
	}
	if w <= maxW && h <= maxH {
		return w, h, 1
	}
	maxW, maxH = max(maxW, 1), max(maxH, 1)
	factor = min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	w = max(int(float64(w)*factor+0.5), 1)
	h = max(int(float64(h)*factor+0.5), 1)
	return w, h, factor
}

// ScaleToFit scales src so that it fits within maxW x maxH preserving aspect
// ratio. If the source already fits, the original is returned.
func ScaleToFit(src image.Image, maxW, maxH int) image.Image {
	if src == nil {
		return nil
	}
	w, h, factor := FitSize(src.Bounds(), maxW, maxH)
	if factor == 1 || w == 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
