package images

import (
	"errors"
	"image"
	"image/draw"

	"github.com/soocke/sensesafe-go/domain/detection"
)

// CropBox cuts the region of a normalized detection box out of frame, grown
// by pad pixels on every side. The rectangle is clamped to the frame and is
// at least 1x1. Returns the crop (always *image.RGBA, origin 0,0) and the
// rectangle relative to frame.
func CropBox(frame image.Image, box detection.DetectionBox, pad int) (*image.RGBA, image.Rectangle, error) {
	if frame == nil {
		return nil, image.Rectangle{}, errors.New("nil frame")
	}
	b := frame.Bounds()
	if b.Empty() {
		return nil, image.Rectangle{}, errors.New("empty frame")
	}
	box = box.Clamp()
	pad = max(pad, 0)
	x0 := b.Min.X + int(box.X1*float64(b.Dx())) - pad
	y0 := b.Min.Y + int(box.Y1*float64(b.Dy())) - pad
	x1 := b.Min.X + int(box.X2*float64(b.Dx())+0.5) + pad
	y1 := b.Min.Y + int(box.Y2*float64(b.Dy())+0.5) + pad
	r := image.Rect(x0, y0, x1, y1).Intersect(b)
	if r.Empty() {
		x := min(max(x0, b.Min.X), b.Max.X-1)
		y := min(max(y0, b.Min.Y), b.Max.Y-1)
		r = image.Rect(x, y, x+1, y+1)
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), frame, r.Min, draw.Src)
	return out, r, nil
}
