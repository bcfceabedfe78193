package images

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/soocke/sensesafe-go/domain/detection"
)

const boxStroke = 2

// Overlay colors. Yellow on black stays readable for low-vision users.
var (
	BoxColor   = color.RGBA{R: 0xff, G: 0xd6, B: 0x00, A: 0xff}
	LabelInk   = color.RGBA{A: 0xff}
	LocalColor = color.RGBA{R: 0x00, G: 0xe6, B: 0x76, A: 0xff}
)

// toRGBA returns a copy of src with origin 0,0.
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// strokeRect outlines r on dst, clipped to dst bounds.
func strokeRect(dst *image.RGBA, r image.Rectangle, c color.Color, width int) {
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), u, image.Point{}, draw.Src)
	}
}

// drawLabel writes text on a filled tag above the top-left corner of r, or
// inside it when there is no room above.
func drawLabel(dst *image.RGBA, r image.Rectangle, text string, bg color.Color) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil() + 4
	h := face.Metrics().Height.Ceil() + 2
	top := r.Min.Y - h
	if top < dst.Bounds().Min.Y {
		top = r.Min.Y
	}
	tag := image.Rect(r.Min.X, top, r.Min.X+w, top+h).Intersect(dst.Bounds())
	draw.Draw(dst, tag, image.NewUniform(bg), image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(LabelInk),
		Face: face,
		Dot:  fixed.P(r.Min.X+2, top+face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(text)
}

// DrawRenderBoxes returns a copy of src with each box outlined and labelled
// with its label and confidence. Boxes are in pixels of src.
func DrawRenderBoxes(src image.Image, boxes []detection.RenderBox) *image.RGBA {
	if src == nil {
		return nil
	}
	dst := toRGBA(src)
	for _, b := range boxes {
		r := image.Rect(int(b.Left), int(b.Top), int(b.Left+b.Width+0.5), int(b.Top+b.Height+0.5))
		if r.Empty() {
			continue
		}
		strokeRect(dst, r, BoxColor, boxStroke)
		drawLabel(dst, r, fmt.Sprintf("%s %.0f%%", b.Label, b.Confidence*100), BoxColor)
	}
	return dst
}

// DrawDetectionBoxes outlines normalized local classifier boxes on a copy of src.
func DrawDetectionBoxes(src image.Image, boxes []detection.DetectionBox) *image.RGBA {
	if src == nil {
		return nil
	}
	dst := toRGBA(src)
	w, h := float64(dst.Bounds().Dx()), float64(dst.Bounds().Dy())
	for _, b := range boxes {
		b = b.Clamp()
		r := image.Rect(int(b.X1*w), int(b.Y1*h), int(b.X2*w+0.5), int(b.Y2*h+0.5))
		if r.Empty() {
			continue
		}
		strokeRect(dst, r, LocalColor, boxStroke)
		drawLabel(dst, r, b.Label, LocalColor)
	}
	return dst
}
