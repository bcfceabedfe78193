package view

import (
	"image"

	"github.com/soocke/sensesafe-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Preview shows the live camera frame, the close-up of the last exit sign
// and the annotated result of the last remote scan.
type Preview interface {
	UpdateCapture(img image.Image)
	UpdateDetection(img image.Image)
	UpdateResult(img image.Image)
	Reset()
}

const (
	maxPreviewW = 400
	maxPreviewH = 225
	thumbW      = 160
	thumbH      = 90
)

// photoLabel is a label showing one Tk photo. The previous photo is deleted
// on every update so off-screen image data does not accumulate.
type photoLabel struct {
	label *LabelWidget
	photo *Img
	w, h  int
}

func newPhotoLabel(w, h int) *photoLabel {
	p := &photoLabel{w: w, h: h}
	p.photo = NewPhoto(Data(placeholder(w, h)))
	p.label = Label(Image(p.photo), Borderwidth(1), Relief("sunken"))
	return p
}

func placeholder(w, h int) []byte {
	return images.EncodePNG(image.NewRGBA(image.Rect(0, 0, w, h)))
}

func (p *photoLabel) set(img image.Image) {
	if p == nil || p.label == nil {
		return
	}
	var data []byte
	if img == nil {
		data = placeholder(p.w, p.h)
	} else {
		data = images.EncodePNG(images.ScaleToFit(img, p.w, p.h))
	}
	if p.photo != nil {
		p.photo.Delete()
	}
	p.photo = NewPhoto(Data(data))
	p.label.Configure(Image(p.photo))
}

type preview struct {
	capture   *photoLabel
	detection *photoLabel
	result    *photoLabel
}

// NewPreview creates the preview labels and grids them. The live frame spans
// columns 0-3 of row and the close-up sits at column 4; the scan result takes
// the next row. Returns the view and the next free row.
func NewPreview(row int) (Preview, int) {
	v := &preview{
		capture:   newPhotoLabel(maxPreviewW, maxPreviewH),
		detection: newPhotoLabel(thumbW, thumbH),
		result:    newPhotoLabel(maxPreviewW, maxPreviewH),
	}
	Grid(v.capture.label, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	Grid(v.detection.label, Row(row), Column(4), Sticky("n"), Padx("0.4m"), Pady("0.4m"))
	Grid(v.result.label, Row(row+1), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	return v, row + 2
}

func (v *preview) UpdateCapture(img image.Image) {
	if img != nil {
		v.capture.set(img)
	}
}

func (v *preview) UpdateDetection(img image.Image) {
	if img != nil {
		v.detection.set(img)
	}
}

// UpdateResult shows img, or the placeholder when img is nil.
func (v *preview) UpdateResult(img image.Image) { v.result.set(img) }

// Reset clears the live frame and the close-up. The scan result is owned by
// the scan state and left alone.
func (v *preview) Reset() {
	v.capture.set(nil)
	v.detection.set(nil)
}
