package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/soocke/sensesafe-go/domain/detection"
)

func filled(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestScaleToFit_KeepsAspect(t *testing.T) {
	src := filled(800, 400, color.RGBA{A: 0xff})
	out := ScaleToFit(src, 400, 225)
	if out.Bounds().Dx() != 400 || out.Bounds().Dy() != 200 {
		t.Fatalf("expected 400x200, got %v", out.Bounds())
	}
	if ScaleToFit(src, 1000, 1000) != image.Image(src) {
		t.Fatalf("image that fits should be returned unchanged")
	}
	if ScaleToFit(nil, 10, 10) != nil {
		t.Fatalf("nil in, nil out")
	}
}

func TestFitSize_NeverZero(t *testing.T) {
	w, h, _ := FitSize(image.Rect(0, 0, 1000, 2), 10, 10)
	if w != 10 || h != 1 {
		t.Fatalf("expected 10x1, got %dx%d", w, h)
	}
}

func TestCropBox_CentersAndClamps(t *testing.T) {
	frame := filled(100, 100, color.RGBA{A: 0xff})
	crop, rect, err := CropBox(frame, detection.DetectionBox{X1: 0.3, Y1: 0.3, X2: 0.7, Y2: 0.7}, 0)
	if err != nil || crop == nil {
		t.Fatalf("expected crop, got err=%v", err)
	}
	if rect != image.Rect(30, 30, 70, 70) {
		t.Fatalf("unexpected rect %v", rect)
	}
	if crop.Bounds().Min != (image.Point{}) {
		t.Fatalf("crop origin should be 0,0")
	}
}

func TestCropBox_PadClampsNearEdge(t *testing.T) {
	frame := filled(20, 20, color.RGBA{A: 0xff})
	_, rect, err := CropBox(frame, detection.DetectionBox{X1: 0.05, Y1: 0.05, X2: 0.5, Y2: 0.5}, 10)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if rect.Min != (image.Point{}) || rect.Max.X > 20 || rect.Max.Y > 20 {
		t.Fatalf("rect not clamped: %v", rect)
	}
}

func TestCropBox_DegenerateBoxIsOnePixel(t *testing.T) {
	frame := filled(10, 10, color.RGBA{A: 0xff})
	_, rect, err := CropBox(frame, detection.DetectionBox{X1: 1, Y1: 1, X2: 1, Y2: 1}, 0)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if rect.Dx() != 1 || rect.Dy() != 1 {
		t.Fatalf("expected 1x1 got %v", rect)
	}
	if _, _, err := CropBox(nil, detection.DetectionBox{}, 0); err == nil {
		t.Fatalf("expected error for nil frame")
	}
}

func TestDrawRenderBoxes_OutlinesBox(t *testing.T) {
	src := filled(200, 100, color.RGBA{A: 0xff})
	out := DrawRenderBoxes(src, []detection.RenderBox{{Left: 80, Top: 40, Width: 40, Height: 20, Label: "door", Confidence: 0.9}})
	if got := out.RGBAAt(80, 59); got != BoxColor {
		t.Fatalf("expected box edge at bottom-left, got %v", got)
	}
	if got := out.RGBAAt(100, 50); got != (color.RGBA{A: 0xff}) {
		t.Fatalf("box interior must stay untouched, got %v", got)
	}
	if src.RGBAAt(80, 59) != (color.RGBA{A: 0xff}) {
		t.Fatalf("source was modified")
	}
}

func TestDrawDetectionBoxes_ScalesNormalized(t *testing.T) {
	src := filled(100, 50, color.RGBA{A: 0xff})
	out := DrawDetectionBoxes(src, []detection.DetectionBox{{X1: 0.5, Y1: 0.5, X2: 1, Y2: 1, Label: "EXIT"}})
	if got := out.RGBAAt(99, 49); got != LocalColor {
		t.Fatalf("expected corner stroke, got %v", got)
	}
}
