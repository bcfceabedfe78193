package presenter

import (
	"image"
)

// PreviewView shows the live camera frame.
type PreviewView interface {
	UpdateCapture(img image.Image)
}

// PreviewPresenter receives converted frames from the camera manager on the
// UI thread and keeps the latest for exit close-ups. It implements
// capture.PreviewTarget.
type PreviewPresenter struct {
	view PreviewView
	last image.Image
}

func NewPreviewPresenter(view PreviewView) *PreviewPresenter {
	return &PreviewPresenter{view: view}
}

func (p *PreviewPresenter) ShowFrame(img image.Image) {
	if p == nil || img == nil {
		return
	}
	p.last = img
	if p.view != nil {
		p.view.UpdateCapture(img)
	}
}

// Last returns the most recent frame, or nil.
func (p *PreviewPresenter) Last() image.Image {
	if p == nil {
		return nil
	}
	return p.last
}

// Reset forgets the last frame.
func (p *PreviewPresenter) Reset() {
	if p != nil {
		p.last = nil
	}
}
