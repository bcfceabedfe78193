package model

import (
	"image"
	"time"

	"github.com/soocke/sensesafe-go/domain/detection"
)

const DefaultBannerDuration = 3 * time.Second

// AlertModel holds the most recent "exit visible" event and how long its
// banner stays up. Updates occur on the UI thread; no synchronization.
type AlertModel struct {
	BannerFor time.Duration
	lastAt    time.Time
	boxes     []detection.DetectionBox
	thumb     image.Rectangle
}

func NewAlertModel() *AlertModel { return &AlertModel{BannerFor: DefaultBannerDuration} }

// MarkExit records an exit event at the given time.
func (m *AlertModel) MarkExit(at time.Time, boxes []detection.DetectionBox) {
	if m == nil {
		return
	}
	m.lastAt = at
	m.boxes = boxes
}

// SetThumb stores the frame rectangle shown as the exit close-up.
func (m *AlertModel) SetThumb(r image.Rectangle) {
	if m == nil {
		return
	}
	if r.Empty() {
		m.thumb = image.Rectangle{}
		return
	}
	m.thumb = r
}

// Thumb returns the close-up rectangle (may be empty).
func (m *AlertModel) Thumb() image.Rectangle {
	if m == nil {
		return image.Rectangle{}
	}
	return m.thumb
}

// BannerVisible reports whether the banner should still be shown at now.
func (m *AlertModel) BannerVisible(now time.Time) bool {
	if m == nil || m.lastAt.IsZero() {
		return false
	}
	return now.Sub(m.lastAt) < m.BannerFor
}

// Boxes returns the boxes of the last event.
func (m *AlertModel) Boxes() []detection.DetectionBox {
	if m == nil {
		return nil
	}
	return m.boxes
}

// Clear forgets the last event.
func (m *AlertModel) Clear() {
	if m == nil {
		return
	}
	m.lastAt = time.Time{}
	m.boxes = nil
	m.thumb = image.Rectangle{}
}
