package presenter

import (
	"image"
	"log/slog"
	"time"

	"github.com/soocke/sensesafe-go/domain/capture"
	"github.com/soocke/sensesafe-go/domain/cue"
	"github.com/soocke/sensesafe-go/ui/images"
	"github.com/soocke/sensesafe-go/ui/model"
)

const (
	ExitBannerText = "EXIT VISIBLE"
	thumbPad       = 8
)

// FrameSource supplies the most recent preview frame.
type FrameSource interface {
	Last() image.Image
}

// AlertView shows the exit banner and the close-up of the detected sign.
type AlertView interface {
	SetExitBanner(visible bool, text string)
	UpdateDetection(img image.Image)
}

// AlertPresenter turns debounced exit events into the banner, the close-up
// and an accessibility cue. OnExit and Tick run on the UI thread.
type AlertPresenter struct {
	model   *model.AlertModel
	session *model.SessionModel
	frames  FrameSource
	view    AlertView
	cue     cue.Cue
	logger  *slog.Logger
	shown   bool
}

func NewAlertPresenter(m *model.AlertModel, session *model.SessionModel, frames FrameSource, view AlertView, c cue.Cue, logger *slog.Logger) *AlertPresenter {
	return &AlertPresenter{model: m, session: session, frames: frames, view: view, cue: c, logger: logger}
}

// OnExit handles one gate firing.
func (p *AlertPresenter) OnExit(ev capture.ExitEvent) {
	if p == nil || p.model == nil || p.view == nil {
		return
	}
	p.model.MarkExit(ev.At, ev.Boxes)
	p.session.OnExit()
	if p.cue != nil {
		p.cue.Notify(cue.ExitVisible)
	}
	if p.frames != nil && len(ev.Boxes) > 0 {
		if frame := p.frames.Last(); frame != nil {
			crop, rect, err := images.CropBox(frame, ev.Boxes[0], thumbPad)
			if err != nil {
				if p.logger != nil {
					p.logger.Debug("exit close-up", "error", err)
				}
			} else {
				p.model.SetThumb(rect)
				p.view.UpdateDetection(crop)
			}
		}
	}
	p.view.SetExitBanner(true, ExitBannerText)
	p.shown = true
	if p.logger != nil {
		p.logger.Info("exit visible", "session_id", ev.SessionID, "boxes", len(ev.Boxes))
	}
}

// Tick hides the banner once it has expired.
func (p *AlertPresenter) Tick(now time.Time) {
	if p == nil || p.model == nil || p.view == nil {
		return
	}
	if p.shown && !p.model.BannerVisible(now) {
		p.shown = false
		p.view.SetExitBanner(false, "")
	}
}

// Reset clears the banner and the last event.
func (p *AlertPresenter) Reset() {
	if p == nil || p.model == nil || p.view == nil {
		return
	}
	p.model.Clear()
	p.shown = false
	p.view.SetExitBanner(false, "")
}
