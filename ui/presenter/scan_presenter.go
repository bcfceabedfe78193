package presenter

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soocke/sensesafe-go/domain/capture"
	"github.com/soocke/sensesafe-go/domain/cue"
	"github.com/soocke/sensesafe-go/domain/detection"
	"github.com/soocke/sensesafe-go/domain/scan"
	"github.com/soocke/sensesafe-go/ui/images"
	"github.com/soocke/sensesafe-go/ui/model"
)

const (
	stillTimeout = 5 * time.Second
	resultMaxW   = 400
	resultMaxH   = 225

	StatusReady    = "Ready to scan"
	StatusScanning = "Scanning for exits…"
	StatusNoCamera = "Scan failed: camera unavailable"
)

// ScanSource provides the scan state machine methods the presenter requires.
type ScanSource interface {
	Scan(img image.Image) string
	Cancel()
	Reset()
	Current() scan.ScanState
}

// StillSource grabs one full resolution image for a scan.
type StillSource interface {
	Still(ctx context.Context) (image.Image, error)
}

// ScanView reflects the scan state.
type ScanView interface {
	SetScanStatus(text string)
	SetScanControls(kind scan.Kind)
	UpdateResult(img image.Image)
}

// ScanPresenter starts scans from user actions, receives state changes from
// the scan machine listener and reflects the latest one on the next Tick.
type ScanPresenter struct {
	src     ScanSource
	stills  StillSource
	disp    capture.Dispatcher
	view    ScanView
	cue     cue.Cue
	session *model.SessionModel
	logger  *slog.Logger

	mu        sync.Mutex
	pending   []scan.ScanState
	submitted map[string]image.Image // scan id -> image

	grabbing atomic.Bool

	latest  scan.ScanState
	flushed bool
}

// NewScanPresenter wires a presenter. disp receives the grabbed still back on
// the UI goroutine; nil runs it inline.
func NewScanPresenter(src ScanSource, stills StillSource, disp capture.Dispatcher, view ScanView, c cue.Cue, session *model.SessionModel, logger *slog.Logger) *ScanPresenter {
	if disp == nil {
		disp = capture.InlineDispatcher{}
	}
	return &ScanPresenter{src: src, stills: stills, disp: disp, view: view, cue: c, session: session, logger: logger, submitted: make(map[string]image.Image)}
}

// RequestScan grabs a still off the UI goroutine and submits it once the
// dispatcher hands it back. A scan in flight is replaced; a request made
// while a grab is pending is ignored.
func (p *ScanPresenter) RequestScan() {
	if p == nil || p.src == nil || p.stills == nil || p.view == nil {
		return
	}
	if !p.grabbing.CompareAndSwap(false, true) {
		return
	}
	p.view.SetScanStatus(StatusScanning)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), stillTimeout)
		img, err := p.stills.Still(ctx)
		cancel()
		p.disp.Post(func() {
			p.grabbing.Store(false)
			p.submit(img, err)
		})
	}()
}

// submit runs on the UI goroutine.
func (p *ScanPresenter) submit(img image.Image, err error) {
	if err != nil {
		if p.logger != nil {
			p.logger.Error("scan still", "error", err)
		}
		p.view.SetScanStatus(StatusNoCamera)
		if p.cue != nil {
			p.cue.Notify(cue.ScanFailed)
		}
		return
	}
	id := p.src.Scan(img)
	if id == "" {
		return
	}
	p.mu.Lock()
	// Only the newest scan can publish a result.
	clear(p.submitted)
	p.submitted[id] = img
	p.mu.Unlock()
	p.session.OnScan()
}

// Cancel stops the scan in flight.
func (p *ScanPresenter) Cancel() {
	if p != nil && p.src != nil {
		p.src.Cancel()
	}
}

// Reset clears a finished result.
func (p *ScanPresenter) Reset() {
	if p != nil && p.src != nil {
		p.src.Reset()
	}
}

// OnState queues a transitioned state from the scan machine listener. It may
// be called from any goroutine.
func (p *ScanPresenter) OnState(_, next scan.ScanState) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, next)
	p.mu.Unlock()
}

// Tick reflects the most recent queued state.
func (p *ScanPresenter) Tick() {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		if !p.flushed {
			p.flushed = true
			p.reflect(scan.Idle(), nil)
		}
		return
	}
	last := p.pending[len(p.pending)-1]
	p.pending = p.pending[:0]
	img := p.submitted[last.ScanID]
	p.mu.Unlock()
	if p.flushed && last.Kind == p.latest.Kind && last.ScanID == p.latest.ScanID {
		return
	}
	p.flushed = true
	p.reflect(last, img)
}

func (p *ScanPresenter) reflect(st scan.ScanState, img image.Image) {
	p.latest = st
	p.view.SetScanStatus(StatusText(st))
	p.view.SetScanControls(st.Kind)
	switch st.Kind {
	case scan.KindSuccess:
		p.view.UpdateResult(RenderResult(img, st.Boxes))
		if st.Result.HasExits && p.cue != nil {
			p.cue.Notify(cue.ScanFound)
		}
	case scan.KindError:
		p.view.UpdateResult(nil)
		if p.cue != nil {
			p.cue.Notify(cue.ScanFailed)
		}
	default:
		p.view.UpdateResult(nil)
	}
	if p.logger != nil && (st.Kind == scan.KindSuccess || st.Kind == scan.KindError) {
		p.logger.Info("scan state", "scan_id", st.ScanID, "state", st.Kind.String(), "boxes", len(st.Boxes))
	}
}

// StatusText is the user-facing line for a scan state.
func StatusText(st scan.ScanState) string {
	switch st.Kind {
	case scan.KindLoading:
		return StatusScanning
	case scan.KindSuccess, scan.KindError:
		return st.Message
	default:
		return StatusReady
	}
}

// RenderResult scales img for the result panel and draws boxes on it at the
// same scale. Returns nil when img is nil.
func RenderResult(img image.Image, boxes []detection.RenderBox) image.Image {
	if img == nil {
		return nil
	}
	_, _, f := images.FitSize(img.Bounds(), resultMaxW, resultMaxH)
	scaled := images.ScaleToFit(img, resultMaxW, resultMaxH)
	if f == 0 {
		return scaled
	}
	out := make([]detection.RenderBox, len(boxes))
	for i, b := range boxes {
		b.Left, b.Top, b.Width, b.Height = b.Left*f, b.Top*f, b.Width*f, b.Height*f
		out[i] = b
	}
	return images.DrawRenderBoxes(scaled, out)
}
