package presenter

import (
	"time"
)

const defaultVisibilitySettle = 250 * time.Millisecond

// VisibilityWatcher polls the host window visibility on each tick and reports
// a change once the new value has held for Settle. Tk emits unmap/map pairs
// while a window is moved or restyled; those never reach OnChange.
type VisibilityWatcher struct {
	Probe    func() bool
	OnChange func(visible bool)
	Settle   time.Duration

	reported     bool
	pending      bool
	pendingSince time.Time
	hasPending   bool
}

// NewVisibilityWatcher returns a watcher that assumes the window starts visible.
func NewVisibilityWatcher(probe func() bool, onChange func(bool)) *VisibilityWatcher {
	return &VisibilityWatcher{Probe: probe, OnChange: onChange, Settle: defaultVisibilitySettle, reported: true}
}

// Tick samples the probe.
func (w *VisibilityWatcher) Tick(now time.Time) {
	if w == nil || w.Probe == nil {
		return
	}
	v := w.Probe()
	if v == w.reported {
		w.hasPending = false
		return
	}
	if !w.hasPending || w.pending != v {
		w.pending = v
		w.pendingSince = now
		w.hasPending = true
		return
	}
	if now.Sub(w.pendingSince) < w.Settle {
		return
	}
	w.reported = v
	w.hasPending = false
	if w.OnChange != nil {
		w.OnChange(v)
	}
}

// Visible returns the last reported value.
func (w *VisibilityWatcher) Visible() bool {
	if w == nil {
		return false
	}
	return w.reported
}
