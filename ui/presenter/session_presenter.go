package presenter

import (
	"fmt"
	"time"

	"github.com/soocke/sensesafe-go/domain/capture"
	"github.com/soocke/sensesafe-go/ui/model"
)

const statsRefresh = time.Second

// LiveModel reports whether the camera is live.
type LiveModel interface{ Live() bool }

// StatsSource exposes capture pipeline counters.
type StatsSource interface{ Stats() capture.PipelineStats }

// SessionView displays session durations and pipeline counters.
type SessionView interface {
	SetSession(v model.SessionValues)
	SetPipelineStats(text string)
}

// SessionPresenter formats session values and pipeline stats for the view.
type SessionPresenter struct {
	sess      *model.SessionModel
	cam       LiveModel
	stats     StatsSource
	view      SessionView
	lastStats time.Time
}

// NewSessionPresenter returns a new SessionPresenter. stats may be nil.
func NewSessionPresenter(sess *model.SessionModel, cam LiveModel, stats StatsSource, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, cam: cam, stats: stats, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.cam == nil || p.view == nil {
		return
	}
	p.sess.OnTick(p.cam.Live(), now)
	p.view.SetSession(p.sess.Values())
	if p.stats != nil && now.Sub(p.lastStats) >= statsRefresh {
		p.lastStats = now
		p.view.SetPipelineStats(FormatStats(p.stats.Stats()))
	}
}

// FormatStats renders pipeline counters on one line.
func FormatStats(s capture.PipelineStats) string {
	return fmt.Sprintf("Frames %d  shown %d  dropped %d  bad %d  classify %.1f±%.1f ms",
		s.Received, s.Processed, s.Dropped, s.DecodeFailures,
		float64(s.ClassifyMean)/float64(time.Millisecond),
		float64(s.ClassifyStdDev)/float64(time.Millisecond))
}
