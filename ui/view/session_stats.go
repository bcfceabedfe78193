package view

import (
	"fmt"
	"time"

	"github.com/soocke/sensesafe-go/ui/model"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows camera live time, exit counts and pipeline counters.
type SessionStats interface {
	SetSession(v model.SessionValues)
	SetPipelineStats(text string)
}

type sessionStats struct {
	sessionLbl *LabelWidget
	totalLbl   *LabelWidget
	exitsLbl   *LabelWidget
	statsLbl   *LabelWidget
}

// NewSessionStats creates the labels inside parent: durations and exit count
// on row, pipeline counters on row+1.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{
		sessionLbl: Label(Width(14), Anchor("w")),
		totalLbl:   Label(Width(14), Anchor("w")),
		exitsLbl:   Label(Width(10), Anchor("w")),
		statsLbl:   Label(Anchor("w")),
	}
	Grid(s.sessionLbl, In(parent), Row(row), Column(startCol), Sticky("w"), Padx("0.2m"))
	Grid(s.totalLbl, In(parent), Row(row), Column(startCol+1), Sticky("w"), Padx("0.2m"))
	Grid(s.exitsLbl, In(parent), Row(row), Column(startCol+2), Sticky("w"), Padx("0.2m"))
	Grid(s.statsLbl, In(parent), Row(row+1), Column(startCol), Columnspan(3), Sticky("w"), Padx("0.2m"))
	s.SetSession(model.SessionValues{})
	return s
}

func clock(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (s *sessionStats) SetSession(v model.SessionValues) {
	if s == nil {
		return
	}
	s.sessionLbl.Configure(Txt("Live: " + clock(v.Session)))
	s.totalLbl.Configure(Txt("Total: " + clock(v.Total)))
	s.exitsLbl.Configure(Txt(fmt.Sprintf("Exits: %d", v.Exits)))
}

func (s *sessionStats) SetPipelineStats(text string) {
	if s == nil || s.statsLbl == nil {
		return
	}
	s.statsLbl.Configure(Txt(text))
}
