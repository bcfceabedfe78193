package model

import (
	"time"
)

// SessionValues is a snapshot of camera activity.
type SessionValues struct {
	Session time.Duration // current or last live period
	Total   time.Duration // all live periods, including the ongoing one
	Exits   int           // exit events during the current or last period
	Scans   int           // remote scans requested since start
}

// SessionModel tracks how long the camera has been live and what it saw.
// Presenters poll Values and push them to views. The zero value is ready to use.
type SessionModel struct {
	live        bool
	liveSince   time.Time
	lastSession time.Duration
	accumulated time.Duration
	exits       int
	scans       int
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick advances the model with the current camera state. A transition to
// live starts a new period and resets its exit count.
func (m *SessionModel) OnTick(live bool, now time.Time) {
	if m == nil {
		return
	}
	switch {
	case live && !m.live:
		m.live = true
		m.liveSince = now
		m.lastSession = 0
		m.exits = 0
	case live:
		m.lastSession = now.Sub(m.liveSince)
	case m.live:
		m.lastSession = now.Sub(m.liveSince)
		m.accumulated += m.lastSession
		m.live = false
	}
}

// OnExit counts one exit event in the current period.
func (m *SessionModel) OnExit() {
	if m != nil {
		m.exits++
	}
}

// OnScan counts one requested remote scan.
func (m *SessionModel) OnScan() {
	if m != nil {
		m.scans++
	}
}

// Values returns the current snapshot.
func (m *SessionModel) Values() SessionValues {
	if m == nil {
		return SessionValues{}
	}
	v := SessionValues{Session: m.lastSession, Total: m.accumulated, Exits: m.exits, Scans: m.scans}
	if m.live {
		v.Total += v.Session
	}
	return v
}
