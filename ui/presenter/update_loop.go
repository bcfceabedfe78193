package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates on the UI
// thread. Posted camera work is drained first so that the presenters see
// this tick's frames. The zero value is usable (methods are nil-safe).
type Loop struct {
	Dispatch   *UIDispatcher
	Visibility *VisibilityWatcher
	Camera     *CameraPresenter
	Scan       *ScanPresenter
	Alert      *AlertPresenter
	Session    *SessionPresenter
	Schedule   func()
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	l.Dispatch.Drain()
	l.Visibility.Tick(now)
	l.Camera.Tick()
	l.Scan.Tick()
	l.Alert.Tick(now)
	l.Session.Tick(now)
	if l.Schedule != nil {
		l.Schedule()
	}
}
