package scan

import (
	"context"
	"image"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/sensesafe-go/domain/detection"
)

// task is one in-flight scan.
type task struct {
	id     string
	cancel context.CancelFunc
}

type evtScan struct {
	img   image.Image
	reply chan string
}

type evtCancel struct{}

type evtReset struct{}

type evtAddListener struct{ l Listener }

type evtResult struct {
	t   *task
	res detection.MergedDetectionResult
}

// StateMachine serialises scan requests on a single goroutine and publishes
// ScanState transitions:
//
//	Idle --Scan--> Loading --result--> Success | Error
//	any  --Scan--> Loading (previous scan cancelled)
//	Loading --Cancel--> Idle
//	Success | Error --Reset--> Idle
//
// Only the newest scan's result is ever published.
type StateMachine struct {
	logger   *slog.Logger
	detector Detector
	now      func() time.Time

	events    chan any
	done      chan struct{}
	closed    atomic.Bool
	state     atomic.Pointer[ScanState]
	slot      *Slot[task]
	listeners []Listener
}

// NewStateMachine constructs the machine and starts its event loop.
func NewStateMachine(logger *slog.Logger, detector Detector) *StateMachine {
	m := &StateMachine{
		logger:   logger,
		detector: detector,
		now:      time.Now,
		events:   make(chan any, 64),
		done:     make(chan struct{}),
		slot:     NewSlot(func(t *task) { t.cancel() }),
	}
	idle := Idle()
	m.state.Store(&idle)
	go func() {
		defer func() {
			if r := recover(); r != nil && logger != nil {
				logger.Error("scan.fsm panic", "error", r, "stack", string(debug.Stack()))
			}
		}()
		m.loop()
	}()
	return m
}

func (m *StateMachine) send(ev any) bool {
	if m.closed.Load() {
		return false
	}
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

// Scan starts a scan of img, cancelling any scan in progress, and returns the
// new scan id ("" after Close).
func (m *StateMachine) Scan(img image.Image) string {
	reply := make(chan string, 1)
	if !m.send(evtScan{img: img, reply: reply}) {
		return ""
	}
	select {
	case id := <-reply:
		return id
	case <-m.done:
		return ""
	}
}

// Cancel abandons the scan in progress, if any, and returns to Idle.
func (m *StateMachine) Cancel() { m.send(evtCancel{}) }

// Reset returns a finished scan (Success or Error) to Idle.
func (m *StateMachine) Reset() { m.send(evtReset{}) }

// AddListener registers l for subsequent transitions.
func (m *StateMachine) AddListener(l Listener) {
	if l != nil {
		m.send(evtAddListener{l: l})
	}
}

// Current returns the published state. Safe from any goroutine.
func (m *StateMachine) Current() ScanState { return *m.state.Load() }

// Close cancels any scan in progress and stops the loop.
func (m *StateMachine) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.slot.Swap(nil)
	close(m.done)
}

func (m *StateMachine) loop() {
	for {
		select {
		case <-m.done:
			return
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

func (m *StateMachine) handle(ev any) {
	switch e := ev.(type) {
	case evtAddListener:
		m.listeners = append(m.listeners, e.l)
	case evtScan:
		e.reply <- m.start(e.img)
	case evtCancel:
		if m.Current().Kind != KindLoading {
			return
		}
		prev := m.slot.Current()
		m.slot.Swap(nil)
		if prev != nil && m.logger != nil {
			m.logger.Info("scan.cancelled", "scan_id", prev.id)
		}
		m.publish(Idle())
	case evtReset:
		switch m.Current().Kind {
		case KindSuccess, KindError:
			m.publish(Idle())
		}
	case evtResult:
		m.finish(e.t, e.res)
	}
}

func (m *StateMachine) start(img image.Image) string {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{id: uuid.NewString(), cancel: cancel}
	if prev := m.slot.Current(); prev != nil && m.logger != nil {
		m.logger.Info("scan.replaced", "scan_id", prev.id, "by", t.id)
	}
	m.slot.Swap(t)
	m.publish(ScanState{Kind: KindLoading, ScanID: t.id, At: m.now()})
	go m.run(ctx, t, img)
	return t.id
}

func (m *StateMachine) run(ctx context.Context, t *task, img image.Image) {
	res := detection.MergedDetectionResult{Failed: true, Message: detection.MessageAllFailed}
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.Error("scan.run panic", "scan_id", t.id, "error", r)
			}
			res = detection.MergedDetectionResult{Failed: true, Message: detection.MessageAllFailed}
		}
		m.send(evtResult{t: t, res: res})
	}()
	if m.detector != nil {
		res = m.detector.DetectAll(ctx, img)
	}
}

// finish publishes the result of t if it is still the current scan.
func (m *StateMachine) finish(t *task, res detection.MergedDetectionResult) {
	if !m.slot.Release(t) {
		if m.logger != nil {
			m.logger.Debug("scan.stale_result", "scan_id", t.id)
		}
		return
	}
	t.cancel()
	next := ScanState{ScanID: t.id, At: m.now(), Message: res.Message}
	if res.Failed && !res.HasExits {
		next.Kind = KindError
	} else {
		next.Kind = KindSuccess
		next.Result = res
		next.Boxes = detection.ToRenderBoxes(res.AllDetections)
	}
	if m.logger != nil {
		m.logger.Info("scan.finished", "scan_id", t.id, "state", next.Kind.String(), "detections", len(res.AllDetections))
	}
	m.publish(next)
}

func (m *StateMachine) publish(next ScanState) {
	prev := m.Current()
	m.state.Store(&next)
	for _, l := range m.listeners {
		l(prev, next)
	}
}
