package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/sensesafe-go/domain/detection"
	"github.com/soocke/sensesafe-go/domain/hysteresis"
)

const cameraStatsLogInterval = 5 * time.Second

// ManagerOptions configures a CameraManager. Converter and Dispatcher default
// to NewFrameConverter(DefaultInferenceMaxSide, 0) and InlineDispatcher.
type ManagerOptions struct {
	Converter  *FrameConverter
	Dispatcher Dispatcher
	Gate       hysteresis.Options
	// Foreground is the host visibility at construction time.
	Foreground bool
}

// sessionRun is one acquired sensor session. A fresh run (and hysteresis
// gate) is created on every acquisition so suspend/resume starts from a
// zero streak. The gate is only touched on the dispatcher goroutine.
type sessionRun struct {
	id      string
	session Session
	gate    *hysteresis.Gate
	target  PreviewTarget
}

type frameJob struct {
	run   *sessionRun
	frame RawFrame
}

// CameraManager owns the sensor session and the single frame worker. It binds
// the session to host visibility and routes frames through
// FrameConverter -> FrameHandler -> hysteresis gate. At most one frame is in
// the pipeline at any time, counting the hand-off to the dispatcher; frames
// that arrive while it is busy are dropped.
type CameraManager struct {
	logger *slog.Logger
	sensor Sensor
	conv   *FrameConverter
	disp   Dispatcher
	gateOp hysteresis.Options

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex // lifecycle state, foreground, target
	state      LifecycleState
	foreground bool
	target     PreviewTarget

	current atomic.Pointer[sessionRun]
	handler atomic.Pointer[FrameHandler]
	busy    atomic.Bool
	closed  atomic.Bool

	jobs       chan frameJob
	done       chan struct{}
	workerDone chan struct{}

	errs    chan error
	errOnce sync.Once

	listenersMu sync.Mutex
	listeners   []ExitListener

	received       atomic.Uint64
	dropped        atomic.Uint64
	decodeFailures atomic.Uint64
	processed      atomic.Uint64
	exitsFired     atomic.Uint64
	latency        latencyRing
}

// NewCameraManager constructs a manager for sensor and starts its worker.
func NewCameraManager(logger *slog.Logger, sensor Sensor, opts ManagerOptions) *CameraManager {
	if opts.Converter == nil {
		opts.Converter = NewFrameConverter(DefaultInferenceMaxSide, 0)
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = InlineDispatcher{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &CameraManager{
		logger:     logger,
		sensor:     sensor,
		conv:       opts.Converter,
		disp:       opts.Dispatcher,
		gateOp:     opts.Gate,
		ctx:        ctx,
		cancel:     cancel,
		state:      LifecycleCreated,
		foreground: opts.Foreground,
		jobs:       make(chan frameJob, 1),
		done:       make(chan struct{}),
		workerDone: make(chan struct{}),
		errs:       make(chan error, 1),
	}
	go m.worker()
	return m
}

// Start begins a sensor session bound to host visibility. Calling Start
// again while started is a no-op.
func (m *CameraManager) Start(target PreviewTarget) error {
	if m.closed.Load() {
		return ErrShutdown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != LifecycleCreated {
		return nil
	}
	m.target = target
	return m.applyLocked(EventStart)
}

// SetFrameHandler registers the per-frame classifier. It may be changed at
// any time; the next frame uses the new handler.
func (m *CameraManager) SetFrameHandler(fn FrameHandler) {
	if fn == nil {
		m.handler.Store(nil)
		return
	}
	m.handler.Store(&fn)
}

// OnForeground is the host visibility callback for becoming visible.
func (m *CameraManager) OnForeground() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.foreground = true
	_ = m.applyLocked(EventForeground)
}

// OnBackground is the host visibility callback for becoming hidden.
func (m *CameraManager) OnBackground() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.foreground = false
	_ = m.applyLocked(EventBackground)
}

// Shutdown releases the session and stops the worker. A frame already in the
// handler may complete; no new frame starts processing after Shutdown
// returns. Subsequent calls are no-ops.
func (m *CameraManager) Shutdown() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.cancel()
	m.mu.Lock()
	_ = m.applyLocked(EventShutdown)
	m.mu.Unlock()
	close(m.done)
	if m.logger != nil {
		m.logger.Info("camera.shutdown")
	}
}

// Wait blocks until the worker goroutine has exited after Shutdown.
func (m *CameraManager) Wait() { <-m.workerDone }

// Errors delivers at most one session acquisition error.
func (m *CameraManager) Errors() <-chan error { return m.errs }

// AddExitListener registers fn for debounced exit events. Listeners run on
// the dispatcher goroutine.
func (m *CameraManager) AddExitListener(fn ExitListener) {
	if fn == nil {
		return
	}
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.listenersMu.Unlock()
}

// State returns the current lifecycle state.
func (m *CameraManager) State() LifecycleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the id of the active session or "" if none.
func (m *CameraManager) SessionID() string {
	if run := m.current.Load(); run != nil {
		return run.id
	}
	return ""
}

// Stats returns a snapshot of pipeline counters.
func (m *CameraManager) Stats() PipelineStats {
	mean, sd := m.latency.summary()
	return PipelineStats{
		Received:       m.received.Load(),
		Dropped:        m.dropped.Load(),
		DecodeFailures: m.decodeFailures.Load(),
		Processed:      m.processed.Load(),
		ExitsFired:     m.exitsFired.Load(),
		ClassifyMean:   mean,
		ClassifyStdDev: sd,
		State:          m.State(),
		SessionID:      m.SessionID(),
	}
}

// applyLocked runs the lifecycle transition for ev and performs its action.
// m.mu must be held.
func (m *CameraManager) applyLocked(ev LifecycleEvent) error {
	prev := m.state
	next, action := Transition(prev, m.foreground, ev)
	m.state = next
	if prev != next && m.logger != nil {
		m.logger.Debug("camera.lifecycle", "event", ev.String(), "from", prev.String(), "to", next.String())
	}
	switch action {
	case ActionAcquire:
		if err := m.acquireLocked(); err != nil {
			m.state, _ = Transition(m.state, m.foreground, EventAcquireFailed)
			m.reportError(err)
			return err
		}
	case ActionRelease:
		m.releaseLocked()
	}
	return nil
}

func (m *CameraManager) acquireLocked() error {
	if m.sensor == nil {
		return ErrSensorUnavailable
	}
	sess, err := m.sensor.Acquire(m.ctx)
	if err != nil {
		return fmt.Errorf("camera acquire: %w", err)
	}
	run := &sessionRun{
		id:      uuid.NewString(),
		session: sess,
		gate:    hysteresis.NewGate(m.gateOp, m.logger),
		target:  m.target,
	}
	m.current.Store(run)
	sess.OnFrame(func(f RawFrame) { m.onFrame(run, f) })
	if m.logger != nil {
		m.logger.Info("camera.session.acquired", "session_id", run.id)
	}
	return nil
}

func (m *CameraManager) releaseLocked() {
	run := m.current.Swap(nil)
	if run == nil {
		return
	}
	if err := run.session.Close(); err != nil && m.logger != nil {
		m.logger.Warn("camera.session.close", "session_id", run.id, "error", err)
	}
	if m.logger != nil {
		m.logger.Info("camera.session.released", "session_id", run.id)
	}
}

// reportError delivers the first acquisition error; later errors are only
// logged. Acquisition is not retried.
func (m *CameraManager) reportError(err error) {
	if m.logger != nil {
		m.logger.Error("camera.session.acquire", "error", err, "sensor_unavailable", errors.Is(err, ErrSensorUnavailable))
	}
	m.errOnce.Do(func() { m.errs <- err })
}

// onFrame runs on the sensor goroutine and must never block.
func (m *CameraManager) onFrame(run *sessionRun, f RawFrame) {
	if m.closed.Load() || m.current.Load() != run {
		return
	}
	m.received.Add(1)
	if !m.busy.CompareAndSwap(false, true) {
		m.dropped.Add(1)
		return
	}
	select {
	case m.jobs <- frameJob{run: run, frame: f}:
	default:
		m.busy.Store(false)
		m.dropped.Add(1)
	}
}

func (m *CameraManager) worker() {
	defer close(m.workerDone)
	ticker := time.NewTicker(cameraStatsLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case j := <-m.jobs:
			m.process(j)
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *CameraManager) process(j frameJob) {
	posted := false
	defer func() {
		if !posted {
			m.busy.Store(false)
		}
	}()
	defer recoverLog(m.logger, "camera.process panic")
	if m.closed.Load() || m.current.Load() != j.run {
		return
	}
	img := m.conv.Convert(j.frame)
	if img == nil {
		m.decodeFailures.Add(1)
		return
	}
	var boxes []detection.DetectionBox
	if h := m.handler.Load(); h != nil {
		start := time.Now()
		boxes = (*h)(img)
		m.latency.add(time.Since(start))
	}
	m.processed.Add(1)
	at := j.frame.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	run := j.run
	posted = true
	m.disp.Post(func() {
		defer m.busy.Store(false)
		defer recoverLog(m.logger, "camera.deliver panic")
		m.deliver(run, img, boxes, at)
	})
}

// deliver runs on the dispatcher goroutine.
func (m *CameraManager) deliver(run *sessionRun, img image.Image, boxes []detection.DetectionBox, at time.Time) {
	if m.closed.Load() || m.current.Load() != run {
		return
	}
	if run.target != nil {
		run.target.ShowFrame(img)
	}
	if !run.gate.Observe(boxes, at) {
		return
	}
	m.exitsFired.Add(1)
	ev := ExitEvent{At: at, SessionID: run.id, Boxes: boxes}
	if m.logger != nil {
		m.logger.Info("camera.exit_detected", "session_id", run.id, "boxes", len(boxes))
	}
	m.listenersMu.Lock()
	ls := append([]ExitListener(nil), m.listeners...)
	m.listenersMu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}

func (m *CameraManager) logStats() {
	if m.logger == nil {
		return
	}
	s := m.Stats()
	m.logger.Debug("camera.stats",
		"state", s.State.String(),
		"received", s.Received,
		"dropped", s.Dropped,
		"decode_failures", s.DecodeFailures,
		"processed", s.Processed,
		"exits", s.ExitsFired,
		"classify_mean", s.ClassifyMean,
		"classify_stddev", s.ClassifyStdDev,
	)
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error(msg, "error", r)
		}
	}
}
