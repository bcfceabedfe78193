package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/sensesafe-go/domain/detection"
	"github.com/soocke/sensesafe-go/domain/hysteresis"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeSession struct {
	mu     sync.Mutex
	fn     func(RawFrame)
	closed bool
}

func (s *fakeSession) OnFrame(fn func(RawFrame)) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) emit(f RawFrame) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(f)
	}
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSensor struct {
	mu       sync.Mutex
	sessions []*fakeSession
	err      error
}

func (s *fakeSensor) Acquire(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	sess := &fakeSession{}
	s.sessions = append(s.sessions, sess)
	return sess, nil
}

func (s *fakeSensor) last() *fakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 0 {
		return nil
	}
	return s.sessions[len(s.sessions)-1]
}

func (s *fakeSensor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

var testFrame = FrameFromImage(solid(32, 32, gray), 0, 0)

func exitBoxes(image.Image) []detection.DetectionBox {
	return []detection.DetectionBox{{X1: 0.1, Y1: 0.1, X2: 0.4, Y2: 0.3, Label: "EXIT", Confidence: 0.9}}
}

func newTestManager(t *testing.T, sensor Sensor) *CameraManager {
	t.Helper()
	m := NewCameraManager(discardLogger, sensor, ManagerOptions{Foreground: true})
	t.Cleanup(m.Shutdown)
	return m
}

func waitFor(t *testing.T, what string, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestCameraManager_StartIsIdempotent(t *testing.T) {
	sensor := &fakeSensor{}
	m := newTestManager(t, sensor)
	if err := m.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start(nil); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if sensor.count() != 1 {
		t.Fatalf("expected one acquisition, got %d", sensor.count())
	}
	if m.State() != LifecycleActive || m.SessionID() == "" {
		t.Fatalf("expected active session, got %s %q", m.State(), m.SessionID())
	}
}

func TestCameraManager_DropsFrameWhileBusy(t *testing.T) {
	sensor := &fakeSensor{}
	m := newTestManager(t, sensor)
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	var calls atomic.Int32
	m.SetFrameHandler(func(img image.Image) []detection.DetectionBox {
		calls.Add(1)
		entered <- struct{}{}
		<-release
		return nil
	})
	if err := m.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := sensor.last()
	sess.emit(testFrame)
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler never entered")
	}
	time.Sleep(5 * time.Millisecond)
	sess.emit(testFrame)
	close(release)
	waitFor(t, "processed frame", func() bool { return m.Stats().Processed == 1 }, time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one handler call, got %d", got)
	}
	st := m.Stats()
	if st.Received != 2 || st.Dropped != 1 {
		t.Fatalf("expected 2 received / 1 dropped, got %+v", st)
	}
}

func TestCameraManager_NeverTwoFramesInFlight(t *testing.T) {
	sensor := &fakeSensor{}
	m := newTestManager(t, sensor)
	var inflight, peak atomic.Int32
	m.SetFrameHandler(func(img image.Image) []detection.DetectionBox {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inflight.Add(-1)
		return nil
	})
	if err := m.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := sensor.last()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				sess.emit(testFrame)
			}
		}()
	}
	wg.Wait()
	waitFor(t, "pipeline idle", func() bool { return !m.busy.Load() }, 2*time.Second)
	if peak.Load() > 1 {
		t.Fatalf("observed %d frames in flight", peak.Load())
	}
	st := m.Stats()
	if st.Received != 200 {
		t.Fatalf("expected 200 received, got %d", st.Received)
	}
	if st.Processed+st.Dropped+st.DecodeFailures != st.Received {
		t.Fatalf("frames unaccounted for: %+v", st)
	}
}

func TestCameraManager_GateFiresOnDispatcher(t *testing.T) {
	sensor := &fakeSensor{}
	m := newTestManager(t, sensor)
	m.SetFrameHandler(exitBoxes)
	var events []ExitEvent
	var mu sync.Mutex
	m.AddExitListener(func(ev ExitEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	var shown atomic.Int32
	if err := m.Start(PreviewFunc(func(image.Image) { shown.Add(1) })); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := sensor.last()
	base := time.Unix(1000, 0)
	for i := 0; i < 3; i++ {
		f := testFrame
		f.Timestamp = base.Add(time.Duration(i) * 10 * time.Millisecond)
		sess.emit(f)
		waitFor(t, "frame processed", func() bool { return m.Stats().Processed == uint64(i+1) && !m.busy.Load() }, time.Second)
	}
	waitFor(t, "exit event", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, time.Second)
	if shown.Load() != 3 {
		t.Fatalf("expected 3 preview frames, got %d", shown.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	if events[0].SessionID != m.SessionID() || len(events[0].Boxes) != 1 {
		t.Fatalf("unexpected event %+v", events[0])
	}
}

func TestCameraManager_SuspendResumeCyclesSession(t *testing.T) {
	sensor := &fakeSensor{}
	m := newTestManager(t, sensor)
	if err := m.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	first := sensor.last()
	firstID := m.SessionID()
	m.OnBackground()
	if !first.isClosed() || m.State() != LifecycleSuspended || m.SessionID() != "" {
		t.Fatalf("expected released session while backgrounded")
	}
	first.emit(testFrame)
	if m.Stats().Received != 0 {
		t.Fatalf("frames from a released session must be ignored")
	}
	m.OnForeground()
	if sensor.count() != 2 || m.State() != LifecycleActive {
		t.Fatalf("expected re-acquired session, got %d sessions state %s", sensor.count(), m.State())
	}
	if m.SessionID() == firstID {
		t.Fatalf("expected a fresh session id")
	}
}

func TestCameraManager_StartInBackgroundDefersAcquire(t *testing.T) {
	sensor := &fakeSensor{}
	m := NewCameraManager(discardLogger, sensor, ManagerOptions{Foreground: false})
	defer m.Shutdown()
	if err := m.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if sensor.count() != 0 || m.State() != LifecycleSuspended {
		t.Fatalf("expected no acquisition while hidden")
	}
	m.OnForeground()
	if sensor.count() != 1 {
		t.Fatalf("expected acquisition on foreground")
	}
}

func TestCameraManager_AcquireFailureReportedOnce(t *testing.T) {
	sensor := &fakeSensor{err: ErrSensorUnavailable}
	m := newTestManager(t, sensor)
	if err := m.Start(nil); !errors.Is(err, ErrSensorUnavailable) {
		t.Fatalf("expected sensor unavailable, got %v", err)
	}
	if m.State() != LifecycleFailed {
		t.Fatalf("expected failed state, got %s", m.State())
	}
	m.OnBackground()
	m.OnForeground()
	select {
	case err := <-m.Errors():
		if !errors.Is(err, ErrSensorUnavailable) {
			t.Fatalf("unexpected error %v", err)
		}
	default:
		t.Fatalf("expected one reported error")
	}
	select {
	case err := <-m.Errors():
		t.Fatalf("expected a single report, got second %v", err)
	default:
	}
}

func TestCameraManager_ShutdownStopsProcessing(t *testing.T) {
	sensor := &fakeSensor{}
	m := NewCameraManager(discardLogger, sensor, ManagerOptions{Foreground: true})
	var calls atomic.Int32
	m.SetFrameHandler(func(image.Image) []detection.DetectionBox {
		calls.Add(1)
		return nil
	})
	if err := m.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := sensor.last()
	m.Shutdown()
	m.Wait()
	if !sess.isClosed() || m.State() != LifecycleDestroyed {
		t.Fatalf("expected released session after shutdown")
	}
	sess.emit(testFrame)
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("frame processed after shutdown")
	}
	if err := m.Start(nil); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
	m.Shutdown()
}

func TestCameraManager_SuspendResetsStreak(t *testing.T) {
	sensor := &fakeSensor{}
	m := newTestManager(t, sensor)
	m.SetFrameHandler(exitBoxes)
	var fired atomic.Int32
	m.AddExitListener(func(ExitEvent) { fired.Add(1) })
	if err := m.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	base := time.Unix(2000, 0)
	emitAt := func(sess *fakeSession, i int) {
		f := testFrame
		f.Timestamp = base.Add(time.Duration(i) * 10 * time.Millisecond)
		sess.emit(f)
		waitFor(t, "frame processed", func() bool { return m.Stats().Processed == uint64(i+1) && !m.busy.Load() }, time.Second)
	}
	emitAt(sensor.last(), 0)
	emitAt(sensor.last(), 1)
	m.OnBackground()
	m.OnForeground()
	emitAt(sensor.last(), 2)
	time.Sleep(10 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("streak survived suspend: %d exit events", got)
	}
}

func TestCameraManager_ShutdownDuringInflightFrame(t *testing.T) {
	sensor := &fakeSensor{}
	m := NewCameraManager(discardLogger, sensor, ManagerOptions{
		Foreground: true,
		Gate:       hysteresis.Options{RequiredStreak: 1},
	})
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	var calls, fired atomic.Int32
	m.SetFrameHandler(func(img image.Image) []detection.DetectionBox {
		calls.Add(1)
		entered <- struct{}{}
		<-release
		return exitBoxes(img)
	})
	m.AddExitListener(func(ExitEvent) { fired.Add(1) })
	if err := m.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := sensor.last()
	sess.emit(testFrame)
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler never entered")
	}
	m.Shutdown()
	close(release)

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not exit after shutdown")
	}
	sess.emit(testFrame)
	time.Sleep(10 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected the in-flight frame only, got %d handler calls", got)
	}
	if got := fired.Load(); got != 0 {
		t.Fatalf("exit event delivered after shutdown")
	}
}

// heldDispatcher queues posted work until the test runs it.
type heldDispatcher struct {
	mu  sync.Mutex
	fns []func()
}

func (d *heldDispatcher) Post(fn func()) {
	d.mu.Lock()
	d.fns = append(d.fns, fn)
	d.mu.Unlock()
}

func (d *heldDispatcher) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fns)
}

func (d *heldDispatcher) run() {
	d.mu.Lock()
	fns := d.fns
	d.fns = nil
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func TestCameraManager_StalledDispatcherHoldsOneDelivery(t *testing.T) {
	sensor := &fakeSensor{}
	disp := &heldDispatcher{}
	m := NewCameraManager(discardLogger, sensor, ManagerOptions{Foreground: true, Dispatcher: disp})
	t.Cleanup(m.Shutdown)
	var shown atomic.Int32
	if err := m.Start(PreviewFunc(func(image.Image) { shown.Add(1) })); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := sensor.last()
	sess.emit(testFrame)
	waitFor(t, "first delivery posted", func() bool { return disp.pending() == 1 }, time.Second)
	for i := 0; i < 20; i++ {
		sess.emit(testFrame)
	}
	time.Sleep(10 * time.Millisecond)
	if got := disp.pending(); got != 1 {
		t.Fatalf("expected a single queued delivery while the UI is stalled, got %d", got)
	}
	if st := m.Stats(); st.Processed != 1 || st.Dropped != 20 {
		t.Fatalf("expected 1 processed / 20 dropped, got %+v", st)
	}
	disp.run()
	if shown.Load() != 1 || m.busy.Load() {
		t.Fatalf("delivery did not free the pipeline")
	}
	sess.emit(testFrame)
	waitFor(t, "next delivery posted", func() bool { return disp.pending() == 1 }, time.Second)
}

func TestCameraManager_DecodeFailuresAreAbsorbed(t *testing.T) {
	sensor := &fakeSensor{}
	m := newTestManager(t, sensor)
	var calls atomic.Int32
	m.SetFrameHandler(func(image.Image) []detection.DetectionBox {
		calls.Add(1)
		return nil
	})
	if err := m.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := sensor.last()
	bad := testFrame
	bad.Y.Data = nil
	sess.emit(bad)
	waitFor(t, "decode failure", func() bool { return m.Stats().DecodeFailures == 1 && !m.busy.Load() }, time.Second)
	sess.emit(testFrame)
	waitFor(t, "recovered frame", func() bool { return calls.Load() == 1 }, time.Second)
}
