package scan

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/sensesafe-go/domain/detection"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// gatedDetector blocks each call until the test releases it with a result.
type gatedDetector struct {
	mu    sync.Mutex
	calls []*gatedCall
	added chan struct{}
}

type gatedCall struct {
	ctx     context.Context
	release chan detection.MergedDetectionResult
}

func newGatedDetector() *gatedDetector {
	return &gatedDetector{added: make(chan struct{}, 16)}
}

func (g *gatedDetector) DetectAll(ctx context.Context, img image.Image) detection.MergedDetectionResult {
	c := &gatedCall{ctx: ctx, release: make(chan detection.MergedDetectionResult, 1)}
	g.mu.Lock()
	g.calls = append(g.calls, c)
	g.mu.Unlock()
	g.added <- struct{}{}
	return <-c.release
}

func (g *gatedDetector) call(t *testing.T, i int) *gatedCall {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		g.mu.Lock()
		if len(g.calls) > i {
			c := g.calls[i]
			g.mu.Unlock()
			return c
		}
		g.mu.Unlock()
		select {
		case <-g.added:
		case <-deadline:
			t.Fatalf("detector call %d never started", i)
		}
	}
}

type recorder struct {
	mu     sync.Mutex
	states []ScanState
}

func (r *recorder) listen(_, next ScanState) {
	r.mu.Lock()
	r.states = append(r.states, next)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []ScanState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ScanState(nil), r.states...)
}

// waitForState waits up to timeout for the machine to reach kind.
func waitForState(t *testing.T, m *StateMachine, kind Kind, timeout time.Duration) ScanState {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if st := m.Current(); st.Kind == kind {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for state %v (got %v)", kind, m.Current().Kind)
	return ScanState{}
}

var img = image.NewRGBA(image.Rect(0, 0, 8, 8))

func found(n int) detection.MergedDetectionResult {
	var preds []detection.ModelDetectionResult
	p := detection.RemotePrediction{CenterX: 100, CenterY: 50, Width: 40, Height: 20, Confidence: 0.85}
	r := detection.ModelDetectionResult{ModelName: "doors"}
	for i := 0; i < n; i++ {
		r.Predictions = append(r.Predictions, p)
	}
	preds = append(preds, r)
	return detection.Merge(preds)
}

func TestStateMachine_ScanSuccess(t *testing.T) {
	g := newGatedDetector()
	m := NewStateMachine(discardLogger, g)
	defer m.Close()
	rec := &recorder{}
	m.AddListener(rec.listen)

	id := m.Scan(img)
	require.NotEmpty(t, id)
	assert.Equal(t, KindLoading, m.Current().Kind)
	g.call(t, 0).release <- found(2)

	st := waitForState(t, m, KindSuccess, time.Second)
	assert.Equal(t, id, st.ScanID)
	assert.True(t, st.Result.HasExits)
	require.Len(t, st.Boxes, 2)
	assert.Equal(t, detection.RenderBox{Left: 80, Top: 40, Width: 40, Height: 20, Label: "object", Confidence: 0.85}, st.Boxes[0])

	states := rec.snapshot()
	require.Len(t, states, 2)
	assert.Equal(t, KindLoading, states[0].Kind)
	assert.Equal(t, KindSuccess, states[1].Kind)
}

func TestStateMachine_NoExitsIsSuccess(t *testing.T) {
	m := NewStateMachine(discardLogger, DetectorFunc(func(context.Context, image.Image) detection.MergedDetectionResult {
		return detection.Merge([]detection.ModelDetectionResult{{ModelName: "doors"}})
	}))
	defer m.Close()
	m.Scan(img)
	st := waitForState(t, m, KindSuccess, time.Second)
	assert.False(t, st.Result.HasExits)
	assert.Equal(t, detection.MessageNoExits, st.Message)
}

func TestStateMachine_FailedResultIsError(t *testing.T) {
	m := NewStateMachine(discardLogger, DetectorFunc(func(context.Context, image.Image) detection.MergedDetectionResult {
		return detection.MergedDetectionResult{Failed: true, Message: detection.MessageNoConnectivity}
	}))
	defer m.Close()
	m.Scan(img)
	st := waitForState(t, m, KindError, time.Second)
	assert.Equal(t, detection.MessageNoConnectivity, st.Message)
	assert.Nil(t, st.Boxes)

	m.Reset()
	waitForState(t, m, KindIdle, time.Second)
}

func TestStateMachine_NewScanReplacesInFlight(t *testing.T) {
	g := newGatedDetector()
	m := NewStateMachine(discardLogger, g)
	defer m.Close()
	rec := &recorder{}
	m.AddListener(rec.listen)

	first := m.Scan(img)
	c0 := g.call(t, 0)
	second := m.Scan(img)
	c1 := g.call(t, 1)
	require.NotEqual(t, first, second)

	select {
	case <-c0.ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("first scan was not cancelled")
	}
	assert.NoError(t, c1.ctx.Err())

	// The stale result arrives first and must be ignored.
	c0.release <- found(5)
	time.Sleep(20 * time.Millisecond)
	st := m.Current()
	assert.Equal(t, KindLoading, st.Kind)
	assert.Equal(t, second, st.ScanID)

	c1.release <- found(1)
	st = waitForState(t, m, KindSuccess, time.Second)
	assert.Equal(t, second, st.ScanID)
	assert.Len(t, st.Result.AllDetections, 1)

	for _, s := range rec.snapshot() {
		if s.Kind == KindSuccess || s.Kind == KindError {
			assert.Equal(t, second, s.ScanID, "only the newest scan may publish a result")
		}
	}
}

func TestStateMachine_CancelReturnsToIdle(t *testing.T) {
	g := newGatedDetector()
	m := NewStateMachine(discardLogger, g)
	defer m.Close()
	m.Scan(img)
	c := g.call(t, 0)
	m.Cancel()
	waitForState(t, m, KindIdle, time.Second)
	select {
	case <-c.ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("cancel did not reach the detector context")
	}
	c.release <- found(1)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, KindIdle, m.Current().Kind)
}

func TestStateMachine_ResetIgnoredWhileLoading(t *testing.T) {
	g := newGatedDetector()
	m := NewStateMachine(discardLogger, g)
	defer m.Close()
	m.Scan(img)
	c := g.call(t, 0)
	m.Reset()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, KindLoading, m.Current().Kind)
	c.release <- found(1)
	waitForState(t, m, KindSuccess, time.Second)
	m.Reset()
	waitForState(t, m, KindIdle, time.Second)
}

func TestStateMachine_PanickingDetectorYieldsError(t *testing.T) {
	m := NewStateMachine(discardLogger, DetectorFunc(func(context.Context, image.Image) detection.MergedDetectionResult {
		panic("boom")
	}))
	defer m.Close()
	m.Scan(img)
	st := waitForState(t, m, KindError, time.Second)
	assert.Equal(t, detection.MessageAllFailed, st.Message)
	assert.NotContains(t, st.Message, "boom")
}

func TestStateMachine_ClosedIsInert(t *testing.T) {
	m := NewStateMachine(discardLogger, DetectorFunc(func(context.Context, image.Image) detection.MergedDetectionResult {
		return detection.MergedDetectionResult{}
	}))
	m.Close()
	m.Close()
	assert.Empty(t, m.Scan(img))
	m.Cancel()
	m.Reset()
	assert.Equal(t, KindIdle, m.Current().Kind)
}

func TestSlot_SwapDisposesPrevious(t *testing.T) {
	var disposed []int
	s := NewSlot(func(v *int) { disposed = append(disposed, *v) })
	a, b := 1, 2
	s.Swap(&a)
	s.Swap(&b)
	assert.Equal(t, []int{1}, disposed)
	assert.True(t, s.IsCurrent(&b))
	assert.False(t, s.Release(&a))
	assert.True(t, s.Release(&b))
	assert.Nil(t, s.Current())
	s.Swap(nil)
	assert.Equal(t, []int{1}, disposed)
}
