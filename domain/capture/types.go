package capture

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/soocke/sensesafe-go/domain/detection"
)

var (
	// ErrSensorUnavailable is returned by a Sensor that cannot open a session
	// (missing permission, no device, display unavailable).
	ErrSensorUnavailable = errors.New("sensor unavailable")
	// ErrShutdown is returned when operating on a manager after Shutdown.
	ErrShutdown = errors.New("camera manager shut down")
)

// Plane is one row-strided image plane. RowStride is the distance in bytes
// between the starts of consecutive rows and may exceed the visible width
// (row padding). PixelStride is the distance between consecutive samples of
// the same row: 1 for planar layouts, 2 for interleaved chroma.
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// RawFrame is one YUV 4:2:0 sensor frame as delivered by a Session.
// Rotation is the clockwise rotation in degrees (0, 90, 180, 270) that must be
// applied to display the frame upright.
type RawFrame struct {
	Width, Height int
	Y, U, V       Plane
	Rotation      int
	Timestamp     time.Time
	Sequence      uint64
}

// Session is an open sensor session. OnFrame registers the single frame
// callback; Close releases the underlying device. Frames may still be
// delivered briefly while Close runs.
type Session interface {
	OnFrame(fn func(RawFrame))
	Close() error
}

// Sensor opens sessions on a capture device.
type Sensor interface {
	Acquire(ctx context.Context) (Session, error)
}

// PreviewTarget receives every converted frame for display. It is always
// called on the dispatcher (UI) goroutine.
type PreviewTarget interface {
	ShowFrame(img image.Image)
}

// PreviewFunc adapts a function to PreviewTarget.
type PreviewFunc func(img image.Image)

func (f PreviewFunc) ShowFrame(img image.Image) {
	if f != nil {
		f(img)
	}
}

// Dispatcher posts work to the goroutine that owns UI-visible state.
type Dispatcher interface {
	Post(fn func())
}

// InlineDispatcher runs posted functions on the caller's goroutine.
type InlineDispatcher struct{}

func (InlineDispatcher) Post(fn func()) { fn() }

// FrameHandler classifies one converted frame. It runs off the sensor
// goroutine and at most one call is in progress at a time.
type FrameHandler func(img image.Image) []detection.DetectionBox

// ExitEvent is emitted when the hysteresis gate fires.
type ExitEvent struct {
	At        time.Time
	SessionID string
	Boxes     []detection.DetectionBox
}

// ExitListener is called on the dispatcher goroutine for each ExitEvent.
type ExitListener func(ExitEvent)

// PipelineStats summarises capture pipeline behaviour for instrumentation.
type PipelineStats struct {
	Received       uint64
	Dropped        uint64
	DecodeFailures uint64
	Processed      uint64
	ExitsFired     uint64
	// Classification latency over the most recent frames.
	ClassifyMean   time.Duration
	ClassifyStdDev time.Duration
	State          LifecycleState
	SessionID      string
}
