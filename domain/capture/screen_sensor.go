package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vova616/screenshot"
)

const (
	defaultScreenInterval = 100 * time.Millisecond
	screenRowAlign        = 64
)

// ScreenSensor is a desktop stand-in for a camera. Each session grabs the
// screen (or the region returned by Region) on an interval and emits padded
// planar YUV frames. The grabbed image is turned against Rotation before
// packing so the frame carries real rotation metadata the converter must undo.
type ScreenSensor struct {
	Logger   *slog.Logger
	Interval time.Duration
	Rotation int
	Region   func() *image.Rectangle

	// grab is replaced in tests.
	grab func(r *image.Rectangle) (*image.RGBA, error)
}

// NewScreenSensor returns a sensor using the system screen grabber.
func NewScreenSensor(logger *slog.Logger, interval time.Duration, rotation int) *ScreenSensor {
	return &ScreenSensor{Logger: logger, Interval: interval, Rotation: rotation}
}

func (s *ScreenSensor) grabber() func(r *image.Rectangle) (*image.RGBA, error) {
	if s.grab != nil {
		return s.grab
	}
	return grabScreen
}

func grabScreen(r *image.Rectangle) (*image.RGBA, error) {
	if r != nil && !r.Empty() {
		return screenshot.CaptureRect(*r)
	}
	return screenshot.CaptureScreen()
}

// Acquire probes the display and opens a session. The returned session does
// not emit until OnFrame is called.
func (s *ScreenSensor) Acquire(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.grab == nil {
		rect, err := screenshot.ScreenRect()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
		}
		if rect.Empty() {
			return nil, fmt.Errorf("%w: empty screen", ErrSensorUnavailable)
		}
	}
	interval := s.Interval
	if interval <= 0 {
		interval = defaultScreenInterval
	}
	return &screenSession{
		sensor:   s,
		interval: interval,
		grab:     s.grabber(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

type screenSession struct {
	sensor   *ScreenSensor
	interval time.Duration
	grab     func(r *image.Rectangle) (*image.RGBA, error)

	once     sync.Once
	started  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	captures atomic.Uint64
	skipped  atomic.Uint64
	sequence atomic.Uint64
}

func (s *screenSession) OnFrame(fn func(RawFrame)) {
	if fn == nil || !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.loop(fn)
}

// Close stops the grab loop and waits for it to exit.
func (s *screenSession) Close() error {
	s.once.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
	return nil
}

func (s *screenSession) loop(fn func(RawFrame)) {
	defer close(s.done)
	defer recoverLog(s.sensor.Logger, "screen sensor panic")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logTicker := time.NewTicker(cameraStatsLogInterval)
	defer logTicker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-logTicker.C:
			s.logStats()
		case <-ticker.C:
			var region *image.Rectangle
			if s.sensor.Region != nil {
				region = s.sensor.Region()
			}
			img, err := s.grab(region)
			if err != nil || img == nil {
				s.skipped.Add(1)
				if err != nil && s.sensor.Logger != nil {
					s.sensor.Logger.Debug("screen.grab", "error", err)
				}
				continue
			}
			s.captures.Add(1)
			fn(s.pack(img))
		}
	}
}

// pack mounts img like a sensor rotated by Rotation and packs it.
func (s *screenSession) pack(img *image.RGBA) RawFrame {
	rot := s.sensor.Rotation
	var src image.Image = img
	if rot != 0 {
		if turned, err := Rotate(img, 360-rot); err == nil {
			src = turned
		} else {
			rot = 0
		}
	}
	f := FrameFromImage(src, rot, screenRowAlign)
	f.Sequence = s.sequence.Add(1)
	return f
}

func (s *screenSession) logStats() {
	if s.sensor.Logger == nil {
		return
	}
	s.sensor.Logger.Debug("screen.stats",
		"captures", s.captures.Load(),
		"skipped", s.skipped.Load(),
		"sequence", s.sequence.Load(),
	)
}

// Still grabs one upright full resolution image of the current region. It is
// used for on-demand scans, independent of any running session.
func (s *ScreenSensor) Still(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var region *image.Rectangle
	if s.Region != nil {
		region = s.Region()
	}
	img, err := s.grabber()(region)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
	}
	if img == nil {
		return nil, ErrSensorUnavailable
	}
	return img, nil
}
