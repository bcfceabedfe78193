// Package scan exposes the remote detection scan as a cancellable,
// observable state for the UI.
package scan

import (
	"context"
	"image"
	"time"

	"github.com/soocke/sensesafe-go/domain/detection"
)

// Kind is the tag of a ScanState.
type Kind int

const (
	KindIdle Kind = iota
	KindLoading
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// ScanState is the published scan state. Result and Boxes are set only for
// KindSuccess; Message is set for KindSuccess and KindError.
type ScanState struct {
	Kind    Kind
	ScanID  string
	Result  detection.MergedDetectionResult
	Boxes   []detection.RenderBox
	Message string
	At      time.Time
}

// Idle is the initial state.
func Idle() ScanState { return ScanState{Kind: KindIdle} }

// Detector runs one scan. *remote.Orchestrator satisfies it.
type Detector interface {
	DetectAll(ctx context.Context, img image.Image) detection.MergedDetectionResult
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, img image.Image) detection.MergedDetectionResult

func (f DetectorFunc) DetectAll(ctx context.Context, img image.Image) detection.MergedDetectionResult {
	return f(ctx, img)
}

// Listener observes transitions. It runs on the state machine goroutine and
// must not block.
type Listener func(prev, next ScanState)
