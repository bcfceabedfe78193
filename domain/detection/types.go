// Package detection holds the value types shared by the local and remote
// exit detection pipelines and the UI layer.
package detection

import (
	"fmt"
	"strings"
)

// DetectionBox is a labeled rectangle in normalized [0,1] image coordinates,
// produced per frame by a local classifier and discarded after the frame.
type DetectionBox struct {
	X1, Y1, X2, Y2 float64
	Label          string
	Confidence     float64
}

// HasLabel reports whether the box label equals label, ignoring case.
func (b DetectionBox) HasLabel(label string) bool {
	return strings.EqualFold(strings.TrimSpace(b.Label), label)
}

// Clamp returns the box with coordinates and confidence limited to [0,1] and
// corners ordered so that X1<=X2 and Y1<=Y2.
func (b DetectionBox) Clamp() DetectionBox {
	if b.X1 > b.X2 {
		b.X1, b.X2 = b.X2, b.X1
	}
	if b.Y1 > b.Y2 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}
	b.X1, b.Y1 = clamp01(b.X1), clamp01(b.Y1)
	b.X2, b.Y2 = clamp01(b.X2), clamp01(b.Y2)
	b.Confidence = clamp01(b.Confidence)
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RemotePrediction is one detection returned by a remote service. Coordinates
// are center based, in pixels of the submitted (possibly downscaled) image.
type RemotePrediction struct {
	CenterX    float64 `json:"x"`
	CenterY    float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	// Label is nil when the service omitted both class fields.
	Label *string `json:"label,omitempty"`
}

// LabelOr returns the prediction label or fallback when unset.
func (p RemotePrediction) LabelOr(fallback string) string {
	if p.Label == nil || *p.Label == "" {
		return fallback
	}
	return *p.Label
}

// ModelDetectionResult is the outcome of one remote service call. Predictions
// is meaningful only when Error is empty.
type ModelDetectionResult struct {
	ModelName   string
	Predictions []RemotePrediction
	Error       string
	// DurationMillis is the wall time spent on the call; zero when skipped.
	DurationMillis int64
}

// OK reports whether the call produced usable predictions.
func (r ModelDetectionResult) OK() bool { return r.Error == "" }

// MergedDetectionResult combines the successful predictions of all services
// of one scan. HasExits always equals len(AllDetections) > 0.
type MergedDetectionResult struct {
	AllDetections []RemotePrediction
	HasExits      bool
	Message       string
	// Models carries the per-service breakdown in call order.
	Models []ModelDetectionResult
	// Failed marks an infrastructure failure (no connectivity, nothing
	// configured, or every service errored), as opposed to "no exits".
	Failed bool
}

// Messages presented to the user. "No exits" and "scan failed" never share text.
const (
	MessageNoExits        = "No exits detected yet"
	MessageNotConfigured  = "Exit detection is not configured: add a service URL and key"
	MessageNoConnectivity = "Scan failed: no network connection"
	MessageAllFailed      = "Scan failed: all detection services are unavailable"
	MessageCancelled      = "Scan cancelled"
)

// ExitsFoundMessage formats the success message for n detections.
func ExitsFoundMessage(n int) string {
	return fmt.Sprintf("Exit found — %d object(s) detected", n)
}

// Merge builds a MergedDetectionResult from per-service results. Only
// successful results contribute detections. The result is marked Failed when
// no result succeeded.
func Merge(results []ModelDetectionResult) MergedDetectionResult {
	var all []RemotePrediction
	succeeded := 0
	for _, r := range results {
		if !r.OK() {
			continue
		}
		succeeded++
		all = append(all, r.Predictions...)
	}
	out := MergedDetectionResult{
		AllDetections: all,
		HasExits:      len(all) > 0,
		Models:        results,
	}
	switch {
	case out.HasExits:
		out.Message = ExitsFoundMessage(len(all))
	case succeeded == 0:
		out.Failed = true
		out.Message = MessageAllFailed
	default:
		out.Message = MessageNoExits
	}
	return out
}

// RenderBox is a prediction converted to a top-left origin rectangle for
// drawing, still in pixels of the submitted image.
type RenderBox struct {
	Left, Top     float64
	Width, Height float64
	Label         string
	Confidence    float64
}

// ToRenderBox converts a center based prediction to a top-left box.
func ToRenderBox(p RemotePrediction) RenderBox {
	return RenderBox{
		Left:       p.CenterX - p.Width/2,
		Top:        p.CenterY - p.Height/2,
		Width:      p.Width,
		Height:     p.Height,
		Label:      p.LabelOr("object"),
		Confidence: p.Confidence,
	}
}

// ToRenderBoxes converts every prediction; nil in, nil out.
func ToRenderBoxes(preds []RemotePrediction) []RenderBox {
	if preds == nil {
		return nil
	}
	out := make([]RenderBox, len(preds))
	for i, p := range preds {
		out[i] = ToRenderBox(p)
	}
	return out
}
