// Package remote runs the on-demand cloud detection scan: one captured image
// is sent to several independent detection services in turn and their
// predictions are merged despite partial failure.
package remote

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"

	"github.com/soocke/sensesafe-go/config"
	"github.com/soocke/sensesafe-go/domain/detection"
)

const messageEncodeFailed = "Scan failed: the image could not be prepared for upload"

// Options tunes an Orchestrator. Zero values select the defaults.
type Options struct {
	MaxUploadSide int
	JPEGQuality   int
	// MinConfidence drops predictions scoring below it before merging.
	MinConfidence float64
}

// Orchestrator sends one image to every service sequentially and merges the
// results. It holds no per-scan state; DetectAll may be called repeatedly.
type Orchestrator struct {
	logger   *slog.Logger
	services []Service
	conn     Connectivity
	opts     Options
}

// NewOrchestrator returns an orchestrator calling services in the given
// order. A nil conn is treated as always online.
func NewOrchestrator(logger *slog.Logger, services []Service, conn Connectivity, opts Options) *Orchestrator {
	if conn == nil {
		conn = AlwaysOnline
	}
	if opts.MaxUploadSide <= 0 {
		opts.MaxUploadSide = DefaultMaxUploadSide
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	return &Orchestrator{logger: logger, services: services, conn: conn, opts: opts}
}

// NewFromConfig builds HTTP services for every configured entry of cfg,
// sharing one client, plus a dial probe against the configured hosts.
func NewFromConfig(logger *slog.Logger, cfg *config.Config) *Orchestrator {
	client := NewHTTPClient(cfg.ConnectTimeout(), cfg.ReadWriteTimeout())
	services := make([]Service, 0, len(cfg.Services))
	var urls []string
	for _, sc := range cfg.Services {
		services = append(services, NewHTTPService(sc, client))
		if sc.Configured() {
			urls = append(urls, sc.URL)
		}
	}
	probe := NewDialProbe(urls, cfg.ConnectivityProbeTimeout())
	return NewOrchestrator(logger, services, probe, Options{
		MaxUploadSide: cfg.MaxUploadSide,
		JPEGQuality:   cfg.JPEGQuality,
		MinConfidence: cfg.MinConfidence,
	})
}

// Services returns the services in call order.
func (o *Orchestrator) Services() []Service { return o.services }

// DetectAll runs one scan. It never returns an error: configuration gaps,
// connectivity loss and per-service failures are all reported in the
// returned result. No request is made unless at least one service is
// configured and the connectivity check passes. ctx cancellation is checked
// between services; a request already sent completes.
func (o *Orchestrator) DetectAll(ctx context.Context, img image.Image) detection.MergedDetectionResult {
	start := time.Now()
	if !o.anyConfigured() {
		o.logInfo("remote.scan.not_configured")
		return o.shortCircuit(detection.MessageNotConfigured, ErrNotConfigured)
	}
	if ctx.Err() != nil {
		return o.shortCircuit(detection.MessageCancelled, ErrCancelled)
	}
	if !o.conn.Available(ctx) {
		o.logWarn("remote.scan.offline")
		return o.shortCircuit(detection.MessageNoConnectivity, ErrNoConnectivity)
	}
	if img == nil {
		return o.shortCircuit(messageEncodeFailed, errors.New("nil image"))
	}
	src := img.Bounds()
	upload := BoundUpload(img, o.opts.MaxUploadSide)
	payload, size, err := EncodeUpload(upload, o.opts.JPEGQuality)
	if err != nil {
		o.logWarn("remote.scan.encode", "error", err)
		return o.shortCircuit(messageEncodeFailed, err)
	}
	ub := upload.Bounds()
	o.logInfo("remote.scan.start",
		"source", src.Size().String(),
		"upload", ub.Size().String(),
		"payload", humanize.Bytes(uint64(size)),
		"services", len(o.services),
	)

	skip := func(s Service) error {
		if !s.Configured() {
			return ErrNotConfigured
		}
		return nil
	}
	call := func(ctx context.Context, s Service) ([]detection.RemotePrediction, error) {
		return s.Detect(ctx, payload)
	}
	attempts := AttemptInOrder(ctx, o.services, skip, call)

	results := make([]detection.ModelDetectionResult, 0, len(attempts))
	for _, a := range attempts {
		r := detection.ModelDetectionResult{
			ModelName:      a.Item.Name(),
			DurationMillis: a.Duration.Milliseconds(),
		}
		if a.Err != nil {
			r.Error = a.Err.Error()
			if !a.Skipped {
				o.logWarn("remote.service.failed", "service", r.ModelName, "error", a.Err, "duration", a.Duration)
			}
		} else {
			r.Predictions = o.filter(a.Value)
			o.logDebug("remote.service.done", "service", r.ModelName, "predictions", len(r.Predictions), "duration", a.Duration)
		}
		results = append(results, r)
	}
	merged := detection.Merge(results)
	if ctx.Err() != nil && !merged.HasExits {
		merged.Failed = true
		merged.Message = detection.MessageCancelled
	}
	mean, sd := confidenceSummary(merged.AllDetections)
	o.logInfo("remote.scan.done",
		"detections", len(merged.AllDetections),
		"failed", merged.Failed,
		"confidence_mean", mean,
		"confidence_stddev", sd,
		"elapsed", time.Since(start),
	)
	return merged
}

func (o *Orchestrator) anyConfigured() bool {
	for _, s := range o.services {
		if s.Configured() {
			return true
		}
	}
	return false
}

// shortCircuit reports every service as failed with cause without calling it.
func (o *Orchestrator) shortCircuit(message string, cause error) detection.MergedDetectionResult {
	models := make([]detection.ModelDetectionResult, 0, len(o.services))
	for _, s := range o.services {
		reason := cause
		if !s.Configured() {
			reason = ErrNotConfigured
		}
		models = append(models, detection.ModelDetectionResult{ModelName: s.Name(), Error: reason.Error()})
	}
	return detection.MergedDetectionResult{Message: message, Models: models, Failed: true}
}

func (o *Orchestrator) filter(preds []detection.RemotePrediction) []detection.RemotePrediction {
	if o.opts.MinConfidence <= 0 {
		return preds
	}
	out := preds[:0:0]
	for _, p := range preds {
		if p.Confidence >= o.opts.MinConfidence {
			out = append(out, p)
		}
	}
	return out
}

func confidenceSummary(preds []detection.RemotePrediction) (mean, stddev float64) {
	if len(preds) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(preds))
	for i, p := range preds {
		xs[i] = p.Confidence
	}
	if len(xs) == 1 {
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}

func (o *Orchestrator) logInfo(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) logWarn(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}

func (o *Orchestrator) logDebug(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}
