// Package classify holds on-device frame classifiers. A classifier is an
// opaque function from a decoded frame to labeled, normalized boxes.
package classify

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/draw"

	"github.com/soocke/sensesafe-go/domain/detection"
)

// Classifier maps one frame to detection boxes. Implementations must be safe
// to call from a single background goroutine and should not retain img.
type Classifier interface {
	Classify(img image.Image) []detection.DetectionBox
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(img image.Image) []detection.DetectionBox

func (f ClassifierFunc) Classify(img image.Image) []detection.DetectionBox {
	if f == nil || img == nil {
		return nil
	}
	return f(img)
}

// Nop never detects anything.
var Nop = ClassifierFunc(func(image.Image) []detection.DetectionBox { return nil })

const defaultCacheSize = 64

// TemplateOptions tunes the multi-scale NCC matcher.
type TemplateOptions struct {
	Label       string
	MinScale    float64
	MaxScale    float64
	ScaleStep   float64
	Threshold   float64
	Stride      int
	Refine      bool
	StopOnScore float64
	CacheSize   int
}

// TemplateClassifier finds a reference sign in a frame by normalized
// cross-correlation over several template scales. A match yields a single
// box with the configured label and the correlation score as confidence.
type TemplateClassifier struct {
	logger      *slog.Logger
	label       string
	base        image.Image
	scales      []float64
	ncc         nccOptions
	stopOnScore float64
	cache       *lru.Cache[[2]int, *templatePrecomp]
}

// NewTemplateClassifier prepares tmpl for matching.
func NewTemplateClassifier(logger *slog.Logger, tmpl image.Image, opts TemplateOptions) (*TemplateClassifier, error) {
	if tmpl == nil {
		return nil, errors.New("template classifier: nil template")
	}
	if b := tmpl.Bounds(); b.Dx() < 2 || b.Dy() < 2 {
		return nil, fmt.Errorf("template classifier: template too small %v", b)
	}
	if opts.Label == "" {
		opts.Label = "EXIT"
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 0.80
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	cache, err := lru.New[[2]int, *templatePrecomp](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("template classifier: %w", err)
	}
	c := &TemplateClassifier{
		logger:      logger,
		label:       opts.Label,
		base:        tmpl,
		scales:      scaleFactors(opts.MinScale, opts.MaxScale, opts.ScaleStep),
		ncc:         nccOptions{Threshold: opts.Threshold, Stride: opts.Stride, Refine: opts.Refine},
		stopOnScore: opts.StopOnScore,
		cache:       cache,
	}
	if c.scaled(1) == nil {
		return nil, errors.New("template classifier: template has no contrast")
	}
	return c, nil
}

// scaled returns the precomputed template resized by factor, building and
// caching it on first use.
func (c *TemplateClassifier) scaled(factor float64) *templatePrecomp {
	b := c.base.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	if w < 2 || h < 2 {
		return nil
	}
	key := [2]int{w, h}
	if pc, ok := c.cache.Get(key); ok {
		return pc
	}
	var src image.Image = c.base
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(dst, dst.Bounds(), c.base, b, draw.Src, nil)
		src = dst
	}
	pc := buildTemplatePrecomp(src)
	if pc == nil || pc.stdT <= 1e-9 {
		return nil
	}
	c.cache.Add(key, pc)
	return pc
}

// Classify returns one normalized box when the template matches img.
func (c *TemplateClassifier) Classify(img image.Image) []detection.DetectionBox {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}
	res := c.matchMultiScale(img)
	if c.logger != nil {
		c.logger.Debug("classify.template", "score", res.Score, "scale", res.Scale, "found", res.Found, "scales", res.Evaluated)
	}
	if !res.Found {
		return nil
	}
	W, H := float64(b.Dx()), float64(b.Dy())
	box := detection.DetectionBox{
		X1:         float64(res.X) / W,
		Y1:         float64(res.Y) / H,
		X2:         float64(res.X+res.W) / W,
		Y2:         float64(res.Y+res.H) / H,
		Label:      c.label,
		Confidence: res.Score,
	}
	return []detection.DetectionBox{box.Clamp()}
}
