// Package hysteresis debounces the noisy per-frame "exit visible" signal of
// the local classifier into single events separated by a cooldown.
package hysteresis

import (
	"log/slog"
	"time"

	"github.com/soocke/sensesafe-go/domain/detection"
)

const (
	DefaultRequiredStreak = 3
	DefaultCooldown       = 2000 * time.Millisecond
	DefaultLabel          = "EXIT"
)

// Options tunes a Gate. Zero values select the defaults.
type Options struct {
	RequiredStreak int
	Cooldown       time.Duration
	Label          string
}

// Gate turns a per-frame positive/negative signal into a debounced event.
// A positive frame is one with any box labeled Label (case-insensitive).
// The event fires when the consecutive positive streak reaches
// RequiredStreak and more than Cooldown has passed since the previous fire.
// Any negative frame resets the streak to zero.
//
// Not safe for concurrent use; call Observe from a single goroutine.
type Gate struct {
	requiredStreak int
	cooldown       time.Duration
	label          string
	logger         *slog.Logger

	positiveStreak int
	lastFire       time.Time
}

// NewGate returns a gate with opts applied over the defaults.
func NewGate(opts Options, logger *slog.Logger) *Gate {
	g := &Gate{
		requiredStreak: DefaultRequiredStreak,
		cooldown:       DefaultCooldown,
		label:          DefaultLabel,
		logger:         logger,
	}
	if opts.RequiredStreak > 0 {
		g.requiredStreak = opts.RequiredStreak
	}
	if opts.Cooldown > 0 {
		g.cooldown = opts.Cooldown
	}
	if opts.Label != "" {
		g.label = opts.Label
	}
	return g
}

// Observe feeds the boxes of one frame seen at now and reports whether the
// exit event fires on this frame.
func (g *Gate) Observe(boxes []detection.DetectionBox, now time.Time) bool {
	if !g.positive(boxes) {
		g.positiveStreak = 0
		return false
	}
	g.positiveStreak++
	if g.positiveStreak < g.requiredStreak {
		return false
	}
	if !g.lastFire.IsZero() && now.Sub(g.lastFire) <= g.cooldown {
		return false
	}
	if g.logger != nil {
		g.logger.Debug("exit gate fired", "streak", g.positiveStreak, "since_last", sinceLast(g.lastFire, now))
	}
	g.lastFire = now
	g.positiveStreak = 0
	return true
}

func (g *Gate) positive(boxes []detection.DetectionBox) bool {
	for _, b := range boxes {
		if b.HasLabel(g.label) {
			return true
		}
	}
	return false
}

// Reset clears the streak and the last fire time.
func (g *Gate) Reset() {
	g.positiveStreak = 0
	g.lastFire = time.Time{}
}

// Streak returns the current consecutive positive count.
func (g *Gate) Streak() int { return g.positiveStreak }

// LastFire returns the time of the last fire, zero if none.
func (g *Gate) LastFire() time.Time { return g.lastFire }

func sinceLast(last, now time.Time) time.Duration {
	if last.IsZero() {
		return 0
	}
	return now.Sub(last)
}
