// Package cue emits non-visual accessibility signals (audio, and haptics on
// hosts that have them) for detection events.
package cue

import (
	"log/slog"
	"sync"
)

// Kind identifies the event being signalled.
type Kind int

const (
	// ExitVisible is the debounced local "exit in view" event.
	ExitVisible Kind = iota
	// ScanFound is a remote scan that found at least one object.
	ScanFound
	// ScanFailed is a remote scan that could not run or got no answers.
	ScanFailed
)

func (k Kind) String() string {
	switch k {
	case ExitVisible:
		return "exit_visible"
	case ScanFound:
		return "scan_found"
	case ScanFailed:
		return "scan_failed"
	default:
		return "unknown"
	}
}

// pulses is the number of beeps per kind.
func (k Kind) pulses() int {
	switch k {
	case ExitVisible:
		return 2
	case ScanFound:
		return 1
	case ScanFailed:
		return 3
	default:
		return 1
	}
}

// Cue signals an event to the user. Notify must not block the caller for
// long; implementations hand slow work to their own goroutine.
type Cue interface {
	Notify(k Kind)
}

// Func adapts a function to Cue.
type Func func(k Kind)

func (f Func) Notify(k Kind) {
	if f != nil {
		f(k)
	}
}

// Multi fans a notification out to every cue.
type Multi []Cue

func (m Multi) Notify(k Kind) {
	for _, c := range m {
		if c != nil {
			c.Notify(k)
		}
	}
}

// Beeper plays a platform beep pattern per Kind on a background goroutine.
// A new notification while a pattern plays is dropped.
type Beeper struct {
	logger *slog.Logger
	beep   func() error
	mu     sync.Mutex
	busy   bool
	wg     sync.WaitGroup
}

// NewBeeper returns a beeper using the platform beep.
func NewBeeper(logger *slog.Logger) *Beeper {
	return &Beeper{logger: logger, beep: platformBeep}
}

func (b *Beeper) Notify(k Kind) {
	b.mu.Lock()
	if b.busy {
		b.mu.Unlock()
		return
	}
	b.busy = true
	b.mu.Unlock()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			b.mu.Lock()
			b.busy = false
			b.mu.Unlock()
		}()
		for i := 0; i < k.pulses(); i++ {
			if i > 0 {
				pulseGap()
			}
			if err := b.beep(); err != nil {
				if b.logger != nil {
					b.logger.Debug("cue.beep", "kind", k.String(), "error", err)
				}
				return
			}
		}
	}()
}

// Wait blocks until any pattern in progress has finished.
func (b *Beeper) Wait() { b.wg.Wait() }
