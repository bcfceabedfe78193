package presenter

import (
	"log/slog"
	"sync"
)

// UIDispatcher queues work posted from background goroutines and runs it on
// the UI thread when Drain is called from the Tk update loop.
type UIDispatcher struct {
	logger *slog.Logger
	mu     sync.Mutex
	queue  []func()
}

func NewUIDispatcher(logger *slog.Logger) *UIDispatcher { return &UIDispatcher{logger: logger} }

// Post enqueues fn. Safe for concurrent use.
func (d *UIDispatcher) Post(fn func()) {
	if d == nil || fn == nil {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

// Drain runs everything queued so far and returns how many functions ran.
// Work posted while draining runs on the next call.
func (d *UIDispatcher) Drain() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()
	for _, fn := range batch {
		d.run(fn)
	}
	return len(batch)
}

func (d *UIDispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil && d.logger != nil {
			d.logger.Error("ui dispatch panic", "panic", r)
		}
	}()
	fn()
}
