package capture

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

const latencyWindow = 64

// latencyRing keeps the most recent classification latencies.
type latencyRing struct {
	mu      sync.Mutex
	samples [latencyWindow]float64
	next    int
	count   int
}

func (r *latencyRing) add(d time.Duration) {
	r.mu.Lock()
	r.samples[r.next] = float64(d)
	r.next = (r.next + 1) % latencyWindow
	if r.count < latencyWindow {
		r.count++
	}
	r.mu.Unlock()
}

// summary returns the mean and standard deviation of the window.
func (r *latencyRing) summary() (mean, stddev time.Duration) {
	r.mu.Lock()
	xs := make([]float64, r.count)
	copy(xs, r.samples[:r.count])
	r.mu.Unlock()
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return time.Duration(xs[0]), 0
	}
	m, s := stat.MeanStdDev(xs, nil)
	return time.Duration(m), time.Duration(s)
}
