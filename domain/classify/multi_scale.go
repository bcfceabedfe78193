package classify

import (
	"image"
	"runtime"
	"sync"
	"sync/atomic"
)

// scaleFactors expands [minScale, maxScale] by step, capped at 200 entries.
func scaleFactors(minScale, maxScale, step float64) []float64 {
	if minScale <= 0 || maxScale < minScale || step <= 0 {
		return []float64{1}
	}
	maxSteps := 1 + int((maxScale-minScale)/step+0.5)
	if maxSteps > 200 {
		maxSteps = 200
	}
	out := make([]float64, 0, maxSteps)
	for s := minScale; s <= maxScale+1e-9 && len(out) < maxSteps; s += step {
		out = append(out, s)
	}
	return out
}

// multiScaleResult is the best match across all evaluated scales.
type multiScaleResult struct {
	nccResult
	Scale     float64
	Evaluated int
}

// matchMultiScale evaluates every scale in parallel (bounded by NumCPU) and
// returns the best. With stopOnScore > 0 remaining scales are skipped once
// any scale reaches it.
func (c *TemplateClassifier) matchMultiScale(frame image.Image) multiScaleResult {
	pre := buildGrayPrecomp(frame)
	if pre == nil {
		return multiScaleResult{nccResult: nccResult{Score: -1}}
	}
	var (
		stop      atomic.Bool
		evaluated atomic.Int32
		wg        sync.WaitGroup
		mu        sync.Mutex
	)
	best := multiScaleResult{nccResult: nccResult{Score: -1}}
	sem := make(chan struct{}, runtime.NumCPU())
	for _, factor := range c.scales {
		if stop.Load() {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(factor float64) {
			defer wg.Done()
			defer func() { <-sem }()
			if stop.Load() {
				return
			}
			pc := c.scaled(factor)
			if pc == nil {
				return
			}
			res := matchNCC(pre, pc, c.ncc)
			evaluated.Add(1)
			mu.Lock()
			if res.Score > best.Score {
				best = multiScaleResult{nccResult: res, Scale: factor}
			}
			mu.Unlock()
			if c.stopOnScore > 0 && res.Score >= c.stopOnScore {
				stop.Store(true)
			}
		}(factor)
	}
	wg.Wait()
	best.Evaluated = int(evaluated.Load())
	return best
}
