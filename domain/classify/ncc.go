package classify

import (
	"image"
	"math"
)

// grayPrecomp stores per-frame luma values and their summed-area tables
// (integral images). The integrals allow O(1) window sum and variance queries.
type grayPrecomp struct {
	gray       []float64
	integral   []float64
	integralSq []float64
	W, H       int
	origin     image.Point
}

// templatePrecomp caches luma samples and summary statistics for a template
// at one scale.
type templatePrecomp struct {
	gray  []float32
	W, H  int
	meanT float64
	stdT  float64
}

// luma returns Rec.709 luma of c in the 16-bit range used by color.RGBA.
func luma(r, g, b uint32) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

// buildTemplatePrecomp converts tmpl to luma and computes mean and standard
// deviation. Transparent pixels contribute zero.
func buildTemplatePrecomp(tmpl image.Image) *templatePrecomp {
	if tmpl == nil {
		return nil
	}
	b := tmpl.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return nil
	}
	gray := make([]float32, w*h)
	var sumT, sumT2 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, a := tmpl.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a == 0 {
				continue
			}
			v := luma(r, g, bb)
			gray[y*w+x] = float32(v)
			sumT += v
			sumT2 += v * v
		}
	}
	n := float64(w * h)
	meanT := sumT / n
	varT := (sumT2 - sumT*sumT/n) / n
	stdT := 0.0
	if varT > 0 {
		stdT = math.Sqrt(varT)
	}
	return &templatePrecomp{gray: gray, W: w, H: h, meanT: meanT, stdT: stdT}
}

// buildGrayPrecomp computes luma values and summed-area tables for frame.
func buildGrayPrecomp(frame image.Image) *grayPrecomp {
	if frame == nil {
		return nil
	}
	b := frame.Bounds()
	W, H := b.Dx(), b.Dy()
	need := W * H
	p := &grayPrecomp{
		gray:       make([]float64, need),
		integral:   make([]float64, need),
		integralSq: make([]float64, need),
		W:          W,
		H:          H,
		origin:     b.Min,
	}
	for y := 0; y < H; y++ {
		var rowSum, rowSum2 float64
		for x := 0; x < W; x++ {
			r, g, bb, a := frame.At(b.Min.X+x, b.Min.Y+y).RGBA()
			var v float64
			if a != 0 {
				v = luma(r, g, bb)
			}
			off := y*W + x
			p.gray[off] = v
			rowSum += v
			rowSum2 += v * v
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[(y-1)*W+x] + rowSum
				p.integralSq[off] = p.integralSq[(y-1)*W+x] + rowSum2
			}
		}
	}
	return p
}

// integralSum returns the inclusive sum over [x0..x1] x [y0..y1] from an
// integral image stored row-major with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	at := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return at(x1, y1) - at(x0-1, y1) - at(x1, y0-1) + at(x0-1, y0-1)
}

// nccOptions configures a single-scale match.
type nccOptions struct {
	Threshold float64
	Stride    int
	Refine    bool
}

// nccResult is the best window for one template scale. X and Y are relative
// to the frame origin.
type nccResult struct {
	X, Y  int
	W, H  int
	Score float64
	Found bool
}

// scoreAt returns the NCC score of the template at (x,y), or false for a flat
// window.
func scoreAt(pre *grayPrecomp, pc *templatePrecomp, x, y int) (float64, bool) {
	w, h := pc.W, pc.H
	n := float64(w * h)
	sumF := integralSum(pre.integral, pre.W, x, y, x+w-1, y+h-1)
	sumF2 := integralSum(pre.integralSq, pre.W, x, y, x+w-1, y+h-1)
	meanF := sumF / n
	varF := (sumF2 - sumF*sumF/n) / n
	if varF <= 1e-9 {
		return 0, false
	}
	stdF := math.Sqrt(varF)
	var sumFT float64
	for ty := 0; ty < h; ty++ {
		row := pre.gray[(y+ty)*pre.W+x:]
		trow := pc.gray[ty*w : ty*w+w]
		for tx, tv := range trow {
			sumFT += row[tx] * float64(tv)
		}
	}
	denom := n * stdF * pc.stdT
	if denom <= 0 {
		return 0, false
	}
	return (sumFT - n*meanF*pc.meanT) / denom, true
}

// matchNCC scans pre for the best placement of pc. Flat templates cannot be
// normalised and never match.
func matchNCC(pre *grayPrecomp, pc *templatePrecomp, opts nccOptions) nccResult {
	res := nccResult{Score: -1}
	if pre == nil || pc == nil || pc.stdT <= 1e-9 {
		return res
	}
	W, H := pre.W, pre.H
	w, h := pc.W, pc.H
	if W < w || H < h {
		return res
	}
	stride := opts.Stride
	if stride <= 0 {
		stride = 1
	}
	bestX, bestY, best := 0, 0, -1.0
	for y := 0; y <= H-h; y += stride {
		for x := 0; x <= W-w; x += stride {
			if s, ok := scoreAt(pre, pc, x, y); ok && s > best {
				best, bestX, bestY = s, x, y
			}
		}
	}
	if opts.Refine && stride > 1 && best > -1 {
		minY, maxY := max(0, bestY-stride), min(H-h, bestY+stride)
		minX, maxX := max(0, bestX-stride), min(W-w, bestX+stride)
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				if s, ok := scoreAt(pre, pc, x, y); ok && s > best {
					best, bestX, bestY = s, x, y
				}
			}
		}
	}
	res.X, res.Y, res.W, res.H, res.Score = bestX, bestY, w, h, best
	res.Found = best >= opts.Threshold
	return res
}
