package capture

import (
	"image"
	"image/color"
	"time"
)

// FrameFromImage packs img into a planar YUV 4:2:0 RawFrame whose rows are
// padded to a multiple of align bytes (align <= 1 disables padding). Chroma
// is the average of each 2x2 block.
func FrameFromImage(img image.Image, rotation, align int) RawFrame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw, ch := (w+1)/2, (h+1)/2
	ys, cs := padStride(w, align), padStride(cw, align)
	f := RawFrame{
		Width:     w,
		Height:    h,
		Y:         Plane{Data: make([]byte, ys*h), RowStride: ys, PixelStride: 1},
		U:         Plane{Data: make([]byte, cs*ch), RowStride: cs, PixelStride: 1},
		V:         Plane{Data: make([]byte, cs*ch), RowStride: cs, PixelStride: 1},
		Rotation:  rotation,
		Timestamp: time.Now(),
	}
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var su, sv, n int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					x, y := cx*2+dx, cy*2+dy
					if x >= w || y >= h {
						continue
					}
					r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
					yy, u, v := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
					f.Y.Data[y*ys+x] = yy
					su += int(u)
					sv += int(v)
					n++
				}
			}
			f.U.Data[cy*cs+cx] = uint8(su / n)
			f.V.Data[cy*cs+cx] = uint8(sv / n)
		}
	}
	return f
}

// Interleave returns a copy of f with semi-planar chroma: U and V share one
// buffer with pixel stride 2, V offset by one byte.
func Interleave(f RawFrame) RawFrame {
	cw, ch := (f.Width+1)/2, (f.Height+1)/2
	stride := cw * 2
	buf := make([]byte, stride*ch)
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			buf[y*stride+2*x] = f.U.Data[y*f.U.RowStride+x*pixelStride(f.U)]
			buf[y*stride+2*x+1] = f.V.Data[y*f.V.RowStride+x*pixelStride(f.V)]
		}
	}
	out := f
	out.U = Plane{Data: buf, RowStride: stride, PixelStride: 2}
	out.V = Plane{Data: buf[1:], RowStride: stride, PixelStride: 2}
	return out
}

func padStride(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
