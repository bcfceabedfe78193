package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	DefaultInferenceMaxSide = 320
	DefaultJPEGQuality      = 85
)

var errBadFrame = errors.New("malformed frame")

// FrameConverter turns a RawFrame into a decoded, upright, inference-sized
// image. The YUV planes are repacked into an image.YCbCr and passed through
// the JPEG codec once; only the codec ever reads pixel data after that, so
// plane stride and padding quirks stay confined to repack.
type FrameConverter struct {
	maxSide int
	quality int
}

// NewFrameConverter returns a converter that bounds the longest side of the
// output to maxSide (<=0 disables downscaling) and encodes the intermediate
// at the given JPEG quality (<=0 selects DefaultJPEGQuality).
func NewFrameConverter(maxSide, quality int) *FrameConverter {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &FrameConverter{maxSide: maxSide, quality: quality}
}

// Convert returns the decoded image or nil when the frame cannot be decoded.
// A nil result means "drop this frame"; Convert never panics.
func (c *FrameConverter) Convert(f RawFrame) (out image.Image) {
	img, err := c.convert(f)
	if err != nil {
		return nil
	}
	return img
}

func (c *FrameConverter) convert(f RawFrame) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("convert: panic: %v", r)
		}
	}()
	ycc, err := repack(f)
	if err != nil {
		return nil, err
	}
	buf := acquireBuffer()
	defer recycleBuffer(buf)
	if err := jpeg.Encode(buf, ycc, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("convert: encode: %w", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("convert: decode: %w", err)
	}
	upright, err := Rotate(decoded, f.Rotation)
	if err != nil {
		return nil, err
	}
	return Downscale(upright, c.maxSide), nil
}

// repack copies the three planes of a 4:2:0 frame into a tightly packed
// image.YCbCr, honouring row and pixel strides.
func repack(f RawFrame) (*image.YCbCr, error) {
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", errBadFrame, w, h)
	}
	cw, ch := (w+1)/2, (h+1)/2
	if err := checkPlane(f.Y, w, h); err != nil {
		return nil, fmt.Errorf("%w: y plane: %v", errBadFrame, err)
	}
	if err := checkPlane(f.U, cw, ch); err != nil {
		return nil, fmt.Errorf("%w: u plane: %v", errBadFrame, err)
	}
	if err := checkPlane(f.V, cw, ch); err != nil {
		return nil, fmt.Errorf("%w: v plane: %v", errBadFrame, err)
	}
	dst := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	copyPlane(dst.Y, dst.YStride, f.Y, w, h)
	copyPlane(dst.Cb, dst.CStride, f.U, cw, ch)
	copyPlane(dst.Cr, dst.CStride, f.V, cw, ch)
	return dst, nil
}

func pixelStride(p Plane) int {
	if p.PixelStride <= 0 {
		return 1
	}
	return p.PixelStride
}

// checkPlane verifies the last sample of the last row lies inside p.Data.
func checkPlane(p Plane, w, h int) error {
	ps := pixelStride(p)
	if p.RowStride < (w-1)*ps+1 {
		return fmt.Errorf("row stride %d too small for width %d", p.RowStride, w)
	}
	need := (h-1)*p.RowStride + (w-1)*ps + 1
	if len(p.Data) < need {
		return fmt.Errorf("have %d bytes, need %d", len(p.Data), need)
	}
	return nil
}

func copyPlane(dst []byte, dstStride int, p Plane, w, h int) {
	ps := pixelStride(p)
	for y := 0; y < h; y++ {
		row := p.Data[y*p.RowStride:]
		out := dst[y*dstStride : y*dstStride+w]
		if ps == 1 {
			copy(out, row[:w])
			continue
		}
		for x := range out {
			out[x] = row[x*ps]
		}
	}
}

// Rotate returns src rotated clockwise by deg (0, 90, 180 or 270) using an
// affine transform. The result has its origin at (0,0).
func Rotate(src image.Image, deg int) (image.Image, error) {
	deg = ((deg % 360) + 360) % 360
	if deg == 0 {
		return src, nil
	}
	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	ox, oy := float64(b.Min.X), float64(b.Min.Y)
	var (
		s2d  f64.Aff3
		dstR image.Rectangle
	)
	// Each matrix maps source coordinates (relative to b.Min) to destination.
	switch deg {
	case 90:
		s2d = f64.Aff3{0, -1, h + oy, 1, 0, -ox}
		dstR = image.Rect(0, 0, b.Dy(), b.Dx())
	case 180:
		s2d = f64.Aff3{-1, 0, w + ox, 0, -1, h + oy}
		dstR = image.Rect(0, 0, b.Dx(), b.Dy())
	case 270:
		s2d = f64.Aff3{0, 1, -oy, -1, 0, w + ox}
		dstR = image.Rect(0, 0, b.Dy(), b.Dx())
	default:
		return nil, fmt.Errorf("rotate: unsupported rotation %d", deg)
	}
	dst := image.NewRGBA(dstR)
	draw.NearestNeighbor.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst, nil
}

// Downscale shrinks src so its longest side is at most maxSide, preserving
// the aspect ratio within rounding. Images already small enough are returned
// unchanged.
func Downscale(src image.Image, maxSide int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return src
	}
	nw, nh := fitWithin(w, h, maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func fitWithin(w, h, maxSide int) (int, int) {
	if w >= h {
		nh := (h*maxSide + w/2) / w
		return maxSide, max(nh, 1)
	}
	nw := (w*maxSide + h/2) / h
	return max(nw, 1), maxSide
}
