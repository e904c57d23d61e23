package effects

import (
	"image"

	"golang.org/x/image/draw"
)

// ZoomSpec is the magnification a layer reaches at the end of its duration.
type ZoomSpec struct {
	Ratio float64
}

// Magnification returns the linear zoom factor at time t of a clip lasting
// duration seconds. t is clamped to [0, duration]; a non-positive duration
// yields 1.
func Magnification(t, duration, ratio float64) float64 {
	if duration <= 0 {
		return 1
	}
	if t < 0 {
		t = 0
	}
	if t > duration {
		t = duration
	}
	return 1 + (ratio-1)*(t/duration)
}

// CropWindow returns the centered w/m x h/m window of a w x h frame. Bounds
// are truncated, not rounded. A degenerate window falls back to the full frame.
func CropWindow(w, h int, m float64) image.Rectangle {
	full := image.Rect(0, 0, w, h)
	if m <= 0 {
		return full
	}
	cw := int(float64(w) / m)
	ch := int(float64(h) / m)
	if cw <= 0 || ch <= 0 || cw > w || ch > h {
		return full
	}
	x1 := (w - cw) / 2
	y1 := (h - ch) / 2
	return image.Rect(x1, y1, x1+cw, y1+ch)
}

// ApplyZoom renders src at time t with the Ken Burns zoom into a new frame of
// the same size.
func ApplyZoom(src *image.RGBA, t, duration, ratio float64) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	ApplyZoomInto(dst, src, t, duration, ratio)
	return dst
}

// ApplyZoomInto is ApplyZoom writing into a caller supplied frame, which must
// have the same size as src.
func ApplyZoomInto(dst, src *image.RGBA, t, duration, ratio float64) {
	b := src.Bounds()
	m := Magnification(t, duration, ratio)
	crop := CropWindow(b.Dx(), b.Dy(), m).Add(b.Min)

	if crop.Eq(b) {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return
	}
	// CatmullRom is the sharpest kernel x/image ships; it stands in for Lanczos.
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
}
