package timeline

import (
	"fmt"
	"image"

	"github.com/ivlev/kenburns/internal/effects"
	"github.com/ivlev/kenburns/internal/source"
)

// ImageLayer is one still's timed contribution to a scene.
type ImageLayer struct {
	Asset       *source.Image
	Duration    float64
	StartOffset float64
	Zoom        effects.ZoomSpec
	CrossfadeIn float64
}

// End is the scene time at which the layer stops contributing.
func (l ImageLayer) End() float64 { return l.StartOffset + l.Duration }

// Active reports whether the layer is visible at sceneT.
func (l ImageLayer) Active(sceneT float64) bool {
	return sceneT >= l.StartOffset && sceneT < l.End()
}

func (l ImageLayer) LocalTime(sceneT float64) float64 { return sceneT - l.StartOffset }

// Alpha is the layer opacity at sceneT: 0 when inactive, ramping linearly
// over CrossfadeIn, then 1.
func (l ImageLayer) Alpha(sceneT float64) float64 {
	if !l.Active(sceneT) {
		return 0
	}
	return effects.Crossfade(l.LocalTime(sceneT), l.CrossfadeIn)
}

// Render draws the zoomed still for sceneT into dst, ignoring opacity.
func (l ImageLayer) Render(dst *image.RGBA, sceneT float64) error {
	if l.Asset == nil || l.Asset.Pix == nil {
		return fmt.Errorf("layer at %.3fs has no decoded image", l.StartOffset)
	}
	if !l.Asset.Pix.Bounds().Size().Eq(dst.Bounds().Size()) {
		return fmt.Errorf("layer image %v does not match frame %v", l.Asset.Pix.Bounds(), dst.Bounds())
	}
	effects.ApplyZoomInto(dst, l.Asset.Pix, l.LocalTime(sceneT), l.Duration, l.Zoom.Ratio)
	return nil
}

func (l ImageLayer) Validate() error {
	switch {
	case l.Duration <= 0:
		return fmt.Errorf("layer duration %.3f must be positive", l.Duration)
	case l.StartOffset < 0:
		return fmt.Errorf("layer start %.3f must not be negative", l.StartOffset)
	case l.CrossfadeIn < 0 || l.CrossfadeIn > l.Duration:
		return fmt.Errorf("layer crossfade %.3f outside [0, %.3f]", l.CrossfadeIn, l.Duration)
	case l.Zoom.Ratio < 1:
		return fmt.Errorf("layer zoom %.3f must be >= 1", l.Zoom.Ratio)
	}
	return nil
}
