package timeline

import (
	"fmt"
	"image"
	"image/draw"
	"sort"

	"github.com/ivlev/kenburns/internal/effects"
	"github.com/ivlev/kenburns/internal/source"
)

// coverageEpsilon absorbs float drift when checking layer intervals.
const coverageEpsilon = 1e-9

// AudioTrack is a scene's narration.
type AudioTrack struct {
	Asset    *source.Audio
	Duration float64
}

// Scene is one narration clip with its image layers, stacked in order.
type Scene struct {
	Index    int
	Layers   []ImageLayer
	Audio    AudioTrack
	Duration float64
}

// ActiveLayers returns the indexes of the layers visible at t, bottom first.
func (s Scene) ActiveLayers(t float64) []int {
	var idx []int
	for i, l := range s.Layers {
		if l.Active(t) {
			idx = append(idx, i)
		}
	}
	return idx
}

// CheckCoverage verifies every instant of [0, Duration) is covered by a layer.
func (s Scene) CheckCoverage() error {
	type span struct{ start, end float64 }
	spans := make([]span, 0, len(s.Layers))
	for _, l := range s.Layers {
		spans = append(spans, span{l.StartOffset, l.End()})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	reached := 0.0
	for _, sp := range spans {
		if sp.start > reached+coverageEpsilon {
			return fmt.Errorf("scene %d: no layer covers [%.3f, %.3f)", s.Index, reached, sp.start)
		}
		if sp.end > reached {
			reached = sp.end
		}
		if reached >= s.Duration-coverageEpsilon {
			return nil
		}
	}
	return fmt.Errorf("scene %d: no layer covers [%.3f, %.3f)", s.Index, reached, s.Duration)
}

func (s Scene) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("scene %d: duration %.3f must be positive", s.Index, s.Duration)
	}
	if len(s.Layers) == 0 {
		return fmt.Errorf("scene %d: no image layers", s.Index)
	}
	for i, l := range s.Layers {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("scene %d layer %d: %w", s.Index, i, err)
		}
	}
	return s.CheckCoverage()
}

// RenderFrame composites the scene at local time t into dst. scratch is a
// same-sized buffer used for translucent layers.
func (s Scene) RenderFrame(dst, scratch *image.RGBA, t float64) error {
	active := s.ActiveLayers(t)
	alphas := make([]float64, len(active))
	for i, li := range active {
		alphas[i] = s.Layers[li].Alpha(t)
	}
	if len(active) == 0 {
		// Within float drift of a layer end: hold the last layer that started.
		if li := s.lastStarted(t); li >= 0 {
			active, alphas = []int{li}, []float64{1}
		}
	}

	// Layers below the topmost opaque one are fully occluded.
	first := -1
	for i := len(active) - 1; i >= 0; i-- {
		if alphas[i] >= 1 {
			first = i
			break
		}
	}
	if first < 0 {
		draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
		first = 0
	}

	for i := first; i < len(active); i++ {
		li, alpha := active[i], alphas[i]
		if alpha <= 0 {
			continue
		}
		target := dst
		if alpha < 1 {
			target = scratch
		}
		if err := s.Layers[li].Render(target, t); err != nil {
			return fmt.Errorf("scene %d layer %d: %w", s.Index, li, err)
		}
		if alpha < 1 {
			effects.BlendOver(dst, scratch, alpha)
		}
	}
	return nil
}

func (s Scene) lastStarted(t float64) int {
	best := -1
	for i, l := range s.Layers {
		if l.StartOffset <= t && (best < 0 || l.StartOffset >= s.Layers[best].StartOffset) {
			best = i
		}
	}
	return best
}
