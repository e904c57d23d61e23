package timeline

import (
	"math"

	"github.com/ivlev/kenburns/internal/config"
	"github.com/ivlev/kenburns/internal/effects"
	"github.com/ivlev/kenburns/internal/failure"
	"github.com/ivlev/kenburns/internal/source"
)

// ImagesPerScene is the number of stills that share one narration clip.
const ImagesPerScene = 2

// SceneBuilder times the layers of one scene from its audio duration.
type SceneBuilder struct {
	Params config.SceneParams
}

func NewSceneBuilder(p config.SceneParams) *SceneBuilder {
	return &SceneBuilder{Params: p}
}

// Build lays out up to two stills over the audio clip. The first still starts
// at 0; the second starts FADE seconds before the half-way mark and fades in
// over FADE seconds. Both are drawn for half the scene plus FADE.
func (b *SceneBuilder) Build(index int, audio AudioTrack, images []*source.Image) (Scene, error) {
	d := audio.Duration
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return Scene{}, failure.Newf(failure.Input, "build scene", "scene %d: audio duration %.3f must be positive", index, d)
	}
	switch {
	case len(images) == 0:
		return Scene{}, failure.Newf(failure.Input, "build scene", "scene %d: no images", index)
	case len(images) > ImagesPerScene:
		return Scene{}, failure.Newf(failure.Input, "build scene", "scene %d: %d images, at most %d", index, len(images), ImagesPerScene)
	}

	fade := b.Params.FadeDuration
	slot := d / 2

	var layers []ImageLayer
	if len(images) == 1 {
		layers = []ImageLayer{b.singleLayer(images[0], d, slot)}
	} else {
		start := slot - fade
		if start < 0 {
			// Scene shorter than two fades: both layers already cover it.
			start = 0
		}
		layers = []ImageLayer{
			{
				Asset:       images[0],
				Duration:    slot + fade,
				StartOffset: 0,
				Zoom:        effects.ZoomSpec{Ratio: b.Params.BaseZoom},
			},
			{
				Asset:       images[1],
				Duration:    slot + fade,
				StartOffset: start,
				Zoom:        effects.ZoomSpec{Ratio: b.Params.BaseZoom + b.Params.ZoomIncrement},
				CrossfadeIn: fade,
			},
		}
	}

	scene := Scene{
		Index:    index,
		Layers:   layers,
		Audio:    audio,
		Duration: d,
	}
	if err := scene.Validate(); err != nil {
		return Scene{}, failure.New(failure.Input, "build scene", err)
	}
	return scene, nil
}

func (b *SceneBuilder) singleLayer(img *source.Image, d, slot float64) ImageLayer {
	ratio := b.Params.BaseZoom
	if b.Params.SinglePolicy == config.PolicyPace {
		// Keep the zoom speed of a layer that shares its scene.
		ratio = 1 + (b.Params.BaseZoom-1)*d/(slot+b.Params.FadeDuration)
	}
	return ImageLayer{
		Asset:       img,
		Duration:    d,
		StartOffset: 0,
		Zoom:        effects.ZoomSpec{Ratio: ratio},
	}
}

// ImagesFor returns the first still index and the still count of scene when
// stills are handed out two per scene in order.
func ImagesFor(scene, available int) (first, count int) {
	first = scene * ImagesPerScene
	count = available - first
	if count > ImagesPerScene {
		count = ImagesPerScene
	}
	if count < 0 {
		count = 0
	}
	return first, count
}
