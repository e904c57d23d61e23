// Package plan describes a composed timeline as a YAML render plan.
package plan

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/kenburns/internal/effects"
	"github.com/ivlev/kenburns/internal/timeline"
)

const Version = "1.0"

type Plan struct {
	Version  string  `yaml:"version"`
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	FPS      int     `yaml:"fps"`
	Duration float64 `yaml:"duration"`
	Frames   int     `yaml:"frames"`
	Scenes   []Scene `yaml:"scenes"`
}

type Scene struct {
	ID       int     `yaml:"id"`
	Audio    string  `yaml:"audio"`
	Offset   float64 `yaml:"offset"` // Global start in seconds
	Duration float64 `yaml:"duration"`
	Layers   []Layer `yaml:"layers"`
}

type Layer struct {
	Input     string    `yaml:"input"`
	Start     float64   `yaml:"start"` // Scene-relative
	End       float64   `yaml:"end"`
	Zoom      float64   `yaml:"zoom"`
	Crossfade float64   `yaml:"crossfade,omitempty"`
	From      Rectangle `yaml:"from"` // Crop window at the first frame
	To        Rectangle `yaml:"to"`   // Crop window at the last frame
}

type Rectangle struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

func rect(r image.Rectangle) Rectangle {
	return Rectangle{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// FromTimeline records scene offsets, layer intervals and zoom windows of tl
// for a width x height output.
func FromTimeline(tl *timeline.Timeline, width, height, fps int) *Plan {
	p := &Plan{
		Version:  Version,
		Width:    width,
		Height:   height,
		FPS:      fps,
		Duration: tl.Duration(),
		Frames:   tl.FrameCount(fps),
	}
	for i, s := range tl.Scenes {
		ps := Scene{
			ID:       i + 1,
			Offset:   tl.SceneOffset(i),
			Duration: s.Duration,
		}
		if s.Audio.Asset != nil {
			ps.Audio = s.Audio.Asset.Path
		}
		for _, l := range s.Layers {
			pl := Layer{
				Start:     l.StartOffset,
				End:       l.End(),
				Zoom:      l.Zoom.Ratio,
				Crossfade: l.CrossfadeIn,
				From:      rect(effects.CropWindow(width, height, 1)),
				To:        rect(effects.CropWindow(width, height, l.Zoom.Ratio)),
			}
			if l.Asset != nil {
				pl.Input = l.Asset.Name
			}
			ps.Layers = append(ps.Layers, pl)
		}
		p.Scenes = append(p.Scenes, ps)
	}
	return p
}

// Write stores the plan as YAML, creating the parent directory if needed.
func Write(p *Plan, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func Read(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Diff lists how current departs from saved, scene by scene. An empty result
// means saved still describes the render.
func Diff(saved, current *Plan) []string {
	var out []string
	if saved.Version != current.Version {
		out = append(out, fmt.Sprintf("version %s, now %s", saved.Version, current.Version))
	}
	if saved.Width != current.Width || saved.Height != current.Height || saved.FPS != current.FPS {
		out = append(out, fmt.Sprintf("format %dx%d@%d, now %dx%d@%d",
			saved.Width, saved.Height, saved.FPS, current.Width, current.Height, current.FPS))
	}
	if saved.Frames != current.Frames {
		out = append(out, fmt.Sprintf("frames %d, now %d", saved.Frames, current.Frames))
	}
	if len(saved.Scenes) != len(current.Scenes) {
		out = append(out, fmt.Sprintf("scenes %d, now %d", len(saved.Scenes), len(current.Scenes)))
		return out
	}
	for i := range saved.Scenes {
		if !sceneEqual(saved.Scenes[i], current.Scenes[i]) {
			out = append(out, fmt.Sprintf("scene %d changed", current.Scenes[i].ID))
		}
	}
	return out
}

func sceneEqual(a, b Scene) bool {
	if a.ID != b.ID || a.Audio != b.Audio || a.Offset != b.Offset || a.Duration != b.Duration || len(a.Layers) != len(b.Layers) {
		return false
	}
	for i := range a.Layers {
		if a.Layers[i] != b.Layers[i] {
			return false
		}
	}
	return true
}
