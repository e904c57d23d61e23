package timeline

import (
	"image"
	"math"
	"sort"

	"github.com/ivlev/kenburns/internal/failure"
)

// Timeline plays scenes back to back with hard cuts between them.
type Timeline struct {
	Scenes  []Scene
	offsets []float64
	total   float64
}

// Compose concatenates scenes in order. Scene i starts at the sum of the
// durations of scenes 0..i-1.
func Compose(scenes []Scene) (*Timeline, error) {
	if len(scenes) == 0 {
		return nil, failure.Newf(failure.Input, "compose timeline", "no scenes")
	}
	tl := &Timeline{
		Scenes:  scenes,
		offsets: make([]float64, len(scenes)),
	}
	for i, s := range scenes {
		tl.offsets[i] = tl.total
		tl.total += s.Duration
	}
	return tl, nil
}

func (tl *Timeline) Duration() float64 { return tl.total }

// SceneOffset is the global start time of scene i.
func (tl *Timeline) SceneOffset(i int) float64 { return tl.offsets[i] }

// Locate maps global time T to a scene and its local time. ok is false when
// T is outside [0, Duration).
func (tl *Timeline) Locate(T float64) (scene int, local float64, ok bool) {
	if T < 0 || T >= tl.total {
		return -1, 0, false
	}
	// Last scene whose offset is <= T.
	i := sort.Search(len(tl.offsets), func(i int) bool { return tl.offsets[i] > T }) - 1
	return i, T - tl.offsets[i], true
}

// FrameCount is the number of frames at fps covering the timeline, rounded
// to the nearest frame so video and audio differ by less than one frame.
func (tl *Timeline) FrameCount(fps int) int {
	return int(math.Round(tl.total * float64(fps)))
}

// FrameTime is the global presentation time of frame n.
func FrameTime(n, fps int) float64 {
	return float64(n) / float64(fps)
}

// RenderFrame composites the frame at global time T. Times past the end,
// which rounding of the frame count can produce, hold the last scene.
func (tl *Timeline) RenderFrame(dst, scratch *image.RGBA, T float64) error {
	i, local, ok := tl.Locate(T)
	if !ok {
		if T < 0 {
			i, local = 0, 0
		} else {
			i = len(tl.Scenes) - 1
			local = T - tl.offsets[i]
		}
	}
	return tl.Scenes[i].RenderFrame(dst, scratch, local)
}

// AudioTracks returns the scene narrations in playback order.
func (tl *Timeline) AudioTracks() []AudioTrack {
	tracks := make([]AudioTrack, len(tl.Scenes))
	for i, s := range tl.Scenes {
		tracks[i] = s.Audio
	}
	return tracks
}
