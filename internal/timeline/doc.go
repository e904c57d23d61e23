// Package timeline turns narration clips and stills into timed scenes and
// concatenates them into a single timeline.
//
// A Scene lasts exactly as long as its audio. Its duration is split between
// two image layers; each layer is drawn FADE seconds longer than its half of
// the scene and the second one starts FADE seconds early, so the two overlap
// and the second crossfades in over the first without leaving a gap.
//
// Scenes, layers and timelines are immutable values once built. Rendering a
// frame only reads them, so frames can be rendered concurrently.
package timeline
