package effects

import (
	"image"
	"image/draw"
	"math"
)

// Crossfade returns the opacity of a layer localT seconds into its life when
// it fades in over fadeIn seconds.
func Crossfade(localT, fadeIn float64) float64 {
	if fadeIn <= 0 || localT >= fadeIn {
		return 1
	}
	if localT <= 0 {
		return 0
	}
	return localT / fadeIn
}

// BlendOver composites fg over dst with a uniform opacity:
// out = fg*alpha + dst*(1-alpha). Both frames must have the same size.
func BlendOver(dst, fg *image.RGBA, alpha float64) {
	switch {
	case alpha <= 0:
		return
	case alpha >= 1:
		draw.Draw(dst, dst.Bounds(), fg, fg.Bounds().Min, draw.Src)
		return
	}

	a := uint32(math.Round(alpha * 255))
	inv := 255 - a
	dp, fp := dst.Pix, fg.Pix
	n := len(dp)
	if len(fp) < n {
		n = len(fp)
	}
	for i := 0; i < n; i++ {
		dp[i] = uint8((uint32(fp[i])*a + uint32(dp[i])*inv + 127) / 255)
	}
}
