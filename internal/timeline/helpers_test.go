package timeline

import "github.com/ivlev/kenburns/internal/effects"

func zoom(r float64) effects.ZoomSpec { return effects.ZoomSpec{Ratio: r} }
