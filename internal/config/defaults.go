package config

import "runtime"

// Default returns the stock vertical 9:16 render settings.
func Default() *Config {
	return &Config{
		OutputVideo:    "output.mp4",
		OutputFilename: "video_output.mp4",
		Provider:       ProviderGCS,
		WorkDir:        "",
		Width:          1080,
		Height:         1920,
		FPS:            30,
		Workers:        runtime.NumCPU(),
		FetchRetries:   2,
		FadeDuration:   0.5,
		BaseZoom:       1.30,
		ZoomIncrement:  0.05,
		SinglePolicy:   PolicyStretch,
		VideoEncoder:   "libx264",
		AudioCodec:     "aac",
		Bitrate:        "8000k",
		Preset:         "medium",
		Threads:        4,
		HistoryPath:    "renders.db",
	}
}
