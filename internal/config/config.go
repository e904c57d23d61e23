package config

// Single-image scene policies.
const (
	PolicyStretch = "stretch"
	PolicyPace    = "pace"
)

// Publish providers.
const (
	ProviderGCS = "gcs"
	ProviderS3  = "s3"
)

type Config struct {
	ImageURLs      []string `yaml:"images"`
	AudioURLs      []string `yaml:"audios"`
	OutputVideo    string   `yaml:"output"`
	OutputBucket   string   `yaml:"output_bucket"`
	OutputFilename string   `yaml:"output_filename"`
	Provider       string   `yaml:"publish_provider"`
	Region         string   `yaml:"region"`
	WorkDir        string   `yaml:"work_dir"`
	Width          int      `yaml:"width"`
	Height         int      `yaml:"height"`
	FPS            int      `yaml:"fps"`
	Workers        int      `yaml:"workers"`
	FetchRetries   int      `yaml:"fetch_retries"`
	FadeDuration   float64  `yaml:"fade"`
	BaseZoom       float64  `yaml:"base_zoom"`
	ZoomIncrement  float64  `yaml:"zoom_increment"`
	SinglePolicy   string   `yaml:"single_policy"`
	VideoEncoder   string   `yaml:"codec"`
	AudioCodec     string   `yaml:"audio_codec"`
	Bitrate        string   `yaml:"bitrate"`
	Preset         string   `yaml:"preset"`
	Threads        int      `yaml:"threads"`
	HistoryPath    string   `yaml:"history"`
	ShowStats      bool     `yaml:"stats"`
	BuildVersion   string   `yaml:"-"`
}

// SceneParams is the subset of Config the scene builder needs.
type SceneParams struct {
	FadeDuration  float64
	BaseZoom      float64
	ZoomIncrement float64
	SinglePolicy  string
}

func (c *Config) SceneParams() SceneParams {
	return SceneParams{
		FadeDuration:  c.FadeDuration,
		BaseZoom:      c.BaseZoom,
		ZoomIncrement: c.ZoomIncrement,
		SinglePolicy:  c.SinglePolicy,
	}
}
