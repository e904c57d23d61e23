package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Width != 1080 || cfg.Height != 1920 || cfg.FPS != 30 {
		t.Errorf("unexpected defaults %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS)
	}
	p := cfg.SceneParams()
	if p.FadeDuration != 0.5 || p.BaseZoom != 1.30 || p.ZoomIncrement != 0.05 {
		t.Errorf("unexpected scene params %+v", p)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"odd width", func(c *Config) { c.Width = 1081 }, "even"},
		{"zero fps", func(c *Config) { c.FPS = 0 }, "fps"},
		{"negative fade", func(c *Config) { c.FadeDuration = -1 }, "fade"},
		{"zoom out", func(c *Config) { c.BaseZoom = 0.9 }, "base zoom"},
		{"policy", func(c *Config) { c.SinglePolicy = "loop" }, "policy"},
		{"provider", func(c *Config) { c.Provider = "ftp" }, "provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error %q does not mention %q", err, tt.errSub)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"IMAGES":          " a.jpg, b.jpg ,,c.jpg",
		"AUDIOS":          "s1.mp3",
		"OUTPUT_BUCKET":   "bucket",
		"OUTPUT_FILENAME": "final.mp4",
		"FETCH_RETRIES":   "5",
	}
	cfg := Default()
	if err := applyEnv(cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if len(cfg.ImageURLs) != 3 || cfg.ImageURLs[1] != "b.jpg" {
		t.Errorf("images = %v", cfg.ImageURLs)
	}
	if len(cfg.AudioURLs) != 1 || cfg.OutputBucket != "bucket" || cfg.OutputFilename != "final.mp4" {
		t.Errorf("unexpected cfg %+v", cfg)
	}
	if cfg.FetchRetries != 5 {
		t.Errorf("retries = %d", cfg.FetchRetries)
	}

	env["WORKERS"] = "many"
	if err := applyEnv(cfg, func(k string) string { return env[k] }); err == nil {
		t.Error("expected error for non-numeric WORKERS")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.yaml")
	data := "fade: 0.25\nbase_zoom: 1.5\nimages: [x.png, y.png]\nsingle_policy: pace\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.FadeDuration != 0.25 || cfg.BaseZoom != 1.5 || cfg.SinglePolicy != PolicyPace {
		t.Errorf("unexpected cfg %+v", cfg)
	}
	if cfg.FPS != 30 {
		t.Errorf("unset fields must keep defaults, fps = %d", cfg.FPS)
	}
	if len(cfg.ImageURLs) != 2 {
		t.Errorf("images = %v", cfg.ImageURLs)
	}
}
