package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadFile overlays YAML settings from path onto cfg.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays environment settings onto cfg. A .env file in the working
// directory is read first if present; real environment variables win.
func LoadEnv(cfg *Config) error {
	_ = godotenv.Load()
	return applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("IMAGES")); v != "" {
		cfg.ImageURLs = SplitList(v)
	}
	if v := strings.TrimSpace(getenv("AUDIOS")); v != "" {
		cfg.AudioURLs = SplitList(v)
	}
	if v := strings.TrimSpace(getenv("OUTPUT_BUCKET")); v != "" {
		cfg.OutputBucket = v
	}
	if v := strings.TrimSpace(getenv("OUTPUT_FILENAME")); v != "" {
		cfg.OutputFilename = v
	}
	if v := strings.TrimSpace(getenv("PUBLISH_PROVIDER")); v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("AWS_REGION")); v != "" {
		cfg.Region = v
	}
	for name, dst := range map[string]*int{"FETCH_RETRIES": &cfg.FetchRetries, "WORKERS": &cfg.Workers} {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
