package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks render settings. Input lists are checked by the engine.
func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("resolution %dx%d must be positive", c.Width, c.Height))
	} else if c.Width%2 != 0 || c.Height%2 != 0 {
		errs = append(errs, fmt.Errorf("resolution %dx%d must be even for yuv420p", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %d must be positive", c.FPS))
	}
	if c.FadeDuration < 0 {
		errs = append(errs, fmt.Errorf("fade %.3f must not be negative", c.FadeDuration))
	}
	if c.BaseZoom < 1 {
		errs = append(errs, fmt.Errorf("base zoom %.3f must be >= 1", c.BaseZoom))
	}
	if c.ZoomIncrement < 0 {
		errs = append(errs, fmt.Errorf("zoom increment %.3f must not be negative", c.ZoomIncrement))
	}
	switch c.SinglePolicy {
	case PolicyStretch, PolicyPace:
	default:
		errs = append(errs, fmt.Errorf("unknown single image policy %q", c.SinglePolicy))
	}
	switch strings.ToLower(c.Provider) {
	case ProviderGCS, ProviderS3:
	default:
		errs = append(errs, fmt.Errorf("unknown publish provider %q", c.Provider))
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.FetchRetries < 0 {
		c.FetchRetries = 0
	}
	return errors.Join(errs...)
}
