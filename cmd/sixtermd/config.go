package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration, loadable from YAML with flag
// overrides on top.
type Config struct {
	Listen        string `yaml:"listen"`
	Cols          int    `yaml:"cols"`
	Rows          int    `yaml:"rows"`
	MaxScrollback int    `yaml:"max_scrollback"`
	LogLevel      string `yaml:"log_level"`

	Demo DemoConfig `yaml:"demo"`
}

// DemoConfig tunes the built-in demo screen.
type DemoConfig struct {
	// ImageColors caps the sixel palette of the demo image.
	ImageColors int `yaml:"image_colors"`
	// GlyphFallback selects the downsampler set shown beside the sixel
	// image: block, halfblock, quadrant, sextant, braille.
	GlyphFallback string `yaml:"glyph_fallback"`
}

func defaultConfig() Config {
	return Config{
		Listen:        ":2323",
		Cols:          80,
		Rows:          24,
		MaxScrollback: 1000,
		LogLevel:      "info",
		Demo: DemoConfig{
			ImageColors:   64,
			GlyphFallback: "halfblock",
		},
	}
}

// loadConfig reads a YAML file over the defaults. An empty path returns
// the defaults unchanged.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
