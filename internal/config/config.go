// Package config resolves camera configuration for go-psmove commands.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// PSMOVE_TRACKER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// Default tracker configuration.
const (
	DefaultWidth     = 640
	DefaultHeight    = 480
	DefaultFramerate = 60
	DefaultDriver    = "opencv"

	// EnvPrefix is the prefix of every environment override.
	EnvPrefix = "PSMOVE_TRACKER_"
)

// Config holds the camera settings shared by commands.
type Config struct {
	Width     int    `koanf:"width"`
	Height    int    `koanf:"height"`
	Framerate int    `koanf:"fps"`
	Driver    string `koanf:"driver"`

	// Filename substitutes a recorded video for live hardware.
	Filename string `koanf:"filename"`

	LogLevel string `koanf:"log_level"`

	Calibration CalibrationConfig `koanf:"calibration"`
	Preview     PreviewConfig     `koanf:"preview"`
}

// CalibrationConfig points at the lens calibration files.
type CalibrationConfig struct {
	Intrinsics string `koanf:"intrinsics"`
	Distortion string `koanf:"distortion"`
}

// PreviewConfig configures the debug preview server.
type PreviewConfig struct {
	Addr    string  `koanf:"addr"`
	MaxFPS  float64 `koanf:"max_fps"`
	Quality int     `koanf:"quality"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Framerate: DefaultFramerate,
		Driver:    DefaultDriver,
		LogLevel:  "info",
		Preview: PreviewConfig{
			Addr:    ":8090",
			MaxFPS:  15,
			Quality: 80,
		},
	}
}

func defaultsMap() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"width":           d.Width,
		"height":          d.Height,
		"fps":             d.Framerate,
		"driver":          d.Driver,
		"filename":        d.Filename,
		"log_level":       d.LogLevel,
		"preview.addr":    d.Preview.Addr,
		"preview.max_fps": d.Preview.MaxFPS,
		"preview.quality": d.Preview.Quality,
	}
}

// Load builds the configuration. path may be empty; a missing file is not an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// envKey maps PSMOVE_TRACKER_WIDTH to "width" and
// PSMOVE_TRACKER_PREVIEW__ADDR to "preview.addr".
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Metrics returns the fallback capture resolution.
// Non-positive values fall back to the built-in defaults.
func (c Config) Metrics() (width, height int) {
	width, height = c.Width, c.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return width, height
}

// FPS returns the configured framerate, or the default when unset.
func (c Config) FPS() int {
	if c.Framerate <= 0 {
		return DefaultFramerate
	}
	return c.Framerate
}

// Validate checks if the config values are usable.
// Returns a list of validation errors, or nil if valid.
func (c Config) Validate() []string {
	var errs []string

	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, "width and height must not be negative")
	}
	if c.Width%2 != 0 {
		errs = append(errs, "width must be even")
	}
	if c.Framerate < 0 || c.Framerate > 240 {
		errs = append(errs, "fps must be between 0 (default) and 240")
	}
	if (c.Calibration.Intrinsics == "") != (c.Calibration.Distortion == "") {
		errs = append(errs, "calibration needs both intrinsics and distortion files")
	}
	if c.Preview.MaxFPS < 0 {
		errs = append(errs, "preview.max_fps must not be negative")
	}
	if c.Preview.Quality < 1 || c.Preview.Quality > 100 {
		errs = append(errs, "preview.quality must be between 1 and 100")
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log_level must be debug, info, warn, or error")
	}

	return errs
}
