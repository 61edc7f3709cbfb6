/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration from a YAML file, applies TBI_*
// environment overrides and keeps the segmentation API token in the OS
// keyring.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"textbehind/internal/export"
	"textbehind/internal/geometry"
	applog "textbehind/internal/log"
)

type RenderConfig struct {
	Strategy      string   `yaml:"strategy"` // letterbox | fixed
	SkewK         float64  `yaml:"skew_k"`
	Perspective   float64  `yaml:"perspective"`
	DefaultFamily string   `yaml:"default_family"`
	FontDirs      []string `yaml:"font_dirs"`
}

type ExportConfig struct {
	Format      string `yaml:"format"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	OutDir      string `yaml:"out_dir"`
	Prefix      string `yaml:"prefix"`
}

type SegmentConfig struct {
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// The API token lives in the OS keyring, see Token.
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // sqlite | pgx
	DSN     string `yaml:"dsn"`    // empty selects history.db next to the config file
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Config is the user-editable configuration. Environment variables override
// it at runtime and are never written back.
type Config struct {
	ConfigVersion int           `yaml:"config_version"`
	Render        RenderConfig  `yaml:"render"`
	Export        ExportConfig  `yaml:"export"`
	Segment       SegmentConfig `yaml:"segment"`
	History       HistoryConfig `yaml:"history"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ConfigVersion: 1,
		Render: RenderConfig{
			Strategy:      string(geometry.StrategyLetterbox),
			SkewK:         geometry.DefaultTilt.SkewK,
			DefaultFamily: "Go",
		},
		Export: ExportConfig{
			Format:      string(export.PNG),
			JPEGQuality: export.DefaultJPEGQuality,
			OutDir:      ".",
			Prefix:      export.DefaultPrefix,
		},
		Segment: SegmentConfig{TimeoutMs: 30000},
		History: HistoryConfig{Enabled: true, Driver: "sqlite"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "TBI_CONFIG"

// Path returns the config file location: $TBI_CONFIG, or config.yaml under
// the per-user config directory.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "textbehind", "config.yaml"), nil
}

// Load reads the config at Path. A missing file yields the defaults; a
// malformed one is an error. Environment overrides are applied last.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Defaults(), err
	}
	return LoadFile(p)
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		// Decoding onto the defaults keeps every key the file leaves out.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	if cfg.History.DSN == "" && cfg.History.Driver == "sqlite" {
		cfg.History.DSN = filepath.Join(filepath.Dir(path), "history.db")
	}
	return cfg, cfg.Validate()
}

// Save writes cfg to path, creating the directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports the first setting no component would accept.
func (c Config) Validate() error {
	if _, err := geometry.ParseStrategy(c.Render.Strategy); err != nil {
		return fmt.Errorf("render.strategy: %w", err)
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return fmt.Errorf("export.format: %w", err)
	}
	if q := c.Export.JPEGQuality; q < 0 || q > 100 {
		return fmt.Errorf("export.jpeg_quality: %d not in 1..100", q)
	}
	switch c.History.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("history.driver: unknown driver %q", c.History.Driver)
	}
	return nil
}

// Tilt returns the tilt calibration. A non-positive skew_k keeps the
// default.
func (r RenderConfig) Tilt() geometry.TiltParams {
	t := geometry.DefaultTilt
	if r.SkewK > 0 {
		t.SkewK = r.SkewK
	}
	t.Perspective = r.Perspective
	return t
}

// Timeout returns the HTTP timeout for the segmentation service.
func (s SegmentConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return time.Duration(Defaults().Segment.TimeoutMs) * time.Millisecond
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Options converts the logging section for log.Init.
func (l LoggingConfig) Options() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
