/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"strconv"
	"strings"
)

type envBinding struct {
	key   string // dotted yaml path
	env   string
	apply func(c *Config, v string)
}

var envBindings = []envBinding{
	{"render.strategy", "TBI_STRATEGY", func(c *Config, v string) { c.Render.Strategy = strings.ToLower(v) }},
	{"render.skew_k", "TBI_SKEW_K", func(c *Config, v string) { setFloat(&c.Render.SkewK, v) }},
	{"render.perspective", "TBI_PERSPECTIVE", func(c *Config, v string) { setFloat(&c.Render.Perspective, v) }},
	{"render.default_family", "TBI_FONT_FAMILY", func(c *Config, v string) { c.Render.DefaultFamily = v }},
	{"render.font_dirs", "TBI_FONT_DIRS", func(c *Config, v string) { c.Render.FontDirs = splitList(v) }},
	{"export.format", "TBI_FORMAT", func(c *Config, v string) { c.Export.Format = strings.ToLower(v) }},
	{"export.jpeg_quality", "TBI_JPEG_QUALITY", func(c *Config, v string) { setInt(&c.Export.JPEGQuality, v) }},
	{"export.out_dir", "TBI_OUT_DIR", func(c *Config, v string) { c.Export.OutDir = v }},
	{"export.prefix", "TBI_PREFIX", func(c *Config, v string) { c.Export.Prefix = v }},
	{"segment.url", "TBI_SEGMENT_URL", func(c *Config, v string) { c.Segment.URL = v }},
	{"segment.timeout_ms", "TBI_SEGMENT_TIMEOUT_MS", func(c *Config, v string) { setInt(&c.Segment.TimeoutMs, v) }},
	{"history.enabled", "TBI_HISTORY", func(c *Config, v string) { c.History.Enabled = truthy(v) }},
	{"history.driver", "TBI_HISTORY_DRIVER", func(c *Config, v string) { c.History.Driver = strings.ToLower(v) }},
	{"history.dsn", "TBI_HISTORY_DSN", func(c *Config, v string) { c.History.DSN = v }},
	{"logging.level", "TBI_LOG_LEVEL", func(c *Config, v string) { c.Logging.Level = strings.ToLower(v) }},
	{"logging.format", "TBI_LOG_FORMAT", func(c *Config, v string) { c.Logging.Format = strings.ToLower(v) }},
	{"logging.source", "TBI_LOG_SOURCE", func(c *Config, v string) { c.Logging.Source = truthy(v) }},
	{"logging.file", "TBI_LOG_FILE", func(c *Config, v string) { c.Logging.File = v }},
}

func applyEnvOverrides(c *Config) {
	for _, b := range envBindings {
		if v := strings.TrimSpace(os.Getenv(b.env)); v != "" {
			b.apply(c, v)
		}
	}
}

// EnvOverrideFor returns the variable overriding key ("export.format"), if
// one is set.
func EnvOverrideFor(key string) (string, bool) {
	for _, b := range envBindings {
		if b.key == key && strings.TrimSpace(os.Getenv(b.env)) != "" {
			return b.env, true
		}
	}
	return "", false
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Malformed numbers leave the configured value in place.
func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setFloat(dst *float64, v string) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, string(os.PathListSeparator)) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvTrim(key string) string { return strings.TrimSpace(os.Getenv(key)) }
