/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package segment obtains the foreground cutout for a photo: from a file
// produced ahead of time, or from a remove-background HTTP service.
package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"textbehind/internal/compositor"
	"textbehind/internal/domain"
	"textbehind/internal/export"
	applog "textbehind/internal/log"
)

// Segmenter produces a cutout with the same pixel size as src.
type Segmenter interface {
	Segment(ctx context.Context, src domain.SourceImage) (domain.CutoutImage, error)
}

// Check validates a cutout against its source.
func Check(src domain.SourceImage, cut domain.CutoutImage) error {
	return domain.CheckDimensions(src, &cut)
}

// FileSegmenter reads a cutout computed by another tool.
type FileSegmenter struct {
	Path string
}

func (f FileSegmenter) Segment(ctx context.Context, src domain.SourceImage) (domain.CutoutImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.CutoutImage{}, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return domain.CutoutImage{}, fmt.Errorf("open cutout: %w", err)
	}
	defer fh.Close()
	img, _, err := compositor.DecodeImage(fh)
	if err != nil {
		return domain.CutoutImage{}, fmt.Errorf("cutout %s: %w", f.Path, err)
	}
	cut := domain.CutoutImage{Image: img}
	if err := Check(src, cut); err != nil {
		return domain.CutoutImage{}, err
	}
	return cut, nil
}

// maxResponse bounds the cutout download.
const maxResponse = 256 << 20

const defaultTimeout = 30 * time.Second

// HTTPSegmenter posts the source as PNG and expects the cutout image back.
// A literal with only URL and Token set uses a client with the default
// timeout and the package logger.
type HTTPSegmenter struct {
	URL    string
	Token  string // bearer token
	client *http.Client
	log    *slog.Logger
}

// NewHTTPSegmenter creates a client for the service at url.
func NewHTTPSegmenter(url, token string, timeout time.Duration) (*HTTPSegmenter, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("segmentation service url is not configured")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSegmenter{
		URL:    url,
		Token:  token,
		client: &http.Client{Timeout: timeout},
		log:    applog.WithComponent("segment"),
	}, nil
}

func (h *HTTPSegmenter) httpClient() *http.Client {
	if h.client != nil {
		return h.client
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (h *HTTPSegmenter) logger() *slog.Logger {
	if h.log != nil {
		return h.log
	}
	return applog.WithComponent("segment")
}

func (h *HTTPSegmenter) Segment(ctx context.Context, src domain.SourceImage) (domain.CutoutImage, error) {
	if src.Image == nil {
		return domain.CutoutImage{}, domain.ErrNoSource
	}
	var body bytes.Buffer
	if err := export.Encode(&body, src.Image, export.PNG, export.Options{}); err != nil {
		return domain.CutoutImage{}, fmt.Errorf("segment: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, &body)
	if err != nil {
		return domain.CutoutImage{}, fmt.Errorf("segment: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "image/png")
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	start := time.Now()
	resp, err := h.httpClient().Do(req)
	if err != nil {
		return domain.CutoutImage{}, fmt.Errorf("segment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.CutoutImage{}, fmt.Errorf("segment: server %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	img, format, err := compositor.DecodeImage(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return domain.CutoutImage{}, fmt.Errorf("segment response: %w", err)
	}
	h.logger().DebugContext(ctx, "cutout received", slog.String("format", format),
		slog.Duration("took", time.Since(start)))

	cut := domain.CutoutImage{Image: img}
	if err := Check(src, cut); err != nil {
		return domain.CutoutImage{}, err
	}
	return cut, nil
}
