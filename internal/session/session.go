/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session ties one selected photo to composites and exports. Each
// selection starts a new generation; work started for an older generation
// is cancelled and its results are discarded with domain.ErrStale.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"textbehind/internal/compositor"
	"textbehind/internal/domain"
	"textbehind/internal/export"
	applog "textbehind/internal/log"
	"textbehind/internal/segment"
	"textbehind/internal/storage"
)

// Recorder receives an entry for every successful export.
type Recorder interface {
	Record(ctx context.Context, e storage.Entry) (int64, error)
}

// Output describes where and how exports are written.
type Output struct {
	Dir    string
	Prefix string
	Preset export.Preset
}

type Session struct {
	comp *compositor.Compositor
	seg  segment.Segmenter
	hist Recorder
	out  Output
	log  *slog.Logger

	mu      sync.Mutex
	gen     uint64
	genCtx  context.Context
	cancel  context.CancelFunc
	src     domain.SourceImage
	cut     *domain.CutoutImage
	srcName string
}

type Option func(*Session)

// beforePublish runs right before an export's final generation check.
var beforePublish = func() {}

// WithSegmenter makes Select compute the cutout when none is given.
func WithSegmenter(s segment.Segmenter) Option { return func(ss *Session) { ss.seg = s } }

// WithRecorder records exports in a history.
func WithRecorder(r Recorder) Option { return func(ss *Session) { ss.hist = r } }

func WithLogger(l *slog.Logger) Option { return func(ss *Session) { ss.log = l } }

func New(comp *compositor.Compositor, out Output, opts ...Option) *Session {
	s := &Session{comp: comp, out: out}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = applog.WithComponent("session")
	}
	if s.comp == nil {
		s.comp = compositor.New()
	}
	s.genCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Select makes src the current photo. Composites and exports still running
// for the previous photo are cancelled. When cut is nil and a segmenter is
// configured, the cutout is computed here; a newer Select issued meanwhile
// makes this one return ErrStale.
func (s *Session) Select(ctx context.Context, name string, src domain.SourceImage, cut *domain.CutoutImage) (uint64, error) {
	if src.Image == nil {
		return 0, domain.ErrNoSource
	}
	if err := domain.CheckDimensions(src, cut); err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.cancel()
	s.gen++
	gen := s.gen
	s.genCtx, s.cancel = context.WithCancel(context.Background())
	genCtx := s.genCtx
	s.src, s.cut, s.srcName = src, cut, name
	s.mu.Unlock()
	s.log.Debug("image selected", slog.Uint64("gen", gen), slog.String("source", name))

	if cut != nil || s.seg == nil {
		return gen, nil
	}

	runCtx, stop := joinContexts(ctx, genCtx)
	defer stop()
	c, err := s.seg.Segment(runCtx, src)
	if err != nil {
		if genCtx.Err() != nil {
			return gen, domain.ErrStale
		}
		return gen, fmt.Errorf("segment %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return gen, domain.ErrStale
	}
	s.cut = &c
	return gen, nil
}

// Generation returns the current selection generation; zero before the
// first Select.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

type snapshot struct {
	gen    uint64
	ctx    context.Context
	src    domain.SourceImage
	cut    *domain.CutoutImage
	name   string
	layers domain.Layers
}

func (s *Session) snapshot(layers domain.Layers) (snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src.Image == nil {
		return snapshot{}, domain.ErrNoSource
	}
	return snapshot{gen: s.gen, ctx: s.genCtx, src: s.src, cut: s.cut, name: s.srcName, layers: layers.Clone()}, nil
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// Render composites layers over the current photo.
func (s *Session) Render(ctx context.Context, layers domain.Layers, preview domain.PreviewBox) (*compositor.Result, error) {
	snap, err := s.snapshot(layers)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, snap, preview)
}

func (s *Session) render(ctx context.Context, snap snapshot, preview domain.PreviewBox) (*compositor.Result, error) {
	runCtx, stop := joinContexts(ctx, snap.ctx)
	defer stop()
	res, err := s.comp.Composite(runCtx, compositor.Input{
		Source: snap.src, Cutout: snap.cut, Layers: snap.layers, Preview: preview,
	})
	if snap.ctx.Err() != nil || !s.current(snap.gen) {
		return nil, domain.ErrStale
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Export renders layers and writes the result with the session's output
// settings. It returns the written path. Nothing is written when the
// selection changed before the file could be produced.
func (s *Session) Export(ctx context.Context, layers domain.Layers, preview domain.PreviewBox) (string, error) {
	snap, err := s.snapshot(layers)
	if err != nil {
		return "", err
	}
	l := applog.WithOperation(s.log, "export").With(slog.Uint64("gen", snap.gen))
	res, err := s.render(ctx, snap, preview)
	if err != nil {
		l.Warn("render failed", slog.Any("err", err))
		return "", err
	}
	for _, id := range res.Fallbacks {
		l.Warn("layer rendered with fallback font", slog.Int("layer", id))
	}
	if !s.current(snap.gen) {
		return "", domain.ErrStale
	}

	p := s.out.Preset
	if p.Format == "" {
		p.Format = export.PNG
	}
	path, err := export.WriteFileCommit(s.out.Dir, s.out.Prefix, res.Image, p.Format, p.Options,
		func(publish func() error) error {
			beforePublish()
			// Select bumps the generation under mu; check and rename under it too.
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.gen != snap.gen {
				return domain.ErrStale
			}
			return publish()
		})
	if errors.Is(err, domain.ErrStale) {
		l.Info("export superseded before publish")
		return "", err
	}
	if err != nil {
		l.Error("write failed", slog.Any("err", err))
		return "", err
	}
	l.Info("exported", slog.String("path", path), slog.String("format", string(p.Format)))

	if s.hist != nil {
		b := res.Image.Bounds()
		_, err := s.hist.Record(ctx, storage.Entry{
			Path: path, Format: string(p.Format), Width: b.Dx(), Height: b.Dy(),
			Layers: len(snap.layers), Source: snap.name,
		})
		if err != nil {
			l.Warn("history not updated", slog.Any("err", err))
		}
	}
	return path, nil
}

// Close cancels any work for the current selection.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
}

// joinContexts returns a context cancelled when either parent is.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
