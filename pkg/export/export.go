// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package export mirrors a source tree into a destination, dropping filtered
// entries and rewriting solution and project files on the way.
//
// One export runs on the calling goroutine from start to finish. The only
// fan-out is the pair of digests computed while verifying a binary copy.
package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/exportsrc/pkg/config"
	"github.com/walteh/exportsrc/pkg/filter"
	"github.com/walteh/exportsrc/pkg/link"
	"github.com/walteh/exportsrc/pkg/log"
	"github.com/walteh/exportsrc/pkg/text"
	"github.com/walteh/exportsrc/pkg/walker"
)

var (
	// ErrInvalidArgument is returned before any I/O when the inputs are unusable
	ErrInvalidArgument = errors.Base("invalid argument")
	// ErrIntegrity is returned when a copy keeps failing verification
	ErrIntegrity = errors.Base("integrity check failed")
	// ErrLocked is returned when another export writes to the same destination
	ErrLocked = errors.Base("destination is locked by another export")
)

// 📊 Result counts what an export visited
type Result struct {
	Files       int
	Directories int
}

// 🚚 Exporter runs exports with one validated settings snapshot
type Exporter struct {
	settings   *config.Settings
	sink       log.Sink
	links      link.Preserver
	systemDirs []string
	copier     copyFunc
}

// Option configures an Exporter
type Option func(*Exporter)

// WithLinks sets how symbolic links are detected and recreated
func WithLinks(p link.Preserver) Option {
	return func(e *Exporter) {
		e.links = p
	}
}

// WithSystemDirectories replaces the shared locations a hint path may be
// made absolute into
func WithSystemDirectories(dirs ...string) Option {
	return func(e *Exporter) {
		e.systemDirs = append([]string(nil), dirs...)
	}
}

// 🏭 New validates a private copy of settings and creates an Exporter. A nil
// sink discards events.
func New(settings *config.Settings, sink log.Sink, opts ...Option) (*Exporter, error) {
	if settings == nil {
		return nil, errors.Errorf("%w: settings are required", ErrInvalidArgument)
	}

	s := settings.Clone()
	if err := s.Validate(); err != nil {
		return nil, errors.Errorf("%w: %s", ErrInvalidArgument, err.Error())
	}

	e := &Exporter{
		settings:   s,
		sink:       sink,
		links:      link.OS{},
		systemDirs: systemDirectories(),
		copier:     copyBytes,
	}
	if e.sink == nil {
		e.sink = log.Discard
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Settings returns the validated snapshot the exporter uses
func (e *Exporter) Settings() *config.Settings {
	return e.settings
}

// 🚀 Export mirrors source into destination. source may name a file, in which
// case its directory is exported. The destination is created when missing.
func (e *Exporter) Export(ctx context.Context, source, destination string) (Result, error) {
	logger := zerolog.Ctx(ctx)

	if strings.TrimSpace(source) == "" {
		return Result{}, errors.Errorf("%w: source is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(destination) == "" {
		return Result{}, errors.Errorf("%w: destination is required", ErrInvalidArgument)
	}

	src, err := filepath.Abs(source)
	if err != nil {
		return Result{}, errors.Errorf("%w: resolving source %s: %s", ErrInvalidArgument, source, err.Error())
	}
	info, err := os.Stat(src)
	if err != nil {
		return Result{}, errors.Errorf("%w: source %s: %s", ErrInvalidArgument, source, err.Error())
	}
	if !info.IsDir() {
		src = filepath.Dir(src)
	}

	dst, err := filepath.Abs(destination)
	if err != nil {
		return Result{}, errors.Errorf("%w: resolving destination %s: %s", ErrInvalidArgument, destination, err.Error())
	}
	if isWithin(src, dst) {
		return Result{}, errors.Errorf("%w: destination %s is inside source %s", ErrInvalidArgument, dst, src)
	}

	lock, err := lockDestination(dst)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Str("lock", lock.path).Msg("releasing destination lock")
		}
	}()

	logger.Debug().Str("source", src).Str("destination", dst).Msg("starting export")
	e.sink.Emit(log.ConfigurationEvent{Settings: e.settings})

	if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		e.sink.Emit(log.DirectoryCreatedEvent{Path: dst})
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return Result{}, errors.Errorf("creating destination %s: %w", dst, err)
		}
	} else if err != nil {
		return Result{}, errors.Errorf("checking destination %s: %w", dst, err)
	}

	filterOpts := []filter.Option{filter.WithGeneratedFiles(e.settings.ExcludeGeneratedFiles)}
	if e.settings.RespectGitIgnore {
		filterOpts = append(filterOpts, filter.WithGitIgnore(src))
	}
	engine, err := filter.New(ctx, e.settings.Filters, filterOpts...)
	if err != nil {
		return Result{}, errors.Errorf("building filters: %w", err)
	}

	w := walker.New(ctx, engine,
		walker.WithLinks(e.links),
		walker.WithKeepLinks(e.settings.KeepSymbolicLinks),
		walker.WithSink(e.sink),
	)

	p := &pipeline{
		settings:    e.settings,
		source:      src,
		destination: dst,
		translator:  text.NewTranslator(e.settings.Replacements),
		links:       e.links,
		sink:        e.sink,
		logger:      *logger,
		systemDirs:  e.systemDirs,
		copier:      e.copier,
	}
	for _, proj := range e.settings.ExcludedProjects {
		p.excludedIDs = append(p.excludedIDs, strings.ToLower(proj.Braced()))
	}

	for entry, err := range w.Walk(src) {
		if err != nil {
			return p.result, errors.Errorf("walking %s: %w", src, err)
		}
		if err := p.Process(entry); err != nil {
			return p.result, err
		}
	}

	e.sink.Emit(log.SummaryEvent{Files: p.result.Files, Directories: p.result.Directories})
	logger.Debug().Int("files", p.result.Files).Int("directories", p.result.Directories).Msg("export complete")

	return p.result, nil
}

// isWithin reports whether child is parent or lies below it
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
