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

// Package walker enumerates the entries of a source tree that survive filtering.
package walker

import (
	"context"
	"iter"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/exportsrc/pkg/link"
	"github.com/walteh/exportsrc/pkg/log"
)

// Filter decides whether an entry is left out
type Filter interface {
	IsExcluded(absolutePath, relativePath, name string) bool
}

// 📄 Entry is one surviving file or directory
type Entry struct {
	Path         string // absolute path
	RelativePath string // path relative to the walk root, OS separators
	Name         string
	IsDir        bool
	IsLink       bool
}

// 🚶 Walker traverses a tree depth first: the files of a directory, then each
// subdirectory followed by its contents
type Walker struct {
	filter    Filter
	links     link.Preserver
	keepLinks bool
	sink      log.Sink
	logger    zerolog.Logger
}

// Option configures a Walker
type Option func(*Walker)

// WithLinks sets how links are detected
func WithLinks(p link.Preserver) Option {
	return func(w *Walker) {
		w.links = p
	}
}

// WithKeepLinks stops the walk from descending into linked directories
func WithKeepLinks(keep bool) Option {
	return func(w *Walker) {
		w.keepLinks = keep
	}
}

// WithSink receives an include or exclude event for every entry considered
func WithSink(s log.Sink) Option {
	return func(w *Walker) {
		w.sink = s
	}
}

// New creates a Walker. A nil filter keeps everything.
func New(ctx context.Context, f Filter, opts ...Option) *Walker {
	w := &Walker{
		filter: f,
		links:  link.OS{},
		sink:   log.Discard,
		logger: *zerolog.Ctx(ctx),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk lazily yields the surviving entries under root, root excluded. Entries
// of one directory come in name order. A read error is yielded once and ends
// the walk.
func (w *Walker) Walk(root string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		w.walk(root, root, yield)
	}
}

// walk returns false once the consumer stopped or an error was yielded
func (w *Walker) walk(root, dir string, yield func(Entry, error) bool) bool {
	des, err := os.ReadDir(dir)
	if err != nil {
		yield(Entry{Path: dir}, errors.Errorf("reading directory %s: %w", dir, err))
		return false
	}

	var files, dirs []Entry
	for _, de := range des {
		abs := filepath.Join(dir, de.Name())
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			yield(Entry{Path: abs}, errors.Errorf("relative path of %s: %w", abs, err))
			return false
		}

		e := Entry{
			Path:         abs,
			RelativePath: rel,
			Name:         de.Name(),
			IsLink:       w.links.IsLink(abs),
		}
		// follow links; a dangling link is treated as a file
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			e.IsDir = true
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}

	for _, e := range files {
		if !w.keep(e) {
			continue
		}
		if !yield(e, nil) {
			return false
		}
	}

	for _, e := range dirs {
		if !w.keep(e) {
			continue
		}
		if !yield(e, nil) {
			return false
		}
		if w.keepLinks && e.IsLink {
			w.logger.Debug().Str("path", e.RelativePath).Msg("not descending into linked directory")
			continue
		}
		if !w.walk(root, e.Path, yield) {
			return false
		}
	}

	return true
}

func (w *Walker) keep(e Entry) bool {
	if w.filter != nil && w.filter.IsExcluded(e.Path, e.RelativePath, e.Name) {
		w.sink.Emit(log.ExcludedEvent{Path: e.Path, IsDir: e.IsDir})
		return false
	}
	w.sink.Emit(log.IncludedEvent{Path: e.Path, IsDir: e.IsDir})
	return true
}
