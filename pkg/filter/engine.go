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

// Package filter decides which entries of a source tree are exported.
//
// Precedence is not "last rule wins": any enabled include rule that matches
// keeps the entry, wherever it sits in the list and whatever exclude rules
// also match. Only then are exclude rules consulted, then the optional
// .gitignore layer, then the generated-file heuristic.
package filter

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔍 Engine evaluates an ordered rule set
type Engine struct {
	rules            []Rule
	excludeGenerated bool
	gitignore        *gitIgnore
	compiler         *Compiler
	logger           zerolog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithGeneratedFiles enables the generated-file heuristic
func WithGeneratedFiles(exclude bool) Option {
	return func(e *Engine) {
		e.excludeGenerated = exclude
	}
}

// WithGitIgnore makes paths ignored by the .gitignore files under root excluded
func WithGitIgnore(root string) Option {
	return func(e *Engine) {
		if root == "" {
			e.gitignore = nil
			return
		}
		e.gitignore = &gitIgnore{root: root}
	}
}

// WithCompiler shares a pattern compiler between engines
func WithCompiler(c *Compiler) Option {
	return func(e *Engine) {
		e.compiler = c
	}
}

// 🏭 New creates an Engine over a copy of rules. Every enabled rule is
// compiled up front; an invalid pattern is reported here rather than while walking.
func New(ctx context.Context, rules []Rule, opts ...Option) (*Engine, error) {
	e := &Engine{
		rules:  append([]Rule(nil), rules...),
		logger: *zerolog.Ctx(ctx),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.compiler == nil {
		e.compiler = defaultCompiler
	}

	for i := range e.rules {
		if err := e.rules[i].Validate(e.compiler); err != nil {
			return nil, errors.Errorf("rule %d (%s): %w", i, e.rules[i].Pattern, err)
		}
	}

	if e.gitignore != nil {
		if err := e.gitignore.load(); err != nil {
			return nil, errors.Errorf("loading .gitignore files: %w", err)
		}
	}

	return e, nil
}

// IsExcluded reports whether the entry must be left out of the export
func (e *Engine) IsExcluded(absolutePath, relativePath, name string) bool {
	kind := statKind(absolutePath)

	for i := range e.rules {
		r := &e.rules[i]
		if !r.IsEnabled() || r.Type != Include {
			continue
		}
		if r.match(kind, relativePath, name) {
			e.logger.Debug().Str("path", relativePath).Str("rule", r.Pattern).Msg("included by rule")
			return false
		}
	}

	for i := range e.rules {
		r := &e.rules[i]
		if !r.IsEnabled() || r.Type != Exclude {
			continue
		}
		if r.match(kind, relativePath, name) {
			e.logger.Debug().Str("path", relativePath).Str("rule", r.Pattern).Msg("excluded by rule")
			return true
		}
	}

	if e.gitignore != nil && e.gitignore.ignored(absolutePath, relativePath, kind == kindDirectory) {
		e.logger.Debug().Str("path", relativePath).Msg("excluded by .gitignore")
		return true
	}

	if e.excludeGenerated && kind == kindFile && isGenerated(absolutePath, name) {
		e.logger.Debug().Str("path", relativePath).Msg("excluded as generated file")
		return true
	}

	return false
}
