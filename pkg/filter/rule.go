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

package filter

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gitlab.com/tozd/go/errors"
)

// 🏷️ Type decides what a matching rule does
type Type string

const (
	Include Type = "include"
	Exclude Type = "exclude"
)

// 🔤 ExpressionType decides how a rule pattern is read
type ExpressionType string

const (
	Glob  ExpressionType = "glob"
	Regex ExpressionType = "regex"
)

// 📏 Rule is a pattern-based include or exclude directive
type Rule struct {
	Pattern          string         `json:"pattern" yaml:"pattern" toml:"pattern"`
	Type             Type           `json:"type" yaml:"type" toml:"type"`
	ExpressionType   ExpressionType `json:"expression,omitempty" yaml:"expression,omitempty" toml:"expression,omitempty"`
	Enabled          *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	CaseSensitive    bool           `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty" toml:"case_sensitive,omitempty"`
	ApplyToName      bool           `json:"apply_to_name,omitempty" yaml:"apply_to_name,omitempty" toml:"apply_to_name,omitempty"`
	ApplyToPath      bool           `json:"apply_to_path,omitempty" yaml:"apply_to_path,omitempty" toml:"apply_to_path,omitempty"`
	ApplyToFile      bool           `json:"apply_to_file,omitempty" yaml:"apply_to_file,omitempty" toml:"apply_to_file,omitempty"`
	ApplyToDirectory bool           `json:"apply_to_directory,omitempty" yaml:"apply_to_directory,omitempty" toml:"apply_to_directory,omitempty"`

	compiled    *regexp.Regexp
	compiledFor compileKey
}

// NewRule creates an enabled glob rule matching names of files and directories
func NewRule(pattern string, typ Type) Rule {
	return Rule{
		Pattern:          pattern,
		Type:             typ,
		ExpressionType:   Glob,
		ApplyToName:      true,
		ApplyToFile:      true,
		ApplyToDirectory: true,
	}
}

// IsEnabled reports whether the rule takes part in matching. A rule without
// a pattern is never enabled.
func (r *Rule) IsEnabled() bool {
	if r.Pattern == "" {
		return false
	}
	return r.Enabled == nil || *r.Enabled
}

// Normalize fills in the defaults a rule read from a settings document leaves
// out: name matching when no target is set, and both entry kinds when no kind is set.
func (r *Rule) Normalize() {
	if r.Type == "" {
		r.Type = Exclude
	}
	if r.ExpressionType == "" {
		r.ExpressionType = Glob
	}
	if !r.ApplyToName && !r.ApplyToPath {
		r.ApplyToName = true
	}
	if !r.ApplyToFile && !r.ApplyToDirectory {
		r.ApplyToFile = true
		r.ApplyToDirectory = true
	}
}

// Validate checks the rule and compiles its pattern
func (r *Rule) Validate(c *Compiler) error {
	switch r.Type {
	case Include, Exclude:
	default:
		return errors.Errorf("unknown rule type %q", r.Type)
	}
	switch r.ExpressionType {
	case Glob, Regex, "":
	default:
		return errors.Errorf("unknown expression type %q", r.ExpressionType)
	}
	if !r.IsEnabled() {
		return nil
	}
	if _, err := r.Compile(c); err != nil {
		return err
	}
	return nil
}

// String returns a string representation of the rule
func (r *Rule) String() string {
	return fmt.Sprintf("FilterType: %s, Text: %s, CaseSensitive: %v", r.Type, r.Pattern, r.CaseSensitive)
}

// Compile returns the rule's expression, compiling it when the pattern,
// expression type or case sensitivity changed since the last call. c may be nil.
func (r *Rule) Compile(c *Compiler) (*regexp.Regexp, error) {
	key := compileKey{pattern: r.Pattern, expression: r.ExpressionType, caseSensitive: r.CaseSensitive}
	if r.compiled != nil && r.compiledFor == key {
		return r.compiled, nil
	}
	if c == nil {
		c = defaultCompiler
	}
	re, err := c.Compile(r.Pattern, r.ExpressionType, r.CaseSensitive)
	if err != nil {
		return nil, err
	}
	r.compiled = re
	r.compiledFor = key
	return re, nil
}

// Match reports whether the rule matches the entry at absolutePath. A path
// that is neither a file nor a directory never matches.
func (r *Rule) Match(absolutePath, relativePath, name string) bool {
	return r.match(statKind(absolutePath), relativePath, name)
}

func (r *Rule) match(kind entryKind, relativePath, name string) bool {
	if kind == kindNone {
		return false
	}
	if r.ApplyToFile && kind != kindFile && !r.ApplyToDirectory {
		return false
	}
	if r.ApplyToDirectory && kind != kindDirectory && !r.ApplyToFile {
		return false
	}

	re, err := r.Compile(nil)
	if err != nil {
		return false
	}
	if r.ApplyToName && re.MatchString(name) {
		return true
	}
	if r.ApplyToPath && re.MatchString(relativePath) {
		return true
	}
	return false
}

type entryKind int

const (
	kindNone entryKind = iota
	kindFile
	kindDirectory
)

// statKind follows links, so a link to a directory is a directory
func statKind(path string) entryKind {
	info, err := os.Stat(path)
	if err != nil {
		return kindNone
	}
	if info.IsDir() {
		return kindDirectory
	}
	return kindFile
}

type compileKey struct {
	pattern       string
	expression    ExpressionType
	caseSensitive bool
}

// 🧠 Compiler turns patterns into expressions and keeps recently used ones
type Compiler struct {
	cache *lru.Cache[compileKey, *regexp.Regexp]
}

const defaultCacheSize = 512

var defaultCompiler = NewCompiler(defaultCacheSize)

// NewCompiler creates a Compiler holding at most size expressions
func NewCompiler(size int) *Compiler {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[compileKey, *regexp.Regexp](size)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Compiler{cache: cache}
}

// Compile converts pattern into an anchored expression.
//
// Globs are escaped, then `*` reads as any sequence, `?` as any single
// character and `|` as alternation between whole-string alternatives. Both
// kinds match across newlines and ignore case unless caseSensitive is set.
func (c *Compiler) Compile(pattern string, expression ExpressionType, caseSensitive bool) (*regexp.Regexp, error) {
	key := compileKey{pattern: pattern, expression: expression, caseSensitive: caseSensitive}
	if re, ok := c.cache.Get(key); ok {
		return re, nil
	}

	flags := "(?s)"
	if !caseSensitive {
		flags = "(?is)"
	}

	var expr string
	switch expression {
	case Regex:
		expr = flags + pattern
	default:
		escaped := regexp.QuoteMeta(pattern)
		escaped = strings.ReplaceAll(escaped, `\*`, ".*")
		escaped = strings.ReplaceAll(escaped, `\|`, "|")
		escaped = strings.ReplaceAll(escaped, `\?`, ".")
		expr = flags + "^(?:" + escaped + ")$"
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Errorf("compiling pattern %q: %w", pattern, err)
	}
	c.cache.Add(key, re)
	return re, nil
}
