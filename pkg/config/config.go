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

package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/exportsrc/pkg/filter"
	"github.com/walteh/exportsrc/pkg/text"
)

// 🔒 ReadOnlyPolicy decides the read-only state of written files
type ReadOnlyPolicy string

const (
	ReadOnlyUnchanged ReadOnlyPolicy = "unchanged"
	ReadOnlySet       ReadOnlyPolicy = "set"
	ReadOnlyClear     ReadOnlyPolicy = "clear"
)

// Normalize maps the empty policy to ReadOnlyUnchanged
func (p ReadOnlyPolicy) Normalize() ReadOnlyPolicy {
	if p == "" {
		return ReadOnlyUnchanged
	}
	return ReadOnlyPolicy(strings.ToLower(string(p)))
}

func (p ReadOnlyPolicy) describe() string {
	switch p.Normalize() {
	case ReadOnlySet:
		return "True"
	case ReadOnlyClear:
		return "False"
	default:
		return "Do not change"
	}
}

// 📦 ExcludedProject is a project whose solution entries are dropped
type ExcludedProject struct {
	ID   uuid.UUID `json:"id" yaml:"id" toml:"id"`
	Name string    `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
}

// Braced returns the identifier as it appears in solution files
func (p ExcludedProject) Braced() string {
	return "{" + p.ID.String() + "}"
}

// 📚 Settings is everything an export needs to know besides its two roots
type Settings struct {
	RemoveSCMBinding      bool           `json:"remove_scm_binding" yaml:"remove_scm_binding" toml:"remove_scm_binding"`
	ComputeHash           bool           `json:"compute_hash" yaml:"compute_hash" toml:"compute_hash"`
	OverwriteExisting     bool           `json:"overwrite_existing" yaml:"overwrite_existing" toml:"overwrite_existing"`
	UnprotectFiles        bool           `json:"unprotect_files" yaml:"unprotect_files" toml:"unprotect_files"`
	ExcludeGeneratedFiles bool           `json:"exclude_generated_files" yaml:"exclude_generated_files" toml:"exclude_generated_files"`
	KeepSymbolicLinks     bool           `json:"keep_symbolic_links" yaml:"keep_symbolic_links" toml:"keep_symbolic_links"`
	ReplaceLinkFiles      bool           `json:"replace_link_files" yaml:"replace_link_files" toml:"replace_link_files"`
	ConvertHintPaths      bool           `json:"convert_hint_paths" yaml:"convert_hint_paths" toml:"convert_hint_paths"`
	RespectGitIgnore      bool           `json:"respect_gitignore,omitempty" yaml:"respect_gitignore,omitempty" toml:"respect_gitignore,omitempty"`
	OutputReadOnly        ReadOnlyPolicy `json:"output_read_only,omitempty" yaml:"output_read_only,omitempty" toml:"output_read_only,omitempty"`

	Filters          []filter.Rule      `json:"filters,omitempty" yaml:"filters,omitempty" toml:"filters,omitempty"`
	Replacements     []text.Replacement `json:"replacements,omitempty" yaml:"replacements,omitempty" toml:"replacements,omitempty"`
	ExcludedProjects []ExcludedProject  `json:"excluded_projects,omitempty" yaml:"excluded_projects,omitempty" toml:"excluded_projects,omitempty"`
}

// Clone returns a deep copy, so an export can hold settings the caller may
// keep mutating
func (s *Settings) Clone() *Settings {
	c := *s
	c.Filters = append([]filter.Rule(nil), s.Filters...)
	for i := range c.Filters {
		if s.Filters[i].Enabled != nil {
			v := *s.Filters[i].Enabled
			c.Filters[i].Enabled = &v
		}
	}
	c.Replacements = append([]text.Replacement(nil), s.Replacements...)
	c.ExcludedProjects = append([]ExcludedProject(nil), s.ExcludedProjects...)
	return &c
}

// ✅ Validate normalizes the settings in place and reports the first problem.
// Every enabled rule is compiled so a bad pattern fails before any file is touched.
func (s *Settings) Validate() error {
	s.OutputReadOnly = s.OutputReadOnly.Normalize()
	switch s.OutputReadOnly {
	case ReadOnlyUnchanged, ReadOnlySet, ReadOnlyClear:
	default:
		return errors.Errorf("output_read_only: unknown policy %q (want set, clear or unchanged)", s.OutputReadOnly)
	}

	for i := range s.Filters {
		s.Filters[i].Normalize()
		if err := s.Filters[i].Validate(nil); err != nil {
			return errors.Errorf("filter %d (%s): %w", i, s.Filters[i].Pattern, err)
		}
	}

	if err := text.ValidateReplacements(s.Replacements); err != nil {
		return errors.Errorf("replacements: %w", err)
	}

	for i, p := range s.ExcludedProjects {
		if p.ID == uuid.Nil {
			return errors.Errorf("excluded project %d: id is required", i)
		}
	}

	return nil
}

// 📝 Trace renders the settings the way the console shows them before an export
func (s *Settings) Trace() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Remove SCM Binding: %v\n", s.RemoveSCMBinding)
	fmt.Fprintf(&sb, "Compute Hash: %v\n", s.ComputeHash)
	fmt.Fprintf(&sb, "Overwrite Existing Files: %v\n", s.OverwriteExisting)
	fmt.Fprintf(&sb, "Unprotect Files: %v\n", s.UnprotectFiles)
	fmt.Fprintf(&sb, "Output Files Read Only: %s\n", s.OutputReadOnly.describe())
	fmt.Fprintf(&sb, "Exclude Generated Files: %v\n", s.ExcludeGeneratedFiles)
	fmt.Fprintf(&sb, "Keep Symbolic Links: %v\n", s.KeepSymbolicLinks)
	fmt.Fprintf(&sb, "Replace Link Files: %v\n", s.ReplaceLinkFiles)
	fmt.Fprintf(&sb, "Convert Hint Paths: %v\n", s.ConvertHintPaths)
	fmt.Fprintf(&sb, "Respect .gitignore: %v\n", s.RespectGitIgnore)

	// excludes first, then includes
	for _, typ := range []filter.Type{filter.Exclude, filter.Include} {
		for i := range s.Filters {
			if s.Filters[i].Type == typ {
				sb.WriteString(s.Filters[i].String())
				sb.WriteByte('\n')
			}
		}
	}

	for _, r := range s.Replacements {
		fmt.Fprintf(&sb, "Replace: %q -> %q\n", r.Search, r.Replace)
	}
	for _, p := range s.ExcludedProjects {
		fmt.Fprintf(&sb, "Excluded Project: %s %s\n", p.Braced(), p.Name)
	}

	return sb.String()
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (s *Settings) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("remove_scm_binding", s.RemoveSCMBinding).
		Bool("compute_hash", s.ComputeHash).
		Bool("overwrite_existing", s.OverwriteExisting).
		Bool("unprotect_files", s.UnprotectFiles).
		Str("output_read_only", string(s.OutputReadOnly.Normalize())).
		Bool("exclude_generated_files", s.ExcludeGeneratedFiles).
		Bool("keep_symbolic_links", s.KeepSymbolicLinks).
		Bool("replace_link_files", s.ReplaceLinkFiles).
		Bool("convert_hint_paths", s.ConvertHintPaths).
		Bool("respect_gitignore", s.RespectGitIgnore).
		Int("filters", len(s.Filters)).
		Int("replacements", len(s.Replacements)).
		Int("excluded_projects", len(s.ExcludedProjects))
}
