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
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/exportsrc/pkg/filter"
	"github.com/walteh/exportsrc/pkg/text"
)

const projectID = "8f0e2b62-4c1a-4d7e-9b3f-2a6c1d5e7f90"

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, s *Settings)
	}{
		{
			name: "valid_yaml",
			file: "settings.yaml",
			config: `
remove_scm_binding: true
compute_hash: true
output_read_only: set
filters:
  - pattern: "*.bak"
    type: exclude
  - pattern: "keep.bak"
    type: include
    case_sensitive: true
  - pattern: "old"
    type: exclude
    enabled: false
replacements:
  - search: Contoso
    replace: Fabrikam
excluded_projects:
  - id: ` + projectID + `
    name: Legacy
`,
			check: func(t *testing.T, s *Settings) {
				assert.True(t, s.RemoveSCMBinding, "remove_scm_binding should be set")
				assert.True(t, s.ComputeHash, "compute_hash should be set")
				assert.False(t, s.KeepSymbolicLinks, "missing booleans stay false")
				assert.Equal(t, ReadOnlySet, s.OutputReadOnly, "read only policy should match")
				require.Len(t, s.Filters, 3, "should have 3 filters")
				assert.Equal(t, filter.Exclude, s.Filters[0].Type)
				assert.Equal(t, filter.Glob, s.Filters[0].ExpressionType, "expression defaults to glob")
				assert.True(t, s.Filters[0].ApplyToName, "name matching is the default target")
				assert.True(t, s.Filters[0].ApplyToFile && s.Filters[0].ApplyToDirectory, "both kinds by default")
				assert.Equal(t, filter.Include, s.Filters[1].Type)
				assert.True(t, s.Filters[1].CaseSensitive)
				assert.False(t, s.Filters[2].IsEnabled(), "explicitly disabled rule")
				require.Len(t, s.Replacements, 1)
				assert.Equal(t, "Contoso", s.Replacements[0].Search)
				assert.Equal(t, "Fabrikam", s.Replacements[0].Replace)
				require.Len(t, s.ExcludedProjects, 1)
				assert.Equal(t, uuid.MustParse(projectID), s.ExcludedProjects[0].ID)
				assert.Equal(t, "Legacy", s.ExcludedProjects[0].Name)
			},
		},
		{
			name: "valid_json",
			file: "settings.json",
			config: `{
	"overwrite_existing": true,
	"filters": [{"pattern": "^bin$", "type": "exclude", "expression": "regex", "apply_to_directory": true}],
	"excluded_projects": [{"id": "` + projectID + `"}]
}`,
			check: func(t *testing.T, s *Settings) {
				assert.True(t, s.OverwriteExisting)
				assert.Equal(t, ReadOnlyUnchanged, s.OutputReadOnly, "empty policy normalizes to unchanged")
				require.Len(t, s.Filters, 1)
				assert.Equal(t, filter.Regex, s.Filters[0].ExpressionType)
				assert.True(t, s.Filters[0].ApplyToDirectory)
				assert.False(t, s.Filters[0].ApplyToFile, "an explicit kind is kept")
				assert.Equal(t, "{"+projectID+"}", s.ExcludedProjects[0].Braced())
			},
		},
		{
			name: "valid_hcl",
			file: "settings.hcl",
			config: `
keep_symbolic_links = true
convert_hint_paths  = true
output_read_only    = "clear"

filter {
  pattern = "*.suo"
  type    = "exclude"
}

filter {
  pattern      = "^(.*[\\/]|)packages[\\/].*"
  type         = "include"
  expression   = "regex"
  apply_to_path = true
  enabled      = true
}

replacement {
  search  = "v1"
  replace = "v2"
}

excluded_project {
  id   = "` + projectID + `"
  name = "Legacy"
}
`,
			check: func(t *testing.T, s *Settings) {
				assert.True(t, s.KeepSymbolicLinks)
				assert.True(t, s.ConvertHintPaths)
				assert.Equal(t, ReadOnlyClear, s.OutputReadOnly)
				require.Len(t, s.Filters, 2)
				assert.Equal(t, "*.suo", s.Filters[0].Pattern)
				assert.Nil(t, s.Filters[0].Enabled, "absent enabled stays nil")
				assert.True(t, s.Filters[0].IsEnabled())
				assert.Equal(t, filter.Regex, s.Filters[1].ExpressionType)
				assert.True(t, s.Filters[1].ApplyToPath)
				assert.False(t, s.Filters[1].ApplyToName, "an explicit target is kept")
				require.Len(t, s.Replacements, 1)
				assert.Equal(t, "v2", s.Replacements[0].Replace)
				require.Len(t, s.ExcludedProjects, 1)
				assert.Equal(t, "Legacy", s.ExcludedProjects[0].Name)
			},
		},
		{
			name: "valid_toml",
			file: "settings.toml",
			config: `
remove_scm_binding = true
exclude_generated_files = true

[[filters]]
pattern = "*.tmp"
type = "exclude"

[[replacements]]
search = "a"
replace = "b"

[[excluded_projects]]
id = "` + projectID + `"
`,
			check: func(t *testing.T, s *Settings) {
				assert.True(t, s.RemoveSCMBinding)
				assert.True(t, s.ExcludeGeneratedFiles)
				require.Len(t, s.Filters, 1)
				assert.Equal(t, "*.tmp", s.Filters[0].Pattern)
				require.Len(t, s.Replacements, 1)
				assert.Equal(t, uuid.MustParse(projectID), s.ExcludedProjects[0].ID)
			},
		},
		{
			name: "valid_xml",
			file: "settings.xml",
			config: `<?xml version="1.0" encoding="utf-8"?>
<Settings xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" OverrideExistingFile="true" UnprotectFile="false" ExcludeGeneratedFiles="true" KeepSymbolicLinks="false" ReplaceLinkFiles="true" RemoveTfsBinding="true" ComputeHash="true" ConvertRelativeHintPathsToAbsolute="false">
  <OutputReadOnly>true</OutputReadOnly>
  <Filters>
    <Filter FilterType="Include" ApplyToFileName="false" ApplyToPath="true" ExpressionType="Regex">^(.*\\|)packages\\.*</Filter>
    <Filter Enabled="false">*.suo</Filter>
  </Filters>
  <ExcludedProjects>
    <Project Id="` + projectID + `" Name="Legacy" />
  </ExcludedProjects>
  <Replace text="Acme" by="Contoso" />
  <Replace text="v1" by="v2" />
</Settings>
`,
			check: func(t *testing.T, s *Settings) {
				assert.True(t, s.OverwriteExisting)
				assert.False(t, s.UnprotectFiles)
				assert.True(t, s.ExcludeGeneratedFiles)
				assert.True(t, s.ReplaceLinkFiles)
				assert.True(t, s.RemoveSCMBinding)
				assert.True(t, s.ComputeHash)
				assert.Equal(t, ReadOnlySet, s.OutputReadOnly)

				require.Len(t, s.Filters, 2)
				assert.Equal(t, filter.Include, s.Filters[0].Type)
				assert.Equal(t, filter.Regex, s.Filters[0].ExpressionType)
				assert.Equal(t, `^(.*\\|)packages\\.*`, s.Filters[0].Pattern)
				assert.True(t, s.Filters[0].ApplyToPath)
				assert.False(t, s.Filters[0].ApplyToName)
				assert.Equal(t, filter.Exclude, s.Filters[1].Type)
				assert.False(t, s.Filters[1].IsEnabled())
				assert.True(t, s.Filters[1].ApplyToName, "no target defaults to the name")

				require.Len(t, s.ExcludedProjects, 1)
				assert.Equal(t, uuid.MustParse(projectID), s.ExcludedProjects[0].ID)
				assert.Equal(t, "Legacy", s.ExcludedProjects[0].Name)
				assert.Equal(t, []text.Replacement{{Search: "Acme", Replace: "Contoso"}, {Search: "v1", Replace: "v2"}}, s.Replacements)
			},
		},
		{
			name:   "xml_read_only_absent",
			file:   "settings.xml",
			config: `<Settings ComputeHash="true"><OutputReadOnly xsi:nil="true" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" /></Settings>`,
			check: func(t *testing.T, s *Settings) {
				assert.True(t, s.ComputeHash)
				assert.Equal(t, ReadOnlyUnchanged, s.OutputReadOnly)
			},
		},
		{
			name:        "unknown_xml_element",
			file:        "settings.xml",
			config:      `<Settings><Colour>blue</Colour></Settings>`,
			wantErr:     true,
			errContains: "unknown element",
		},
		{
			name:        "wrong_xml_root",
			file:        "settings.xml",
			config:      `<Options />`,
			wantErr:     true,
			errContains: "Settings root",
		},
		{
			name:        "bad_xml_flag",
			file:        "settings.xml",
			config:      `<Settings ComputeHash="perhaps" />`,
			wantErr:     true,
			errContains: "ComputeHash",
		},
		{
			name:        "unknown_yaml_field",
			file:        "settings.yaml",
			config:      "not_a_setting: true\n",
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name:        "unknown_json_field",
			file:        "settings.json",
			config:      `{"not_a_setting": true}`,
			wantErr:     true,
			errContains: "parsing JSON",
		},
		{
			name:        "invalid_regex",
			file:        "settings.yaml",
			config:      "filters:\n  - pattern: \"(unclosed\"\n    expression: regex\n",
			wantErr:     true,
			errContains: "filter 0",
		},
		{
			name:        "unknown_rule_type",
			file:        "settings.yaml",
			config:      "filters:\n  - pattern: \"*.x\"\n    type: maybe\n",
			wantErr:     true,
			errContains: "unknown rule type",
		},
		{
			name:        "bad_read_only_policy",
			file:        "settings.json",
			config:      `{"output_read_only": "sometimes"}`,
			wantErr:     true,
			errContains: "output_read_only",
		},
		{
			name:        "empty_search",
			file:        "settings.yaml",
			config:      "replacements:\n  - replace: x\n",
			wantErr:     true,
			errContains: "search text is required",
		},
		{
			name:        "bad_project_id",
			file:        "settings.hcl",
			config:      "excluded_project {\n  id = \"nope\"\n}\n",
			wantErr:     true,
			errContains: "excluded project",
		},
		{
			name:        "unsupported_extension",
			file:        "settings.ini",
			config:      "x=1",
			wantErr:     true,
			errContains: "unsupported settings file extension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.config), 0o644), "writing settings file")

			s, err := Load(testContext(t), path)
			if tt.wantErr {
				require.Error(t, err, "expected error")
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains, "error should contain expected text")
				}
				return
			}

			require.NoError(t, err, "loading settings")
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(testContext(t), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading settings file")
}

func TestDefault(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())

	assert.True(t, s.RemoveSCMBinding)
	assert.True(t, s.UnprotectFiles)
	assert.Equal(t, ReadOnlyClear, s.OutputReadOnly)
	assert.True(t, s.OverwriteExisting)
	assert.False(t, s.ExcludeGeneratedFiles)
	assert.True(t, s.ComputeHash)
	assert.True(t, s.KeepSymbolicLinks)
	assert.False(t, s.ReplaceLinkFiles)
	assert.True(t, s.ConvertHintPaths)

	root := t.TempDir()
	for _, dir := range []string{"bin", "obj", "src", filepath.Join("packages", "lib")} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	for _, f := range []string{"app.suo", "main.cs", filepath.Join("packages", "lib", "native.dll"), "tool.dll"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), nil, 0o644))
	}

	engine, err := filter.New(testContext(t), s.Filters)
	require.NoError(t, err)

	excluded := func(rel string) bool {
		return engine.IsExcluded(filepath.Join(root, rel), rel, filepath.Base(rel))
	}

	assert.True(t, excluded("bin"), "bin directory")
	assert.True(t, excluded("obj"), "obj directory")
	assert.True(t, excluded("app.suo"), "suo file")
	assert.True(t, excluded("tool.dll"), "dll outside packages")
	assert.False(t, excluded("src"))
	assert.False(t, excluded("main.cs"))
	assert.False(t, excluded(filepath.Join("packages", "lib", "native.dll")), "packages content is always kept")
}

func TestDefault_Independent(t *testing.T) {
	a := Default()
	b := Default()
	a.Filters[0].Pattern = "changed"
	assert.NotEqual(t, a.Filters[0].Pattern, b.Filters[0].Pattern, "each call builds a new value")
}

func TestClone(t *testing.T) {
	enabled := true
	s := &Settings{
		Filters:          []filter.Rule{{Pattern: "*.x", Type: filter.Exclude, Enabled: &enabled}},
		ExcludedProjects: []ExcludedProject{{ID: uuid.MustParse(projectID)}},
	}
	c := s.Clone()
	*c.Filters[0].Enabled = false
	c.Filters[0].Pattern = "*.y"
	c.ExcludedProjects[0].Name = "changed"

	assert.True(t, *s.Filters[0].Enabled)
	assert.Equal(t, "*.x", s.Filters[0].Pattern)
	assert.Empty(t, s.ExcludedProjects[0].Name)
}

func TestTrace(t *testing.T) {
	s := &Settings{
		RemoveSCMBinding: true,
		OutputReadOnly:   ReadOnlyUnchanged,
		Filters: []filter.Rule{
			filter.NewRule("keep.me", filter.Include),
			filter.NewRule("*.bak", filter.Exclude),
		},
	}
	lines := strings.Split(strings.TrimSpace(s.Trace()), "\n")

	assert.Equal(t, "Remove SCM Binding: true", lines[0])
	assert.Contains(t, lines, "Output Files Read Only: Do not change")
	n := len(lines)
	assert.Equal(t, "FilterType: exclude, Text: *.bak, CaseSensitive: false", lines[n-2], "excludes are listed first")
	assert.Equal(t, "FilterType: include, Text: keep.me, CaseSensitive: false", lines[n-1])
}

func TestMarshal_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			want := Default()
			want.Replacements = append(want.Replacements, text.Replacement{Search: "Old", Replace: "New"})
			want.ExcludedProjects = []ExcludedProject{{ID: uuid.MustParse(projectID), Name: "Legacy"}}
			require.NoError(t, want.Validate())

			data, err := Marshal(want, format)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "settings."+string(format))
			require.NoError(t, os.WriteFile(path, data, 0o644))

			got, err := Load(testContext(t), path)
			require.NoError(t, err)
			assert.Equal(t, want.Trace(), got.Trace())
			assert.Len(t, got.Filters, len(want.Filters))
		})
	}
}

func TestMarshal_UnknownFormat(t *testing.T) {
	_, err := Marshal(Default(), "ini")
	require.Error(t, err)
}

func TestDiscover(t *testing.T) {
	userDir := t.TempDir()
	prev := userConfigDir
	userConfigDir = func() string { return userDir }
	t.Cleanup(func() { userConfigDir = prev })
	t.Setenv(EnvConfig, "")

	ctx := testContext(t)
	source := t.TempDir()

	t.Run("nothing_found", func(t *testing.T) {
		path, err := Discover(ctx, "", source)
		require.NoError(t, err)
		assert.Empty(t, path)

		s, used, err := Resolve(ctx, "", source)
		require.NoError(t, err)
		assert.Empty(t, used)
		assert.Equal(t, Default().Trace(), s.Trace(), "defaults apply")
	})

	t.Run("user_config", func(t *testing.T) {
		user := filepath.Join(userDir, "settings.toml")
		require.NoError(t, os.WriteFile(user, []byte("compute_hash = true\n"), 0o644))
		t.Cleanup(func() { os.Remove(user) })

		path, err := Discover(ctx, "", source)
		require.NoError(t, err)
		assert.Equal(t, user, path)
	})

	t.Run("source_root_prefers_yaml", func(t *testing.T) {
		for _, name := range []string{".exportsrc.json", ".exportsrc.yaml"} {
			require.NoError(t, os.WriteFile(filepath.Join(source, name), []byte("{}\n"), 0o644))
		}

		path, err := Discover(ctx, "", source)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(source, ".exportsrc.yaml"), path)

		// a file as source root searches its directory
		file := filepath.Join(source, "a.txt")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		path, err = Discover(ctx, "", file)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(source, ".exportsrc.yaml"), path)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvConfig, "/from/env.yaml")
		path, err := Discover(ctx, "", source)
		require.NoError(t, err)
		assert.Equal(t, "/from/env.yaml", path)
	})

	t.Run("explicit_wins", func(t *testing.T) {
		t.Setenv(EnvConfig, "/from/env.yaml")
		path, err := Discover(ctx, "/explicit.hcl", source)
		require.NoError(t, err)
		assert.Equal(t, "/explicit.hcl", path)
	})
}
