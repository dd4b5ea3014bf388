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
	"slices"

	"github.com/adrg/xdg"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// EnvConfig names the environment variable holding a settings document path
const EnvConfig = "EXPORTSRC_CONFIG"

// extensions in discovery preference order
var extensions = []string{".yaml", ".yml", ".json", ".hcl", ".toml", ".xml"}

const (
	projectGlob = ".exportsrc.{yaml,yml,json,hcl,toml,xml}"
	userGlob    = "settings.{yaml,yml,json,hcl,toml,xml}"
)

// userConfigDir is where per-user settings live
var userConfigDir = func() string {
	return filepath.Join(xdg.ConfigHome, "exportsrc")
}

// 🎯 Load reads, parses and validates the settings document at path. The
// format is picked by extension.
func Load(ctx context.Context, path string) (*Settings, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading settings")

	parser := GetParser(path)
	if parser == nil {
		return nil, errors.Errorf("unsupported settings file extension %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading settings file: %w", err)
	}

	s, err := parser.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("loading %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", path, err)
	}

	return s, nil
}

// 🔍 Discover returns the settings document an export of sourceRoot should
// use, or "" when none exists and the defaults apply. An explicit path wins,
// then EXPORTSRC_CONFIG, then a .exportsrc.* file at the source root, then
// settings.* in the user's config directory.
func Discover(ctx context.Context, explicit, sourceRoot string) (string, error) {
	logger := zerolog.Ctx(ctx)

	if explicit != "" {
		return explicit, nil
	}

	if env := os.Getenv(EnvConfig); env != "" {
		logger.Debug().Str("path", env).Msg("settings from environment")
		return env, nil
	}

	if sourceRoot != "" {
		root := sourceRoot
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			root = filepath.Dir(root)
		}
		found, err := globFirst(root, projectGlob)
		if err != nil {
			return "", err
		}
		if found != "" {
			logger.Debug().Str("path", found).Msg("settings from source root")
			return found, nil
		}
	}

	found, err := globFirst(userConfigDir(), userGlob)
	if err != nil {
		return "", err
	}
	if found != "" {
		logger.Debug().Str("path", found).Msg("settings from user config directory")
	}
	return found, nil
}

// Resolve loads the discovered settings document, falling back to Default.
// The returned path is "" when the defaults are used.
func Resolve(ctx context.Context, explicit, sourceRoot string) (*Settings, string, error) {
	path, err := Discover(ctx, explicit, sourceRoot)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		s := Default()
		if err := s.Validate(); err != nil {
			return nil, "", errors.Errorf("validating default settings: %w", err)
		}
		return s, "", nil
	}
	s, err := Load(ctx, path)
	if err != nil {
		return nil, "", err
	}
	return s, path, nil
}

func globFirst(dir, pattern string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return "", errors.Errorf("searching %s for %s: %w", dir, pattern, err)
	}
	if len(matches) == 0 {
		return "", nil
	}

	slices.SortFunc(matches, func(a, b string) int {
		return slices.Index(extensions, filepath.Ext(a)) - slices.Index(extensions, filepath.Ext(b))
	})
	return filepath.Join(dir, matches[0]), nil
}
