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
	"path/filepath"
	"strings"

	gitignore "github.com/denormal/go-gitignore"
	"gitlab.com/tozd/go/errors"
)

// gitIgnore excludes what the .gitignore files of the source tree ignore,
// plus the .git directory itself
type gitIgnore struct {
	root string
	repo gitignore.GitIgnore
}

func (g *gitIgnore) load() error {
	abs, err := filepath.Abs(g.root)
	if err != nil {
		return errors.Errorf("resolving %s: %w", g.root, err)
	}
	g.root = abs

	repo, err := gitignore.NewRepository(abs)
	if err != nil {
		return errors.Errorf("reading ignore files under %s: %w", abs, err)
	}
	g.repo = repo
	return nil
}

func (g *gitIgnore) ignored(absolutePath, relativePath string, isDir bool) bool {
	if inGitDir(relativePath, isDir) {
		return true
	}
	if g.repo == nil {
		return false
	}
	m := g.repo.Absolute(absolutePath, isDir)
	return m != nil && m.Ignore()
}

func inGitDir(relativePath string, isDir bool) bool {
	parts := strings.Split(filepath.ToSlash(relativePath), "/")
	for i, part := range parts {
		if part == ".git" && (isDir || i < len(parts)-1) {
			return true
		}
	}
	return false
}
