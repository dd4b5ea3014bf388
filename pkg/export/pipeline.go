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

package export

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/exportsrc/pkg/config"
	"github.com/walteh/exportsrc/pkg/link"
	"github.com/walteh/exportsrc/pkg/log"
	"github.com/walteh/exportsrc/pkg/text"
	"github.com/walteh/exportsrc/pkg/walker"
)

// strategy names, as reported in CopyStartedEvent
const (
	strategyBinary   = "binary"
	strategyText     = "text"
	strategySolution = "solution"
	strategySetup    = "setup-project"
	strategyProject  = "project"
	strategyVCProj   = "vc-project"
)

// projectExtensions share the msbuild schema
var projectExtensions = map[string]bool{
	".csproj":  true,
	".vbproj":  true,
	".dbproj":  true,
	".vcxproj": true,
	".cfxproj": true,
	".wixproj": true,
}

// 🔧 pipeline copies the entries of one export, in walk order
type pipeline struct {
	settings    *config.Settings
	source      string
	destination string
	translator  *text.Translator
	links       link.Preserver
	sink        log.Sink
	logger      zerolog.Logger
	systemDirs  []string
	excludedIDs []string
	copier      copyFunc

	result     Result
	mismatches int
}

// Process handles one walked entry
func (p *pipeline) Process(e walker.Entry) error {
	dst := filepath.Join(p.destination, p.translator.Translate(e.RelativePath))

	if e.IsDir {
		p.result.Directories++
		if e.IsLink && p.settings.KeepSymbolicLinks {
			if ok, err := p.recreateLink(e.Path, dst, link.Directory); ok || err != nil {
				return err
			}
		}
		if _, err := os.Stat(dst); errors.Is(err, fs.ErrNotExist) {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return errors.Errorf("creating directory %s: %w", dst, err)
			}
			p.sink.Emit(log.DirectoryCreatedEvent{Path: dst})
		} else if err != nil {
			return errors.Errorf("checking directory %s: %w", dst, err)
		}
		return nil
	}

	p.result.Files++
	if e.IsLink && p.settings.KeepSymbolicLinks {
		if ok, err := p.recreateLink(e.Path, dst, link.File); ok || err != nil {
			return err
		}
	}
	return p.copyFile(e.Path, dst)
}

// recreateLink reports false when the link target cannot be read, so the
// entry is copied through instead
func (p *pipeline) recreateLink(src, dst string, kind link.Kind) (bool, error) {
	target := p.links.ReadTarget(src)
	if target == "" {
		p.sink.Emit(log.DiagnosticEvent{Path: src, Message: "unreadable link target, copying through"})
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, errors.Errorf("creating parent of %s: %w", dst, err)
	}
	if err := p.links.CreateLink(dst, target, kind); err != nil {
		return false, err
	}
	p.sink.Emit(log.LinkCreatedEvent{Path: dst, Target: target, IsDir: kind == link.Directory})
	return true, nil
}

// 📄 copyFile writes one file through the strategy its extension selects,
// then applies the output permissions
func (p *pipeline) copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Errorf("reading %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Errorf("creating parent of %s: %w", dst, err)
	}

	if p.settings.OverwriteExisting {
		if err := p.removeExisting(dst); err != nil {
			return err
		}
	}

	strategy, run, err := p.strategyFor(src)
	if err != nil {
		return err
	}
	p.sink.Emit(log.CopyStartedEvent{Source: src, Destination: dst, Strategy: strategy})
	if err := run(src, dst); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return errors.Errorf("setting mode of %s: %w", dst, err)
	}
	return p.applyReadOnly(dst)
}

// strategyFor picks the copy strategy from the lowercase extension. Project
// files whose rewrite options are all off take the plain path.
func (p *pipeline) strategyFor(src string) (string, func(src, dst string) error, error) {
	ext := strings.ToLower(filepath.Ext(src))
	switch {
	case ext == ".sln":
		return strategySolution, p.copySolution, nil
	case ext == ".vdproj" && p.settings.RemoveSCMBinding:
		return strategySetup, p.copySetupProject, nil
	case projectExtensions[ext] && (p.settings.RemoveSCMBinding || p.settings.ConvertHintPaths || p.settings.ReplaceLinkFiles):
		return strategyProject, p.copyProject, nil
	case ext == ".vcproj" && p.settings.RemoveSCMBinding:
		return strategyVCProj, p.copyVCProject, nil
	}

	// without replacements there is nothing to rewrite
	if !p.translator.Enabled() {
		return strategyBinary, p.copyBinary, nil
	}
	isText, err := sniffText(src)
	if err != nil {
		return "", nil, err
	}
	if !isText {
		return strategyBinary, p.copyBinary, nil
	}
	return strategyText, p.copyText, nil
}

// removeExisting deletes a file already at dst. A read-only file is only
// deleted when unprotecting is allowed.
func (p *pipeline) removeExisting(dst string) error {
	info, err := os.Lstat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Errorf("checking %s: %w", dst, err)
	}
	if info.IsDir() {
		return nil
	}

	if info.Mode()&fs.ModeSymlink == 0 && info.Mode().Perm()&0o200 == 0 {
		if !p.settings.UnprotectFiles {
			return errors.Errorf("deleting read-only file %s: %w", dst, fs.ErrPermission)
		}
		if err := os.Chmod(dst, info.Mode().Perm()|0o200); err != nil {
			return errors.Errorf("unprotecting %s: %w", dst, err)
		}
	}

	if err := os.Remove(dst); err != nil {
		return errors.Errorf("deleting %s: %w", dst, err)
	}
	return nil
}

// applyReadOnly sets or clears the write bits according to the output policy
func (p *pipeline) applyReadOnly(dst string) error {
	policy := p.settings.OutputReadOnly.Normalize()
	if policy == config.ReadOnlyUnchanged {
		return nil
	}

	info, err := os.Stat(dst)
	if err != nil {
		return errors.Errorf("checking %s: %w", dst, err)
	}

	mode := info.Mode().Perm()
	switch policy {
	case config.ReadOnlySet:
		mode &^= 0o222
	case config.ReadOnlyClear:
		mode |= 0o200
	}
	if mode == info.Mode().Perm() {
		return nil
	}
	if err := os.Chmod(dst, mode); err != nil {
		return errors.Errorf("setting read-only state of %s: %w", dst, err)
	}
	return nil
}

// writeOutput writes the result of a structured rewrite, passing it through
// the content replacements first
func (p *pipeline) writeOutput(dst string, content []byte) error {
	if p.translator.Enabled() {
		content = []byte(p.translator.Translate(string(content)))
	}
	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return errors.Errorf("writing %s: %w", dst, err)
	}
	return nil
}
