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

// Package link detects, reads and recreates symbolic links.
package link

import (
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🔗 Kind is the kind of entry a link points at
type Kind int

const (
	File Kind = iota
	Directory
)

// String returns a string representation of Kind
func (k Kind) String() string {
	if k == Directory {
		return "directory"
	}
	return "file"
}

// nonInterpretedPrefix is prepended by Windows to reparse point targets
const nonInterpretedPrefix = `\??\`

// Preserver is the link capability an export needs
type Preserver interface {
	// IsLink reports whether the entry at path is itself a link
	IsLink(path string) bool
	// ReadTarget returns the link target, or "" when it cannot be read
	ReadTarget(path string) string
	// CreateLink creates a link at dst pointing at target
	CreateLink(dst, target string, kind Kind) error
}

// OS uses the host file system's symbolic links
type OS struct{}

var _ Preserver = OS{}

// IsLink implements Preserver
func (OS) IsLink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

// ReadTarget implements Preserver
func (OS) ReadTarget(path string) string {
	target, err := os.Readlink(path)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(target, nonInterpretedPrefix)
}

// CreateLink implements Preserver. A link already at dst is replaced; any
// other existing entry is an error.
func (OS) CreateLink(dst, target string, kind Kind) error {
	if info, err := os.Lstat(dst); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return errors.Errorf("creating %s link %s: destination exists and is not a link", kind, dst)
		}
		if err := os.Remove(dst); err != nil {
			return errors.Errorf("removing existing link %s: %w", dst, err)
		}
	}
	if err := os.Symlink(target, dst); err != nil {
		return errors.Errorf("creating %s link %s -> %s: %w", kind, dst, target, err)
	}
	return nil
}

// None treats every entry as a regular file or directory. Use it where link
// introspection is unavailable; exports then traverse through links.
type None struct{}

var _ Preserver = None{}

// IsLink implements Preserver
func (None) IsLink(string) bool { return false }

// ReadTarget implements Preserver
func (None) ReadTarget(string) string { return "" }

// CreateLink implements Preserver
func (None) CreateLink(dst, _ string, kind Kind) error {
	return errors.Errorf("creating %s link %s: links are not supported", kind, dst)
}
