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
	"bytes"
	"iter"
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// solution sections that bind a solution to source control
var scmSections = []string{
	"GlobalSection(SourceCodeControl)",
	"GlobalSection(TeamFoundationVersionControl)",
}

const endSection = "EndGlobalSection"

// setup project keys that bind an installer project to source control
var scmSetupKeys = []string{
	`"SccProjectName"`,
	`"SccLocalPath"`,
	`"SccAuxPath"`,
	`"SccProvider"`,
}

// lines yields each line of data with its terminator
func lines(data []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for len(data) > 0 {
			i := bytes.IndexByte(data, '\n')
			if i < 0 {
				yield(data)
				return
			}
			if !yield(data[:i+1]) {
				return
			}
			data = data[i+1:]
		}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// filterSolution drops source control sections when removeSCM is set, and
// every line naming an excluded project whatever removeSCM says. excludedIDs
// must be lowercase.
func filterSolution(data []byte, removeSCM bool, excludedIDs []string) []byte {
	var out bytes.Buffer
	out.Grow(len(data))

	inSection := false
	for line := range lines(data) {
		trimmed := strings.TrimSpace(string(line))

		if inSection {
			if strings.HasPrefix(trimmed, endSection) {
				inSection = false
			}
			continue
		}

		if removeSCM && hasAnyPrefix(trimmed, scmSections) {
			inSection = true
			continue
		}

		if len(excludedIDs) > 0 {
			lower := strings.ToLower(trimmed)
			drop := false
			for _, id := range excludedIDs {
				if strings.Contains(lower, id) {
					drop = true
					break
				}
			}
			if drop {
				continue
			}
		}

		out.Write(line)
	}

	return out.Bytes()
}

// filterSetupProject drops the source control keys of an installer project
func filterSetupProject(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))
	for line := range lines(data) {
		if hasAnyPrefix(strings.TrimSpace(string(line)), scmSetupKeys) {
			continue
		}
		out.Write(line)
	}
	return out.Bytes()
}

func (p *pipeline) copySolution(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Errorf("reading solution %s: %w", src, err)
	}
	return p.writeOutput(dst, filterSolution(data, p.settings.RemoveSCMBinding, p.excludedIDs))
}

func (p *pipeline) copySetupProject(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Errorf("reading setup project %s: %w", src, err)
	}
	return p.writeOutput(dst, filterSetupProject(data))
}
