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
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// naming conventions of designer and tool generated sources
var generatedNames = []*regexp.Regexp{
	mustCompileGlob("*.designer.*"),
	mustCompileGlob("*.g.*"),
}

// lower-cased markers tools write into the files they generate
var generatedMarkers = []string{
	strings.ToLower("This code was generated by a tool."),
	"<auto-generated",
	"<autogenerated",
	"// $antlr",
	strings.ToLower("Ce code a été généré par un outil."),
}

func mustCompileGlob(pattern string) *regexp.Regexp {
	re, err := defaultCompiler.Compile(pattern, Glob, false)
	if err != nil {
		panic(err)
	}
	return re
}

// IsGenerated reports whether the file at path looks machine generated
func IsGenerated(path string) bool {
	if statKind(path) != kindFile {
		return false
	}
	return isGenerated(path, filepath.Base(path))
}

// isGenerated reads the whole file when the name does not give it away.
// Large trees pay for that; the marker contract needs every line.
func isGenerated(path, name string) bool {
	for _, re := range generatedNames {
		if re.MatchString(name) {
			return true
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	return containsMarker(f)
}

func containsMarker(r io.Reader) bool {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lower := strings.ToLower(line)
			for _, marker := range generatedMarkers {
				if strings.Contains(lower, marker) {
					return true
				}
			}
		}
		if err != nil {
			return false
		}
	}
}
