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

package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// version is stamped at release time with -ldflags "-X main.version=v1.2.3"
var version string

// buildStamp is what the binary knows about how it was built
type buildStamp struct {
	Version string
	Commit  string
	Dirty   bool
	Date    string
	Go      string
	Target  string
}

func readBuildStamp() buildStamp {
	b := buildStamp{
		Version: version,
		Go:      runtime.Version(),
		Target:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b.withDefaults()
	}
	if b.Version == "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Commit = s.Value
		case "vcs.time":
			b.Date = s.Value
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	return b.withDefaults()
}

func (b buildStamp) withDefaults() buildStamp {
	if b.Version == "" {
		b.Version = "dev"
	}
	if len(b.Commit) > 12 {
		b.Commit = b.Commit[:12]
	}
	return b
}

// String renders the stamp as one line, for example
// "exportsrc v1.2.0 (3f2a9c0d1e4b, dirty) 2025-01-02T03:04:05Z go1.23.4 linux/amd64"
func (b buildStamp) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "exportsrc %s", b.Version)

	var rev []string
	if b.Commit != "" {
		rev = append(rev, b.Commit)
	}
	if b.Dirty {
		rev = append(rev, "dirty")
	}
	if len(rev) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(rev, ", "))
	}
	if b.Date != "" {
		fmt.Fprintf(&sb, " %s", b.Date)
	}
	fmt.Fprintf(&sb, " %s %s\n", b.Go, b.Target)
	return sb.String()
}

func versionLine() string {
	return readBuildStamp().String()
}
