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
	"os"
	"path/filepath"
	"runtime"
)

// windowsFolderVars name the shared install and system folders on windows
var windowsFolderVars = []string{
	"ProgramFiles",
	"ProgramFiles(x86)",
	"ProgramW6432",
	"CommonProgramFiles",
	"CommonProgramFiles(x86)",
	"CommonProgramW6432",
	"ProgramData",
	"ALLUSERSPROFILE",
	"PUBLIC",
	"SystemRoot",
	"windir",
}

var unixSystemDirs = []string{
	"/usr",
	"/opt",
	"/lib",
	"/Library",
	"/System",
	"/Applications",
}

// systemDirectories lists the shared locations a hint path may be made
// absolute into
func systemDirectories() []string {
	if runtime.GOOS != "windows" {
		return append([]string(nil), unixSystemDirs...)
	}

	var dirs []string
	seen := map[string]bool{}
	for _, name := range windowsFolderVars {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		v = filepath.Clean(v)
		if seen[v] {
			continue
		}
		seen[v] = true
		dirs = append(dirs, v)
	}
	if root := os.Getenv("SystemRoot"); root != "" {
		dirs = append(dirs, filepath.Join(root, "System32"), filepath.Join(root, "SysWOW64"))
	}
	return dirs
}
