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
	"github.com/walteh/exportsrc/pkg/filter"
)

// packagesPattern keeps restored package folders whatever the exclude rules say
const packagesPattern = `^(.*[\\/]|)packages[\\/].*`

var excludedFiles = []string{
	"*.cache",
	"_cf_md.config",
	"*.build.xml",
	"*.pdb",
	"*.ilk",
	"*.ncb",
	"*.srb",
	"*.obj",
	"*.exe",
	"*.dll",
	"*.ocx",
	"*.suo",
	"*.bak",
	"*.tmp",
	"*.com",
	"*.swp",
	"*.so",
	"*.o",
	"*.DS_Store*",
	"*thumbs.db*",
	"Desktop.ini",
	"swum-cache.txt",
	"*.class",
	"*.Bindings",
	"*.*log",
	"*.temp",
	"*.orig",
	"*.user",
	"*.vspscc",
	"*.vssscc",
	"*.vshost.*",
	"*.CodeAnalysisLog.xml",
	"*.lastcodeanalysissucceeded",
	".classpath",
	".loadpath",
	"*.launch",
	".buildpath",
	"*.sln.docstates",
	"*_i.c",
	"*_p.c",
	"*.meta",
	"*.pch",
	"*.pgc",
	"*.pgd",
	"*.rsp",
	"*.sbr",
	"*.tlb",
	"*.tli",
	"*.tlh",
	"*.tmp_proj",
	"*.pidb",
	"*.scc",
	"*.psess",
	"*.vsp",
	"*.vspx",
	"*.dotCover",
	"*~",
	"~$*",
	"*.dbmdl",
	"UpgradeLog*.XML",
	"UpgradeLog*.htm",
}

var excludedDirectories = []string{
	"OBJ",
	"Debug",
	"Release",
	"BIN",
	"IPCH",
	"$tf",
	"publish",
	"$RECYCLE.BIN",
	"_UpgradeReport_Files",
	".DS_Store",
}

var excludedEither = []string{
	"*resharper*",
	"_TeamCity*",
}

// 🏭 Default returns the settings used when no settings document is found:
// build output, IDE state and source-control leftovers are left behind.
func Default() *Settings {
	s := &Settings{
		RemoveSCMBinding:      true,
		UnprotectFiles:        true,
		OutputReadOnly:        ReadOnlyClear,
		OverwriteExisting:     true,
		ExcludeGeneratedFiles: false,
		ComputeHash:           true,
		KeepSymbolicLinks:     true,
		ReplaceLinkFiles:      false,
		ConvertHintPaths:      true,
	}

	s.Filters = append(s.Filters, filter.Rule{
		Pattern:          packagesPattern,
		Type:             filter.Include,
		ExpressionType:   filter.Regex,
		ApplyToPath:      true,
		ApplyToFile:      true,
		ApplyToDirectory: true,
	})

	for _, p := range excludedFiles {
		s.Filters = append(s.Filters, filter.Rule{
			Pattern:        p,
			Type:           filter.Exclude,
			ExpressionType: filter.Glob,
			ApplyToName:    true,
			ApplyToFile:    true,
		})
	}
	for _, p := range excludedDirectories {
		s.Filters = append(s.Filters, filter.Rule{
			Pattern:          p,
			Type:             filter.Exclude,
			ExpressionType:   filter.Glob,
			ApplyToName:      true,
			ApplyToDirectory: true,
		})
	}
	for _, p := range excludedEither {
		s.Filters = append(s.Filters, filter.NewRule(p, filter.Exclude))
	}

	return s
}
