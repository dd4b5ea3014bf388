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

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/exportsrc/pkg/filter"
	"github.com/walteh/exportsrc/pkg/text"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return hasExt(filename, ".hcl")
}

type hclRule struct {
	Pattern          string `hcl:"pattern"`
	Type             string `hcl:"type,optional"`
	Expression       string `hcl:"expression,optional"`
	Enabled          *bool  `hcl:"enabled,optional"`
	CaseSensitive    bool   `hcl:"case_sensitive,optional"`
	ApplyToName      bool   `hcl:"apply_to_name,optional"`
	ApplyToPath      bool   `hcl:"apply_to_path,optional"`
	ApplyToFile      bool   `hcl:"apply_to_file,optional"`
	ApplyToDirectory bool   `hcl:"apply_to_directory,optional"`
}

type hclSettings struct {
	RemoveSCMBinding      bool   `hcl:"remove_scm_binding,optional"`
	ComputeHash           bool   `hcl:"compute_hash,optional"`
	OverwriteExisting     bool   `hcl:"overwrite_existing,optional"`
	UnprotectFiles        bool   `hcl:"unprotect_files,optional"`
	ExcludeGeneratedFiles bool   `hcl:"exclude_generated_files,optional"`
	KeepSymbolicLinks     bool   `hcl:"keep_symbolic_links,optional"`
	ReplaceLinkFiles      bool   `hcl:"replace_link_files,optional"`
	ConvertHintPaths      bool   `hcl:"convert_hint_paths,optional"`
	RespectGitIgnore      bool   `hcl:"respect_gitignore,optional"`
	OutputReadOnly        string `hcl:"output_read_only,optional"`

	Filters []hclRule `hcl:"filter,block"`

	Replacements []struct {
		Search  string `hcl:"search"`
		Replace string `hcl:"replace,optional"`
	} `hcl:"replacement,block"`

	ExcludedProjects []struct {
		ID   string `hcl:"id"`
		Name string `hcl:"name,optional"`
	} `hcl:"excluded_project,block"`
}

// 📝 Parse parses the settings from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Settings, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "settings.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var hclCfg hclSettings
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	s := &Settings{
		RemoveSCMBinding:      hclCfg.RemoveSCMBinding,
		ComputeHash:           hclCfg.ComputeHash,
		OverwriteExisting:     hclCfg.OverwriteExisting,
		UnprotectFiles:        hclCfg.UnprotectFiles,
		ExcludeGeneratedFiles: hclCfg.ExcludeGeneratedFiles,
		KeepSymbolicLinks:     hclCfg.KeepSymbolicLinks,
		ReplaceLinkFiles:      hclCfg.ReplaceLinkFiles,
		ConvertHintPaths:      hclCfg.ConvertHintPaths,
		RespectGitIgnore:      hclCfg.RespectGitIgnore,
		OutputReadOnly:        ReadOnlyPolicy(hclCfg.OutputReadOnly),
	}

	for _, r := range hclCfg.Filters {
		s.Filters = append(s.Filters, filter.Rule{
			Pattern:          r.Pattern,
			Type:             filter.Type(r.Type),
			ExpressionType:   filter.ExpressionType(r.Expression),
			Enabled:          r.Enabled,
			CaseSensitive:    r.CaseSensitive,
			ApplyToName:      r.ApplyToName,
			ApplyToPath:      r.ApplyToPath,
			ApplyToFile:      r.ApplyToFile,
			ApplyToDirectory: r.ApplyToDirectory,
		})
	}

	for _, r := range hclCfg.Replacements {
		s.Replacements = append(s.Replacements, text.Replacement{Search: r.Search, Replace: r.Replace})
	}

	for _, p := range hclCfg.ExcludedProjects {
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, errors.Errorf("decoding HCL: excluded project %q: %w", p.ID, err)
		}
		s.ExcludedProjects = append(s.ExcludedProjects, ExcludedProject{ID: id, Name: p.Name})
	}

	return s, nil
}
