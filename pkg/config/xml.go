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
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/exportsrc/pkg/filter"
	"github.com/walteh/exportsrc/pkg/text"
)

func init() {
	Register(&XMLParser{})
}

// 🔧 XMLParser reads the XML settings documents written by earlier releases:
// a Settings root whose flags are attributes, with Filters, ExcludedProjects,
// OutputReadOnly and Replace children.
type XMLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *XMLParser) CanParse(filename string) bool {
	return hasExt(filename, ".xml")
}

// xmlFlags maps root attributes onto settings fields
func xmlFlags(s *Settings) map[string]*bool {
	return map[string]*bool{
		"RemoveTfsBinding":                   &s.RemoveSCMBinding,
		"ComputeHash":                        &s.ComputeHash,
		"OverrideExistingFile":               &s.OverwriteExisting,
		"UnprotectFile":                      &s.UnprotectFiles,
		"ExcludeGeneratedFiles":              &s.ExcludeGeneratedFiles,
		"KeepSymbolicLinks":                  &s.KeepSymbolicLinks,
		"ReplaceLinkFiles":                   &s.ReplaceLinkFiles,
		"ConvertRelativeHintPathsToAbsolute": &s.ConvertHintPaths,
	}
}

// 📝 Parse parses the settings from XML
func (p *XMLParser) Parse(ctx context.Context, data []byte) (*Settings, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Errorf("parsing XML: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Settings" {
		return nil, errors.New("parsing XML: expected a Settings root element")
	}

	s := &Settings{}
	flags := xmlFlags(s)
	for _, attr := range root.Attr {
		if attr.Space != "" || attr.Key == "xmlns" {
			continue
		}
		dst, ok := flags[attr.Key]
		if !ok {
			return nil, errors.Errorf("parsing XML: unknown setting %q", attr.Key)
		}
		v, err := xmlBool(attr.Key, attr.Value)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	for _, el := range root.ChildElements() {
		switch el.Tag {
		case "OutputReadOnly":
			policy, err := xmlReadOnly(el)
			if err != nil {
				return nil, err
			}
			s.OutputReadOnly = policy
		case "Filters":
			for _, f := range el.SelectElements("Filter") {
				r, err := xmlRule(f)
				if err != nil {
					return nil, err
				}
				s.Filters = append(s.Filters, r)
			}
		case "ExcludedProjects":
			for _, pe := range el.SelectElements("Project") {
				id, err := uuid.Parse(pe.SelectAttrValue("Id", ""))
				if err != nil {
					return nil, errors.Errorf("parsing XML: excluded project %q: %w", pe.SelectAttrValue("Id", ""), err)
				}
				s.ExcludedProjects = append(s.ExcludedProjects, ExcludedProject{ID: id, Name: pe.SelectAttrValue("Name", "")})
			}
		case "Replace":
			s.Replacements = append(s.Replacements, text.Replacement{
				Search:  el.SelectAttrValue("text", ""),
				Replace: el.SelectAttrValue("by", ""),
			})
		default:
			return nil, errors.Errorf("parsing XML: unknown element %q", el.Tag)
		}
	}

	return s, nil
}

func xmlBool(name, value string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, errors.Errorf("parsing XML: %s: %w", name, err)
	}
	return v, nil
}

// xmlReadOnly reads the nullable read-only flag. Nil or empty means the
// attribute is left alone.
func xmlReadOnly(el *etree.Element) (ReadOnlyPolicy, error) {
	value := strings.TrimSpace(el.Text())
	if value == "" || el.SelectAttrValue("xsi:nil", "") == "true" {
		return ReadOnlyUnchanged, nil
	}
	v, err := xmlBool("OutputReadOnly", value)
	if err != nil {
		return "", err
	}
	if v {
		return ReadOnlySet, nil
	}
	return ReadOnlyClear, nil
}

func xmlRule(el *etree.Element) (filter.Rule, error) {
	r := filter.Rule{
		Pattern:        el.Text(),
		Type:           filter.Exclude,
		ExpressionType: filter.Glob,
	}
	bools := map[string]*bool{
		"CaseSensitive":    &r.CaseSensitive,
		"ApplyToFileName":  &r.ApplyToName,
		"ApplyToPath":      &r.ApplyToPath,
		"ApplyToFile":      &r.ApplyToFile,
		"ApplyToDirectory": &r.ApplyToDirectory,
	}

	for _, attr := range el.Attr {
		switch attr.Key {
		case "FilterType":
			switch strings.ToLower(attr.Value) {
			case "include":
				r.Type = filter.Include
			case "exclude":
				r.Type = filter.Exclude
			default:
				return r, errors.Errorf("parsing XML: unknown filter type %q", attr.Value)
			}
		case "ExpressionType":
			switch strings.ToLower(attr.Value) {
			case "globbing":
				r.ExpressionType = filter.Glob
			case "regex":
				r.ExpressionType = filter.Regex
			default:
				return r, errors.Errorf("parsing XML: unknown expression type %q", attr.Value)
			}
		case "Enabled":
			v, err := xmlBool(attr.Key, attr.Value)
			if err != nil {
				return r, err
			}
			r.Enabled = &v
		default:
			dst, ok := bools[attr.Key]
			if !ok {
				return r, errors.Errorf("parsing XML: unknown filter attribute %q", attr.Key)
			}
			v, err := xmlBool(attr.Key, attr.Value)
			if err != nil {
				return r, err
			}
			*dst = v
		}
	}
	return r, nil
}
