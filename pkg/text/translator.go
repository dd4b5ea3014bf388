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

// Package text applies ordered literal substitutions to paths and file contents.
package text

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🔄 Replacement is one literal substitution
type Replacement struct {
	Search  string `json:"search" yaml:"search" toml:"search"`
	Replace string `json:"replace" yaml:"replace" toml:"replace"`
}

// Translator applies a list of replacements in order. The output of one
// replacement is the input of the next.
type Translator struct {
	rules []Replacement
}

// NewTranslator creates a Translator over a copy of rules
func NewTranslator(rules []Replacement) *Translator {
	return &Translator{rules: append([]Replacement(nil), rules...)}
}

// Enabled reports whether at least one replacement can change text
func (t *Translator) Enabled() bool {
	if t == nil {
		return false
	}
	for _, r := range t.rules {
		if r.Search != "" {
			return true
		}
	}
	return false
}

// Translate returns s with every replacement applied
func (t *Translator) Translate(s string) string {
	out, _ := t.TranslateCount(s)
	return out
}

// TranslateCount returns s with every replacement applied and the number of substitutions made
func (t *Translator) TranslateCount(s string) (string, int) {
	if t == nil {
		return s, 0
	}
	count := 0
	for _, r := range t.rules {
		// an empty search would insert between every rune
		if r.Search == "" {
			continue
		}
		if n := strings.Count(s, r.Search); n > 0 {
			count += n
			s = strings.ReplaceAll(s, r.Search, r.Replace)
		}
	}
	return s, count
}

// ValidateReplacements rejects replacements with an empty search text
func ValidateReplacements(rules []Replacement) error {
	for i, r := range rules {
		if r.Search == "" {
			return errors.Errorf("replacement %d: search text is required", i)
		}
	}
	return nil
}
