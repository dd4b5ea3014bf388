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

package commands

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/exportsrc/cmd/exportsrc/opts"
	"github.com/walteh/exportsrc/pkg/config"
)

// NewDefaultsCmd creates the defaults command
func NewDefaultsCmd(o *opts.RootOpts) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in settings",
		Long: `Defaults prints the settings used when no settings file is found, as a
complete document to start a .exportsrc file from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(config.Default(), config.Format(format))
			if err != nil {
				return errors.Errorf("encoding defaults: %w", err)
			}
			if _, err := o.Stdout().Write(data); err != nil {
				return errors.Errorf("writing defaults: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatYAML), "output format: yaml, json or toml")

	return cmd
}
