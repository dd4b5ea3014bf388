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
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/exportsrc/cmd/exportsrc/opts"
	"github.com/walteh/exportsrc/pkg/config"
	"github.com/walteh/exportsrc/pkg/export"
	"github.com/walteh/exportsrc/pkg/log"
)

// NewExportCmd creates the export command
func NewExportCmd(o *opts.RootOpts) *cobra.Command {
	var (
		gitignore bool
		readOnly  string
	)

	cmd := &cobra.Command{
		Use:   "export <source> <destination> [settings]",
		Short: "Mirror a source tree into a destination",
		Long: `Export copies every entry of source that passes the filters into destination.
Settings come from the third argument, --config, $EXPORTSRC_CONFIG, a
.exportsrc.* file at the source root or the user settings directory, in that
order. Without any of them the built-in defaults apply.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := zerolog.Ctx(ctx).With().Str("command", "export").Logger()
			ctx = logger.WithContext(ctx)

			source, destination := args[0], args[1]
			explicit := o.ConfigFile
			if len(args) == 3 {
				explicit = args[2]
			}

			settings, path, err := config.Resolve(ctx, explicit, settingsRoot(source))
			if err != nil {
				return errors.Errorf("loading settings: %w", err)
			}
			if path != "" {
				logger.Debug().Str("path", path).Msg("using settings file")
			}

			if cmd.Flags().Changed("gitignore") {
				settings.RespectGitIgnore = gitignore
			}
			if cmd.Flags().Changed("read-only") {
				settings.OutputReadOnly = config.ReadOnlyPolicy(readOnly)
			}

			sink := log.NewConsole(o.Stdout(), logger, o.Verbose)
			exporter, err := export.New(settings, sink)
			if err != nil {
				return errors.Errorf("creating exporter: %w", err)
			}

			start := time.Now()
			res, err := exporter.Export(ctx, source, destination)
			if err != nil {
				return errors.Errorf("exporting %s: %w", source, err)
			}

			pterm.Success.WithWriter(o.Stdout()).Printfln("exported %d files and %d directories in %s",
				res.Files, res.Directories, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&gitignore, "gitignore", false, "also leave out what .gitignore files ignore")
	cmd.Flags().StringVar(&readOnly, "read-only", "", "output read-only policy: set, clear or unchanged")

	return cmd
}

// settingsRoot is the directory settings are discovered in: the source
// itself, or its directory when it names a file
func settingsRoot(source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		return source
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return filepath.Dir(abs)
	}
	return abs
}
