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
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/exportsrc/cmd/exportsrc/commands"
	"github.com/walteh/exportsrc/cmd/exportsrc/opts"
)

// newRootCmd wires the subcommands to one set of shared options
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exportsrc",
		Short: "Export a clean copy of a source tree",
		Long: `exportsrc mirrors a source tree into a destination, leaving out build output
and IDE clutter, and removing source control bindings from solution and project
files on the way.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureColor(o.Stdout())
			logger := newLogger(os.Stderr, o.Debug)
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}

	addRootFlags(cmd, o)

	cmd.AddCommand(
		commands.NewExportCmd(o),
		commands.NewDefaultsCmd(o),
		commands.NewVersionCmd(o, versionLine),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "", "settings file path")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&o.Verbose, "verbose", false, "print every included entry")
}

// configureColor turns colored output off when w is not a terminal
func configureColor(w io.Writer) {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		color.NoColor = true
	}
}

// newLogger writes human readable records to w. Only warnings pass unless
// debug is set; the console sink already shows progress.
func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, NoColor: color.NoColor, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadDotEnv reads environment overrides such as EXPORTSRC_CONFIG from path.
// A missing file is fine; variables already set win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Errorf("reading %s: %w", path, err)
	}
	return nil
}
