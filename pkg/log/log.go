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

package log

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	entryIndent = 4  // spaces to indent entries
	nameWidth   = 35 // Base width for path
	kindWidth   = 15 // Width for event kind
)

// 🔌 Sink receives export events, in order, from a single export goroutine
type Sink interface {
	Emit(ev Event)
}

// 🕳️ Discard drops every event
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// 🎯 Console writes colored, human readable lines and mirrors every event to zerolog
type Console struct {
	zlog    zerolog.Logger
	console io.Writer
	verbose bool
	mu      sync.Mutex
}

// 🏭 NewConsole creates a console sink. Included entries are only printed when verbose is set.
func NewConsole(console io.Writer, zlog zerolog.Logger, verbose bool) *Console {
	return &Console{
		zlog:    zlog,
		console: console,
		verbose: verbose,
	}
}

// 📝 formatEntry formats one entry line for display
func formatEntry(symbol rune, symbolColor color.Attribute, path string, kind Kind, status string) string {
	return fmt.Sprintf("%s%s %s %s %s",
		strings.Repeat(" ", entryIndent),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, path),
		color.New(color.FgBlue).Sprint(fmt.Sprintf("%-*s", kindWidth, kind.String())),
		status)
}

// Emit implements Sink
func (c *Console) Emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	Zerolog{Logger: c.zlog}.Emit(ev)

	switch e := ev.(type) {
	case ConfigurationEvent:
		header := color.New(color.Bold, color.FgCyan).Sprint("exportsrc")
		fmt.Fprintf(c.console, "\n%s %s\n", header, color.New(color.Faint).Sprint("• configuration"))
		for _, line := range strings.Split(strings.TrimRight(e.Settings.Trace(), "\n"), "\n") {
			fmt.Fprintf(c.console, "%s%s\n", strings.Repeat(" ", entryIndent), color.New(color.Faint).Sprint(line))
		}
		fmt.Fprintln(c.console)
	case DirectoryCreatedEvent:
		fmt.Fprintln(c.console, formatEntry('+', color.FgGreen, e.Path, e.Kind(), ""))
	case IncludedEvent:
		if c.verbose {
			fmt.Fprintln(c.console, formatEntry('•', color.FgCyan, e.Path, e.Kind(), ""))
		}
	case ExcludedEvent:
		fmt.Fprintln(c.console, formatEntry('-', color.FgYellow, e.Path, e.Kind(), ""))
	case CopyStartedEvent:
		fmt.Fprintln(c.console, formatEntry('✓', color.FgGreen, e.Source, e.Kind(), e.Strategy))
	case VerifyEvent:
		if !e.OK {
			fmt.Fprintln(c.console, formatEntry('⟳', color.FgRed, e.Path, e.Kind(), fmt.Sprintf("different hash (%d)", e.Mismatches)))
		}
	case LinkCreatedEvent:
		fmt.Fprintln(c.console, formatEntry('→', color.FgMagenta, e.Path, e.Kind(), e.Target))
	case HintPathEvent:
		if e.Resolved {
			fmt.Fprintln(c.console, formatEntry('⟳', color.FgBlue, e.Original, e.Kind(), e.Value))
		}
	case DiagnosticEvent:
		fmt.Fprintf(c.console, "⚠️  %s %s\n", color.New(color.FgYellow).Sprint(e.Message), e.Path)
	case SummaryEvent:
		fmt.Fprintf(c.console, "\n✅ %s\n", color.New(color.FgGreen).Sprintf("Directories: %d", e.Directories))
		fmt.Fprintf(c.console, "✅ %s\n", color.New(color.FgGreen).Sprintf("Files:       %d", e.Files))
	}
}

// 📊 Zerolog writes every event as a structured record
type Zerolog struct {
	Logger zerolog.Logger
}

// Emit implements Sink
func (z Zerolog) Emit(ev Event) {
	l := z.Logger
	switch e := ev.(type) {
	case ConfigurationEvent:
		l.Info().Str("category", e.Kind().String()).Object("settings", e.Settings).Msg("export configuration")
	case DirectoryCreatedEvent:
		l.Info().Str("category", e.Kind().String()).Str("path", e.Path).Msg("directory created")
	case IncludedEvent:
		l.Debug().Str("category", e.Kind().String()).Str("path", e.Path).Bool("is_dir", e.IsDir).Msg("entry included")
	case ExcludedEvent:
		l.Debug().Str("category", e.Kind().String()).Str("path", e.Path).Bool("is_dir", e.IsDir).Msg("entry excluded")
	case CopyStartedEvent:
		l.Debug().Str("category", e.Kind().String()).
			Str("source", e.Source).
			Str("destination", e.Destination).
			Str("strategy", e.Strategy).
			Msg("copy started")
	case VerifyEvent:
		rec := l.Debug()
		if !e.OK {
			rec = l.Warn()
		}
		rec.Str("category", e.Kind().String()).Str("path", e.Path).Bool("ok", e.OK).Int("mismatches", e.Mismatches).Msg("integrity verified")
	case LinkCreatedEvent:
		l.Debug().Str("category", e.Kind().String()).Str("path", e.Path).Str("target", e.Target).Bool("is_dir", e.IsDir).Msg("link created")
	case HintPathEvent:
		l.Debug().Str("category", e.Kind().String()).
			Str("project", e.Project).
			Str("original", e.Original).
			Str("value", e.Value).
			Bool("resolved", e.Resolved).
			Msg("hint path")
	case DiagnosticEvent:
		l.Warn().Str("category", e.Kind().String()).Str("path", e.Path).Err(e.Err).Msg(e.Message)
	case SummaryEvent:
		l.Info().Str("category", e.Kind().String()).Int("directories", e.Directories).Int("files", e.Files).Msg("export complete")
	}
}

// 🧾 Recorder keeps every event in order
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind returns the recorded events of the given kind
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Kind() == k {
			out = append(out, ev)
		}
	}
	return out
}
