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

// Package log defines the events an export emits and the sinks that consume them.
package log

import (
	"github.com/rs/zerolog"
)

// 🏷️ Kind identifies an event category
type Kind int

const (
	KindConfiguration Kind = iota
	KindDirectoryCreated
	KindIncluded
	KindExcluded
	KindCopyStarted
	KindVerify
	KindLinkCreated
	KindHintPath
	KindDiagnostic
	KindSummary
)

// String returns a string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDirectoryCreated:
		return "create-directory"
	case KindIncluded:
		return "include"
	case KindExcluded:
		return "exclude"
	case KindCopyStarted:
		return "copy"
	case KindVerify:
		return "verify"
	case KindLinkCreated:
		return "link"
	case KindHintPath:
		return "hint-path"
	case KindDiagnostic:
		return "diagnostic"
	case KindSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// 📨 Event is the closed set of things an export reports.
// Sinks switch on the concrete type.
type Event interface {
	Kind() Kind
	event()
}

// Settings is what a configuration dump needs from the settings value.
type Settings interface {
	zerolog.LogObjectMarshaler
	Trace() string
}

// ConfigurationEvent is emitted once, before anything is copied.
type ConfigurationEvent struct {
	Settings Settings
}

// DirectoryCreatedEvent reports a destination directory that did not exist
// before the export, the root or any directory below it.
type DirectoryCreatedEvent struct {
	Path string
}

// IncludedEvent reports an entry that passed the filters.
type IncludedEvent struct {
	Path  string
	IsDir bool
}

// ExcludedEvent reports an entry that was filtered out.
type ExcludedEvent struct {
	Path  string
	IsDir bool
}

// CopyStartedEvent reports the start of a file copy.
type CopyStartedEvent struct {
	Source      string
	Destination string
	Strategy    string
}

// VerifyEvent reports the outcome of one digest comparison.
type VerifyEvent struct {
	Path       string
	OK         bool
	Mismatches int
}

// LinkCreatedEvent reports a recreated symbolic link.
type LinkCreatedEvent struct {
	Path   string
	Target string
	IsDir  bool
}

// HintPathEvent reports the outcome of one hint path conversion.
type HintPathEvent struct {
	Project  string
	Original string
	Value    string
	Resolved bool
}

// DiagnosticEvent reports a recovered problem, such as a malformed project file.
type DiagnosticEvent struct {
	Path    string
	Message string
	Err     error
}

// SummaryEvent is emitted once, after a successful export.
type SummaryEvent struct {
	Files       int
	Directories int
}

func (ConfigurationEvent) Kind() Kind    { return KindConfiguration }
func (DirectoryCreatedEvent) Kind() Kind { return KindDirectoryCreated }
func (IncludedEvent) Kind() Kind         { return KindIncluded }
func (ExcludedEvent) Kind() Kind         { return KindExcluded }
func (CopyStartedEvent) Kind() Kind      { return KindCopyStarted }
func (VerifyEvent) Kind() Kind           { return KindVerify }
func (LinkCreatedEvent) Kind() Kind      { return KindLinkCreated }
func (HintPathEvent) Kind() Kind         { return KindHintPath }
func (DiagnosticEvent) Kind() Kind       { return KindDiagnostic }
func (SummaryEvent) Kind() Kind          { return KindSummary }

func (ConfigurationEvent) event()    {}
func (DirectoryCreatedEvent) event() {}
func (IncludedEvent) event()         {}
func (ExcludedEvent) event()         {}
func (CopyStartedEvent) event()      {}
func (VerifyEvent) event()           {}
func (LinkCreatedEvent) event()      {}
func (HintPathEvent) event()         {}
func (DiagnosticEvent) event()       {}
func (SummaryEvent) event()          {}
