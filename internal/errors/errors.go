// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides the closed error taxonomy used across the ingestion,
// graph, analysis, and indexing packages, plus the UserError/exit-code/color
// formatting machinery kept for the CLI façade in cmd/mzc.
//
// Core packages construct and return the typed errors below (ParseError,
// UnknownKind, MissingEndpoint, BackendUnavailable, IndexBuildFailure,
// EnrichmentFailure) and never call os.Exit; only cmd/mzc uses UserError and
// FatalError to translate a returned error into terminal output and an exit
// code.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ParseError reports that a source file could not be parsed by an ingestion
// tool. Parsers never let this propagate past their own Parse method; the
// orchestrator logs it and continues with the next file.
type ParseError struct {
	File  string
	Cause error
}

func NewParseError(file string, cause error) *ParseError {
	return &ParseError{File: file, Cause: cause}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// UnknownKind reports that a raw string fell outside one of the closed
// enumerations (node kind, edge relation, canonical type, ...). field names
// which enumeration rejected the value.
type UnknownKind struct {
	Field string
	Value string
}

func NewUnknownKind(field, value string) *UnknownKind {
	return &UnknownKind{Field: field, Value: value}
}

func (e *UnknownKind) Error() string {
	return fmt.Sprintf("unknown %s: %q", e.Field, e.Value)
}

// MissingEndpoint reports that an edge referenced a node id that does not
// exist in the graph at write time.
type MissingEndpoint struct {
	SourceID string
	TargetID string
	Relation string
	Missing  string // "source" or "target"
}

func NewMissingEndpoint(sourceID, targetID, relation, missing string) *MissingEndpoint {
	return &MissingEndpoint{SourceID: sourceID, TargetID: targetID, Relation: relation, Missing: missing}
}

func (e *MissingEndpoint) Error() string {
	return fmt.Sprintf("edge %s -[%s]-> %s: missing %s node", e.SourceID, e.Relation, e.TargetID, e.Missing)
}

// BackendUnavailable reports that the graph backend could not be reached or
// authenticated against.
type BackendUnavailable struct {
	Target string
	Cause  error
}

func NewBackendUnavailable(target string, cause error) *BackendUnavailable {
	return &BackendUnavailable{Target: target, Cause: cause}
}

func (e *BackendUnavailable) Error() string {
	return fmt.Sprintf("backend unavailable (%s): %v", e.Target, e.Cause)
}

func (e *BackendUnavailable) Unwrap() error { return e.Cause }

// IndexBuildFailure reports that the hierarchical index failed to build or
// load for a project.
type IndexBuildFailure struct {
	ProjectID string
	Cause     error
}

func NewIndexBuildFailure(projectID string, cause error) *IndexBuildFailure {
	return &IndexBuildFailure{ProjectID: projectID, Cause: cause}
}

func (e *IndexBuildFailure) Error() string {
	return fmt.Sprintf("index build failed for project %s: %v", e.ProjectID, e.Cause)
}

func (e *IndexBuildFailure) Unwrap() error { return e.Cause }

// EnrichmentFailure reports that a post-ingestion enrichment step could not
// compute a value for a node. Out of scope for this implementation beyond
// the type itself: no enrichment pipeline currently constructs it, but the
// taxonomy reserves the slot per the error model.
type EnrichmentFailure struct {
	NodeID string
	Cause  error
}

func NewEnrichmentFailure(nodeID string, cause error) *EnrichmentFailure {
	return &EnrichmentFailure{NodeID: nodeID, Cause: cause}
}

func (e *EnrichmentFailure) Error() string {
	return fmt.Sprintf("enrichment failed for node %s: %v", e.NodeID, e.Cause)
}

func (e *EnrichmentFailure) Unwrap() error { return e.Cause }

// Exit codes for different error categories, used by cmd/mzc only.
const (
	ExitSuccess    = 0
	ExitConfig     = 1
	ExitBackend    = 2
	ExitNetwork    = 3
	ExitInput      = 4
	ExitPermission = 5
	ExitNotFound   = 6
	ExitInternal   = 10
)

// UserError represents an error with structured context for end users of
// cmd/mzc. Core packages never construct one directly; the CLI wraps a
// returned typed error (ParseError, BackendUnavailable, ...) into a
// UserError right before printing it.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }

func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

func NewBackendError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitBackend, Err: err}
}

func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInput}
}

func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNotFound}
}

func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

// FromTyped wraps one of the taxonomy errors above into a UserError suitable
// for cmd/mzc's terminal output, picking an exit code by type.
func FromTyped(err error) *UserError {
	switch e := err.(type) {
	case *BackendUnavailable:
		return NewBackendError("Cannot reach the graph backend", e.Error(), "Check the backend URI and that it is running", e)
	case *ParseError:
		return NewInternalError("Failed to parse a source file", e.Error(), "Check the file is well-formed XML/SQL", e)
	case *IndexBuildFailure:
		return NewInternalError("Failed to build the search index", e.Error(), "Re-run ingestion and retry", e)
	case *UnknownKind:
		return NewInputError("Encountered an unrecognized value", e.Error(), "This is likely a bug; please report it")
	case *MissingEndpoint:
		return NewInternalError("Graph edge referenced a missing node", e.Error(), "This is likely a bug; please report it", e)
	default:
		return NewInternalError("Unexpected error", err.Error(), "Please report this", err)
	}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints the error and exits with the appropriate code. Only
// cmd/mzc calls this.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	ue, ok := err.(*UserError)
	if !ok {
		ue = FromTyped(err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ue.ToJSON())
	} else {
		fmt.Fprint(os.Stderr, ue.Format(false))
	}
	os.Exit(ue.ExitCode)
}
