/*
errors.go - Centralized error types for the benefit engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Fatal errors - Halt the pipeline before any output (missing credential,
     empty registry, unreadable input)
  2. Row issues - A single source row is skipped or a field left blank
     (malformed ID, unparseable date); the batch continues
  3. Adjudication errors - A remote call failed; always resolved by the
     deterministic fallback, never propagated past the guard

USAGE:
  if errors.Is(err, generic.ErrMissingCredential) {
      // tell the operator to configure API_KEY
  }

  var fatal *generic.FatalError
  if errors.As(err, &fatal) {
      fmt.Println(fatal.Stage, string(fatal.Stack))
  }

SEE ALSO:
  - pipeline/pipeline.go: Produces FatalError
  - benefit/registry.go: Produces RowIssue
  - benefit/adjudicator.go: Swallows adjudication errors
*/
package generic

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingCredential is returned when no API credential is configured.
	ErrMissingCredential = errors.New("API credential not configured")

	// ErrEmptyRegistry is returned when consolidation yields no employees.
	ErrEmptyRegistry = errors.New("no employees found after consolidation")

	// ErrUnreadableSource is returned when an input file cannot be parsed at all.
	ErrUnreadableSource = errors.New("source file could not be read")

	// ErrInvalidEmployeeID is returned for an ID that is not an integer.
	ErrInvalidEmployeeID = errors.New("employee ID is not an integer")

	// ErrInvalidDate is returned for a date cell that matches no known layout.
	ErrInvalidDate = errors.New("unparseable date")

	// ErrInvalidPeriod is returned when month/year do not form a valid month.
	ErrInvalidPeriod = errors.New("invalid process period")

	// ErrPolicyNotFound is returned when a referenced policy isn't registered.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrUnionNotFound is returned when a union code is not in the table.
	ErrUnionNotFound = errors.New("union not found")

	// ErrMalformedResponse is returned when the model reply has no usable JSON.
	ErrMalformedResponse = errors.New("malformed adjudication response")

	// ErrAdjudicationFailed wraps any remote adjudication failure.
	ErrAdjudicationFailed = errors.New("adjudication failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RowIssue describes a recoverable problem with one source row.
type RowIssue struct {
	Source string // file name / label
	Line   int    // 1-based row as shown in the sheet
	Field  string
	Value  string
	Err    error
}

func (e *RowIssue) Error() string {
	return fmt.Sprintf("%s line %d: %s %q: %v", e.Source, e.Line, e.Field, e.Value, e.Err)
}

func (e *RowIssue) Unwrap() error {
	return e.Err
}

// FatalError halts a run. Stage names the pipeline step that failed and
// Stack is captured where the error was raised.
type FatalError struct {
	Stage string
	Err   error
	Stack []byte
}

// NewFatalError captures the current goroutine stack.
func NewFatalError(stage string, err error) *FatalError {
	return &FatalError{Stage: stage, Err: err, Stack: debug.Stack()}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal returns true if the error halts the pipeline.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrEmptyRegistry) ||
		errors.Is(err, ErrUnreadableSource) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrPolicyNotFound)
}
