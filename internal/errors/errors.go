// Package errors defines the stable error taxonomy for RFX.
//
// Planning, reference expansion, and apply each surface coded errors so
// that callers (MCP clients, the CLI) can branch on failure modes without
// string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

// Planning failures
const (
	// AmbiguousSymbol indicates the target position resolves to multiple candidates
	AmbiguousSymbol ErrorCode = "AMBIGUOUS_SYMBOL"
	// NameCollision indicates the new name already exists in scope
	NameCollision ErrorCode = "NAME_COLLISION"
	// InvalidRange indicates the selection crosses a structural boundary
	InvalidRange ErrorCode = "INVALID_RANGE"
	// UnsupportedLanguage indicates no LSP session and no AST provider for the language
	UnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	// ConflictingIntent indicates two edit sets touch overlapping ranges
	ConflictingIntent ErrorCode = "CONFLICTING_INTENT"
	// OverlappingEdits indicates a plan was handed intersecting edits for one file
	OverlappingEdits ErrorCode = "OVERLAPPING_EDITS"
)

// Apply failures
const (
	// StalePlan indicates on-disk content no longer matches the plan checksums
	StalePlan ErrorCode = "STALE_PLAN"
	// WouldCorruptFile indicates post-edit content fails to parse
	WouldCorruptFile ErrorCode = "WOULD_CORRUPT_FILE"
	// PartialFailure indicates the commit phase failed midway and was rolled back
	PartialFailure ErrorCode = "PARTIAL_FAILURE"
	// IoFailure indicates a filesystem operation failed
	IoFailure ErrorCode = "IO_FAILURE"
)

// LSP session failures
const (
	// LspTimeout indicates an LSP request exceeded its deadline
	LspTimeout ErrorCode = "LSP_TIMEOUT"
	// LspTransport indicates the server connection failed or the process died
	LspTransport ErrorCode = "LSP_TRANSPORT"
	// LspServerRejected indicates the server returned a JSON-RPC error
	LspServerRejected ErrorCode = "LSP_SERVER_REJECTED"
	// LspMethodNotFound indicates the server lacks the requested capability
	LspMethodNotFound ErrorCode = "LSP_METHOD_NOT_FOUND"
)

// InternalError indicates an unexpected invariant violation
const InternalError ErrorCode = "INTERNAL_ERROR"

// RfxError represents an RFX error with a stable code, message, and context
type RfxError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	File    string      `json:"file,omitempty"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new RfxError
func New(code ErrorCode, message string) *RfxError {
	return &RfxError{Code: code, Message: message}
}

// Wrap creates a new RfxError around an underlying cause
func Wrap(code ErrorCode, message string, cause error) *RfxError {
	return &RfxError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *RfxError) Error() string {
	switch {
	case e.File != "" && e.cause != nil:
		return fmt.Sprintf("[%s] %s (file: %s): %v", e.Code, e.Message, e.File, e.cause)
	case e.File != "":
		return fmt.Sprintf("[%s] %s (file: %s)", e.Code, e.Message, e.File)
	case e.cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *RfxError) Unwrap() error {
	return e.cause
}

// WithFile attaches the file the error concerns
func (e *RfxError) WithFile(file string) *RfxError {
	e.File = file
	return e
}

// WithDetails attaches structured context to the error
func (e *RfxError) WithDetails(details interface{}) *RfxError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError if err is not
// an RfxError.
func CodeOf(err error) ErrorCode {
	var re *RfxError
	if errors.As(err, &re) {
		return re.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether the planner should retry the request once
// before falling back. Only transport-level LSP failures qualify.
func IsRetryable(err error) bool {
	code := CodeOf(err)
	return code == LspTimeout || code == LspTransport
}
