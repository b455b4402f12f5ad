package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// StoreNotFound indicates the store root or a required store file is missing
	StoreNotFound ErrorCode = "STORE_NOT_FOUND"
	// StoreLocked indicates the OS refused read access to a store file
	StoreLocked ErrorCode = "STORE_LOCKED"
	// StoreCorrupt indicates a structurally invalid manifest, table, or log record
	StoreCorrupt ErrorCode = "STORE_CORRUPT"
	// DecodeError indicates a single record's value could not be decoded
	DecodeError ErrorCode = "DECODE_ERROR"
	// ShapeAmbiguous indicates a record matched zero or multiple signatures
	ShapeAmbiguous ErrorCode = "SHAPE_AMBIGUOUS"
	// ScopeUnresolved indicates the configured account scope matched nothing
	ScopeUnresolved ErrorCode = "SCOPE_UNRESOLVED"
	// ScopeViolation indicates an out-of-scope entity surfaced past filtering
	ScopeViolation ErrorCode = "SCOPE_VIOLATION"
	// NoSnapshot indicates no materialization has ever succeeded
	NoSnapshot ErrorCode = "NO_SNAPSHOT"
	// InvalidParameter indicates a malformed query or tool argument
	InvalidParameter ErrorCode = "INVALID_PARAMETER"
	// InvalidConfig indicates the configuration failed validation
	InvalidConfig ErrorCode = "INVALID_CONFIG"
	// ExportFailed indicates the snapshot export could not be written
	ExportFailed ErrorCode = "EXPORT_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests editing the configuration file
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	Field       string        `json:"field,omitempty"`
}

// TkbError represents a TKB error with code, message, and suggestions
type TkbError struct {
	Code           ErrorCode      `json:"code"`
	Message        string         `json:"message"`
	Details        map[string]any `json:"details,omitempty"`
	SuggestedFixes []FixAction    `json:"suggestedFixes,omitempty"`
	cause          error          // Underlying error (not exported to JSON)
}

// New creates a new TkbError
func New(code ErrorCode, message string, cause error) *TkbError {
	return &TkbError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *TkbError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TkbError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *TkbError) WithDetails(details map[string]any) *TkbError {
	e.Details = details
	return e
}

// WithDetail adds a single detail key to the error
func (e *TkbError) WithDetail(key string, value any) *TkbError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewStoreNotFound creates an error for a missing store root or store file
func NewStoreNotFound(path string, cause error) *TkbError {
	return New(StoreNotFound, "store not found", cause).WithDetail("path", path)
}

// NewStoreLocked creates an error for a store file the OS refused to read
func NewStoreLocked(path string, cause error) *TkbError {
	return New(StoreLocked, "store file not readable", cause).WithDetail("path", path)
}

// NewStoreCorrupt creates an error for a structurally invalid store file
func NewStoreCorrupt(path, reason string, cause error) *TkbError {
	return New(StoreCorrupt, reason, cause).WithDetail("path", path)
}

// NewDecodeError creates a per-record decode failure
func NewDecodeError(reason string, cause error) *TkbError {
	return New(DecodeError, reason, cause)
}

// NewScopeUnresolved creates an error for an account scope that matched nothing
func NewScopeUnresolved(reason string) *TkbError {
	return New(ScopeUnresolved, reason, nil)
}

// NewNoSnapshot creates the only error query operations may surface
func NewNoSnapshot(cause error) *TkbError {
	return New(NoSnapshot, "no snapshot has ever been materialized", cause)
}

// NewInvalidParameter creates an error for a malformed query argument
func NewInvalidParameter(name, reason string) *TkbError {
	return New(InvalidParameter, reason, nil).WithDetail("parameter", name)
}

// NewInvalidConfig creates an error for configuration that failed validation
func NewInvalidConfig(field, reason string) *TkbError {
	return New(InvalidConfig, reason, nil).WithDetail("field", field)
}

// NewExportFailed creates an error for a failed snapshot export
func NewExportFailed(path string, cause error) *TkbError {
	return New(ExportFailed, "snapshot export failed", cause).WithDetail("path", path)
}

// NewInternalError wraps an unexpected error
func NewInternalError(cause error) *TkbError {
	return New(InternalError, "internal error", cause)
}

// CodeOf extracts the error code from err, or InternalError for plain errors.
func CodeOf(err error) ErrorCode {
	var te *TkbError
	if errors.As(err, &te) {
		return te.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var te *TkbError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	StoreNotFound: {
		{
			Type:        RunCommand,
			Command:     "tkb doctor",
			Safe:        true,
			Description: "Check the configured store path",
		},
		{
			Type:        EditConfig,
			Field:       "store.path",
			Description: "Point store.path at the desktop client's database directory",
		},
	},
	StoreCorrupt: {
		{
			Type:        RunCommand,
			Command:     "tkb refresh",
			Safe:        true,
			Description: "Retry after the desktop client finishes compacting",
		},
	},
	ScopeUnresolved: {
		{
			Type:        EditConfig,
			Field:       "scope.account_emails",
			Description: "Use the email address the desktop client is signed in with",
		},
	},
	NoSnapshot: {
		{
			Type:        RunCommand,
			Command:     "tkb refresh",
			Safe:        true,
			Description: "Attempt an initial load and report health",
		},
	},
	InvalidConfig: {
		{
			Type:        RunCommand,
			Command:     "tkb doctor",
			Safe:        true,
			Description: "Validate the configuration file",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
