// Package errors provides structured error handling for addrsync.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitRemote     = 3 // Remote node unavailable or misbehaving
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied or insufficient funds
)

// SyncError is the structured error type for addrsync.
type SyncError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *SyncError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for SyncError.
func (e *SyncError) Is(target error) bool {
	var t *SyncError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Address ledger errors.
var (
	// ErrMetadataLengthMismatch is returned when parallel address metadata
	// arrays (addresses, balances, spend flags, indices) differ in length.
	ErrMetadataLengthMismatch = &SyncError{
		Code:       "METADATA_LENGTH_MISMATCH",
		Message:    "address metadata length mismatch",
		Suggestion: "retry the refresh; the node returned a partial batch",
		ExitCode:   ExitGeneral,
	}

	// ErrMalformedResponse is returned when a node answer does not match the request shape.
	ErrMalformedResponse = &SyncError{
		Code:       "MALFORMED_RESPONSE",
		Message:    "node returned a malformed response",
		Suggestion: "try again or switch to a different node",
		ExitCode:   ExitRemote,
	}

	// ErrRemoteUnavailable is returned when the node cannot be reached.
	ErrRemoteUnavailable = &SyncError{
		Code:       "REMOTE_UNAVAILABLE",
		Message:    "could not refresh addresses from the node",
		Suggestion: "check your connection and the configured node URL",
		ExitCode:   ExitRemote,
	}

	// ErrInvalidAddressRecord is returned for records missing required fields.
	ErrInvalidAddressRecord = &SyncError{
		Code:     "INVALID_ADDRESS_RECORD",
		Message:  "invalid address data",
		ExitCode: ExitInput,
	}

	// ErrAddressAlreadyAttached is returned when an address already has transaction history.
	ErrAddressAlreadyAttached = &SyncError{
		Code:       "ADDRESS_ALREADY_ATTACHED",
		Message:    "address already attached",
		Suggestion: "generate a new receive address",
		ExitCode:   ExitInput,
	}

	// ErrLedgerGap is returned when a ledger violates the dense index invariant.
	ErrLedgerGap = &SyncError{
		Code:     "LEDGER_GAP",
		Message:  "address ledger indices are not contiguous",
		ExitCode: ExitGeneral,
	}
)

// General errors.
var (
	ErrGeneral = &SyncError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &SyncError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &SyncError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrNotSupported = &SyncError{
		Code:     "NOT_SUPPORTED",
		Message:  "operation not supported for this account type",
		ExitCode: ExitInput,
	}

	ErrInsufficientFunds = &SyncError{
		Code:     "INSUFFICIENT_FUNDS",
		Message:  "insufficient funds for transaction",
		ExitCode: ExitPermission,
	}

	ErrInvalidMnemonic = &SyncError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrAccountBusy = &SyncError{
		Code:       "ACCOUNT_BUSY",
		Message:    "account is already being synchronized",
		Suggestion: "wait for the running sync to finish",
		ExitCode:   ExitGeneral,
	}

	ErrConfigNotFound = &SyncError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &SyncError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new SyncError with the given code and message.
func New(code, message string) *SyncError {
	return &SyncError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var se *SyncError
	if errors.As(err, &se) {
		return &SyncError{
			Code:       se.Code,
			Message:    fmt.Sprintf("%s: %s", msg, se.Message),
			Details:    se.Details,
			Suggestion: se.Suggestion,
			Cause:      err,
			ExitCode:   se.ExitCode,
		}
	}

	return &SyncError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var se *SyncError
	if errors.As(err, &se) {
		return &SyncError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    details,
			Suggestion: se.Suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &SyncError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var se *SyncError
	if errors.As(err, &se) {
		return &SyncError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    se.Details,
			Suggestion: suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &SyncError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel, keeping its code.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var se *SyncError
	if errors.As(err, &se) {
		return &SyncError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    se.Details,
			Suggestion: se.Suggestion,
			Cause:      cause,
			ExitCode:   se.ExitCode,
		}
	}

	return fmt.Errorf("%w: %w", err, cause)
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var se *SyncError
	if errors.As(err, &se) {
		return se.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
