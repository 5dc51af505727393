// Package errors attaches machine-readable codes to wallyscope failures.
//
// The CLI prints [UserMessage] and derives its exit status from the code
// with [ExitCode]; the HTTP API returns the code in its JSON error body. A
// code is read from the outermost [*Error] in a chain, so wrapping with
// [Wrap] re-labels a failure while fmt.Errorf("...: %w") keeps its label:
//
//	if err := manifest.Parse(text); err != nil {
//	    return errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
//	}
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Code labels a category of failure.
type Code string

// Bad input from the user or caller.
const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidRegistry Code = "INVALID_REGISTRY"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	ErrCodeUnsupportedRegistry Code = "UNSUPPORTED_REGISTRY"
)

// Lookups that came back empty.
const (
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
)

// Registry host trouble.
const (
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeTimeout      Code = "TIMEOUT"
	ErrCodeRateLimited  Code = "RATE_LIMITED"
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
)

const ErrCodeInternal Code = "INTERNAL_ERROR"

// Error is a coded failure with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

func outermost(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Is reports whether the outermost coded error in err's chain has code.
func Is(err error, code Code) bool {
	e := outermost(err)
	return e != nil && e.Code == code
}

// GetCode returns the outermost code in err's chain, or "".
func GetCode(err error) Code {
	if e := outermost(err); e != nil {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost coded error without
// its code, or err's text when nothing in the chain is coded.
func UserMessage(err error) string {
	if e := outermost(err); e != nil {
		return e.Message
	}
	return err.Error()
}

// Exit statuses returned by [ExitCode].
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitCanceled = 130
)

// ExitCode maps err to a process exit status. Input and configuration
// mistakes exit with [ExitUsage], an interrupted run with [ExitCanceled].
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	}
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidConfig, ErrCodeFileNotFound, ErrCodeUnsupportedRegistry:
		return ExitUsage
	}
	return ExitFailure
}

// RateLimitedError reports a registry host refusing requests for a while.
type RateLimitedError struct {
	RetryAfter int // seconds, zero when the host gave no hint
	Message    string
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter <= 0 {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
}

func (e *RateLimitedError) Code() Code { return ErrCodeRateLimited }
