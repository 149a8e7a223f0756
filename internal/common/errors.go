// Package common defines the shared error taxonomy for the CredLink client.
// Service-layer code never lets raw transport errors escape; everything a
// caller can observe is either a plain value or one of these classified
// errors. Callers match with errors.Is or HasCode.
package common

import (
	"errors"
	"fmt"
)

// Code classifies what went wrong in client-domain terms, independent of
// the transport layer.
type Code string

const (
	// CodeNetwork marks timeouts and no-response failures. Retriable by
	// explicit user action only, never retried silently.
	CodeNetwork Code = "network"

	// CodeAuth marks 401/expired-token failures. Forces a session clear.
	CodeAuth Code = "auth"

	// CodeValidation marks 4xx rejections whose message is shown verbatim.
	CodeValidation Code = "validation"

	// CodeDuplicateRequest marks the business-rule rejection of a second
	// pending verification request of the same type.
	CodeDuplicateRequest Code = "duplicate_request"

	// CodeMissingCredential marks a local precondition failure: an
	// authenticated operation attempted with no stored token. No network
	// call is made.
	CodeMissingCredential Code = "missing_credential"

	// CodeCacheCorruption marks an unreadable local cache entry. Recovered
	// internally, never surfaced to callers.
	CodeCacheCorruption Code = "cache_corruption"

	// CodeInternal marks everything else.
	CodeInternal Code = "internal"
)

// Error wraps a failure with a stable code and a user-presentable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors by code so sentinel-style checks work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a classified error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an existing error. If err already carries a code,
// that code is preserved and only the message is updated.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// CodeOf returns the code carried by err, or CodeInternal for unclassified
// errors. A nil err returns the empty code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

var (
	// ErrNoSession is returned by session load when neither a local user
	// record nor a stored token exists. It is a state, not a failure.
	ErrNoSession = errors.New("no session")

	// ErrNotFound is returned by repositories and caches for absent keys.
	ErrNotFound = errors.New("not found")
)
