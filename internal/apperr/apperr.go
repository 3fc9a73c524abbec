// Package apperr defines the error kinds surfaced to users of tabletalk.
//
// Every failure that reaches the UI or the CLI is an *Error carrying a Kind,
// so callers branch on the kind instead of inspecting message text.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindDatasetLoad      Kind = "dataset_load"
	KindColumnMissing    Kind = "column_missing"
	KindNotNumeric       Kind = "not_numeric"
	KindModelUnreachable Kind = "model_unreachable"
	KindModelNotFound    Kind = "model_not_found"
	KindModelError       Kind = "model_error"
	KindTimeout          Kind = "timeout"
	KindCanceled         Kind = "canceled"
	KindPromptTooLarge   Kind = "prompt_too_large"
	KindRateLimited      Kind = "rate_limited"
	KindBadRequest       Kind = "bad_request"
	KindInternal         Kind = "internal"
)

// Error is a classified, user-presentable error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil && !strings.HasSuffix(e.Message, e.Err.Error()) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err. A nil err yields nil.
func Wrap(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Message returns the user-facing message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
