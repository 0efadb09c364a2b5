// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package gwerrors provides a structured error taxonomy for gwarden.
//
// Every error raised by the reconciliation core is tagged with a Kind so
// that callers (mainly cmd/) can map it to an exit code and a log line
// without parsing message text.
package gwerrors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for exit-code mapping and logging.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindCapability
	KindRollback
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindCapability:
		return "capability"
	case KindRollback:
		return "rollback"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged error with an optional wrapped cause.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a Kind-tagged error.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a Kind-tagged error with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an existing error with a Kind, preserving it as the cause.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

// Wrapf tags an existing error with a Kind and a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Underlying: err}
}

// GetKind returns the Kind of err, or KindUnknown if err is not a gwarden Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
