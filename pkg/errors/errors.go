// Copyright © 2018 One Concern

// Package errors augments the standard errors with sentinel errors that can
// be decorated with details or a cause without losing their identity.
//
// A sentinel is declared once with New. Wrap and Wrapf derive a new error from
// it: the sentinel itself is never mutated, and the derived error still
// matches the sentinel with Is.
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New sentinel Error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error is a sentinel error, or an error derived from a sentinel.
type Error struct {
	msg    string
	detail string
	err    error
	origin *Error
}

// Error message, followed by the detail and the cause when they are set
func (e *Error) Error() string {
	msg := e.msg
	if e.detail != "" {
		msg += ": " + e.detail
	}
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a cause, returning a derived error
func (e *Error) Wrap(err error) *Error {
	d := e.derive()
	d.err = err
	return d
}

// Wrapf adds a formatted detail, returning a derived error
func (e *Error) Wrapf(format string, args ...interface{}) *Error {
	d := e.derive()
	if d.detail != "" {
		d.detail += ": "
	}
	d.detail += fmt.Sprintf(format, args...)
	return d
}

func (e *Error) derive() *Error {
	d := *e
	if d.origin == nil {
		d.origin = e
	}
	return &d
}

// Is of some error type?
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.origin != nil && e.origin == t)
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
