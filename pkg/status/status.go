// Copyright © 2018 One Concern

// Package status exports the errors produced while reading, writing and
// processing timestreams.
//
// NOTE: such constants are located in a separate package to avoid
// creating undue cyclical dependencies between the packages that
// produce them and the ones that check them.
package status

import "github.com/oneconcern/timestream/pkg/errors"

var (
	// ErrNoTimestampFound indicates that a name carries no parseable instant
	ErrNoTimestampFound = errors.New("no timestamp found")

	// ErrInvalidRange indicates that a time filter starts after it ends
	ErrInvalidRange = errors.New("invalid time range")

	// ErrContentUnavailable indicates that the bytes behind a content handle could not be fetched
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrConflictingWrite indicates that a target path or archive entry already holds different bytes
	ErrConflictingWrite = errors.New("conflicting write")

	// ErrUnsupportedContainer indicates that a root file is neither a zip, a tar nor a timestream file
	ErrUnsupportedContainer = errors.New("unsupported container")

	// ErrDuplicateInstant indicates that two records resolved to the same instant
	ErrDuplicateInstant = errors.New("duplicate instant")

	// ErrNotFound indicates that a named entry does not exist in a timestream
	ErrNotFound = errors.New("not found")

	// ErrCancelled signals that a run has been cancelled before reaching the end of its input
	ErrCancelled = errors.New("run cancelled")

	// ErrClosed indicates that a writer was used after Close
	ErrClosed = errors.New("writer closed")

	// ErrInvalidGranularity indicates an unknown bundle granularity
	ErrInvalidGranularity = errors.New("invalid bundle granularity")

	// ErrInvalidPolicy indicates an unknown error or duplicate policy
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrLocked indicates that an advisory lock could not be acquired in time
	ErrLocked = errors.New("lock not acquired")

	// ErrInvalidPattern indicates a malformed name glob
	ErrInvalidPattern = errors.New("invalid name pattern")
)
