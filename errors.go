// errors.go: Result taxonomy for ring operations
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package unilog

import (
	"github.com/agilira/go-errors"
)

// Error codes for unilog
const (
	ErrCodeInvalid errors.ErrorCode = "UNILOG_INVALID"
	ErrCodeFull    errors.ErrorCode = "UNILOG_FULL"
	ErrCodeEmpty   errors.ErrorCode = "UNILOG_EMPTY"
	ErrCodeBusy    errors.ErrorCode = "UNILOG_BUSY"
)

// Pre-allocated errors to avoid allocations in hot paths.
// Match with errors.Is; a nil error from a write or read means OK.
var (
	// ErrInvalid reports a violated precondition: bad backing buffer,
	// oversized payload, zero-capacity output buffer, or a corrupted
	// length word found on the ring.
	ErrInvalid = errors.New(ErrCodeInvalid, "unilog: invalid argument")

	// ErrFull means a producer could not reserve space. The caller decides
	// whether to drop, retry, or escalate; nothing was written.
	ErrFull = errors.New(ErrCodeFull, "unilog: ring buffer full")

	// ErrEmpty means the consumer found no queued entries.
	ErrEmpty = errors.New(ErrCodeEmpty, "unilog: ring buffer empty")

	// ErrBusy means the oldest reservation has not been published yet.
	// The entry exists but is not safe to consume; retry shortly.
	ErrBusy = errors.New(ErrCodeBusy, "unilog: oldest entry not yet published")
)
