// Package unilog provides a fixed-memory, lock-free, multi-producer /
// single-consumer logging buffer for asynchronous contexts.
//
// Unilog accepts structured log entries from any number of concurrent
// producers - including reentrant ones that preempt an in-progress write on
// the same thread - into a byte ring backed by caller-owned storage, and
// hands them to a single consumer in reservation order. There are no locks,
// no waiting primitives, and no allocations on the raw write path: every
// operation either completes or returns immediately with a typed error.
//
// # Quick Start
//
//	buf := make([]byte, 4096) // caller-owned ring storage, power of two
//	log, err := unilog.New(buf)
//	if err != nil {
//		return err
//	}
//	defer log.Close()
//
//	log.SetLevel(unilog.Info)
//	log.Info("service started")
//	log.Warnf("queue depth %d", depth)
//
//	out := make([]byte, 256)
//	for {
//		n, level, ts, err := log.Read(out)
//		if err != nil {
//			break // ErrEmpty: drained
//		}
//		fmt.Printf("[%s] %d %s\n", level, ts, out[:n])
//	}
//
// # Concurrency Model
//
// Producers reserve space with a CAS loop on the write position; a
// successful CAS is the linearization point that orders entries. Each
// producer then fills its region privately and publishes by atomically
// storing the entry's length word last. The consumer acquires the length
// word, extracts the entry, zeroes the consumed bytes, and advances the
// read position.
//
// Because reservation and publication are decoupled, a producer that
// preempts another on the same thread (a signal or interrupt handler re-
// entering the logger) claims its own disjoint region and may publish
// before the outer writer finishes. The consumer sees the unfinished older
// slot as ErrBusy until it is published; delivery order is always
// reservation order.
//
// Write and WriteString use only atomic operations and byte copies and are
// safe for such reentrant callers. Writef renders through the formatting
// machinery and is not.
//
// # Wire Format
//
// Entries are stored as a 12-byte header (length, level, timestamp words)
// followed by the payload and zero padding to a 4-byte boundary. The
// length word doubles as the publication marker: zero means unpublished.
// The layout is fixed, so a ring placed in shared memory can be drained by
// a reader written in another language.
//
// # Errors
//
// All operations are total: no panics, no blocking, no logging-about-
// logging. Outcomes beyond success are reported as pre-allocated sentinel
// errors - ErrFull, ErrEmpty, ErrBusy, ErrInvalid - matched with errors.Is.
// The only silent case is a write below the level threshold, which returns
// nil without recording anything.
//
// # Dynamic Level
//
// The minimum level can be retuned at runtime, either directly with
// SetLevel or from a watched configuration file:
//
//	log, err := unilog.NewWithConfig(&unilog.Config{
//		Buffer:          make([]byte, 16384),
//		Level:           unilog.Info,
//		LevelConfigPath: "logging.yml", // "level: debug" takes effect on save
//	})
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package unilog
