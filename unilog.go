// unilog.go: Public API - fixed-memory lock-free MPSC logging buffer
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package unilog

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/agilira/argus"
	"github.com/agilira/go-timecache"
)

// formatBufSize is the fixed scratch area used by the formatting helpers.
// Rendered messages are truncated to formatBufSize-1 bytes.
const formatBufSize = 256

// Logger is a fixed-memory logging buffer for asynchronous contexts.
// It accepts structured entries from many concurrent producers into a
// caller-owned byte ring and hands them to a single consumer in
// reservation order. Zero locks, zero allocations on the raw write path,
// thread-safe by design.
//
// Producers and the consumer never block: a write against a full ring
// returns ErrFull, a read against an empty ring returns ErrEmpty, and a
// read that finds the oldest slot reserved but not yet published returns
// ErrBusy. The caller decides whether to drop, retry, or escalate.
//
// Basic usage:
//
//	buf := make([]byte, 4096)
//	log, err := unilog.New(buf)
//	if err != nil {
//		return err
//	}
//	defer log.Close()
//
//	log.Write(unilog.Info, timestamp, []byte("service started"))
//
//	out := make([]byte, 256)
//	n, level, ts, err := log.Read(out)
type Logger struct {
	ring *ringBuffer

	// Minimum level threshold; the single gate on the write path
	minLevel atomic.Uint32

	// Telemetry (all atomic - zero locks)
	writeCount    atomic.Uint64
	filteredCount atomic.Uint64
	fullCount     atomic.Uint64
	busyCount     atomic.Uint64
	readCount     atomic.Uint64
	bytesWritten  atomic.Uint64
	bytesRead     atomic.Uint64

	// Timestamp source for the leveled helpers
	timestampFn    func() uint32
	timeResolution time.Duration
	timeCache      *timecache.TimeCache
	timeCacheOnce  sync.Once

	// Dynamic level reload
	watcher       atomic.Pointer[argus.Watcher]
	errorCallback func(operation string, err error)

	// Close protection
	closeOnce sync.Once
}

// New creates a Logger over caller-owned backing bytes.
//
// The slice length is the ring capacity: a power of two between 16 bytes
// and 1 GiB, starting at a 4-byte aligned address (any slice fresh from
// make satisfies the alignment requirement). The Logger owns the bytes for
// its lifetime; the caller must not touch them until the Logger is no
// longer used. Capacity is fixed: a full ring rejects writes rather than
// growing or overwriting.
//
// The minimum level starts at Trace. Returns ErrInvalid for an unusable
// backing slice.
func New(buf []byte) (*Logger, error) {
	rb, err := newRingBuffer(buf)
	if err != nil {
		return nil, err
	}
	return &Logger{ring: rb}, nil
}

// SetLevel sets the minimum level threshold. Writes strictly below the
// threshold are accepted and silently discarded. Safe to call concurrently
// with writers and the reader.
func (l *Logger) SetLevel(level Level) {
	l.minLevel.Store(uint32(level))
}

// Level returns the current minimum level threshold.
func (l *Logger) Level() Level {
	return Level(l.minLevel.Load())
}

// Write records a raw payload at the given level and timestamp. The
// timestamp is opaque to the ring; callers pick the unit (the leveled
// helpers use cached wall-clock seconds).
//
// This is the reentrant entry point: it uses only atomic operations and
// byte copies, takes no locks, and performs no allocation, so it is safe
// to call from a handler that has preempted another write on the same
// goroutine or thread.
//
// Returns nil when the entry was published or filtered below the level
// threshold, ErrFull when the ring has no room for the entry, and
// ErrInvalid when the entry would exceed half the ring capacity.
func (l *Logger) Write(level Level, timestamp uint32, payload []byte) error {
	l.writeCount.Add(1)

	// One threshold check per write, before any reservation work.
	if uint32(level) < l.minLevel.Load() {
		l.filteredCount.Add(1)
		return nil
	}

	if err := l.ring.write(uint32(level), timestamp, payload); err != nil {
		if errors.Is(err, ErrFull) {
			l.fullCount.Add(1)
		}
		return err
	}

	l.bytesWritten.Add(uint64(len(payload)))
	return nil
}

// WriteString records a string message at the given level and timestamp.
// Reentrant like Write; the string bytes are copied into the ring without
// an intermediate allocation.
func (l *Logger) WriteString(level Level, timestamp uint32, msg string) error {
	return l.Write(level, timestamp, stringBytes(msg))
}

// Writef renders a printf-style message into a fixed 256-byte scratch area,
// truncates it to 255 bytes, and records it at the given level and
// timestamp.
//
// Unlike Write and WriteString, this helper is NOT reentrant: rendering
// through the formatting machinery may allocate, so it must not be used
// from contexts that preempt another writer mid-call. Use Write or
// WriteString there.
func (l *Logger) Writef(level Level, timestamp uint32, format string, args ...any) error {
	var scratch [formatBufSize]byte
	msg := fmt.Appendf(scratch[:0], format, args...)
	if len(msg) > formatBufSize-1 {
		msg = msg[:formatBufSize-1]
	}
	return l.Write(level, timestamp, msg)
}

// Leveled helpers. Each records msg with the Logger's timestamp source;
// the formatted variants share Writef's non-reentrancy.

// Trace records msg at Trace level with an automatic timestamp.
func (l *Logger) Trace(msg string) error { return l.WriteString(Trace, l.now(), msg) }

// Debug records msg at Debug level with an automatic timestamp.
func (l *Logger) Debug(msg string) error { return l.WriteString(Debug, l.now(), msg) }

// Info records msg at Info level with an automatic timestamp.
func (l *Logger) Info(msg string) error { return l.WriteString(Info, l.now(), msg) }

// Warn records msg at Warn level with an automatic timestamp.
func (l *Logger) Warn(msg string) error { return l.WriteString(Warn, l.now(), msg) }

// Error records msg at Error level with an automatic timestamp.
func (l *Logger) Error(msg string) error { return l.WriteString(Error, l.now(), msg) }

// Fatal records msg at Fatal level with an automatic timestamp.
// Recording is all it does; exiting is the caller's decision.
func (l *Logger) Fatal(msg string) error { return l.WriteString(Fatal, l.now(), msg) }

// Tracef records a formatted message at Trace level. Not reentrant.
func (l *Logger) Tracef(format string, args ...any) error {
	return l.Writef(Trace, l.now(), format, args...)
}

// Debugf records a formatted message at Debug level. Not reentrant.
func (l *Logger) Debugf(format string, args ...any) error {
	return l.Writef(Debug, l.now(), format, args...)
}

// Infof records a formatted message at Info level. Not reentrant.
func (l *Logger) Infof(format string, args ...any) error {
	return l.Writef(Info, l.now(), format, args...)
}

// Warnf records a formatted message at Warn level. Not reentrant.
func (l *Logger) Warnf(format string, args ...any) error {
	return l.Writef(Warn, l.now(), format, args...)
}

// Errorf records a formatted message at Error level. Not reentrant.
func (l *Logger) Errorf(format string, args ...any) error {
	return l.Writef(Error, l.now(), format, args...)
}

// Fatalf records a formatted message at Fatal level. Not reentrant.
func (l *Logger) Fatalf(format string, args ...any) error {
	return l.Writef(Fatal, l.now(), format, args...)
}

// Read extracts the oldest published entry into out and returns the number
// of payload bytes copied along with the entry's level and timestamp.
//
// At most one goroutine may read at a time; concurrent readers are
// undefined. Payloads longer than len(out)-1 are truncated, and out[n] is
// always set to zero after the copied bytes.
//
// Returns ErrInvalid for an empty out slice or a corrupted stored length,
// ErrEmpty when no entries are queued, and ErrBusy when the oldest
// reservation has not been published yet (retry shortly; the producer that
// owns it has not finished).
func (l *Logger) Read(out []byte) (int, Level, uint32, error) {
	n, level, timestamp, err := l.ring.read(out)
	if err != nil {
		if errors.Is(err, ErrBusy) {
			l.busyCount.Add(1)
		}
		return 0, 0, 0, err
	}

	l.readCount.Add(1)
	l.bytesRead.Add(uint64(n)) // #nosec G115 -- n is a non-negative byte count
	return n, Level(level), timestamp, nil
}

// Available returns the number of ring bytes currently in use, including
// regions reserved by producers that have not published yet. A liveness
// hint, not an exact entry count.
func (l *Logger) Available() uint32 {
	return l.ring.available()
}

// IsEmpty reports whether the ring holds no entries at all.
func (l *Logger) IsEmpty() bool {
	return l.ring.isEmpty()
}

// Capacity returns the fixed ring capacity in bytes.
func (l *Logger) Capacity() uint32 {
	return l.ring.capacity
}

// now returns the timestamp for the leveled helpers: the configured
// TimestampFn, or cached wall-clock seconds from the lazily started time
// cache.
func (l *Logger) now() uint32 {
	if fn := l.timestampFn; fn != nil {
		return fn()
	}
	l.timeCacheOnce.Do(func() {
		resolution := l.timeResolution
		if resolution <= 0 {
			resolution = time.Millisecond
		}
		l.timeCache = timecache.NewWithResolution(resolution)
	})
	return uint32(l.timeCache.CachedTime().Unix()) // #nosec G115 -- wraps in 2106, as the wire format dictates
}

// Close releases the Logger's auxiliary resources: the dynamic level
// watcher and the time cache, when running. The ring bytes stay untouched,
// so a consumer in another process or language can still drain them.
// Safe to call multiple times.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		if w := l.watcher.Swap(nil); w != nil {
			if err := w.Stop(); err != nil {
				l.reportError("watcher-stop", err)
			}
		}
		if tc := l.timeCache; tc != nil {
			tc.Stop()
		}
	})
	return nil
}

// reportError invokes the error callback if set
func (l *Logger) reportError(operation string, err error) {
	if l.errorCallback != nil {
		l.errorCallback(operation, err)
	}
}

// stringBytes reinterprets s as a byte slice without copying. The ring
// copies the bytes before the call returns and never writes through the
// slice, so the no-mutation contract for string data holds.
func stringBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Stats represents logger statistics for telemetry and monitoring.
// Counters are collected with atomic operations and are safe to query
// frequently and concurrently with producers and the consumer.
type Stats struct {
	// Producer side
	WriteCount    uint64 `json:"write_count"`    // Total write calls, including filtered and rejected
	FilteredCount uint64 `json:"filtered_count"` // Writes dropped below the level threshold
	FullCount     uint64 `json:"full_count"`     // Writes rejected because the ring was full
	BytesWritten  uint64 `json:"bytes_written"`  // Payload bytes accepted into the ring

	// Consumer side
	EntriesRead uint64 `json:"entries_read"` // Entries successfully extracted
	BytesRead   uint64 `json:"bytes_read"`   // Payload bytes copied out (after truncation)
	BusyReads   uint64 `json:"busy_reads"`   // Reads that found an unpublished oldest slot

	// Ring state
	Capacity  uint32 `json:"capacity"`  // Fixed ring capacity in bytes
	Used      uint32 `json:"used"`      // Bytes between read and write positions
	Level     Level  `json:"level"`     // Current minimum level
	LevelName string `json:"level_name"`
}

// Stats returns a snapshot of the logger's counters and ring state.
func (l *Logger) Stats() Stats {
	level := l.Level()
	return Stats{
		WriteCount:    l.writeCount.Load(),
		FilteredCount: l.filteredCount.Load(),
		FullCount:     l.fullCount.Load(),
		BytesWritten:  l.bytesWritten.Load(),
		EntriesRead:   l.readCount.Load(),
		BytesRead:     l.bytesRead.Load(),
		BusyReads:     l.busyCount.Load(),
		Capacity:      l.ring.capacity,
		Used:          l.ring.available(),
		Level:         level,
		LevelName:     level.String(),
	}
}
