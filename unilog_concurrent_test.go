// unilog_concurrent_test.go: Multi-producer / single-consumer stress tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package unilog

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestConcurrentProducersSingleConsumer drives N producers writing distinct
// payloads against one concurrent consumer and checks that the delivered
// multiset equals the accepted multiset, with matching byte totals.
func TestConcurrentProducersSingleConsumer(t *testing.T) {
	const (
		producers = 8
		perWorker = 100
	)

	log, err := New(make([]byte, 16384))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	var (
		wg           sync.WaitGroup
		writtenBytes atomic.Uint64
		producing    atomic.Int32
	)
	producing.Store(producers)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			defer producing.Add(-1)
			for m := 0; m < perWorker; m++ {
				msg := fmt.Sprintf("p%02d-m%03d", p, m)
				for {
					err := log.WriteString(Info, uint32(p), msg)
					if err == nil {
						writtenBytes.Add(uint64(len(msg)))
						break
					}
					if !errors.Is(err, ErrFull) {
						t.Errorf("producer %d: %v", p, err)
						return
					}
					runtime.Gosched()
				}
			}
		}(p)
	}

	received := make(map[string]int)
	var readBytes uint64
	out := make([]byte, 256)
	deadline := time.Now().Add(30 * time.Second)

	for len(received) < producers*perWorker || countTotal(received) < producers*perWorker {
		n, level, _, err := log.Read(out)
		if err != nil {
			if errors.Is(err, ErrEmpty) && producing.Load() == 0 && log.IsEmpty() {
				break
			}
			if errors.Is(err, ErrEmpty) || errors.Is(err, ErrBusy) {
				if time.Now().After(deadline) {
					t.Fatalf("consumer stalled: %d/%d messages", countTotal(received), producers*perWorker)
				}
				runtime.Gosched()
				continue
			}
			t.Fatalf("Read: %v", err)
		}
		if level != Info {
			t.Fatalf("unexpected level %v", level)
		}
		received[string(out[:n])]++
		readBytes += uint64(n)
	}
	wg.Wait()

	// Drain anything published after the last producer finished.
	for {
		n, _, _, err := log.Read(out)
		if err != nil {
			break
		}
		received[string(out[:n])]++
		readBytes += uint64(n)
	}

	if got := countTotal(received); got != producers*perWorker {
		t.Fatalf("delivered %d messages, want %d", got, producers*perWorker)
	}
	for p := 0; p < producers; p++ {
		for m := 0; m < perWorker; m++ {
			msg := fmt.Sprintf("p%02d-m%03d", p, m)
			if received[msg] != 1 {
				t.Fatalf("message %q delivered %d times, want exactly once", msg, received[msg])
			}
		}
	}
	if readBytes != writtenBytes.Load() {
		t.Errorf("byte sum mismatch: written %d, read %d", writtenBytes.Load(), readBytes)
	}
	if !log.IsEmpty() {
		t.Errorf("ring not empty after full drain")
	}
}

func countTotal(m map[string]int) int {
	total := 0
	for _, c := range m {
		total += c
	}
	return total
}

// TestConcurrentFormattedSumCheck is the formatted-path variant: eight
// producers issuing formatted writes into a 16 KiB ring with a concurrent
// consumer, verified through the byte counters.
func TestConcurrentFormattedSumCheck(t *testing.T) {
	const (
		producers = 8
		perWorker = 100
	)

	log, err := New(make([]byte, 16384))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	var (
		wg        sync.WaitGroup
		producing atomic.Int32
	)
	producing.Store(producers)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			defer producing.Add(-1)
			for m := 0; m < perWorker; m++ {
				for {
					err := log.Writef(Info, uint32(m), "worker %d message %d", p, m)
					if err == nil {
						break
					}
					if !errors.Is(err, ErrFull) {
						t.Errorf("producer %d: %v", p, err)
						return
					}
					runtime.Gosched()
				}
			}
		}(p)
	}

	var delivered int
	out := make([]byte, 512)
	deadline := time.Now().Add(30 * time.Second)
	for delivered < producers*perWorker {
		_, _, _, err := log.Read(out)
		if err != nil {
			if time.Now().After(deadline) {
				t.Fatalf("consumer stalled at %d/%d", delivered, producers*perWorker)
			}
			runtime.Gosched()
			continue
		}
		delivered++
	}
	wg.Wait()

	stats := log.Stats()
	if stats.BytesWritten != stats.BytesRead {
		t.Errorf("byte sum mismatch: written %d, read %d", stats.BytesWritten, stats.BytesRead)
	}
	if !log.IsEmpty() {
		t.Errorf("ring not empty after producers joined and consumer drained")
	}
}

// TestSequentialOrderUnderConcurrency checks that one producer's messages
// arrive in its program order even while the consumer runs concurrently.
func TestSequentialOrderUnderConcurrency(t *testing.T) {
	const messages = 2000

	log, err := New(make([]byte, 4096))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < messages; i++ {
			for {
				err := log.Writef(Debug, uint32(i), "seq %d", i)
				if err == nil {
					break
				}
				if !errors.Is(err, ErrFull) {
					t.Errorf("write %d: %v", i, err)
					return
				}
				runtime.Gosched()
			}
		}
	}()

	out := make([]byte, 128)
	deadline := time.Now().Add(30 * time.Second)
	for next := uint32(0); next < messages; {
		_, _, timestamp, err := log.Read(out)
		if err != nil {
			if time.Now().After(deadline) {
				t.Fatalf("stalled waiting for message %d", next)
			}
			runtime.Gosched()
			continue
		}
		if timestamp != next {
			t.Fatalf("message %d delivered out of order (got %d)", next, timestamp)
		}
		next++
	}
	<-done
}

// TestConcurrentLevelChanges hammers the threshold while producers write
// and the consumer drains; every delivered entry must carry a level inside
// the enumeration (Trace through Fatal), never None or beyond.
func TestConcurrentLevelChanges(t *testing.T) {
	log, err := New(make([]byte, 8192))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		levels := []Level{Trace, Info, Warn}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				log.SetLevel(levels[i%len(levels)])
				runtime.Gosched()
			}
		}
	}()

	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				level := Level(uint32(i) % uint32(None))
				if err := log.Write(level, uint32(i), []byte("level churn")); err != nil && !errors.Is(err, ErrFull) {
					t.Errorf("producer %d: %v", p, err)
					return
				}
			}
		}(p)
	}

	out := make([]byte, 128)
	drainDeadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(drainDeadline) {
		_, level, _, err := log.Read(out)
		if err == nil {
			if level >= None {
				t.Fatalf("delivered entry with out-of-range level %v", level)
			}
			continue
		}
		if errors.Is(err, ErrEmpty) {
			break
		}
		if !errors.Is(err, ErrBusy) {
			t.Fatalf("Read: %v", err)
		}
		runtime.Gosched()
	}

	close(stop)
	wg.Wait()
}

// TestManyProducersNoConsumer fills the ring from many goroutines with no
// reader; every producer must observe either success or ErrFull, and the
// drained contents afterwards must be intact.
func TestManyProducersNoConsumer(t *testing.T) {
	log, err := New(make([]byte, 2048))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	var (
		wg       sync.WaitGroup
		accepted atomic.Uint64
	)
	for p := 0; p < 16; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				err := log.Writef(Info, uint32(p), "burst %d.%d", p, i)
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, ErrFull):
					// expected under pressure
				default:
					t.Errorf("producer %d: %v", p, err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	var drained uint64
	out := make([]byte, 256)
	for {
		_, _, _, err := log.Read(out)
		if errors.Is(err, ErrEmpty) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		drained++
	}

	if drained != accepted.Load() {
		t.Errorf("accepted %d writes but drained %d entries", accepted.Load(), drained)
	}
	if !log.IsEmpty() {
		t.Errorf("ring not empty after drain")
	}
}
