// Package saver persists store snapshots in background. Writes are serialized and only the latest
// submitted snapshot is written, superseded ones are dropped, so the final durable state always
// matches the final in-memory state.
package saver

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"

	"github.com/stelaras36/JobTracker/app/persistence"
	"github.com/stelaras36/JobTracker/app/tracker"
)

// Saver implements tracker.Saver with a single background writer
type Saver struct {
	kv      persistence.KV
	key     string
	rptr    *repeater.Repeater
	timeout time.Duration
	wake    chan struct{}

	writeMu sync.Mutex // serializes writes

	mu      sync.Mutex // protects fields below
	pending []tracker.Entry
	seq     uint64 // sequence of the latest submitted snapshot
	picked  uint64 // sequence of the snapshot taken by the write in progress
	written uint64 // sequence of the latest written snapshot
	stats   Stats
}

// Options for New
type Options struct {
	Attempts int           // write attempts per snapshot
	Duration time.Duration // initial backoff duration
	Factor   float64       // backoff factor
	Jitter   bool          // backoff jitter
	Timeout  time.Duration // timeout of a single write
}

// Stats of saver activity
type Stats struct {
	Submitted  uint64 // snapshots submitted
	Written    uint64 // snapshots written
	Failed     uint64 // writes failed after all retries
	Superseded uint64 // snapshots replaced by a newer one before written
}

// New makes Saver writing to kv under key. Zero options replaced by defaults.
func New(kv persistence.KV, key string, opts Options) *Saver {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Duration <= 0 {
		opts.Duration = 100 * time.Millisecond
	}
	if opts.Factor <= 0 {
		opts.Factor = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	rptr := repeater.New(&strategy.Backoff{Repeats: opts.Attempts, Duration: opts.Duration,
		Factor: opts.Factor, Jitter: opts.Jitter})
	return &Saver{kv: kv, key: key, rptr: rptr, timeout: opts.Timeout, wake: make(chan struct{}, 1)}
}

// Submit replaces pending snapshot and wakes up the writer, never blocks
func (s *Saver) Submit(entries []tracker.Entry) {
	s.mu.Lock()
	if s.seq > s.written && s.seq > s.picked {
		s.stats.Superseded++ // replaced before any write took it
	}
	s.seq++
	s.pending = entries
	s.stats.Submitted++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default: // writer already notified
	}
}

// Run writes submitted snapshots until ctx canceled, then flushes the pending one
func (s *Saver) Run(ctx context.Context) error {
	log.Printf("[INFO] saver started for %q", s.key)
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
			err := s.Flush(flushCtx)
			cancel()
			if err != nil {
				log.Printf("[WARN] final save failed: %v", err)
			}
			log.Printf("[INFO] saver stopped, %+v", s.Stats())
			return nil
		case <-s.wake:
			if err := s.write(ctx); err != nil {
				// snapshot stays pending and will be written with the next submit or flush
				log.Printf("[WARN] failed to save jobs: %v", err)
			}
		}
	}
}

// Flush writes pending snapshot synchronously, nothing to do if already written
func (s *Saver) Flush(ctx context.Context) error {
	return s.write(ctx)
}

// Stats returns activity counters
func (s *Saver) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// write stores the latest snapshot. Picking the snapshot under writeMu guarantees
// a later write never stores an older snapshot.
func (s *Saver) write(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	seq, entries := s.seq, s.pending
	if seq <= s.written {
		s.mu.Unlock()
		return nil
	}
	s.picked = seq
	s.mu.Unlock()

	value, err := persistence.Encode(entries)
	if err != nil {
		return err
	}

	err = s.rptr.Do(ctx, func() error {
		wrCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.kv.Set(wrCtx, s.key, value)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.stats.Failed++
		s.picked = s.written
		return fmt.Errorf("can't save %d jobs: %w", len(entries), err)
	}
	s.written = seq
	s.stats.Written++
	if s.seq == seq {
		s.pending = nil
	}
	log.Printf("[DEBUG] saved %d jobs, seq %d", len(entries), seq)
	return nil
}
