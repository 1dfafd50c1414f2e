// Package syncbatch implements SyncBatch (spec §4.6): a time-bounded
// coalescer that groups file-change paths arriving within a fixed quiet
// interval into a single flush. It is grounded on the teacher's
// phase0 watcher's Subscribe/broadcast loop (watcher_ref.go) for the
// "accumulate, then notify once" shape, adapted from a pub/sub fan-out
// into a debounced batch accumulator.
package syncbatch

import (
	"sort"
	"sync"
	"time"

	"github.com/nativescript-oss/livesync/internal/obsmetrics"
)

const DefaultQuietInterval = 250 * time.Millisecond

// slot is one accumulating or sealed-but-not-yet-flushed batch.
type slot struct {
	paths map[string]struct{}
}

// Batch coalesces AddFile calls arriving within a quiet interval into one
// invocation of its done callback (spec §4.6).
type Batch struct {
	quiet time.Duration
	done  func(paths []string)

	mu      sync.Mutex
	acc     *slot
	queue   []*slot
	syncing bool
}

// New creates a Batch with the given quiet interval; done is invoked
// exactly once per flush with the accumulated, deduplicated path set.
func New(quiet time.Duration, done func(paths []string)) *Batch {
	if quiet <= 0 {
		quiet = DefaultQuietInterval
	}
	return &Batch{quiet: quiet, done: done}
}

// AddFile enqueues path. If no flush is currently accumulating, it opens
// one and arms its quiet-interval timer; otherwise path joins whichever
// batch is currently accepting paths (spec §4.6: duplicates within a
// batch collapse since paths is a set).
func (b *Batch) AddFile(path string) {
	b.mu.Lock()
	if b.acc == nil {
		b.acc = &slot{paths: make(map[string]struct{})}
		s := b.acc
		time.AfterFunc(b.quiet, func() { b.seal(s) })
	}
	b.acc.paths[path] = struct{}{}
	b.mu.Unlock()
}

// Pending reports whether a sync is accumulating, queued, or in flight —
// spec §4.6's syncPending, true between the first addFile of a batch and
// the completion of its done callback.
func (b *Batch) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acc != nil || len(b.queue) > 0 || b.syncing
}

// seal transitions a batch from accumulating to pending: no further
// AddFile calls can join it, and it joins the flush queue. If s is still
// the currently-accumulating slot, a fresh accumulator is opened lazily
// on the next AddFile.
func (b *Batch) seal(s *slot) {
	b.mu.Lock()
	if b.acc == s {
		b.acc = nil
	}
	b.queue = append(b.queue, s)
	b.drainLocked()
}

// drainLocked starts the next queued flush if none is currently running.
// Must be called with b.mu held; it releases the lock itself if it
// starts a flush, since done runs outside the lock.
func (b *Batch) drainLocked() {
	if b.syncing || len(b.queue) == 0 {
		b.mu.Unlock()
		return
	}
	next := b.queue[0]
	b.queue = b.queue[1:]
	b.syncing = true
	b.mu.Unlock()

	paths := sortedKeys(next.paths)
	obsmetrics.SyncBatchesTotal.Inc()
	obsmetrics.SyncBatchSize.Observe(float64(len(paths)))
	b.done(paths)

	b.mu.Lock()
	b.syncing = false
	b.drainLocked()
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
