package syncbatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBatch_CoalescesWithinQuietInterval(t *testing.T) {
	var mu sync.Mutex
	var flushes [][]string
	b := New(60*time.Millisecond, func(paths []string) {
		mu.Lock()
		flushes = append(flushes, paths)
		mu.Unlock()
	})

	b.AddFile("a")
	time.Sleep(10 * time.Millisecond)
	b.AddFile("b")
	time.Sleep(10 * time.Millisecond)
	b.AddFile("c")

	waitFor(t, 500*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushes) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, flushes, 1)
	require.ElementsMatch(t, []string{"a", "b", "c"}, flushes[0])
}

func TestBatch_SecondBatchAfterQuietWindowIsSeparate(t *testing.T) {
	var mu sync.Mutex
	var flushes [][]string
	b := New(40*time.Millisecond, func(paths []string) {
		mu.Lock()
		flushes = append(flushes, paths)
		mu.Unlock()
	})

	b.AddFile("a")
	waitFor(t, 500*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushes) == 1
	})

	b.AddFile("b")
	waitFor(t, 500*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushes) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"a"}, flushes[0])
	require.Equal(t, []string{"b"}, flushes[1])
}

func TestBatch_DuplicatePathsWithinBatchCollapse(t *testing.T) {
	var mu sync.Mutex
	var flushes [][]string
	b := New(40*time.Millisecond, func(paths []string) {
		mu.Lock()
		flushes = append(flushes, paths)
		mu.Unlock()
	})

	b.AddFile("a")
	b.AddFile("a")
	b.AddFile("a")

	waitFor(t, 500*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushes) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"a"}, flushes[0])
}

func TestBatch_PendingDuringAccumulationAndFlush(t *testing.T) {
	release := make(chan struct{})
	b := New(20*time.Millisecond, func(paths []string) {
		<-release
	})

	b.AddFile("a")
	require.True(t, b.Pending())

	close(release)
	waitFor(t, 500*time.Millisecond, func() bool { return !b.Pending() })
}

func TestBatch_NewBatchWhilePriorIsPendingFlushesIndependently(t *testing.T) {
	var mu sync.Mutex
	var flushes [][]string
	gate := make(chan struct{})
	first := true

	b := New(20*time.Millisecond, func(paths []string) {
		mu.Lock()
		flushes = append(flushes, paths)
		wasFirst := first
		first = false
		mu.Unlock()
		if wasFirst {
			<-gate
		}
	})

	b.AddFile("a")
	waitFor(t, 500*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushes) == 1
	})

	// The first flush is now blocked on gate; a file added now opens an
	// independent second batch with its own timer.
	b.AddFile("b")
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	require.Len(t, flushes, 1, "second batch must not flush while the first is still in flight")
	mu.Unlock()

	close(gate)
	waitFor(t, 500*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushes) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"b"}, flushes[1])
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}
