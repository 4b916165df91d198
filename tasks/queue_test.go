package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueueRunsDispatchedJobs(t *testing.T) {
	q := NewQueue(2, "alpha", "beta")
	q.Start(context.Background())
	defer q.Stop()

	var ran int32
	for i := 0; i < 5; i++ {
		q.Dispatch("alpha", "count", func(ctx context.Context) {
			atomic.AddInt32(&ran, 1)
		})
	}

	waitFor(t, func() bool { return atomic.LoadInt32(&ran) == 5 })
}

func TestQueueIsolatesQueues(t *testing.T) {
	q := NewQueue(1, "slow", "fast")
	q.Start(context.Background())
	defer q.Stop()

	blocked := make(chan struct{})
	q.Dispatch("slow", "block", func(ctx context.Context) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
	})

	var fastRan int32
	q.Dispatch("fast", "quick", func(ctx context.Context) {
		atomic.AddInt32(&fastRan, 1)
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&fastRan) == 1 })
	close(blocked)
}

func TestQueueUnknownQueueIsDropped(t *testing.T) {
	q := NewQueue(1, "known")
	q.Start(context.Background())
	defer q.Stop()

	// Must not panic or block.
	q.Dispatch("unknown", "noop", func(ctx context.Context) {})
}

func TestQueueRecoversFromPanic(t *testing.T) {
	q := NewQueue(1, "alpha")
	q.Start(context.Background())
	defer q.Stop()

	var ran int32
	q.Dispatch("alpha", "boom", func(ctx context.Context) {
		panic("boom")
	})
	q.Dispatch("alpha", "after", func(ctx context.Context) {
		atomic.AddInt32(&ran, 1)
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&ran) == 1 })
}

func TestDispatchAfterDelays(t *testing.T) {
	q := NewQueue(1, "alpha")
	q.Start(context.Background())
	defer q.Stop()

	var ran int32
	q.DispatchAfter("alpha", "later", func(ctx context.Context) {
		atomic.AddInt32(&ran, 1)
	}, 20*time.Millisecond)

	assert.EqualValues(t, 0, atomic.LoadInt32(&ran))
	waitFor(t, func() bool { return atomic.LoadInt32(&ran) == 1 })
}

func TestSchedulerDispatchesImmediatelyAndOnTicks(t *testing.T) {
	q := NewQueue(1, "alpha")
	q.Start(context.Background())
	defer q.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs int32
	s := NewScheduler(q)
	s.Register("tick", "alpha", 10*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt32(&runs, 1)
	})
	assert.Len(t, s.Entries(), 1)

	s.Start(ctx)

	// At least the immediate run plus a few ticks.
	waitFor(t, func() bool { return atomic.LoadInt32(&runs) >= 3 })
}
