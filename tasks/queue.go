package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zelfworks/contentapi/utils"
)

// Queue names for the pipeline stages.
const (
	QueueContentPull  = "content_pull"
	QueueAIComments   = "post_ai_comments"
	QueueFinalComment = "final_comment_post"
)

// JobFunc is the body of one task invocation.
type JobFunc func(ctx context.Context)

// Dispatcher schedules jobs onto named queues. Dispatch is fire-and-forget:
// the caller never waits for execution.
type Dispatcher interface {
	Dispatch(queue, name string, fn JobFunc)
	DispatchAfter(queue, name string, fn JobFunc, delay time.Duration)
}

type job struct {
	id   string
	name string
	fn   JobFunc
}

// Queue runs jobs on a fixed pool of workers per named queue, decoupling task
// execution from the scheduler and from other queues.
type Queue struct {
	workers int
	queues  map[string]chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates the named queues, each backed by its own worker pool once
// Start is called.
func NewQueue(workersPerQueue int, names ...string) *Queue {
	if workersPerQueue <= 0 {
		workersPerQueue = 4
	}
	queues := make(map[string]chan job, len(names))
	for _, n := range names {
		queues[n] = make(chan job, 256)
	}
	return &Queue{
		workers: workersPerQueue,
		queues:  queues,
		ctx:     context.Background(),
	}
}

// Start launches the worker pools. Workers stop when ctx is cancelled or Stop
// is called.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
	for name, ch := range q.queues {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(name, ch)
		}
	}
}

// Stop cancels running jobs and waits for the workers to drain.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Dispatch enqueues a job onto the named queue.
func (q *Queue) Dispatch(queue, name string, fn JobFunc) {
	ch, ok := q.queues[queue]
	if !ok {
		utils.Sugar.Errorf("dispatch to unknown queue %q (task %s)", queue, name)
		return
	}
	j := job{id: uuid.NewString(), name: name, fn: fn}
	select {
	case ch <- j:
	case <-q.ctx.Done():
		utils.Sugar.Warnf("queue %s stopped, dropping task %s job=%s", queue, name, j.id)
	}
}

// DispatchAfter enqueues a job after the given delay.
func (q *Queue) DispatchAfter(queue, name string, fn JobFunc, delay time.Duration) {
	if delay <= 0 {
		q.Dispatch(queue, name, fn)
		return
	}
	time.AfterFunc(delay, func() {
		q.Dispatch(queue, name, fn)
	})
}

func (q *Queue) worker(queue string, ch chan job) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-ch:
			q.run(queue, j)
		}
	}
}

func (q *Queue) run(queue string, j job) {
	defer func() {
		if r := recover(); r != nil {
			utils.Sugar.Errorf("task panic queue=%s task=%s job=%s: %v", queue, j.name, j.id, r)
		}
	}()
	start := time.Now()
	j.fn(q.ctx)
	utils.Sugar.Debugf("task done queue=%s task=%s job=%s took=%s", queue, j.name, j.id, time.Since(start))
}
