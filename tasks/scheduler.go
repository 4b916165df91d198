package tasks

import (
	"context"
	"time"

	"github.com/zelfworks/contentapi/utils"
)

// Entry binds a task name to its queue, trigger interval, and handler.
type Entry struct {
	Name     string
	Queue    string
	Interval time.Duration
	Handler  JobFunc
}

// Scheduler triggers registered tasks on fixed intervals, dispatching each
// run onto its queue. Triggering is independent of task execution: a slow run
// never delays the ticker, the queue absorbs the backlog.
type Scheduler struct {
	dispatcher Dispatcher
	entries    []Entry
}

// NewScheduler creates a scheduler dispatching onto d.
func NewScheduler(d Dispatcher) *Scheduler {
	return &Scheduler{dispatcher: d}
}

// Register adds a periodic task. Must be called before Start.
func (s *Scheduler) Register(name, queue string, interval time.Duration, handler JobFunc) {
	s.entries = append(s.entries, Entry{Name: name, Queue: queue, Interval: interval, Handler: handler})
}

// Entries returns the registered schedule.
func (s *Scheduler) Entries() []Entry {
	return s.entries
}

// Start launches one ticker goroutine per entry, with an immediate first run.
func (s *Scheduler) Start(ctx context.Context) {
	for _, e := range s.entries {
		go s.runEntry(ctx, e)
	}
}

func (s *Scheduler) runEntry(ctx context.Context, e Entry) {
	utils.Sugar.Infof("scheduler: %s every %s on queue %s", e.Name, e.Interval, e.Queue)
	s.dispatcher.Dispatch(e.Queue, e.Name, e.Handler)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatcher.Dispatch(e.Queue, e.Name, e.Handler)
		}
	}
}
