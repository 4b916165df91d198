package tasks

import (
	"time"

	"github.com/zelfworks/contentapi/store"
	"github.com/zelfworks/contentapi/zelf"
)

// Options tune the pipeline behavior.
type Options struct {
	// RefreshOnPull makes re-pulled items refresh already stored rows instead
	// of create-if-absent.
	RefreshOnPull bool
	// MaxRetries caps retries of a 503-failed final comment delivery.
	MaxRetries int
	// RetryDelay is both the pre-retry pause and the re-dispatch delay.
	RetryDelay time.Duration
}

// Runner holds the pipeline task implementations and their dependencies.
type Runner struct {
	store      *store.ContentStore
	client     *zelf.Client
	dispatcher Dispatcher
	opts       Options
}

// NewRunner wires the pipeline tasks.
func NewRunner(st *store.ContentStore, client *zelf.Client, d Dispatcher, opts Options) *Runner {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 30 * time.Second
	}
	return &Runner{store: st, client: client, dispatcher: d, opts: opts}
}
