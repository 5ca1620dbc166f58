package workers

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ErrRunnerClosed is returned by Submit after Shutdown has started.
var ErrRunnerClosed = errors.New("runner closed")

// Task is one independently scheduled unit of work.
type Task func(ctx context.Context)

// Stats is a snapshot of runner counters.
type Stats struct {
	Submitted uint64
	Completed uint64
	Panicked  uint64
	InFlight  int64
}

// Runner starts tasks detached from the caller. Tasks get a context that is
// never cancelled, so a slow store or send only delays its own task. The
// runner tracks them so shutdown and tests can wait for completion.
type Runner struct {
	ctx    context.Context
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	submitted atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
	inFlight  atomic.Int64
}

func NewRunner() *Runner {
	return &Runner{ctx: context.Background()}
}

// Submit schedules task and returns immediately.
func (r *Runner) Submit(name string, task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRunnerClosed
	}
	r.wg.Add(1)
	r.submitted.Add(1)
	r.inFlight.Add(1)
	go r.run(name, task)
	return nil
}

func (r *Runner) run(name string, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panicked.Add(1)
			log.Error().
				Str("task", name).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("Task panicked")
		}
		r.inFlight.Add(-1)
		r.completed.Add(1)
		r.wg.Done()
	}()
	task(r.ctx)
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones until ctx ends.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) Stats() Stats {
	return Stats{
		Submitted: r.submitted.Load(),
		Completed: r.completed.Load(),
		Panicked:  r.panicked.Load(),
		InFlight:  r.inFlight.Load(),
	}
}
