package downloader

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Dispatcher runs jobs on a background goroutine, at most one at a time.
// Submitting a job while another is active cancels the active run and waits
// for it to stop before the new one starts.
type Dispatcher struct {
	exec *Executor

	mu     sync.Mutex
	active *Run
}

// NewDispatcher creates a dispatcher backed by exec.
func NewDispatcher(exec *Executor) *Dispatcher {
	return &Dispatcher{exec: exec}
}

// Run is a handle to a submitted job.
type Run struct {
	state  *RunState
	token  *Token
	events chan Event
	done   chan struct{}
}

// ID returns the run identifier.
func (r *Run) ID() uuid.UUID {
	return r.state.ID()
}

// Events returns the run's event stream. It is closed when the run ends.
// The stream is buffered but not unbounded: consumers must keep reading.
func (r *Run) Events() <-chan Event {
	return r.events
}

// Cancel requests cooperative cancellation.
func (r *Run) Cancel() {
	r.token.Cancel()
}

// State returns the live run state.
func (r *Run) State() *RunState {
	return r.state
}

// Done is closed once the run has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes and returns its final state.
func (r *Run) Wait() *RunState {
	<-r.done
	return r.state
}

// Submit starts job. If the job's store implements io.Closer it is closed
// once the run finishes.
func (d *Dispatcher) Submit(ctx context.Context, job Job) *Run {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev := d.active; prev != nil {
		prev.Cancel()
		drain(prev)
	}

	run := &Run{
		state:  newRunState(uuid.New(), len(job.Tasks)),
		token:  NewToken(),
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	d.active = run

	go func() {
		defer close(run.done)
		defer close(run.events)

		d.exec.execute(ctx, job, run.token, run.events, run.state)

		if c, ok := job.Store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				d.exec.opts.Logger.Warn().Err(err).Msg("close store")
			}
		}
	}()

	return run
}

// current returns the active run, or nil if none has been submitted.
func (d *Dispatcher) current() *Run {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// drain discards the remaining events of a replaced run so its executor
// goroutine is never blocked on a send, and waits for it to finish.
func drain(r *Run) {
	for range r.events {
	}
	<-r.done
}
