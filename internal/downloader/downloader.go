package downloader

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/YenHsinCHEN/MopsDownloader/internal/metrics"
	"github.com/YenHsinCHEN/MopsDownloader/internal/mops"
	"github.com/YenHsinCHEN/MopsDownloader/internal/pacing"
	"github.com/YenHsinCHEN/MopsDownloader/internal/storage"
	"github.com/YenHsinCHEN/MopsDownloader/internal/task"
)

// Resolver turns a query into a document outcome.
type Resolver interface {
	Resolve(ctx context.Context, q mops.Query) mops.Outcome
}

// Saver persists a document under a name, replacing any existing entry.
type Saver interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (int64, error)
}

// Job is one batch submission.
type Job struct {
	// Tasks are processed in order.
	Tasks []task.Task

	// Store receives successful documents.
	Store Saver

	// Window bounds the delay between consecutive tasks.
	Window pacing.Window
}

// Options configures the executor.
type Options struct {
	// WarmUp is the pause before the first task.
	WarmUp time.Duration

	// Wait blocks for d or until done is closed or ctx ends. Defaults to a
	// timer-based wait; tests replace it to avoid real delays.
	Wait func(ctx context.Context, d time.Duration, done <-chan struct{})

	// Rand is the source for pacing delays. Nil uses the global source.
	Rand *rand.Rand

	// Metrics is an optional recorder.
	Metrics *metrics.Recorder

	// Logger receives debug output.
	Logger *log.Logger
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		WarmUp: time.Second,
		Logger: &log.DefaultLogger,
	}
}

// Executor runs a job's tasks strictly one after another.
type Executor struct {
	resolver Resolver
	opts     Options
}

// NewExecutor creates an executor that fetches documents through resolver.
func NewExecutor(resolver Resolver, opts Options) *Executor {
	if opts.Wait == nil {
		opts.Wait = sleep
	}
	if opts.Logger == nil {
		opts.Logger = &log.DefaultLogger
	}
	return &Executor{resolver: resolver, opts: opts}
}

// Run processes job and returns its final state. Events are sent on events
// if it is non-nil; the caller owns the channel and must keep draining it
// until Run returns.
//
// Every task produces exactly one outcome log line. Cancelling tok stops
// the run before the next task starts. Cancelling ctx additionally aborts
// the request or write in progress.
func (e *Executor) Run(ctx context.Context, job Job, tok *Token, events chan<- Event) *RunState {
	state := newRunState(uuid.New(), len(job.Tasks))
	e.execute(ctx, job, tok, events, state)
	return state
}

type runner struct {
	ctx    context.Context
	events chan<- Event
	state  *RunState
	total  int
}

func (r *runner) progress(index int, msg string) {
	r.state.setProgress(msg)
	r.send(Event{Type: EventProgress, Message: msg, Index: index})
}

func (r *runner) log(index int, msg string) {
	r.logBytes(index, msg, 0)
}

func (r *runner) logBytes(index int, msg string, n int64) {
	r.state.appendLog(msg)
	r.send(Event{Type: EventLog, Message: msg, Index: index, Bytes: n})
}

func (r *runner) send(ev Event) {
	if r.events == nil {
		return
	}
	ev.RunID = r.state.id
	ev.Total = r.total
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

func (e *Executor) execute(ctx context.Context, job Job, tok *Token, events chan<- Event, state *RunState) {
	r := &runner{ctx: ctx, events: events, state: state, total: len(job.Tasks)}
	logger := e.opts.Logger

	e.opts.Metrics.RunStarted()
	state.setStatus(StatusRunning)
	logger.Debug().Str("run_id", state.id.String()).Int("tasks", r.total).Str("pace", job.Window.Label).Msg("run started")

	r.log(0, fmt.Sprintf("preparing to download %d files...", r.total))
	if e.opts.WarmUp > 0 {
		e.opts.Wait(ctx, e.opts.WarmUp, tok.Done())
	}

	for i, t := range job.Tasks {
		if tok.Cancelled() || ctx.Err() != nil {
			r.log(0, "download cancelled by user")
			r.progress(0, "cancelled")
			state.setStatus(StatusCancelled)
			e.opts.Metrics.RunFinished(StatusCancelled.String())
			logger.Debug().Str("run_id", state.id.String()).Int("index", i).Msg("run cancelled")
			return
		}

		index := i + 1
		state.setIndex(index)
		line := fmt.Sprintf("(%d/%d): %s", index, r.total, t.FileName)
		r.progress(index, line)
		r.log(index, line)

		e.process(ctx, r, index, t, job.Store)

		if index < r.total {
			d := job.Window.Sample(e.opts.Rand)
			r.log(index, fmt.Sprintf("waiting %.1f seconds...", d.Seconds()))
			e.opts.Wait(ctx, d, tok.Done())
		}
	}

	r.progress(0, "download complete")
	r.log(0, "download complete")
	state.setStatus(StatusCompleted)
	e.opts.Metrics.RunFinished(StatusCompleted.String())
	logger.Debug().Str("run_id", state.id.String()).Msg("run completed")
}

// process resolves and stores a single task and logs its outcome.
func (e *Executor) process(ctx context.Context, r *runner, index int, t task.Task, store Saver) {
	typ := t.Type.String()

	start := time.Now()
	out := e.resolver.Resolve(ctx, t.Query())
	e.opts.Metrics.ObserveResolve(typ, time.Since(start))

	if out.Status != mops.StatusSuccess {
		if out.Body != nil {
			out.Body.Close()
		}
		e.opts.Metrics.ObserveDocument(typ, out.Status.String(), 0)
		r.state.recordFailed()
		r.log(index, fmt.Sprintf("✗ %s - %s", t.FileName, out.Reason))
		return
	}

	n, err := save(ctx, store, t.FileName, out.Body)
	if err != nil {
		e.opts.Metrics.ObserveDocument(typ, metrics.OutcomeSaveFailed, 0)
		e.opts.Logger.Debug().Err(err).Str("filename", t.FileName).Msg("save failed")
		r.state.recordFailed()
		r.log(index, fmt.Sprintf("✗ %s save failed: %v", t.FileName, err))
		return
	}

	e.opts.Metrics.ObserveDocument(typ, out.Status.String(), n)
	r.state.recordSaved(n)
	r.logBytes(index, fmt.Sprintf("✓ %s saved", t.FileName), n)
}

func save(ctx context.Context, store Saver, name string, body io.ReadCloser) (int64, error) {
	defer body.Close()
	return store.Save(ctx, name, storage.PDFContentType, body)
}

func sleep(ctx context.Context, d time.Duration, done <-chan struct{}) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-done:
	case <-ctx.Done():
	}
}
