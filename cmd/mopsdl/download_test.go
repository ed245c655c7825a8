package main

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/YenHsinCHEN/MopsDownloader/internal/downloader"
	"github.com/YenHsinCHEN/MopsDownloader/internal/mops"
	"github.com/YenHsinCHEN/MopsDownloader/internal/pacing"
	"github.com/YenHsinCHEN/MopsDownloader/internal/task"
)

type countingResolver struct {
	calls atomic.Int32
}

func (r *countingResolver) Resolve(ctx context.Context, q mops.Query) mops.Outcome {
	r.calls.Add(1)
	return mops.NotFound("no downloadable PDF found")
}

type discardSaver struct{}

func (discardSaver) Save(ctx context.Context, name, contentType string, r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}

func submitTestJob(r downloader.Resolver) *downloader.Run {
	opts := downloader.DefaultOptions()
	opts.WarmUp = time.Second
	d := downloader.NewDispatcher(downloader.NewExecutor(r, opts))
	return d.Submit(context.Background(), downloader.Job{
		Tasks:  []task.Task{task.NewAnnual("2330", "2023"), task.NewAnnual("2330", "2022")},
		Store:  discardSaver{},
		Window: pacing.Fast,
	})
}

func TestCancelOnStopBeforeSubmit(t *testing.T) {
	stop := downloader.NewToken()
	stop.Cancel()

	r := &countingResolver{}
	run := submitTestJob(r)
	cancelOnStop(stop, run)

	snap := run.Wait().Snapshot()
	assert.Equal(t, downloader.StatusCancelled, snap.Status)
	assert.Zero(t, r.calls.Load())
	assert.Equal(t, ExitCancelled, exitCode(snap.Status))
}

func TestCancelOnStopDuringRun(t *testing.T) {
	stop := downloader.NewToken()

	r := &countingResolver{}
	run := submitTestJob(r)
	cancelOnStop(stop, run)
	stop.Cancel()

	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled")
	}
	assert.Equal(t, downloader.StatusCancelled, run.State().Status())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(downloader.StatusCompleted))
	assert.Equal(t, ExitCancelled, exitCode(downloader.StatusCancelled))
	assert.Equal(t, ExitGeneralError, exitCode(downloader.StatusRunning))
}
