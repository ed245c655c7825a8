// Package downloader executes batches of document downloads.
//
// An Executor walks a Job's tasks strictly in order: resolve the document,
// save it, log the outcome, then wait a randomised pacing delay before the
// next task. A failed task never stops the batch.
//
// # Usage
//
//	exec := downloader.NewExecutor(resolver, downloader.DefaultOptions())
//	run := downloader.NewDispatcher(exec).Submit(ctx, downloader.Job{
//	    Tasks:  tasks,
//	    Store:  store,
//	    Window: pacing.Pace(len(tasks)),
//	})
//	for ev := range run.Events() {
//	    ...
//	}
//	state := run.Wait()
//
// # Events
//
// A run emits two kinds of events: progress events replace the current
// progress line, log events append to the run log. The same information is
// kept in the run's RunState for consumers that poll instead of listening.
//
// # Cancellation
//
// Cancellation is cooperative. Run.Cancel (or Token.Cancel) is observed
// before each task and interrupts the pacing wait, but lets a request or
// write already in progress finish. Cancelling the context passed to Submit
// aborts in-flight I/O as well.
package downloader
