// Package progress renders download runs for the terminal.
//
// The Reporter consumes the event stream of a run and writes one prefixed
// line per log event, followed by a summary once the run has ended.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{Output: os.Stderr})
//	reporter.Start("2330", len(tasks), store.URL())
//	reporter.Consume(run.Events())
//	reporter.Summary(run.Wait().Snapshot())
//
// # Output Format
//
//	[mopsdl] Company: 2330 | Files: 2
//	[mopsdl] Destination: file:///home/user/reports?create_dir=true&metadata=skip
//	[mopsdl] preparing to download 2 files...
//	[mopsdl] (1/2): 2330_2024_Q1_財報.pdf
//	[mopsdl] ✓ 2330_2024_Q1_財報.pdf saved
//	[mopsdl] waiting 1.4 seconds...
//	[mopsdl] (2/2): 2330_2023_年報.pdf
//	[mopsdl] ✗ 2330_2023_年報.pdf - 查無所需資料 (no matching data)
//	[mopsdl] download complete
//	[mopsdl] Status: completed | Saved: 1 | Failed: 1 | Skipped: 0
//	[mopsdl] Total: 1.21 MB in 4s
package progress
