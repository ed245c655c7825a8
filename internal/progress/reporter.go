package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/YenHsinCHEN/MopsDownloader/internal/downloader"
)

// Options configures the progress reporter.
type Options struct {
	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// Quiet suppresses per-task lines; only the header and summary are
	// written.
	Quiet bool

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// Reporter renders run events as human-readable lines.
type Reporter struct {
	opts Options

	mu       sync.Mutex
	start    time.Time
	progress string
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Reporter{opts: opts}
}

// Start prints the run header and starts the clock.
func (r *Reporter) Start(companyID string, files int, destination string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.start = r.opts.Now()
	r.mu.Unlock()

	fmt.Fprintf(r.opts.Output, "[mopsdl] Company: %s | Files: %d\n", companyID, files)
	fmt.Fprintf(r.opts.Output, "[mopsdl] Destination: %s\n", destination)
}

// Println writes a single prefixed line.
func (r *Reporter) Println(msg string) {
	if r == nil {
		return
	}
	fmt.Fprintf(r.opts.Output, "[mopsdl] %s\n", msg)
}

// Handle renders one event. Log events become output lines; progress
// events only update the current progress line.
func (r *Reporter) Handle(ev downloader.Event) {
	if r == nil {
		return
	}

	if ev.Type == downloader.EventProgress {
		r.mu.Lock()
		r.progress = ev.Message
		r.mu.Unlock()
		return
	}

	if r.opts.Quiet {
		return
	}
	r.Println(ev.Message)
}

// Consume renders events until the channel is closed.
func (r *Reporter) Consume(events <-chan downloader.Event) {
	for ev := range events {
		r.Handle(ev)
	}
}

// Progress returns the latest progress line.
func (r *Reporter) Progress() string {
	if r == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Summary prints the final status of a run.
func (r *Reporter) Summary(s downloader.Snapshot) {
	if r == nil {
		return
	}
	r.mu.Lock()
	elapsed := r.opts.Now().Sub(r.start)
	if r.start.IsZero() {
		elapsed = 0
	}
	r.mu.Unlock()

	fmt.Fprintf(r.opts.Output, "[mopsdl] Status: %s | Saved: %d | Failed: %d | Skipped: %d\n",
		s.Status,
		s.Saved,
		s.Failed,
		max(s.Total-s.Saved-s.Failed, 0),
	)
	fmt.Fprintf(r.opts.Output, "[mopsdl] Total: %s in %s\n",
		formatBytes(s.Bytes),
		formatDuration(elapsed),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// Table renders rows as aligned, prefixed lines. It is used for listings
// such as the validate command's report.
func Table(w io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], len([]rune(cell)))
			}
		}
	}

	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if i < len(row)-1 && i < len(widths) {
				b.WriteString(strings.Repeat(" ", widths[i]-len([]rune(cell))))
			}
		}
		fmt.Fprintf(w, "[mopsdl] %s\n", b.String())
	}
}
