package downloader

import "github.com/google/uuid"

// EventType distinguishes the two signals a run emits.
type EventType int

const (
	// EventProgress replaces the current progress line.
	EventProgress EventType = iota
	// EventLog appends a line to the run log.
	EventLog
)

func (t EventType) String() string {
	if t == EventProgress {
		return "progress"
	}
	return "log"
}

// Event is a single progress or log signal from a run.
type Event struct {
	RunID   uuid.UUID
	Type    EventType
	Message string

	// Index is the 1-based task index the event belongs to, or 0 for
	// run-level events.
	Index int
	Total int

	// Bytes is set on the log event of a successful save.
	Bytes int64
}
