package downloader

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a run.
type Status int

const (
	StatusStarting Status = iota
	StatusRunning
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has finished.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RunState is the observable state of one run. Only the executor writes to
// it; readers take a Snapshot.
type RunState struct {
	mu sync.Mutex

	id       uuid.UUID
	total    int
	index    int
	progress string
	logs     []string
	status   Status
	saved    int
	failed   int
	bytes    int64
}

func newRunState(id uuid.UUID, total int) *RunState {
	return &RunState{id: id, total: total}
}

// Snapshot is a point-in-time copy of a RunState.
type Snapshot struct {
	ID       uuid.UUID
	Total    int
	Index    int // 1-based index of the task being processed, 0 before the first
	Progress string
	Logs     []string
	Status   Status
	Saved    int
	Failed   int
	Bytes    int64
}

// Snapshot returns a copy of the current state.
func (s *RunState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:       s.id,
		Total:    s.total,
		Index:    s.index,
		Progress: s.progress,
		Logs:     slices.Clone(s.logs),
		Status:   s.status,
		Saved:    s.saved,
		Failed:   s.failed,
		Bytes:    s.bytes,
	}
}

// ID returns the run identifier.
func (s *RunState) ID() uuid.UUID {
	return s.id
}

// Status returns the current status.
func (s *RunState) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *RunState) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *RunState) setIndex(i int) {
	s.mu.Lock()
	s.index = i
	s.mu.Unlock()
}

func (s *RunState) setProgress(msg string) {
	s.mu.Lock()
	s.progress = msg
	s.mu.Unlock()
}

func (s *RunState) appendLog(msg string) {
	s.mu.Lock()
	s.logs = append(s.logs, msg)
	s.mu.Unlock()
}

func (s *RunState) recordSaved(n int64) {
	s.mu.Lock()
	s.saved++
	s.bytes += n
	s.mu.Unlock()
}

func (s *RunState) recordFailed() {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
}
