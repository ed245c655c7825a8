// Package pacing maps the size of a batch to the delay applied between
// consecutive downloads, keeping request volume low enough that the portal
// does not block the client.
package pacing

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Window is an inclusive delay range with a descriptive label.
type Window struct {
	Min   time.Duration
	Max   time.Duration
	Label string
}

var (
	// Fast applies to batches of 1 to 5 tasks.
	Fast = Window{Min: 1000 * time.Millisecond, Max: 2000 * time.Millisecond, Label: "fast"}
	// Normal applies to batches of 6 to 15 tasks.
	Normal = Window{Min: 3000 * time.Millisecond, Max: 5000 * time.Millisecond, Label: "normal"}
	// Slow applies to everything else.
	Slow = Window{Min: 4000 * time.Millisecond, Max: 7000 * time.Millisecond, Label: "slow"}
)

// Pace returns the window for a batch of n tasks.
func Pace(n int) Window {
	switch {
	case n >= 1 && n <= 5:
		return Fast
	case n >= 6 && n <= 15:
		return Normal
	default:
		return Slow
	}
}

// Sample draws a delay uniformly from the window at millisecond granularity.
// A nil r uses the global source.
func (w Window) Sample(r *rand.Rand) time.Duration {
	lo := w.Min.Milliseconds()
	hi := w.Max.Milliseconds()
	if hi <= lo {
		return time.Duration(lo) * time.Millisecond
	}

	var n int64
	if r != nil {
		n = r.Int64N(hi - lo + 1)
	} else {
		n = rand.Int64N(hi - lo + 1)
	}
	return time.Duration(lo+n) * time.Millisecond
}

// Notice is the hint shown before a run starts.
func (w Window) Notice() string {
	return fmt.Sprintf("notice: %s download mode (%d-%d s per file)",
		w.Label, int64(w.Min/time.Second), int64(w.Max/time.Second))
}

// Validate checks the window invariants.
func (w Window) Validate() error {
	if w.Min < 0 || w.Max < 0 {
		return fmt.Errorf("pacing: negative delay in %s window", w.Label)
	}
	if w.Min > w.Max {
		return fmt.Errorf("pacing: min %v exceeds max %v", w.Min, w.Max)
	}
	return nil
}
