package downloader

import "sync"

// Token is a cooperative cancellation signal for a run. The executor checks
// it before each task and while waiting between tasks; requests and writes
// already in flight are allowed to finish.
//
// A nil *Token is never cancelled.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken returns an uncancelled token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel sets the token. It is safe to call more than once and from any
// goroutine.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the token is cancelled.
func (t *Token) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.done
}
