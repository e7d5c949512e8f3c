package lifecycle

import "sync"

// Signal is a one-shot broadcast: it starts unfired, fires at most once,
// and never resets. Any number of goroutines may wait on Done; all of
// them unblock when the signal fires, and waiters that arrive after the
// fire unblock immediately.
type Signal struct {
	once sync.Once
	done chan struct{}
}

// NewSignal creates an unfired Signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Fire trips the signal. Safe to call from multiple goroutines; every
// call after the first is a no-op.
func (s *Signal) Fire() {
	s.once.Do(func() { close(s.done) })
}

// Done returns a channel closed when the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
