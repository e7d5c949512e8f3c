package lifecycle

import "sync/atomic"

// Guard serializes a one-way transition between any number of concurrent
// requesters: exactly one caller wins TryAcquire, everyone else sees it
// already taken. The transition never reverses.
type Guard struct {
	requested atomic.Bool
}

// TryAcquire attempts the transition. It returns true for exactly one
// caller across the lifetime of the Guard.
func (g *Guard) TryAcquire() bool {
	return g.requested.CompareAndSwap(false, true)
}

// Requested reports whether the transition has been claimed.
func (g *Guard) Requested() bool {
	return g.requested.Load()
}
