package capture

import "sync/atomic"

// Guard is the process-wide re-entrancy lock auto-capture takes before
// running. A second concurrent trigger while the flag is held is dropped,
// not queued — see DESIGN.md open question 2.
type Guard struct {
	capturing int32
}

// TryAcquire returns true if the guard was free and is now held.
func (g *Guard) TryAcquire() bool {
	return atomic.CompareAndSwapInt32(&g.capturing, 0, 1)
}

// Release clears the guard. Safe to call even if never acquired.
func (g *Guard) Release() {
	atomic.StoreInt32(&g.capturing, 0)
}
