package common

import (
	"sync/atomic"
	"time"
)

// CancellationToken is observed by long-lived worker loops (the Storage
// Controller, the schedule monitor, detection workers). Cancel sets
// running to false and lets callers record whether the loop actually
// exited before giving up and detaching, per spec.md §5.
type CancellationToken struct {
	running int32
	exited  int32
}

// NewCancellationToken returns a token in the running state.
func NewCancellationToken() *CancellationToken {
	t := &CancellationToken{}
	atomic.StoreInt32(&t.running, 1)
	return t
}

// Running reports whether the owning loop should keep iterating.
func (t *CancellationToken) Running() bool {
	return atomic.LoadInt32(&t.running) == 1
}

// Cancel requests the owning loop to stop.
func (t *CancellationToken) Cancel() {
	atomic.StoreInt32(&t.running, 0)
}

// MarkExited is called by the owning loop's goroutine immediately
// before it returns.
func (t *CancellationToken) MarkExited() {
	atomic.StoreInt32(&t.exited, 1)
}

// Exited reports whether the owning loop has confirmed its exit.
func (t *CancellationToken) Exited() bool {
	return atomic.LoadInt32(&t.exited) == 1
}

// PollJoin polls Exited every interval up to timeout. It returns true if
// the loop exited in time, false if the deadline passed and the caller
// should detach and log rather than block further. This is the
// "pthread_timedjoin_np is unavailable" fallback described in spec.md §9:
// 100ms polling granularity with a 5s budget is the default via
// constants.ShutdownPollInterval / constants.ShutdownTimeout, but callers
// may pass their own values for tests.
func PollJoin(t *CancellationToken, interval, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if t.Exited() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		<-ticker.C
	}
}
