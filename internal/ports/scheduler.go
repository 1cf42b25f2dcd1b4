package ports

import "time"

// Scheduler defers work onto the host's single execution context.
// Callbacks never run concurrently with each other or with the code that
// owns the session.
type Scheduler interface {
	// AfterFunc runs fn once after d. The returned stop function cancels a
	// pending call and reports whether it was still pending.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}
