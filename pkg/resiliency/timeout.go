package resiliency

import (
	"time"
)

// RunWithTimeout runs op and returns true if it finished before the timeout,
// false otherwise. Each invocation creates a goroutine and a timer, so this
// is not suitable for tight loops.
func RunWithTimeout(op func(), timeout time.Duration) bool {
	done := make(chan struct{}, 1)
	go func() {
		op()
		done <- struct{}{}
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
