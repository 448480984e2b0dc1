package resiliency

import (
	"fmt"
	"runtime/debug"

	"github.com/go-logr/logr"
)

// MakePanicError logs a recovered panic value with its stack and returns it
// as an error. Returns nil if panicVal is nil.
func MakePanicError(panicVal any, log logr.Logger) error {
	if panicVal == nil {
		return nil
	}

	panicErr, isError := panicVal.(error)
	if !isError {
		panicErr = fmt.Errorf("%v", panicVal)
	}

	log.Error(panicErr, "A goroutine ended prematurely due to panic", "stack", string(debug.Stack()))

	return panicErr
}
