package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic turns a recovered panic value into a fatal error carrying the
// stack trace. Fatal: a panicking handler will panic again on redelivery.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("panic: %s", v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	return ErrInternal.
		WithCause(err).
		WithDetail("panic", true).
		WithDetail("stack_trace", string(debug.Stack())).
		AsFatal()
}
