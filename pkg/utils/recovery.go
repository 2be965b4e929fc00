package utils

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError is a recovered panic returned as an error.
type PanicError struct {
	// Op names the operation that panicked, if known.
	Op         string
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("panic: %v", e.Value)
	}
	return fmt.Sprintf("%s: panic: %v", e.Op, e.Value)
}

// Unwrap exposes a panic value that is itself an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// RecoverAsError recovers from a panic in the calling function and stores it
// in errPtr as a *PanicError. It must be deferred directly:
//
//	func search() (res *Result, err error) {
//	    defer utils.RecoverAsError(&err, logger, "vector")
//	    ...
//	}
//
// logger may be nil.
func RecoverAsError(errPtr *error, logger *slog.Logger, op string) {
	r := recover()
	if r == nil {
		return
	}
	stack := string(debug.Stack())
	*errPtr = &PanicError{Op: op, Value: r, StackTrace: stack}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("recovered from panic", "op", op, "panic", r, "stack", stack)
}

// IsPanic reports whether err carries a recovered panic.
func IsPanic(err error) bool {
	var p *PanicError
	return errors.As(err, &p)
}
