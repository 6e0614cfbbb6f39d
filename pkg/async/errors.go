package async

import "errors"

var (
	// ErrTimeout is returned when AwaitWithTimeout gives up before completion.
	ErrTimeout = errors.New("async: operation timed out")

	// ErrNoFutures is returned when WaitAny or ExecAny receive no futures.
	ErrNoFutures = errors.New("async: no futures provided")
)
