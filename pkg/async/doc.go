// Package async provides generic futures for racing and fanning out work.
//
// Future[T] wraps one goroutine. Await blocks, AwaitWithTimeout gives up
// with ErrTimeout, and AwaitContext gives up when a context ends:
//
//	ctx, cancel := context.WithTimeout(parent, 15*time.Second)
//	defer cancel()
//	grant, err := async.Async(ctx, creds, signIn).AwaitContext(ctx)
//
// Cancelling the context passed to Async is how a losing computation is
// told to stop; its result is discarded.
//
// WaitAll and WaitAny coordinate several futures. Exec and friends are the
// same for functions that return only an error.
package async
