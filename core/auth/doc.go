// Package auth turns credentials and OAuth redirects into persisted sessions.
//
// Authenticator.SignIn calls the identity backend at most MaxRetries+1 times.
// Server errors, transport failures and attempt timeouts are retried after a
// linear backoff; credential errors return at once. Every failure is an
// *Error whose Kind drives the user-facing message and the HTTP status.
//
//	a := auth.NewFromConfig(provider, cfg, auth.WithLogger(log))
//	sess, err := a.SignIn(ctx, store, email, password)
//	if errors.Is(err, auth.ErrInvalidCredentials) {
//		// show the form again
//	}
//
// Finalizer.Complete finishes an OAuth redirect exactly once and returns the
// next navigation target.
package auth
