// Package logger provides slog construction and attribute helpers.
//
// Components accept a *slog.Logger and default to Discard. Attribute helpers
// keep field names consistent across packages:
//
//	log.WarnContext(ctx, "sign-in attempt failed",
//		logger.Component("auth"),
//		logger.Attempt(attempt),
//		logger.Error(err),
//	)
package logger
