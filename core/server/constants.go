package server

import "time"

const (
	DefaultReadTimeout = 15 * time.Second
	// DefaultWriteTimeout covers three 15s sign-in attempts plus backoff.
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
)
