package auth

import "time"

// Metrics receives authentication outcomes.
type Metrics interface {
	// AuthAttempt records one backend call of operation op.
	AuthAttempt(op, outcome string)
	// AuthResult records the final result of operation op.
	AuthResult(op, result string, attempts int, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) AuthAttempt(string, string)                    {}
func (noopMetrics) AuthResult(string, string, int, time.Duration) {}
