package ratelimiter

import (
	"fmt"
	"time"
)

// Config describes a token bucket.
type Config struct {
	// Capacity is the burst size.
	Capacity int `env:"CAPACITY" envDefault:"10"`
	// RefillRate tokens are added every RefillInterval.
	RefillRate     int           `env:"REFILL_RATE" envDefault:"1"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"30s"`
}

// Validate reports an invalid configuration.
func (c Config) Validate() error {
	if c.Capacity <= 0 || c.RefillRate <= 0 || c.RefillInterval <= 0 {
		return fmt.Errorf("%w: capacity, refill rate and refill interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// ttl is how long an idle bucket takes to refill completely.
func (c Config) ttl() time.Duration {
	d := c.RefillInterval * time.Duration(c.Capacity/c.RefillRate+1)
	return max(d, time.Second)
}
