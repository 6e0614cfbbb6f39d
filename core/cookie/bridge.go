package cookie

import (
	"log/slog"
	"net"
	"strings"

	"github.com/ideatrek/authgate/core/logger"
)

// Bridge reads and writes named cookies independently of the execution
// context. Implementations never return errors: storage failures are logged,
// reads report absence, writes become no-ops and Blocked starts returning true.
type Bridge interface {
	Get(name string) (string, bool)
	Set(name, value string, opts ...Option)
	Remove(name string, opts ...Option)
	// Blocked reports whether the underlying storage rejected an operation.
	Blocked() bool
}

const probeCookie = "__authgate_probe"

// Probe writes a throwaway cookie, reads it back and removes it.
// It only gives a meaningful answer for jars whose writes are visible to
// subsequent reads (DocumentJar); a RequestJar always reports false.
func Probe(b Bridge) bool {
	b.Set(probeCookie, "1", WithMaxAge(60))
	v, ok := b.Get(probeCookie)
	b.Remove(probeCookie)
	return ok && v == "1" && !b.Blocked()
}

type jarConfig struct {
	logger *slog.Logger
}

// JarOption configures a Bridge implementation.
type JarOption func(*jarConfig)

// WithLogger sets the logger used to report swallowed storage failures.
func WithLogger(l *slog.Logger) JarOption {
	return func(c *jarConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newJarConfig(opts []JarOption) jarConfig {
	cfg := jarConfig{logger: logger.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// IsLocalHost reports whether host (optionally with port) addresses the
// local machine. Browsers reject Domain attributes for such hosts.
func IsLocalHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(strings.ToLower(host), "[]")
	switch host {
	case "127.0.0.1", "::1":
		return true
	}
	return strings.Contains(host, "localhost")
}
