package cookie

import (
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/ideatrek/authgate/core/logger"
)

// RequestJar is the edge-request Bridge. Reads come from the inbound request
// and writes go to the outbound response as Set-Cookie headers, so a value
// written here is only visible to the next request that carries it.
// A nil ResponseWriter makes the jar read-only.
type RequestJar struct {
	manager *Manager
	w       http.ResponseWriter
	r       *http.Request
	log     *slog.Logger
	local   bool
	blocked atomic.Bool
}

var _ Bridge = (*RequestJar)(nil)

// NewRequestJar creates a RequestJar bound to one request/response pair.
func NewRequestJar(m *Manager, w http.ResponseWriter, r *http.Request, opts ...JarOption) *RequestJar {
	cfg := newJarConfig(opts)
	return &RequestJar{
		manager: m,
		w:       w,
		r:       r,
		log:     cfg.logger,
		local:   r != nil && IsLocalHost(r.Host),
	}
}

// Get implements Bridge.
func (j *RequestJar) Get(name string) (string, bool) {
	if j.r == nil {
		return "", false
	}
	v, err := j.manager.Get(j.r, name)
	if err != nil {
		if !errors.Is(err, ErrCookieNotFound) {
			j.log.Warn("cookie read failed",
				logger.Component("cookie"), logger.Cookie(name), logger.Error(err))
		}
		return "", false
	}
	return v, true
}

// Set implements Bridge.
func (j *RequestJar) Set(name, value string, opts ...Option) {
	if j.w == nil {
		j.log.Debug("cookie write skipped",
			logger.Component("cookie"), logger.Cookie(name), logger.Error(ErrReadOnly))
		return
	}
	if err := j.manager.Set(j.w, name, value, j.scope(opts)...); err != nil {
		j.blocked.Store(true)
		j.log.Warn("cookie write failed",
			logger.Component("cookie"), logger.Cookie(name), logger.Error(err))
	}
}

// Remove implements Bridge.
func (j *RequestJar) Remove(name string, opts ...Option) {
	if j.w == nil {
		return
	}
	j.manager.Delete(j.w, name, j.scope(opts)...)
}

// Blocked implements Bridge.
func (j *RequestJar) Blocked() bool {
	return j.blocked.Load()
}

// Count returns the number of cookies the request carried.
func (j *RequestJar) Count() int {
	if j.r == nil {
		return 0
	}
	return len(j.r.Cookies())
}

// scope drops the Domain attribute on local hosts.
func (j *RequestJar) scope(opts []Option) []Option {
	if !j.local {
		return opts
	}
	return append(opts[:len(opts):len(opts)], WithDomain(""))
}
