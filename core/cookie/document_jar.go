package cookie

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/ideatrek/authgate/core/logger"
)

// Document is a single string cookie jar in the style of document.cookie:
// reading yields "a=1; b=2", writing takes one Set-Cookie-style string.
type Document interface {
	Cookie() (string, error)
	SetCookie(raw string) error
}

// DocumentJar is the browser-context Bridge over a Document.
// Writes are immediately visible to subsequent reads.
type DocumentJar struct {
	manager *Manager
	doc     Document
	log     *slog.Logger
	local   bool

	mu      sync.Mutex
	blocked bool
}

var _ Bridge = (*DocumentJar)(nil)

// NewDocumentJar creates a DocumentJar. host is the page host and only
// decides whether the Domain attribute is dropped.
func NewDocumentJar(m *Manager, doc Document, host string, opts ...JarOption) *DocumentJar {
	cfg := newJarConfig(opts)
	return &DocumentJar{
		manager: m,
		doc:     doc,
		log:     cfg.logger,
		local:   IsLocalHost(host),
	}
}

// Get implements Bridge.
func (j *DocumentJar) Get(name string) (string, bool) {
	all, ok := j.read()
	if !ok {
		return "", false
	}
	v, found := all[name]
	return v, found
}

// Set implements Bridge.
func (j *DocumentJar) Set(name, value string, opts ...Option) {
	c, err := j.manager.Build(name, value, j.scope(opts)...)
	if err != nil {
		j.fail("cookie write failed", name, err)
		return
	}
	if err := j.doc.SetCookie(c.String()); err != nil {
		j.fail("cookie write failed", name, err)
	}
}

// Remove implements Bridge.
func (j *DocumentJar) Remove(name string, opts ...Option) {
	c := j.manager.Expired(name, j.scope(opts)...)
	if err := j.doc.SetCookie(c.String()); err != nil {
		j.fail("cookie remove failed", name, err)
	}
}

// Blocked implements Bridge.
func (j *DocumentJar) Blocked() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.blocked
}

// All returns every readable cookie. Unreadable storage yields an empty map.
func (j *DocumentJar) All() map[string]string {
	all, _ := j.read()
	if all == nil {
		return map[string]string{}
	}
	return all
}

// Names returns readable cookie names in sorted order.
func (j *DocumentJar) Names() []string {
	all := j.All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (j *DocumentJar) read() (map[string]string, bool) {
	raw, err := j.doc.Cookie()
	if err != nil {
		j.fail("cookie read failed", "", err)
		return nil, false
	}
	return ParseDocument(raw), true
}

func (j *DocumentJar) fail(msg, name string, err error) {
	j.mu.Lock()
	j.blocked = true
	j.mu.Unlock()

	attrs := []any{logger.Component("cookie"), logger.Error(err)}
	if name != "" {
		attrs = append(attrs, logger.Cookie(name))
	}
	j.log.Warn(msg, attrs...)
}

func (j *DocumentJar) scope(opts []Option) []Option {
	if !j.local {
		return opts
	}
	return append(opts[:len(opts):len(opts)], WithDomain(""))
}

// ParseDocument parses a "a=1; b=2" cookie string. Malformed pairs are
// skipped and the first occurrence of a name wins, as browsers list the
// most specific path first.
func ParseDocument(raw string) map[string]string {
	out := make(map[string]string)
	for part := range strings.SplitSeq(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = strings.TrimSpace(value)
	}
	return out
}
