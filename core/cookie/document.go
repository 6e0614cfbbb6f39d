package cookie

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// entry is a stored cookie as a browser would keep it.
type entry struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitzero"`
}

// jar applies Set-Cookie strings to a name-keyed map with browser semantics:
// Max-Age<=0 or a past Expires deletes, everything else upserts.
type jar map[string]entry

func (j jar) apply(raw string, now time.Time) error {
	c, err := http.ParseSetCookie(raw)
	if err != nil {
		return fmt.Errorf("parse set-cookie: %w", err)
	}

	switch {
	case c.MaxAge < 0:
		delete(j, c.Name)
	case !c.Expires.IsZero() && !c.Expires.After(now):
		delete(j, c.Name)
	default:
		e := entry{Value: c.Value}
		if c.MaxAge > 0 {
			e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		} else if !c.Expires.IsZero() {
			e.Expires = c.Expires
		}
		j[c.Name] = e
	}
	return nil
}

func (j jar) serialize(now time.Time) string {
	names := make([]string, 0, len(j))
	for name, e := range j {
		if !e.Expires.IsZero() && !e.Expires.After(now) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+j[name].Value)
	}
	return strings.Join(parts, "; ")
}

// MemoryDocument is an in-memory Document. Setting Disabled simulates a
// browser with cookies turned off.
type MemoryDocument struct {
	mu       sync.Mutex
	cookies  jar
	disabled bool
	now      func() time.Time
}

// NewMemoryDocument creates an empty in-memory Document.
func NewMemoryDocument() *MemoryDocument {
	return &MemoryDocument{cookies: jar{}, now: time.Now}
}

// Disable makes every subsequent operation fail with ErrStorageUnavailable.
func (d *MemoryDocument) Disable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disabled = true
}

// Cookie implements Document.
func (d *MemoryDocument) Cookie() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disabled {
		return "", ErrStorageUnavailable
	}
	return d.cookies.serialize(d.now()), nil
}

// SetCookie implements Document.
func (d *MemoryDocument) SetCookie(raw string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disabled {
		return ErrStorageUnavailable
	}
	return d.cookies.apply(raw, d.now())
}

// FileDocument is a Document persisted as JSON on disk, used by the CLI to
// keep a browser-like session between invocations.
type FileDocument struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileDocument creates a FileDocument at path. The file is created on first write.
func NewFileDocument(path string) *FileDocument {
	return &FileDocument{path: path, now: time.Now}
}

// Path returns the backing file path.
func (d *FileDocument) Path() string {
	return d.path
}

// Cookie implements Document.
func (d *FileDocument) Cookie() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	j, err := d.load()
	if err != nil {
		return "", err
	}
	return j.serialize(d.now()), nil
}

// SetCookie implements Document.
func (d *FileDocument) SetCookie(raw string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	j, err := d.load()
	if err != nil {
		return err
	}
	if err := j.apply(raw, d.now()); err != nil {
		return err
	}
	return d.save(j)
}

func (d *FileDocument) load() (jar, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return jar{}, nil
	}
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	j := jar{}
	if len(data) == 0 {
		return j, nil
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	return j, nil
}

func (d *FileDocument) save(j jar) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o700); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	if err := os.WriteFile(d.path, data, 0o600); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}
