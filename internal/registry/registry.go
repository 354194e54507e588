// Package registry maintains the name -> open-storage mapping and
// discovers databases on disk, per spec.md §4.3. It does not know
// about connected clients directly; Open and Close invoke the
// OnOpen/OnClose hooks so the owning coordinator can fan out the
// per-client invalidation/unused set bookkeeping the spec requires to
// happen in the same transition.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kdurus/durusd/internal/engine"
)

// Extension is the reserved file suffix for a durus database file.
const Extension = ".durus"

// ErrPathEscape is returned when a database name would resolve outside
// the configured root.
var ErrPathEscape = fmt.Errorf("registry: database name escapes root")

// Registry owns the name -> *engine.Storage mapping for one server.
type Registry struct {
	root string

	mu       sync.Mutex
	storages map[string]*engine.Storage

	// OnOpen and OnClose are invoked with the database name while mu is
	// held, immediately after the storages map is updated, so the
	// caller's own client-set bookkeeping happens in the same critical
	// section the spec's invariant 3 requires.
	OnOpen  func(name string)
	OnClose func(name string)
}

// New creates a registry rooted at root. The root must already exist.
func New(root string) (*Registry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Registry{root: abs, storages: make(map[string]*engine.Storage)}, nil
}

// safePath resolves name to a file path under the root, rejecting any
// name whose resolved absolute path would escape it (defends against
// `..` traversal).
func (r *Registry) safePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("registry: empty database name")
	}
	joined := filepath.Join(r.root, name+Extension)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	rootWithSep := r.root + string(os.PathSeparator)
	if abs != r.root && !strings.HasPrefix(abs, rootWithSep) {
		return "", ErrPathEscape
	}
	return abs, nil
}

// NamesOnDisk enumerates every database name present in the root,
// i.e. every file with the reserved .durus extension.
func (r *Registry) NamesOnDisk() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == Extension {
			names = append(names, strings.TrimSuffix(e.Name(), Extension))
		}
	}
	sort.Strings(names)
	return names, nil
}

// NamesOpen enumerates the currently open database names.
func (r *Registry) NamesOpen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.storages))
	for name := range r.storages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the open storage for name, if any.
func (r *Registry) Get(name string) (*engine.Storage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.storages[name]
	return s, ok
}

// Open opens name if it is not already open. Idempotent: calling it N
// times yields one handle and at most one insertion into the name map.
func (r *Registry) Open(name string) (*engine.Storage, error) {
	path, err := r.safePath(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.storages[name]; ok {
		return s, nil
	}

	s, err := engine.Open(name, path)
	if err != nil {
		return nil, err
	}
	r.storages[name] = s
	if r.OnOpen != nil {
		r.OnOpen(name)
	}
	return s, nil
}

// Close closes name's storage and removes it from the mapping. A no-op
// if name is not open.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.storages[name]
	if !ok {
		return nil
	}
	delete(r.storages, name)
	if r.OnClose != nil {
		r.OnClose(name)
	}
	return s.Close()
}

// Destroy unlinks name's file, but only if it is not currently open —
// destruction is safe only when no session holds a handle, so an
// attempt against an open database is a silent no-op rather than an
// error. Destroying a name with no open handle and no file on disk
// surfaces the filesystem error.
func (r *Registry) Destroy(name string) error {
	r.mu.Lock()
	_, open := r.storages[name]
	r.mu.Unlock()
	if open {
		return nil
	}

	path, err := r.safePath(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// CloseAll closes every open storage, used on server quit.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range r.storages {
		s.Close()
		if r.OnClose != nil {
			r.OnClose(name)
		}
	}
	r.storages = make(map[string]*engine.Storage)
}
