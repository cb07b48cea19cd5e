// Package rm implements the resource manager: the entry point that parses
// resource names and tracks every session opened through it so
// Manager.Close can tear them all down. It follows a mutex-guarded live-set
// keyed by an opaque handle, the same shape used elsewhere in this module
// for tracking open sessions.
package rm

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/backend"
	_ "github.com/benchdrive/govisa/pkg/govisa/backend/foreign"
	_ "github.com/benchdrive/govisa/pkg/govisa/backend/simulated"
	_ "github.com/benchdrive/govisa/pkg/govisa/backend/usbtmc"
	"github.com/benchdrive/govisa/pkg/govisa/rname"
)

// ErrClosed is returned by OpenResource and ListResources after Close has
// run.
var ErrClosed = fmt.Errorf("rm: resource manager is closed")

// sharedBackend refcounts a backend.Backend opened against one
// (backendName, libraryPath) pair, so every Manager constructed against the
// same pair shares a single open backend instead of each dialing its own.
// For the foreign backend this is what keeps a vendor library dlopen'd at
// most once per process: backend.Open for the foreign backend (registered
// under the empty name "") opens the library and
// acquires its default resource manager session as part of construction, so
// sharing the *sharedBackend shares that session too.
type sharedBackend struct {
	backend.Backend
	refs int
}

var (
	libraryHandlesMu sync.Mutex
	libraryHandles   = map[string]*sharedBackend{}
)

func libraryHandleKey(backendName, libraryPath string) string {
	return backendName + "\x00" + libraryPath
}

func acquireBackend(backendName, libraryPath string) (*sharedBackend, error) {
	libraryHandlesMu.Lock()
	defer libraryHandlesMu.Unlock()

	key := libraryHandleKey(backendName, libraryPath)
	if sb, ok := libraryHandles[key]; ok {
		sb.refs++
		return sb, nil
	}
	b, err := backend.Open(backendName, libraryPath)
	if err != nil {
		return nil, err
	}
	sb := &sharedBackend{Backend: b, refs: 1}
	libraryHandles[key] = sb
	return sb, nil
}

func releaseBackend(backendName, libraryPath string, sb *sharedBackend) error {
	libraryHandlesMu.Lock()
	defer libraryHandlesMu.Unlock()

	sb.refs--
	if sb.refs > 0 {
		return nil
	}
	delete(libraryHandles, libraryHandleKey(backendName, libraryPath))
	return sb.Close()
}

// Manager opens and tracks VISA sessions against a single backend, chosen
// once at construction. The zero value is not usable; construct one with
// Open.
type Manager struct {
	mu     sync.Mutex
	closed bool
	live   map[uuid.UUID]*openResource

	backendName string
	libraryPath string
	shared      *sharedBackend
}

type openResource struct {
	handle  uuid.UUID
	rec     rname.Record
	session backend.Session
}

// Open constructs a Manager bound to the backend registered under
// backendName ("" selects the default foreign VISA library backend),
// resolved with libraryPath as that backend's options string (for the
// foreign backend, the shared library path; "" searches
// platform-conventional locations).
//
// Two Managers opened against the same (backendName, libraryPath) pair
// share the underlying backend rather than each constructing their own, so
// a vendor library is dlopen'd and its default resource manager session
// acquired at most once per process no matter how many Managers address it.
// The shared backend is released, and torn down once unreferenced, when
// every Manager sharing it has been closed.
func Open(backendName, libraryPath string) (*Manager, error) {
	shared, err := acquireBackend(backendName, libraryPath)
	if err != nil {
		return nil, err
	}
	return &Manager{
		live:        map[uuid.UUID]*openResource{},
		backendName: backendName,
		libraryPath: libraryPath,
		shared:      shared,
	}, nil
}

// Backend reports the backend name this Manager was constructed with.
func (m *Manager) Backend() string { return m.backendName }

// LibraryPath reports the options string (for the foreign backend, the
// shared library path) this Manager was constructed with.
func (m *Manager) LibraryPath() string { return m.libraryPath }

// OpenResource parses resourceName and opens a session against it through
// the Manager's backend. The returned handle addresses the session in
// subsequent Manager calls until it is closed with CloseResource.
func (m *Manager) OpenResource(ctx context.Context, resourceName string, mode attr.AccessMode, timeoutMs uint32) (uuid.UUID, rname.Record, error) {
	rec, err := rname.Parse(resourceName)
	if err != nil {
		return uuid.UUID{}, rname.Record{}, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return uuid.UUID{}, rname.Record{}, ErrClosed
	}
	shared := m.shared
	m.mu.Unlock()

	sess, err := shared.OpenSession(ctx, rec, mode, timeoutMs)
	if err != nil {
		return uuid.UUID{}, rname.Record{}, err
	}

	handle := uuid.New()
	m.mu.Lock()
	m.live[handle] = &openResource{handle: handle, rec: rec, session: sess}
	m.mu.Unlock()
	return handle, rec, nil
}

// Session returns the backend.Session addressed by handle.
func (m *Manager) Session(handle uuid.UUID) (backend.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.live[handle]
	if !ok {
		return nil, fmt.Errorf("rm: unknown session handle %s", handle)
	}
	return r.session, nil
}

// CloseResource closes and forgets the session addressed by handle.
func (m *Manager) CloseResource(handle uuid.UUID) error {
	m.mu.Lock()
	r, ok := m.live[handle]
	if ok {
		delete(m.live, handle)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("rm: unknown session handle %s", handle)
	}
	return r.session.Close()
}

// ListResources returns the resources visible to the Manager's backend,
// filtered through expr with rname.Filter; an empty expr matches
// everything.
func (m *Manager) ListResources(ctx context.Context, expr string) ([]string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	shared := m.shared
	m.mu.Unlock()

	all, err := shared.FindResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("rm: %s: %w", shared.Name(), err)
	}
	if expr == "" || expr == "?*" {
		return all, nil
	}
	return rname.Filter(all, expr)
}

// Close closes every tracked session, then releases the Manager's backend
// (tearing it down once no other Manager shares it), then marks the
// Manager closed. It is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	live := m.live
	m.live = map[uuid.UUID]*openResource{}
	shared := m.shared
	m.mu.Unlock()

	var firstErr error
	for _, r := range live {
		if err := r.session.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := releaseBackend(m.backendName, m.libraryPath, shared); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Diagnostics reports process-wide, non-secret information useful for bug
// reports: platform identity, registered backend names, which backend and
// library path this Manager is bound to, and how many resources are
// currently tracked — data collection, not a logging setup.
type Diagnostics struct {
	OS                 string
	Arch               string
	RegisteredBackends []string
	Backend            string
	LibraryPath        string
	OpenSessions       int
}

func (m *Manager) Diagnostics() Diagnostics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Diagnostics{
		OS:                 runtime.GOOS,
		Arch:               runtime.GOARCH,
		RegisteredBackends: backend.Names(),
		Backend:            m.backendName,
		LibraryPath:        m.libraryPath,
		OpenSessions:       len(m.live),
	}
}
