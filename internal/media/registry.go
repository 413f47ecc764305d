package media

import (
	"bytes"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// HandlePrefix starts every handle issued by the default generator.
const HandlePrefix = "blob:taleweaver/"

// Reference is a live display reference.
// Payload is shared with the registry and must not be modified.
type Reference struct {
	Handle      string
	ContentType string
	Payload     []byte
}

type entry struct {
	ref   Reference
	scope *Scope
}

// Registry tracks every outstanding reference in the process.
// All methods are safe for concurrent use and never block on I/O.
type Registry struct {
	mu        sync.Mutex
	refs      map[string]*entry
	newHandle func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithHandleGenerator replaces the UUID-based handle generator.
// Generated handles must be unique for the registry's lifetime.
func WithHandleGenerator(gen func() string) Option {
	return func(r *Registry) {
		r.newHandle = gen
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		refs:      make(map[string]*entry),
		newHandle: newUUIDHandle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newUUIDHandle() string {
	return HandlePrefix + uuid.Must(uuid.NewV7()).String()
}

// BeginScope returns a fresh scope owned by one view.
func (r *Registry) BeginScope() *Scope {
	return &Scope{reg: r, handles: make(map[string]struct{})}
}

// Resolve returns the reference behind a live handle.
func (r *Registry) Resolve(handle string) (Reference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.refs[handle]
	if !ok {
		return Reference{}, ErrUnknownHandle
	}
	return e.ref, nil
}

// Outstanding returns how many handles are live across all scopes.
func (r *Registry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refs)
}

// Scope is the set of handles issued for one view.
type Scope struct {
	reg     *Registry
	handles map[string]struct{} // guarded by reg.mu
}

// CreateReference registers payload and returns its handle. The bytes are
// copied. An empty payload fails with a *ReferenceError.
func (s *Scope) CreateReference(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", &ReferenceError{Reason: "empty payload"}
	}

	ref := Reference{
		ContentType: mimetype.Detect(payload).String(),
		Payload:     bytes.Clone(payload),
	}

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()

	ref.Handle = s.reg.newHandle()
	if _, dup := s.reg.refs[ref.Handle]; dup {
		return "", &ReferenceError{Reason: "handle generator returned a live handle"}
	}
	s.reg.refs[ref.Handle] = &entry{ref: ref, scope: s}
	s.handles[ref.Handle] = struct{}{}
	return ref.Handle, nil
}

// ReleaseAll revokes every handle this scope issued and empties it.
// Calling it on an empty scope is a no-op. The scope stays usable.
func (s *Scope) ReleaseAll() {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()

	for h := range s.handles {
		if e, ok := s.reg.refs[h]; ok && e.scope == s {
			delete(s.reg.refs, h)
		}
	}
	clear(s.handles)
}

// Len returns how many handles the scope currently holds.
func (s *Scope) Len() int {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	return len(s.handles)
}
