// Package capability implements the process-lifetime capability registry
// (C3): mint opaque tokens, store token → host_path, enforce a capacity
// cap, and serve lookups under a single mutex. The registry is held
// exclusively by the resolver — no other component may translate a
// capability back into a host path.
package capability

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxTokens is the default capacity cap (spec §4.3 / §6).
const DefaultMaxTokens = 10_000

// ErrCapacityExceeded is returned by Mint when the registry is full. The
// resolver translates this into WA-RES-E-001.
type ErrCapacityExceeded struct{}

func (ErrCapacityExceeded) Error() string { return "capability registry capacity exceeded" }

// Registry is the mutex-guarded token → host_path store. All operations
// are serialized through one lock, held briefly and never across
// filesystem I/O.
type Registry struct {
	mu        sync.Mutex
	byToken   map[string]string
	maxTokens int
}

// NewRegistry creates a registry capped at maxTokens live entries. A
// maxTokens of 0 falls back to DefaultMaxTokens.
func NewRegistry(maxTokens int) *Registry {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Registry{
		byToken:   make(map[string]string),
		maxTokens: maxTokens,
	}
}

// Mint creates a new cryptographically random token bound to hostPath. It
// fails with ErrCapacityExceeded if the registry already holds maxTokens
// entries; no token is minted on failure.
func (r *Registry) Mint(hostPath string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.byToken) >= r.maxTokens {
		return "", ErrCapacityExceeded{}
	}

	token := uuid.New().String()
	r.byToken[token] = hostPath
	return token, nil
}

// Lookup returns the host path bound to token, or false if the token was
// never minted or does not exist in this process. A fabricated or revoked
// token never panics — callers surface this as a typed invalid reply.
func (r *Registry) Lookup(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byToken[token]
	return p, ok
}

// Len returns the current number of live entries. Exposed for tests and
// diagnostics only; never iterated for policy decisions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}

// CapRef is the value object exposed to the agent: an opaque token plus
// the canonical session-absolute address string. It exposes exactly these
// two read-only fields and is never serialized in a way that reveals the
// host path behind it.
type CapRef struct {
	token      string
	sessionAbs string
}

// NewCapRef constructs a CapRef. Only the resolver should call this —
// callers elsewhere receive CapRef values, never build their own.
func NewCapRef(token, sessionAbs string) CapRef {
	return CapRef{token: token, sessionAbs: sessionAbs}
}

// Token returns the opaque capability token.
func (c CapRef) Token() string { return c.token }

// SessionAbs returns the canonical session-absolute address string.
func (c CapRef) SessionAbs() string { return c.sessionAbs }

// Display yields the session-absolute address — the only agent-facing
// representation of a CapRef.
func (c CapRef) Display() string { return c.sessionAbs }

// String implements fmt.Stringer identically to Display, so accidental
// logging or fmt.Sprintf("%v", capRef) cannot leak a host path either.
func (c CapRef) String() string { return c.sessionAbs }
