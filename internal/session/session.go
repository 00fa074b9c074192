// Package session holds the root map and the active mod list: the two
// pieces of session-scoped state the resolver reads on every call but
// never caches or mutates itself.
package session

import (
	"fmt"
	"strings"
	"sync"
)

// RootKeys is the closed set of root keys the system recognizes. Any key
// not in this set fails resolution structurally.
var RootKeys = map[string]bool{
	"repo":          true,
	"game":          true,
	"steam":         true,
	"user_docs":     true,
	"ck3raven_data": true,
	"vscode":        true,
}

// RootMap is the immutable root-key → host-path mapping, fixed at process
// start. Access after construction is read-only; no method mutates it.
type RootMap struct {
	byKey map[string]string
}

// NewRootMap validates that every key is in the closed RootKeys set and
// returns an immutable map. Unknown keys are rejected at construction so a
// bad deployment config fails fast rather than at resolve time.
func NewRootMap(roots map[string]string) (*RootMap, error) {
	byKey := make(map[string]string, len(roots))
	for k, v := range roots {
		lk := strings.ToLower(k)
		if !RootKeys[lk] {
			return nil, fmt.Errorf("session: unknown root key %q", k)
		}
		byKey[lk] = v
	}
	return &RootMap{byKey: byKey}, nil
}

// HostPath returns the host directory bound to key, or false if the root
// was never configured for this deployment (distinct from "not a valid
// key", which NewRootMap already rejects).
func (m *RootMap) HostPath(key string) (string, bool) {
	p, ok := m.byKey[strings.ToLower(key)]
	return p, ok
}

// Mod is a named entry in the session's active mod list: (name, host_path).
type Mod struct {
	Name     string
	HostPath string
}

// Session owns the active mod list — the sole authoritative source for
// mod visibility. The resolver reads it by snapshot on every call and
// never derives or caches a parallel list.
type Session struct {
	mu   sync.RWMutex
	id   string
	mods []Mod
}

// New creates a session identified by id with no active mods.
func New(id string) *Session {
	return &Session{id: id}
}

// ID returns the session identifier used in HMAC binding (C11) and audit
// events.
func (s *Session) ID() string {
	return s.id
}

// SetMods replaces the ordered active mod list atomically. Ordering is
// preserved — find_mod_containing scans in this order.
func (s *Session) SetMods(mods []Mod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Mod, len(mods))
	copy(cp, mods)
	s.mods = cp
}

// Snapshot returns a consistent, point-in-time copy of the active mod
// list. Every resolver call takes one snapshot and reasons about it; a
// concurrent SetMods never produces a mid-call interleaving.
func (s *Session) Snapshot() []Mod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]Mod, len(s.mods))
	copy(cp, s.mods)
	return cp
}

// ModHostPath looks up the host directory of a named mod entry in the
// current snapshot, or returns false for an unknown mod name.
func (s *Session) ModHostPath(name string) (string, bool) {
	for _, m := range s.Snapshot() {
		if m.Name == name {
			return m.HostPath, true
		}
	}
	return "", false
}

// FindModContaining scans the session's ordered mod list and returns the
// first mod whose host root is a prefix (lexicographic, segment-aligned)
// of hostPath. Used only by the path_in_active_mods predicate.
func (s *Session) FindModContaining(hostPath string) (string, bool) {
	norm := normalizeSlashes(hostPath)
	for _, m := range s.Snapshot() {
		root := normalizeSlashes(m.HostPath)
		if root == "" {
			continue
		}
		if norm == root || strings.HasPrefix(norm, root+"/") {
			return m.Name, true
		}
	}
	return "", false
}

func normalizeSlashes(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimSuffix(p, "/")
}
