// Package models holds the data shapes shared across ck3fence's packages:
// the audit trail and the approval/contract records that back the
// has_contract and exec_signed condition predicates.
package models

import "time"

// ── Audit ────────────────────────────────────────────────────

// AuditEvent records one resolve or enforce decision. It never carries a
// host path — only the canonical coordinates and the reply code.
type AuditEvent struct {
	ID          string            `json:"id" db:"id"`
	Timestamp   time.Time         `json:"timestamp" db:"timestamp"`
	Mode        string            `json:"mode" db:"mode"`
	Session     string            `json:"session,omitempty" db:"session"`
	Tool        string            `json:"tool,omitempty" db:"tool"`
	Command     string            `json:"command,omitempty" db:"command"`
	RootKey     string            `json:"root_key,omitempty" db:"root_key"`
	Subdir      string            `json:"subdirectory,omitempty" db:"subdirectory"`
	Code        string            `json:"code" db:"code"`
	Message     string            `json:"message,omitempty" db:"message"`
	FailedConds []string          `json:"failed_conditions,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// AuditFilter narrows ListAuditEvents.
type AuditFilter struct {
	Mode    string
	Code    string
	Session string
	Since   *time.Time
	Limit   int
}

// ── Approval / contract ─────────────────────────────────────

// ApprovalRecord is the persisted form of an "active contract": the gate
// that backs has_contract, plus zero or more signed-script bindings that
// back exec_signed.
type ApprovalRecord struct {
	Session   string              `json:"session" db:"session"`
	Active    bool                `json:"active" db:"active"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
	Scripts   []SignedScriptEntry `json:"scripts,omitempty"`
}

// SignedScriptEntry binds a canonical script path + content hash to an
// HMAC signature produced by the host IDE's signing UI (C11).
type SignedScriptEntry struct {
	CanonicalPath string    `json:"canonical_path"`
	ContentHash   string    `json:"content_hash"` // hex sha256
	Signature     string    `json:"signature"`    // base64 HMAC-SHA256
	SignedAt      time.Time `json:"signed_at"`
}

// ── Mod entry (session's active playset) ────────────────────

// ModEntry is one named overlay in the session's ordered mod list.
type ModEntry struct {
	Name     string `json:"name"`
	HostPath string `json:"-"` // never serialized to the agent
}
