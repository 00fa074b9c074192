// Package store provides the storage interface and in-memory
// implementation for ck3fence's two ambient record kinds: audit events
// and approval/contract records. The capability registry (C3) is
// deliberately not part of this store — it is process-lifetime, held
// exclusively by the resolver, per the CORE spec's lifecycle rules.
package store

import (
	"context"

	"github.com/ck3fence/ck3fence/pkg/models"
)

// Store is the storage interface every handler depends on, making it
// easy to swap the in-memory implementation for a persistent one without
// touching call sites.
type Store interface {
	AuditStore
	ApprovalStore

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// AuditStore persists one audit event per resolve/enforce decision.
type AuditStore interface {
	CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error)
	CountAuditEvents(ctx context.Context, filter models.AuditFilter) (int64, error)
	DeleteAuditEvent(ctx context.Context, id string) error
}

// ApprovalStore persists the "active contract" per session: the gate
// has_contract reads, and the signed-script bindings exec_signed reads.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, record *models.ApprovalRecord) error
	GetApproval(ctx context.Context, session string) (*models.ApprovalRecord, error)
	UpdateApproval(ctx context.Context, record *models.ApprovalRecord) error
	ListApprovals(ctx context.Context, active bool, limit int) ([]models.ApprovalRecord, error)
}

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
