// Package contracts defines the small set of service interfaces that sit
// at ck3fence's pluggability boundaries: the storage backend and the
// archive backend. Both live in pkg/ so an alternate deployment (e.g. a
// PostgreSQL-backed store, or an S3 archive driver) can implement them
// without importing internal/.
package contracts

import (
	"context"

	"github.com/ck3fence/ck3fence/internal/store"
	"github.com/ck3fence/ck3fence/pkg/models"
)

// Store is a type alias for the internal Store interface.
type Store = store.Store

// ErrNotFound is a type alias for the internal ErrNotFound error.
type ErrNotFound = store.ErrNotFound

// ── Archive Driver ───────────────────────────────────────────

// ArchiveDriver writes expired audit events to a durable archive backend.
// The default ships LocalFileArchiver (JSONL to disk); a production
// deployment can register S3/GCS/Azure Blob drivers instead.
type ArchiveDriver interface {
	Kind() string
	ArchiveAuditEvents(ctx context.Context, events []models.AuditEvent) (uri string, err error)
	HealthCheck(ctx context.Context) error
}
