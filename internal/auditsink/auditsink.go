// Package auditsink adapts internal/store's AuditStore to the
// toolgateway.AuditSink interface, turning every resolve/enforce decision
// into a persisted models.AuditEvent.
package auditsink

import (
	"context"
	"time"

	"github.com/ck3fence/ck3fence/internal/store"
	"github.com/ck3fence/ck3fence/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Recorder implements toolgateway.AuditSink on top of an AuditStore.
type Recorder struct {
	Store store.AuditStore
}

// New creates a Recorder backed by s.
func New(s store.AuditStore) *Recorder {
	return &Recorder{Store: s}
}

// RecordAudit persists one audit event per resolve/enforce decision. Store
// failures are logged, not propagated — a broken audit sink must never
// block the resolver/enforcer call path it observes.
func (r *Recorder) RecordAudit(ctx context.Context, sessionID, mode, tool, command, rootKey, subdir, code string) {
	event := &models.AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Mode:      mode,
		Session:   sessionID,
		Tool:      tool,
		Command:   command,
		RootKey:   rootKey,
		Subdir:    subdir,
		Code:      code,
	}
	if err := r.Store.CreateAuditEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("failed to record audit event")
	}
}
