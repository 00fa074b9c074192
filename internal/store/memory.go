// Package store — in-memory Store implementation. Supports file-based
// snapshot persistence so audit and approval data survives restarts, the
// same debounced-save pattern used for the full domain store, narrowed
// here to the two record kinds this domain actually persists.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ck3fence/ck3fence/pkg/models"
	"github.com/rs/zerolog/log"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	AuditEvents []*models.AuditEvent              `json:"audit_events"`
	Approvals   map[string]*models.ApprovalRecord `json:"approvals"` // key: session
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu          sync.RWMutex
	auditEvents []*models.AuditEvent              // append-only log
	approvals   map[string]*models.ApprovalRecord // key: session

	snapshotPath string
	saveMu       sync.Mutex
	saveCh       chan struct{}
	doneCh       chan struct{}
}

// NewMemoryStore creates a new in-memory store. If CK3FENCE_DATA_DIR is
// set, data is persisted to a JSON file in that directory; otherwise it
// defaults to ~/.ck3fence/data.json.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		auditEvents: make([]*models.AuditEvent, 0),
		approvals:   make(map[string]*models.ApprovalRecord),
		saveCh:      make(chan struct{}, 1),
		doneCh:      make(chan struct{}),
	}

	dataDir := os.Getenv("CK3FENCE_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			dataDir = filepath.Join(home, ".ck3fence")
		}
	}
	if dataDir != "" {
		m.snapshotPath = filepath.Join(dataDir, "data.json")
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("cannot create data dir, persistence disabled")
			m.snapshotPath = ""
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("memory store configured")
	return m
}

func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
	}
}

func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond)
			m.saveSnapshot()
		}
	}
}

func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		AuditEvents: m.auditEvents,
		Approvals:   m.approvals,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("failed to rename snapshot")
		return
	}
	log.Debug().Str("path", m.snapshotPath).Msg("snapshot saved")
}

func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("no snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("failed to parse snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.AuditEvents != nil {
		m.auditEvents = snap.AuditEvents
	}
	if snap.Approvals != nil {
		m.approvals = snap.Approvals
	}
	log.Info().Int("audit_events", len(m.auditEvents)).Int("approvals", len(m.approvals)).
		Str("path", m.snapshotPath).Msg("snapshot loaded")
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close stops the background save goroutine and forces a final snapshot
// write. Safe to call multiple times.
func (m *MemoryStore) Close() error {
	select {
	case <-m.doneCh:
		return nil
	default:
		close(m.doneCh)
	}
	if m.snapshotPath != "" {
		log.Info().Msg("flushing final snapshot before shutdown")
		m.saveSnapshot()
	}
	log.Info().Msg("memory store closed")
	return nil
}

// ── Audit Store ─────────────────────────────────────────────

func (m *MemoryStore) CreateAuditEvent(_ context.Context, event *models.AuditEvent) error {
	m.mu.Lock()
	cp := *event
	m.auditEvents = append(m.auditEvents, &cp)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ListAuditEvents(_ context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.AuditEvent
	for i := len(m.auditEvents) - 1; i >= 0; i-- { // newest first
		e := m.auditEvents[i]
		if filter.Mode != "" && e.Mode != filter.Mode {
			continue
		}
		if filter.Code != "" && e.Code != filter.Code {
			continue
		}
		if filter.Session != "" && e.Session != filter.Session {
			continue
		}
		if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
			continue
		}
		result = append(result, *e)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryStore) CountAuditEvents(_ context.Context, filter models.AuditFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, e := range m.auditEvents {
		if filter.Mode != "" && e.Mode != filter.Mode {
			continue
		}
		if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *MemoryStore) DeleteAuditEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.auditEvents {
		if e.ID == id {
			m.auditEvents = append(m.auditEvents[:i], m.auditEvents[i+1:]...)
			return nil
		}
	}
	return &ErrNotFound{Entity: "audit_event", Key: id}
}

// ── Approval Store ──────────────────────────────────────────

func (m *MemoryStore) CreateApproval(_ context.Context, record *models.ApprovalRecord) error {
	m.mu.Lock()
	cp := *record
	m.approvals[record.Session] = &cp
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) GetApproval(_ context.Context, session string) (*models.ApprovalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.approvals[session]
	if !ok {
		return nil, &ErrNotFound{Entity: "approval", Key: session}
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) UpdateApproval(_ context.Context, record *models.ApprovalRecord) error {
	m.mu.Lock()
	cp := *record
	m.approvals[record.Session] = &cp
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ListApprovals(_ context.Context, active bool, limit int) ([]models.ApprovalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.ApprovalRecord
	for _, r := range m.approvals {
		if r.Active != active {
			continue
		}
		result = append(result, *r)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
