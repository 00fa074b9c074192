package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck3fence/ck3fence/internal/store"
	"github.com/ck3fence/ck3fence/pkg/models"
)

// newTestStore creates a fresh in-memory store for tests, persisting its
// snapshot into a per-test temporary directory.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dir := t.TempDir()
	os.Setenv("CK3FENCE_DATA_DIR", dir)
	defer os.Unsetenv("CK3FENCE_DATA_DIR")
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndListAuditEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateAuditEvent(ctx, &models.AuditEvent{
		ID:        "ev-1",
		Timestamp: time.Now().UTC(),
		Mode:      "ck3raven-dev",
		Tool:      "file",
		Command:   "read",
		RootKey:   "repo",
		Code:      "WA-RES-S-001",
	}))
	require.NoError(t, s.CreateAuditEvent(ctx, &models.AuditEvent{
		ID:        "ev-2",
		Timestamp: time.Now().UTC(),
		Mode:      "ck3lens",
		Tool:      "file",
		Command:   "write",
		RootKey:   "game",
		Code:      "EN-WRITE-D-001",
	}))

	events, err := s.ListAuditEvents(ctx, models.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, "ev-2", events[0].ID)

	filtered, err := s.ListAuditEvents(ctx, models.AuditFilter{Mode: "ck3lens"})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
	assert.Equal(t, "ev-2", filtered[0].ID)
}

func TestCountAuditEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateAuditEvent(ctx, &models.AuditEvent{
			ID:        "ev-" + string(rune('a'+i)),
			Timestamp: time.Now().UTC(),
			Mode:      "ck3raven-dev",
			Code:      "WA-RES-S-001",
		}))
	}

	count, err := s.CountAuditEvents(ctx, models.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestDeleteAuditEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateAuditEvent(ctx, &models.AuditEvent{ID: "del-me", Timestamp: time.Now().UTC()}))
	require.NoError(t, s.DeleteAuditEvent(ctx, "del-me"))

	_, err := s.CountAuditEvents(ctx, models.AuditFilter{})
	require.NoError(t, err)

	events, err := s.ListAuditEvents(ctx, models.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestApprovalCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.ApprovalRecord{
		Session:   "sess-1",
		Active:    true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateApproval(ctx, rec))

	got, err := s.GetApproval(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, got.Active)

	rec.Active = false
	require.NoError(t, s.UpdateApproval(ctx, rec))

	got, err = s.GetApproval(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = s.GetApproval(ctx, "missing")
	assert.Error(t, err)
}

func TestListApprovalsByActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateApproval(ctx, &models.ApprovalRecord{Session: "a", Active: true}))
	require.NoError(t, s.CreateApproval(ctx, &models.ApprovalRecord{Session: "b", Active: false}))

	active, err := s.ListApprovals(ctx, true, 0)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, "a", active[0].Session)
}

func TestCloseFlush(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("CK3FENCE_DATA_DIR", dir)
	s := store.NewMemoryStore()
	os.Unsetenv("CK3FENCE_DATA_DIR")

	ctx := context.Background()
	require.NoError(t, s.CreateApproval(ctx, &models.ApprovalRecord{Session: "persist-me", Active: true}))

	// Close should flush to disk.
	require.NoError(t, s.Close())

	// Reopen and verify data survived.
	os.Setenv("CK3FENCE_DATA_DIR", dir)
	s2 := store.NewMemoryStore()
	os.Unsetenv("CK3FENCE_DATA_DIR")
	defer s2.Close()

	got, err := s2.GetApproval(ctx, "persist-me")
	require.NoError(t, err)
	assert.True(t, got.Active)
}
