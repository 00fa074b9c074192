// Package retention periodically archives and/or purges aged audit events.
// ck3fence persists exactly one record kind worth aging out — C10 audit
// events — so the janitor carries a single-pass archive/purge lifecycle
// without the per-tenant sweep loop a multi-tenant trace+audit dual
// cleanup would need.
//
// Retention window: 30 days by default; ck3fence has no tiers, so this is
// simply the default, not a plan-gated value.
//
// Archive modes:
//   - none:              purge expired events (default, no archiver registered)
//   - archive-and-purge:  archive to durable store, then delete from hot store
//   - archive-only:       archive but keep in the hot store
//   - purge-only:         delete without archiving (explicit opt-in)
//
// The janitor runs as a background goroutine and respects context
// cancellation for graceful shutdown. Archive failures are fail-safe: audit
// events are NOT deleted if archiving fails.
package retention

import (
	"context"
	"sync"
	"time"

	"github.com/ck3fence/ck3fence/internal/store"
	"github.com/ck3fence/ck3fence/pkg/contracts"
	"github.com/ck3fence/ck3fence/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultAuditRetentionDays is the default audit event retention window.
const DefaultAuditRetentionDays = 30

// DefaultArchiveBatchSize is the max records per archive write.
const DefaultArchiveBatchSize = 5000

// ArchiveMode selects what the janitor does with expired audit events.
type ArchiveMode string

const (
	ArchiveModeNone            ArchiveMode = "none"
	ArchiveModeArchiveAndPurge ArchiveMode = "archive-and-purge"
	ArchiveModeArchiveOnly     ArchiveMode = "archive-only"
	ArchiveModePurgeOnly       ArchiveMode = "purge-only"
)

// CycleStats tracks what happened in a single retention cycle.
type CycleStats struct {
	Archived int
	Purged   int
	Errors   []error
}

// Janitor periodically archives and purges audit events older than
// RetentionDays.
type Janitor struct {
	store    store.AuditStore
	interval time.Duration

	retentionDays int
	mode          ArchiveMode

	archiveDrivers map[string]contracts.ArchiveDriver
	driverMu       sync.RWMutex
	defaultBackend string
}

// NewJanitor creates a retention janitor that sweeps on the given interval.
// An interval shorter than one minute is replaced by one hour.
func NewJanitor(s store.AuditStore, interval time.Duration) *Janitor {
	if interval < time.Minute {
		interval = time.Hour
	}
	return &Janitor{
		store:          s,
		interval:       interval,
		retentionDays:  DefaultAuditRetentionDays,
		mode:           ArchiveModeNone,
		archiveDrivers: make(map[string]contracts.ArchiveDriver),
	}
}

// SetRetentionDays overrides the default audit retention window.
func (j *Janitor) SetRetentionDays(days int) {
	if days > 0 {
		j.retentionDays = days
	}
}

// RegisterArchiver adds an archive driver. The first registered driver
// becomes the default backend, and switches the janitor into
// archive-and-purge mode.
func (j *Janitor) RegisterArchiver(driver contracts.ArchiveDriver) {
	j.driverMu.Lock()
	defer j.driverMu.Unlock()
	kind := driver.Kind()
	if len(j.archiveDrivers) == 0 {
		j.defaultBackend = kind
		j.mode = ArchiveModeArchiveAndPurge
	}
	j.archiveDrivers[kind] = driver
	log.Info().Str("kind", kind).Msg("archive driver registered")
}

// SetMode overrides the archive mode (e.g. to archive-only for migration
// validation, or purge-only to skip archiving entirely).
func (j *Janitor) SetMode(mode ArchiveMode) {
	j.mode = mode
}

// GetArchiver returns the registered driver for the given kind.
func (j *Janitor) GetArchiver(kind string) (contracts.ArchiveDriver, bool) {
	j.driverMu.RLock()
	defer j.driverMu.RUnlock()
	d, ok := j.archiveDrivers[kind]
	return d, ok
}

// Start runs one sweep immediately and then one per interval tick, in the
// calling goroutine. It blocks until ctx is canceled; pkg/server starts it
// with its own goroutine.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", j.interval).
		Int("retention_days", j.retentionDays).
		Str("mode", string(j.mode)).
		Msg("retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("retention janitor stopped")
			return
		case <-ticker.C:
			j.runCycle(ctx)
		}
	}
}

// runCycle performs one archive/purge sweep over expired audit events.
func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()

	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)
	expired, err := j.findExpired(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("retention janitor: failed to list audit events")
		return
	}
	if len(expired) == 0 {
		return
	}

	stats := CycleStats{}
	switch j.mode {
	case ArchiveModePurgeOnly:
		j.purge(ctx, expired, &stats)
	case ArchiveModeArchiveAndPurge:
		if !j.archiveAndPurge(ctx, expired, &stats) {
			log.Warn().Msg("archive failed — skipping purge (fail-safe)")
		}
	case ArchiveModeArchiveOnly:
		j.archive(ctx, expired, &stats)
	default:
		j.purge(ctx, expired, &stats)
	}

	for _, e := range stats.Errors {
		log.Warn().Err(e).Msg("retention cycle error")
	}

	if stats.Purged > 0 || stats.Archived > 0 {
		log.Info().
			Int("purged", stats.Purged).
			Int("archived", stats.Archived).
			Dur("elapsed", time.Since(start)).
			Msg("retention cycle complete")
	}
}

func (j *Janitor) findExpired(ctx context.Context, cutoff time.Time) ([]models.AuditEvent, error) {
	events, err := j.store.ListAuditEvents(ctx, models.AuditFilter{Limit: 50000})
	if err != nil {
		return nil, err
	}
	var expired []models.AuditEvent
	for _, e := range events {
		if e.Timestamp.Before(cutoff) {
			expired = append(expired, e)
		}
	}
	return expired, nil
}

func (j *Janitor) archiveAndPurge(ctx context.Context, events []models.AuditEvent, stats *CycleStats) bool {
	if !j.archive(ctx, events, stats) {
		return false
	}
	j.purge(ctx, events, stats)
	return true
}

func (j *Janitor) archive(ctx context.Context, events []models.AuditEvent, stats *CycleStats) bool {
	j.driverMu.RLock()
	driver, ok := j.archiveDrivers[j.defaultBackend]
	j.driverMu.RUnlock()
	if !ok {
		stats.Errors = append(stats.Errors, &archiveError{backend: j.defaultBackend, msg: "driver not registered"})
		return false
	}

	allOK := true
	for i := 0; i < len(events); i += DefaultArchiveBatchSize {
		end := i + DefaultArchiveBatchSize
		if end > len(events) {
			end = len(events)
		}
		batch := events[i:end]

		uri, err := driver.ArchiveAuditEvents(ctx, batch)
		if err != nil {
			log.Warn().Err(err).Str("backend", j.defaultBackend).Int("batch_size", len(batch)).
				Msg("failed to archive audit events")
			stats.Errors = append(stats.Errors, err)
			allOK = false
			continue
		}
		stats.Archived += len(batch)
		log.Debug().Str("uri", uri).Str("archive_id", uuid.New().String()).Int("count", len(batch)).
			Msg("audit events archived")
	}
	return allOK
}

func (j *Janitor) purge(ctx context.Context, events []models.AuditEvent, stats *CycleStats) {
	for _, e := range events {
		if err := j.store.DeleteAuditEvent(ctx, e.ID); err != nil {
			log.Warn().Err(err).Str("event_id", e.ID).Msg("failed to delete expired audit event")
			stats.Errors = append(stats.Errors, err)
			continue
		}
		stats.Purged++
	}
}

type archiveError struct {
	backend string
	msg     string
}

func (e *archiveError) Error() string {
	return "archive driver " + e.backend + ": " + e.msg
}
