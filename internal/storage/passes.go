package storage

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/constants"
	"github.com/lenswatch/nvr-core/internal/eventbus"
	"github.com/lenswatch/nvr-core/internal/logging"
	"github.com/lenswatch/nvr-core/internal/repository"
)

// standardCycle runs the retention, quota, tiered, and orphan passes for
// every configured stream, then refreshes the summary caches
// (spec.md §4.1 "Standard" row).
func (c *Controller) standardCycle() {
	start := time.Now()
	gcfg := c.globalCfg()

	streams, err := c.repo.GetAllStreamConfigs()
	if err != nil {
		c.logger.WithError(err).Error("standard cycle: failed to list stream configs")
		return
	}

	var totalDeleted int
	var totalFreed uint64
	for _, s := range streams {
		if config.SkipRetention(&s, &gcfg) {
			continue
		}
		d, f := c.retentionPass(s, gcfg)
		totalDeleted += d
		totalFreed += f
		d, f = c.quotaPass(s, gcfg)
		totalDeleted += d
		totalFreed += f
		d, f = c.tieredPass(s, gcfg)
		totalDeleted += d
		totalFreed += f
	}

	d, _ := c.orphanPass()
	totalDeleted += d

	c.refreshCache(streams)

	c.mu.Lock()
	c.lastStandard = time.Now()
	c.health.LastCleanupTime = time.Now()
	c.health.LastCleanupDeleted = totalDeleted
	c.health.LastCleanupFreed = totalFreed
	c.mu.Unlock()

	if totalDeleted > 0 {
		c.bus.Publish(eventbus.TopicStorageCleanup, map[string]any{
			"deleted":     totalDeleted,
			"freed_bytes": totalFreed,
			"elapsed_sec": time.Since(start).Seconds(),
			"pressure":    string(c.PressureLevel()),
		})
	}
}

// deepCycle runs session cleanup and then a full standard cycle
// (spec.md §4.1 "Deep" row).
func (c *Controller) deepCycle() {
	if n, err := c.repo.DeleteStaleSessions(c.cfg.SessionMaxAge); err != nil {
		c.logger.WithError(err).Error("deep cycle: session cleanup failed")
	} else if n > 0 {
		c.logger.WithFields(logging.Fields{"count": n}).Info("deep cycle: stale sessions removed")
	}

	c.standardCycle()

	c.mu.Lock()
	c.lastDeep = time.Now()
	c.health.LastDeepTime = time.Now()
	c.mu.Unlock()
}

// retentionPass implements spec.md §4.1 step 3: time-based deletion by
// the applicable horizon (regular vs detection, selected per-row by
// trigger_type).
func (c *Controller) retentionPass(s config.StreamConfig, gcfg config.StorageConfig) (deleted int, freed uint64) {
	retentionDays := config.EffectiveRetentionDays(&s, &gcfg)
	detectionDays := config.EffectiveDetectionRetentionDays(&s, &gcfg)

	recs, err := c.repo.GetRecordingsForRetention(s.Name, retentionDays, detectionDays, c.cfg.RetentionPassLimit)
	if err != nil {
		c.logger.WithError(err).WithFields(logging.Fields{"stream": s.Name}).Error("retention pass: query failed")
		return 0, 0
	}
	return c.deleteAll(recs)
}

// quotaPass implements spec.md §4.1 step 4: evict oldest-first until
// usage falls within max_storage_mb, or the eligibility list runs out.
func (c *Controller) quotaPass(s config.StreamConfig, gcfg config.StorageConfig) (deleted int, freed uint64) {
	maxMB := config.EffectiveMaxStorageMB(&s, &gcfg)
	if maxMB <= 0 {
		return 0, 0
	}
	limitBytes := maxMB * 1024 * 1024

	used, err := c.repo.GetStreamStorageBytes(s.Name)
	if err != nil {
		c.logger.WithError(err).WithFields(logging.Fields{"stream": s.Name}).Error("quota pass: usage query failed")
		return 0, 0
	}
	if int64(used) <= limitBytes {
		return 0, 0
	}
	overage := int64(used) - limitBytes

	recs, err := c.repo.GetRecordingsForQuotaEnforcement(s.Name, c.cfg.RetentionPassLimit)
	if err != nil {
		c.logger.WithError(err).WithFields(logging.Fields{"stream": s.Name}).Error("quota pass: eligibility query failed")
		return 0, 0
	}

	for _, rec := range recs {
		if freed >= uint64(overage) || !c.token.Running() {
			break
		}
		if c.deleteRecording(rec) {
			deleted++
			freed += uint64(rec.SizeBytes)
		}
	}
	return deleted, freed
}

// tieredPass implements the per-tier-multiplier age cutoff described in
// spec.md §4.1 "Tiered pass".
func (c *Controller) tieredPass(s config.StreamConfig, gcfg config.StorageConfig) (deleted int, freed uint64) {
	baseDays := config.EffectiveRetentionDays(&s, &gcfg)
	tiers := s.Tiers()

	recs, err := c.repo.GetRecordingsForTieredRetention(s.Name, baseDays, tiers.Critical, tiers.Important, tiers.Standard, tiers.Ephemeral, c.cfg.RetentionPassLimit)
	if err != nil {
		c.logger.WithError(err).WithFields(logging.Fields{"stream": s.Name}).Error("tiered pass: query failed")
		return 0, 0
	}
	return c.deleteAll(recs)
}

// orphanPass implements spec.md §4.1's safety-interlocked reconciliation
// of metadata rows whose backing file is gone.
func (c *Controller) orphanPass() (deleted int, freed uint64) {
	mp4Dir := filepath.Join(c.cfg.Root, constants.MP4SubdirName)

	if info, err := os.Stat(c.cfg.Root); err != nil || !info.IsDir() {
		c.logger.Error("orphan pass: storage root missing; skipping (mount loss guard)")
		return 0, 0
	}
	if info, err := os.Stat(mp4Dir); err != nil || !info.IsDir() {
		c.logger.Error("orphan pass: mp4 subdirectory missing; skipping (mount loss guard)")
		return 0, 0
	}

	orphans, checked, err := c.repo.GetOrphanedDBEntries(c.cfg.OrphanPassLimit)
	if err != nil {
		c.logger.WithError(err).Error("orphan pass: query failed")
		return 0, 0
	}
	if checked == 0 {
		return 0, 0
	}

	ratio := float64(len(orphans)) / float64(checked)
	if ratio > c.cfg.OrphanRatioThreshold && checked >= c.cfg.OrphanMinChecked {
		c.logger.WithFields(logging.Fields{"orphans": len(orphans), "checked": checked}).
			Error("orphan pass: protective skip, orphan ratio exceeded safety interlock")
		return 0, 0
	}

	for _, rec := range orphans {
		if !c.token.Running() {
			break
		}
		if err := c.repo.DeleteRecordingMetadata(rec.ID); err != nil {
			c.logger.WithError(err).WithFields(logging.Fields{"recording_id": rec.ID}).Error("orphan pass: metadata delete failed")
			continue
		}
		deleted++
	}
	return deleted, 0
}

// emergencyCleanup implements spec.md §4.1's "Emergency cleanup": delete
// pressure-eligible recordings (ephemeral tier first, then oldest) until
// the disk leaves Emergency pressure or the candidate list is exhausted.
func (c *Controller) emergencyCleanup(aggressive bool) {
	limit := c.cfg.EmergencyCleanupLimit
	if aggressive {
		limit = c.cfg.EmergencyCleanupAggLimit
	}

	recs, err := c.repo.GetRecordingsForPressureCleanup(limit)
	if err != nil {
		c.logger.WithError(err).Error("emergency cleanup: query failed")
		return
	}

	var deleted int
	var freed uint64
	for _, rec := range recs {
		if !c.token.Running() {
			break
		}
		if c.deleteRecording(rec) {
			deleted++
			freed += uint64(rec.SizeBytes)
		}
		if c.leftEmergency() {
			break
		}
	}

	c.mu.Lock()
	c.health.LastCleanupTime = time.Now()
	c.health.LastCleanupDeleted = deleted
	c.health.LastCleanupFreed = freed
	c.mu.Unlock()

	if deleted > 0 {
		c.bus.Publish(eventbus.TopicStorageCleanup, map[string]any{
			"deleted":     deleted,
			"freed_bytes": freed,
			"pressure":    string(c.PressureLevel()),
		})
	}
}

func (c *Controller) leftEmergency() bool {
	total, free, err := c.diskUsage(c.cfg.Root)
	if err != nil || total == 0 {
		return false
	}
	_, _, critical := resolveFloors(c.globalCfg())
	return float64(free)/float64(total)*100 >= critical
}

// refreshCache rebuilds the per-stream byte-total summary consumed by
// the public query API (spec.md §4.1 "Cache refresh").
func (c *Controller) refreshCache(streams []config.StreamConfig) {
	cache := make(map[string]uint64, len(streams))
	for _, s := range streams {
		used, err := c.repo.GetStreamStorageBytes(s.Name)
		if err != nil {
			continue
		}
		cache[s.Name] = used
	}
	c.mu.Lock()
	c.streamBytes = cache
	c.mu.Unlock()
}

// StreamBytes returns the cached byte total for a stream, refreshed on
// the last standard cycle.
func (c *Controller) StreamBytes(name string) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.streamBytes[name]
	return v, ok
}

func (c *Controller) deleteAll(recs []repository.Recording) (deleted int, freed uint64) {
	for _, rec := range recs {
		if !c.token.Running() {
			break
		}
		if c.deleteRecording(rec) {
			deleted++
			freed += uint64(rec.SizeBytes)
		}
	}
	return deleted, freed
}

// deleteRecording removes the backing file (ENOENT tolerated) and the
// metadata row (which cascades to thumbnails). Logs and continues on
// any other failure (spec.md §4.1 "Failure semantics").
func (c *Controller) deleteRecording(rec repository.Recording) bool {
	if err := os.Remove(rec.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.WithError(err).WithFields(logging.Fields{"path": rec.FilePath}).Error("failed to unlink recording file")
	}
	if err := c.repo.DeleteRecordingMetadata(rec.ID); err != nil {
		c.logger.WithError(err).WithFields(logging.Fields{"recording_id": rec.ID}).Error("failed to delete recording metadata")
		return false
	}
	return true
}
