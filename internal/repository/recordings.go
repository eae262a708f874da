package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// InsertRecording creates the metadata row for a newly opened MP4
// segment (spec.md §3: "created by the MediaPipeline at recording
// start"). Returns the assigned row id.
func (r *Repository) InsertRecording(rec Recording) (int64, error) {
	if rec.RetentionTier == "" {
		rec.RetentionTier = TierStandard
	}
	res, err := r.db.Exec(`
		INSERT INTO recordings (stream_name, file_path, size_bytes, created_at_ms, trigger_type, retention_tier, protected)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.StreamName, rec.FilePath, rec.SizeBytes, timeToMS(rec.CreatedAt), string(rec.TriggerType), string(rec.RetentionTier), boolToInt(rec.Protected))
	if err != nil {
		return 0, fmt.Errorf("insert recording: %w", err)
	}
	return res.LastInsertId()
}

// FinalizeRecordingSize updates size_bytes when a recording closes.
func (r *Repository) FinalizeRecordingSize(id int64, sizeBytes int64) error {
	_, err := r.db.Exec(`UPDATE recordings SET size_bytes = ? WHERE id = ?`, sizeBytes, id)
	if err != nil {
		return fmt.Errorf("finalize recording size %d: %w", id, err)
	}
	return nil
}

// GetRecordingsForRetention implements spec.md §4.1 step 3: recordings
// older than the applicable horizon (regular retention for continuous/
// scheduled/manual triggers, detection retention for detection-
// triggered ones), excluding protected rows, oldest first, capped at
// limit.
func (r *Repository) GetRecordingsForRetention(stream string, retentionDays, detectionRetentionDays int, limit int) ([]Recording, error) {
	now := time.Now()
	regularCutoff := timeToMS(now.AddDate(0, 0, -retentionDays))
	detectionCutoff := timeToMS(now.AddDate(0, 0, -detectionRetentionDays))

	rows, err := r.db.Query(`
		SELECT id, stream_name, file_path, size_bytes, created_at_ms, trigger_type, retention_tier, protected
		FROM recordings
		WHERE stream_name = ? AND protected = 0
		  AND (
		    (trigger_type = 'detection' AND created_at_ms < ?)
		    OR (trigger_type != 'detection' AND created_at_ms < ?)
		  )
		ORDER BY created_at_ms ASC
		LIMIT ?
	`, stream, detectionCutoff, regularCutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("get recordings for retention: %w", err)
	}
	defer rows.Close()
	return scanRecordings(rows)
}

// GetRecordingsForTieredRetention implements spec.md §4.1's tiered
// pass: recordings whose age exceeds base_retention_days × the
// multiplier for their own tier.
func (r *Repository) GetRecordingsForTieredRetention(stream string, baseDays int, critical, important, standard, ephemeral float64, limit int) ([]Recording, error) {
	now := time.Now()
	mult := map[RetentionTier]float64{
		TierCritical:  critical,
		TierImportant: important,
		TierStandard:  standard,
		TierEphemeral: ephemeral,
	}

	rows, err := r.db.Query(`
		SELECT id, stream_name, file_path, size_bytes, created_at_ms, trigger_type, retention_tier, protected
		FROM recordings
		WHERE stream_name = ? AND protected = 0
		ORDER BY created_at_ms ASC
	`, stream)
	if err != nil {
		return nil, fmt.Errorf("get recordings for tiered retention: %w", err)
	}
	defer rows.Close()

	all, err := scanRecordings(rows)
	if err != nil {
		return nil, err
	}

	var out []Recording
	for _, rec := range all {
		m := mult[rec.RetentionTier]
		if m <= 0 {
			m = 1.0
		}
		cutoff := now.AddDate(0, 0, -int(float64(baseDays)*m))
		if rec.CreatedAt.Before(cutoff) {
			out = append(out, rec)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// GetRecordingsForQuotaEnforcement returns unprotected recordings for a
// stream oldest-first, for eviction until the quota overage is covered
// (spec.md §4.1 step 4).
func (r *Repository) GetRecordingsForQuotaEnforcement(stream string, limit int) ([]Recording, error) {
	rows, err := r.db.Query(`
		SELECT id, stream_name, file_path, size_bytes, created_at_ms, trigger_type, retention_tier, protected
		FROM recordings
		WHERE stream_name = ? AND protected = 0
		ORDER BY created_at_ms ASC
		LIMIT ?
	`, stream, limit)
	if err != nil {
		return nil, fmt.Errorf("get recordings for quota enforcement: %w", err)
	}
	defer rows.Close()
	return scanRecordings(rows)
}

// GetRecordingsForPressureCleanup returns unprotected recordings across
// all streams ordered ephemeral-first, then oldest-first, for the
// emergency reclaim pass (spec.md §4.1 "Emergency cleanup").
func (r *Repository) GetRecordingsForPressureCleanup(limit int) ([]Recording, error) {
	rows, err := r.db.Query(`
		SELECT id, stream_name, file_path, size_bytes, created_at_ms, trigger_type, retention_tier, protected
		FROM recordings
		WHERE protected = 0
		ORDER BY
		  CASE retention_tier
		    WHEN 'ephemeral' THEN 0
		    WHEN 'standard' THEN 1
		    WHEN 'important' THEN 2
		    WHEN 'critical' THEN 3
		    ELSE 1
		  END ASC,
		  created_at_ms ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get recordings for pressure cleanup: %w", err)
	}
	defer rows.Close()
	return scanRecordings(rows)
}

// GetOrphanedDBEntries scans up to limit candidate rows (oldest first)
// and reports which ones no longer exist on disk, along with how many
// were checked — the caller applies the safety-interlock ratio test
// (spec.md §4.1 "Orphan pass").
func (r *Repository) GetOrphanedDBEntries(limit int) ([]Recording, int, error) {
	rows, err := r.db.Query(`
		SELECT id, stream_name, file_path, size_bytes, created_at_ms, trigger_type, retention_tier, protected
		FROM recordings
		ORDER BY created_at_ms ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("get orphaned db entries: %w", err)
	}
	defer rows.Close()

	candidates, err := scanRecordings(rows)
	if err != nil {
		return nil, 0, err
	}

	var orphans []Recording
	for _, rec := range candidates {
		if _, statErr := os.Stat(rec.FilePath); errors.Is(statErr, os.ErrNotExist) {
			orphans = append(orphans, rec)
		}
	}
	return orphans, len(candidates), nil
}

// GetStreamStorageBytes sums size_bytes across all of a stream's
// recordings, used for the quota pass's "current usage" figure.
func (r *Repository) GetStreamStorageBytes(stream string) (uint64, error) {
	var total sql.NullInt64
	err := r.db.QueryRow(`SELECT SUM(size_bytes) FROM recordings WHERE stream_name = ?`, stream).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("get stream storage bytes %q: %w", stream, err)
	}
	if !total.Valid {
		return 0, nil
	}
	return uint64(total.Int64), nil
}

// DeleteRecordingMetadata removes a recording's metadata row and any
// thumbnails referencing it.
func (r *Repository) DeleteRecordingMetadata(id int64) error {
	if _, err := r.db.Exec(`DELETE FROM thumbnails WHERE recording_id = ?`, id); err != nil {
		return fmt.Errorf("delete thumbnails for recording %d: %w", id, err)
	}
	if _, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete recording metadata %d: %w", id, err)
	}
	return nil
}

// GetRecordingMetadataByPath looks up a recording by its absolute file
// path, or (zero-value, false) if no row references it.
func (r *Repository) GetRecordingMetadataByPath(path string) (Recording, bool, error) {
	row := r.db.QueryRow(`
		SELECT id, stream_name, file_path, size_bytes, created_at_ms, trigger_type, retention_tier, protected
		FROM recordings WHERE file_path = ?
	`, path)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Recording{}, false, nil
	}
	if err != nil {
		return Recording{}, false, fmt.Errorf("get recording metadata by path: %w", err)
	}
	return rec, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (Recording, error) {
	var rec Recording
	var createdMS int64
	var trigger, tier string
	var protected int
	err := row.Scan(&rec.ID, &rec.StreamName, &rec.FilePath, &rec.SizeBytes, &createdMS, &trigger, &tier, &protected)
	if err != nil {
		return Recording{}, err
	}
	rec.CreatedAt = msToTime(createdMS)
	rec.TriggerType = TriggerType(trigger)
	rec.RetentionTier = RetentionTier(tier)
	rec.Protected = protected != 0
	return rec, nil
}

func scanRecordings(rows *sql.Rows) ([]Recording, error) {
	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
