package repository

import (
	"fmt"
	"time"
)

// InsertDetection persists one surviving labelled box (spec.md §4.3
// step 6: "Persist surviving detections to the Repository, one row per
// detection").
func (r *Repository) InsertDetection(d Detection) error {
	_, err := r.db.Exec(`
		INSERT INTO detections (stream_name, timestamp_ms, label, confidence, x, y, w, h, zone_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.StreamName, timeToMS(d.Timestamp), d.Label, d.Confidence, d.X, d.Y, d.W, d.H, d.ZoneID)
	if err != nil {
		return fmt.Errorf("insert detection: %w", err)
	}
	return nil
}

// GetDetectionsSince returns detections for a stream within the last
// maxAge, newest first — the rolling window the Recording Policy Engine
// consults (spec.md §4.3 "Recording decision").
func (r *Repository) GetDetectionsSince(stream string, maxAge time.Duration) ([]Detection, error) {
	cutoff := timeToMS(time.Now().Add(-maxAge))
	rows, err := r.db.Query(`
		SELECT stream_name, timestamp_ms, label, confidence, x, y, w, h, zone_id
		FROM detections
		WHERE stream_name = ? AND timestamp_ms >= ?
		ORDER BY timestamp_ms DESC
	`, stream, cutoff)
	if err != nil {
		return nil, fmt.Errorf("get detections since: %w", err)
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		var ts int64
		if err := rows.Scan(&d.StreamName, &ts, &d.Label, &d.Confidence, &d.X, &d.Y, &d.W, &d.H, &d.ZoneID); err != nil {
			return nil, err
		}
		d.Timestamp = msToTime(ts)
		out = append(out, d)
	}
	return out, rows.Err()
}
