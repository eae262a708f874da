package repository

import (
	"encoding/json"
	"fmt"
)

// GetDetectionZones returns the enabled and disabled zones configured
// for a stream; callers filter on Enabled themselves (spec.md §4.3
// step 4 applies only to enabled zones).
func (r *Repository) GetDetectionZones(stream string) ([]Zone, error) {
	rows, err := r.db.Query(`
		SELECT id, stream_name, name, points_json, enabled, class_filter_json, min_confidence
		FROM zones WHERE stream_name = ?
	`, stream)
	if err != nil {
		return nil, fmt.Errorf("get detection zones: %w", err)
	}
	defer rows.Close()

	var out []Zone
	for rows.Next() {
		var z Zone
		var pointsJSON, classJSON string
		var enabled int
		if err := rows.Scan(&z.ID, &z.StreamName, &z.Name, &pointsJSON, &enabled, &classJSON, &z.MinConfidence); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pointsJSON), &z.Points); err != nil {
			return nil, fmt.Errorf("decode zone points: %w", err)
		}
		if err := json.Unmarshal([]byte(classJSON), &z.ClassFilter); err != nil {
			return nil, fmt.Errorf("decode zone class filter: %w", err)
		}
		z.Enabled = enabled != 0
		out = append(out, z)
	}
	return out, rows.Err()
}

// UpsertZone creates or replaces a stream's named polygon.
func (r *Repository) UpsertZone(z Zone) error {
	pointsJSON, err := json.Marshal(z.Points)
	if err != nil {
		return fmt.Errorf("encode zone points: %w", err)
	}
	classJSON, err := json.Marshal(z.ClassFilter)
	if err != nil {
		return fmt.Errorf("encode zone class filter: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO zones (id, stream_name, name, points_json, enabled, class_filter_json, min_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			stream_name = excluded.stream_name,
			name = excluded.name,
			points_json = excluded.points_json,
			enabled = excluded.enabled,
			class_filter_json = excluded.class_filter_json,
			min_confidence = excluded.min_confidence
	`, z.ID, z.StreamName, z.Name, string(pointsJSON), boolToInt(z.Enabled), string(classJSON), z.MinConfidence)
	if err != nil {
		return fmt.Errorf("upsert zone %q: %w", z.ID, err)
	}
	return nil
}

// DeleteZone removes a zone by id.
func (r *Repository) DeleteZone(id string) error {
	_, err := r.db.Exec(`DELETE FROM zones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete zone %q: %w", id, err)
	}
	return nil
}
