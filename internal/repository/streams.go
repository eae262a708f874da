package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lenswatch/nvr-core/internal/config"
)

// GetAllStreamConfigs returns every persisted stream configuration.
func (r *Repository) GetAllStreamConfigs() ([]config.StreamConfig, error) {
	rows, err := r.db.Query(`SELECT config_json FROM streams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("get all stream configs: %w", err)
	}
	defer rows.Close()

	var out []config.StreamConfig
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var s config.StreamConfig
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decode stream config: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetStreamConfig returns one stream's configuration by name, or
// (zero-value, false) if it doesn't exist.
func (r *Repository) GetStreamConfig(name string) (config.StreamConfig, bool, error) {
	var raw string
	err := r.db.QueryRow(`SELECT config_json FROM streams WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return config.StreamConfig{}, false, nil
	}
	if err != nil {
		return config.StreamConfig{}, false, fmt.Errorf("get stream config %q: %w", name, err)
	}
	var s config.StreamConfig
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return config.StreamConfig{}, false, fmt.Errorf("decode stream config: %w", err)
	}
	return s, true, nil
}

// UpsertStreamConfig creates or replaces a stream's persisted
// configuration. Name changes are full identity changes (spec.md §3):
// callers delete the old name and insert the new one rather than
// renaming in place.
func (r *Repository) UpsertStreamConfig(s config.StreamConfig) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode stream config: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO streams (name, config_json, updated_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET config_json = excluded.config_json, updated_at_ms = excluded.updated_at_ms
	`, s.Name, string(raw), timeToMS(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert stream config %q: %w", s.Name, err)
	}
	return nil
}

// DeleteStreamConfig removes a stream's persisted configuration.
func (r *Repository) DeleteStreamConfig(name string) error {
	_, err := r.db.Exec(`DELETE FROM streams WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete stream config %q: %w", name, err)
	}
	return nil
}

// GetStreamRetentionConfig resolves the effective retention view for a
// stream (spec.md §4.1 step 1), falling back to global storage settings
// when the stream leaves a knob at its zero value.
func (r *Repository) GetStreamRetentionConfig(name string, global config.StorageConfig) (RetentionConfig, error) {
	s, ok, err := r.GetStreamConfig(name)
	if err != nil {
		return RetentionConfig{}, err
	}
	if !ok {
		return RetentionConfig{}, fmt.Errorf("get stream retention config: stream %q not found", name)
	}
	tiers := s.Tiers()
	return RetentionConfig{
		RetentionDays:          config.EffectiveRetentionDays(&s, &global),
		DetectionRetentionDays: config.EffectiveDetectionRetentionDays(&s, &global),
		MaxStorageMB:           config.EffectiveMaxStorageMB(&s, &global),
		TierCriticalMult:       tiers.Critical,
		TierImportantMult:      tiers.Important,
		TierStandardMult:       tiers.Standard,
		TierEphemeralMult:      tiers.Ephemeral,
	}, nil
}
