package repository

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lenswatch/nvr-core/internal/logging"
)

const schemaVersion = 1

// Config holds SQLite connection-pool parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig mirrors the single-writer/WAL-reader shape recommended
// for an embedded, single-host deployment.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 8,
	}
}

// Repository is the SQLite-backed implementation of the typed query
// surface enumerated in spec.md §4.4.
type Repository struct {
	db     *sql.DB
	logger *logging.Logger
}

// Open creates the connection pool with mandatory WAL/foreign-key
// pragmas applied in the DSN so they bind to every pooled connection,
// then runs migrations.
func Open(path string, cfg Config) (*Repository, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, cfg.BusyTimeout.Milliseconds(),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: ping failed: %w", err)
	}

	r := &Repository{db: db, logger: logging.GetLogger("repository")}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: migration failed: %w", err)
	}
	return r, nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	var currentVersion int
	if err := r.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	schema := `
	CREATE TABLE IF NOT EXISTS streams (
		name TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recordings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stream_name TEXT NOT NULL,
		file_path TEXT NOT NULL UNIQUE,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		created_at_ms INTEGER NOT NULL,
		trigger_type TEXT NOT NULL,
		retention_tier TEXT NOT NULL DEFAULT 'standard',
		protected INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_recordings_stream_created ON recordings(stream_name, created_at_ms);
	CREATE INDEX IF NOT EXISTS idx_recordings_protected ON recordings(stream_name, protected);

	CREATE TABLE IF NOT EXISTS thumbnails (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recording_id INTEGER NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
		file_path TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_thumbnails_recording ON thumbnails(recording_id);

	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stream_name TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL,
		label TEXT NOT NULL,
		confidence REAL NOT NULL,
		x REAL NOT NULL, y REAL NOT NULL, w REAL NOT NULL, h REAL NOT NULL,
		zone_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_detections_stream_time ON detections(stream_name, timestamp_ms);

	CREATE TABLE IF NOT EXISTS zones (
		id TEXT PRIMARY KEY,
		stream_name TEXT NOT NULL,
		name TEXT NOT NULL,
		points_json TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		class_filter_json TEXT NOT NULL DEFAULT '[]',
		min_confidence REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_zones_stream ON zones(stream_name);

	CREATE TABLE IF NOT EXISTS sessions (
		stream_name TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		started_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func timeToMS(t time.Time) int64 {
	return t.UnixMilli()
}
