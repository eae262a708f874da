package repository

import (
	"fmt"
	"time"
)

// Session is a detection-worker/HLS-viewer session bookkeeping row
// (SPEC_FULL.md "Sessions" supplement). It carries no auth semantics —
// only enough shape for the Deep cycle's session cleanup to act on.
type Session struct {
	StreamName string
	State      string
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// UpsertSession records or refreshes a stream's current session state.
func (r *Repository) UpsertSession(s Session) error {
	now := timeToMS(time.Now())
	started := timeToMS(s.StartedAt)
	_, err := r.db.Exec(`
		INSERT INTO sessions (stream_name, state, started_at_ms, updated_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(stream_name) DO UPDATE SET state = excluded.state, updated_at_ms = excluded.updated_at_ms
	`, s.StreamName, s.State, started, now)
	if err != nil {
		return fmt.Errorf("upsert session %q: %w", s.StreamName, err)
	}
	return nil
}

// DeleteStaleSessions removes session rows not updated within maxAge,
// swept by the Storage Controller's Deep cycle. Returns the count
// removed.
func (r *Repository) DeleteStaleSessions(maxAge time.Duration) (int64, error) {
	cutoff := timeToMS(time.Now().Add(-maxAge))
	res, err := r.db.Exec(`DELETE FROM sessions WHERE updated_at_ms < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	return res.RowsAffected()
}
