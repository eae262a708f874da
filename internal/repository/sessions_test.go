package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_UpsertAndDeleteStale(t *testing.T) {
	repo := openTestRepo(t)

	require.NoError(t, repo.UpsertSession(Session{StreamName: "cam1", State: "active", StartedAt: time.Now()}))
	require.NoError(t, repo.UpsertSession(Session{StreamName: "cam1", State: "idle", StartedAt: time.Now()}))

	n, err := repo.DeleteStaleSessions(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	var updatedMS int64
	require.NoError(t, repo.db.QueryRow(`SELECT updated_at_ms FROM sessions WHERE stream_name = ?`, "cam1").Scan(&updatedMS))
	_, err = repo.db.Exec(`UPDATE sessions SET updated_at_ms = ? WHERE stream_name = ?`, timeToMS(time.Now().Add(-2*time.Hour)), "cam1")
	require.NoError(t, err)

	n, err = repo.DeleteStaleSessions(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
