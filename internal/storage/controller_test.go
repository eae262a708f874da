package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/eventbus"
	"github.com/lenswatch/nvr-core/internal/repository"
)

func newTestController(t *testing.T, diskUsage DiskUsageFunc) (*Controller, *repository.Repository, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mp4"), 0o755))

	repo, err := repository.Open(filepath.Join(root, "test.db"), repository.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := eventbus.New()
	globalCfg := func() config.StorageConfig {
		return config.StorageConfig{StoragePath: root, RetentionDays: 30}
	}
	if diskUsage == nil {
		diskUsage = func(string) (uint64, uint64, error) { return 100 * 1024 * 1024 * 1024, 50 * 1024 * 1024 * 1024, nil }
	}

	cfg := DefaultConfig(root)
	c := New(repo, bus, globalCfg, diskUsage, cfg)
	return c, repo, root
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestClassify_Thresholds(t *testing.T) {
	assert.Equal(t, PressureNormal, classify(25, 20, 10, 5))
	assert.Equal(t, PressureElevated, classify(15, 20, 10, 5))
	assert.Equal(t, PressureCritical, classify(7, 20, 10, 5))
	assert.Equal(t, PressureEmergency, classify(3, 20, 10, 5))
	assert.Equal(t, classify(9, 20, 10, 5), classify(9, 20, 10, 5), "pure function: same input, same output")
}

func TestQuotaPass_EvictsOldestFirstUntilWithinQuota(t *testing.T) {
	c, repo, root := newTestController(t, nil)

	s := config.StreamConfig{Name: "cam1", MaxStorageMB: 10}
	require.NoError(t, repo.UpsertStreamConfig(s))

	ages := []time.Duration{10 * 24 * time.Hour, 9 * 24 * time.Hour, 8 * 24 * time.Hour, 7 * 24 * time.Hour, 6 * 24 * time.Hour}
	for i, age := range ages {
		path := filepath.Join(root, "mp4", "cam1", "rec"+string(rune('0'+i))+".mp4")
		writeFile(t, path)
		_, err := repo.InsertRecording(repository.Recording{
			StreamName: "cam1", FilePath: path, SizeBytes: 3 * 1024 * 1024,
			CreatedAt: time.Now().Add(-age), TriggerType: repository.TriggerContinuous, RetentionTier: repository.TierStandard,
		})
		require.NoError(t, err)
	}

	deleted, freed := c.quotaPass(s, config.StorageConfig{RetentionDays: 30})
	assert.Equal(t, 2, deleted)
	assert.GreaterOrEqual(t, freed, uint64(6*1024*1024))

	used, err := repo.GetStreamStorageBytes("cam1")
	require.NoError(t, err)
	assert.Equal(t, uint64(9*1024*1024), used)
}

func TestOrphanPass_SafetyInterlockRefusesWhenRatioExceeded(t *testing.T) {
	c, repo, root := newTestController(t, nil)

	for i := 0; i < 30; i++ {
		path := filepath.Join(root, "mp4", "missing", "rec"+string(rune('a'+i))+".mp4")
		if i < 20 {
			// leave missing: 20 orphans
		} else {
			writeFile(t, path)
		}
		_, err := repo.InsertRecording(repository.Recording{
			StreamName: "cam1", FilePath: path, SizeBytes: 1024,
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour), TriggerType: repository.TriggerContinuous, RetentionTier: repository.TierStandard,
		})
		require.NoError(t, err)
	}

	deleted, _ := c.orphanPass()
	assert.Equal(t, 0, deleted, "interlock must refuse: 20/30 orphans exceeds 0.5 ratio with checked >= 10")
}

func TestOrphanPass_SkippedWhenMP4DirMissing(t *testing.T) {
	c, repo, root := newTestController(t, nil)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "mp4")))

	_, err := repo.InsertRecording(repository.Recording{
		StreamName: "cam1", FilePath: "/does/not/exist.mp4", SizeBytes: 1024,
		CreatedAt: time.Now(), TriggerType: repository.TriggerContinuous, RetentionTier: repository.TierStandard,
	})
	require.NoError(t, err)

	deleted, _ := c.orphanPass()
	assert.Equal(t, 0, deleted)
}

func TestOrphanPass_DeletesBelowInterlockThreshold(t *testing.T) {
	c, repo, root := newTestController(t, nil)

	for i := 0; i < 10; i++ {
		path := filepath.Join(root, "mp4", "cam1", "rec"+string(rune('a'+i))+".mp4")
		if i < 2 {
			// 2 orphans out of 10 => ratio 0.2, below threshold
		} else {
			writeFile(t, path)
		}
		_, err := repo.InsertRecording(repository.Recording{
			StreamName: "cam1", FilePath: path, SizeBytes: 1024,
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour), TriggerType: repository.TriggerContinuous, RetentionTier: repository.TierStandard,
		})
		require.NoError(t, err)
	}

	deleted, _ := c.orphanPass()
	assert.Equal(t, 2, deleted)
}

func TestEmergencyCleanup_PrefersEphemeralThenOldest(t *testing.T) {
	c, repo, root := newTestController(t, nil)

	oldStandardPath := filepath.Join(root, "mp4", "cam1", "old-standard.mp4")
	ephemeralPath := filepath.Join(root, "mp4", "cam1", "ephemeral.mp4")
	writeFile(t, oldStandardPath)
	writeFile(t, ephemeralPath)

	_, err := repo.InsertRecording(repository.Recording{
		StreamName: "cam1", FilePath: oldStandardPath, SizeBytes: 1024,
		CreatedAt: time.Now().Add(-48 * time.Hour), TriggerType: repository.TriggerContinuous, RetentionTier: repository.TierStandard,
	})
	require.NoError(t, err)
	_, err = repo.InsertRecording(repository.Recording{
		StreamName: "cam1", FilePath: ephemeralPath, SizeBytes: 1024,
		CreatedAt: time.Now().Add(-1 * time.Hour), TriggerType: repository.TriggerContinuous, RetentionTier: repository.TierEphemeral,
	})
	require.NoError(t, err)

	recs, err := repo.GetRecordingsForPressureCleanup(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, repository.TierEphemeral, recs[0].RetentionTier, "ephemeral tier must be evicted before older standard-tier recordings")

	c.emergencyCleanup(true)
	_, exists, err := repo.GetRecordingMetadataByPath(ephemeralPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHeartbeat_PublishesExactlyOnePressureChangeEvent(t *testing.T) {
	level := 22.0
	c, _, _ := newTestController(t, func(string) (uint64, uint64, error) {
		return 100, uint64(level), nil
	})

	var events []map[string]any
	c.bus.Subscribe(eventbus.TopicStoragePressure, func(m eventbus.Message) {
		events = append(events, m.Data)
	})

	c.heartbeat() // first heartbeat always publishes the initial level
	assert.Len(t, events, 1)

	level = 9.0
	c.heartbeat()
	require.Len(t, events, 2)
	assert.Equal(t, "normal", events[1]["previous"])
	assert.Equal(t, "critical", events[1]["current"])

	level = 22.0
	c.heartbeat()
	assert.Len(t, events, 3, "level changed back to normal, so a third event is published")

	c.heartbeat()
	assert.Len(t, events, 3, "level unchanged since last heartbeat: no duplicate event")
}

func TestTriggerCleanup_SecondCallWithNoNewRecordingsDeletesNothing(t *testing.T) {
	c, repo, _ := newTestController(t, nil)
	require.NoError(t, repo.UpsertStreamConfig(config.StreamConfig{Name: "cam1"}))

	c.standardCycle()
	first := c.HealthSnapshot().LastCleanupDeleted

	c.standardCycle()
	second := c.HealthSnapshot().LastCleanupDeleted

	assert.Equal(t, 0, first)
	assert.Equal(t, 0, second)
}
