package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestConfigManager_Load_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  storage_path: /var/lib/nvr
streams:
  - name: front-door
    source_url: rtsp://cam/front
`)

	cm := NewConfigManager()
	require.NoError(t, cm.Load(path))

	cfg := cm.Get()
	assert.Equal(t, 30, cfg.Storage.RetentionDays, "absent key should take viper's default")
	assert.Equal(t, 20.0, cfg.Storage.PressureNormal)
	assert.Equal(t, 0.5, cfg.Streams[0].DetectionThreshold)
	assert.Equal(t, 10, cfg.Streams[0].DetectionInterval)
	assert.Equal(t, 5*time.Second, cfg.Streams[0].PreDetectionBuffer)
}

func TestConfigManager_Load_ExplicitZeroRetentionIsHonored(t *testing.T) {
	path := writeConfig(t, `
storage:
  storage_path: /var/lib/nvr
  retention_days: 0
streams:
  - name: front-door
    source_url: rtsp://cam/front
`)

	cm := NewConfigManager()
	require.NoError(t, cm.Load(path))

	assert.Equal(t, 0, cm.Get().Storage.RetentionDays,
		"an explicit retention_days: 0 must not be overwritten by the 30-day default")
}

func TestConfigManager_Load_MissingStoragePathFails(t *testing.T) {
	path := writeConfig(t, `
storage: {}
streams: []
`)

	cm := NewConfigManager()
	err := cm.Load(path)
	require.Error(t, err)
}

func TestConfigManager_Load_DuplicateStreamNameFails(t *testing.T) {
	path := writeConfig(t, `
storage:
  storage_path: /var/lib/nvr
streams:
  - name: front-door
    source_url: rtsp://cam/a
  - name: front-door
    source_url: rtsp://cam/b
`)

	cm := NewConfigManager()
	err := cm.Load(path)
	require.Error(t, err)
}

func TestConfigManager_GetStream(t *testing.T) {
	path := writeConfig(t, `
storage:
  storage_path: /var/lib/nvr
streams:
  - name: front-door
    source_url: rtsp://cam/front
`)

	cm := NewConfigManager()
	require.NoError(t, cm.Load(path))

	s, ok := cm.GetStream("front-door")
	require.True(t, ok)
	assert.Equal(t, "rtsp://cam/front", s.Source)

	_, ok = cm.GetStream("missing")
	assert.False(t, ok)
}

func TestConfigManager_OnUpdate_FiresOnReload(t *testing.T) {
	path := writeConfig(t, `
storage:
  storage_path: /var/lib/nvr
streams: []
`)

	cm := NewConfigManager()
	require.NoError(t, cm.Load(path))

	done := make(chan struct{}, 1)
	cm.OnUpdate(func(old, new *GlobalConfig) {
		done <- struct{}{}
	})

	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  storage_path: /var/lib/nvr
  retention_days: 7
streams: []
`), 0o644))
	require.NoError(t, cm.Load(path))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("update callback did not fire")
	}
}

func TestConfigManager_ScheduleVectorParsedFromYAML(t *testing.T) {
	path := writeConfig(t, `
storage:
  storage_path: /var/lib/nvr
streams:
  - name: front-door
    source_url: rtsp://cam/front
    record_on_schedule: true
    recording_schedule: [1, 0, 1]
`)

	cm := NewConfigManager()
	require.NoError(t, cm.Load(path))

	s, ok := cm.GetStream("front-door")
	require.True(t, ok)
	assert.True(t, s.RecordingSchedule[0])
	assert.False(t, s.RecordingSchedule[1])
	assert.True(t, s.RecordingSchedule[2])
	assert.False(t, s.RecordingSchedule[3])
}
