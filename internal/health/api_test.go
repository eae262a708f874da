package health

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/eventbus"
	"github.com/lenswatch/nvr-core/internal/mediapipeline"
	"github.com/lenswatch/nvr-core/internal/repository"
	"github.com/lenswatch/nvr-core/internal/storage"
	"github.com/lenswatch/nvr-core/internal/stream"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	root := t.TempDir()
	repo, err := repository.Open(filepath.Join(root, "test.db"), repository.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := eventbus.New()
	globalCfg := func() config.StorageConfig { return config.StorageConfig{StoragePath: root} }
	diskUsage := func(string) (uint64, uint64, error) { return 100, 50, nil }
	storageCtl := storage.New(repo, bus, globalCfg, diskUsage, storage.DefaultConfig(root))

	sup := stream.New(mediapipeline.NewFake(), repo, globalCfg)
	return New(storageCtl, sup)
}

func TestStreamStatus_UnknownStreamReturnsUnknown(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, StreamStateUnknown, api.StreamStatus("never-heard-of"))
}

func TestStreamStatus_DelegatesToSupervisor(t *testing.T) {
	api := newTestAPI(t)
	api.supervisor.AddStream(config.StreamConfig{Name: "cam1"})
	require.NoError(t, api.supervisor.StartStream(context.Background(), "cam1"))

	assert.Equal(t, StreamStateActive, api.StreamStatus("cam1"))
}

func TestStreamStats_UnknownStreamReturnsError(t *testing.T) {
	api := newTestAPI(t)
	_, err := api.StreamStats("never-heard-of")
	assert.Error(t, err)
}

func TestHealthSnapshot_DelegatesToStorageController(t *testing.T) {
	api := newTestAPI(t)
	snap := api.HealthSnapshot()
	assert.Equal(t, storage.PressureLevel(""), snap.PressureLevel, "no heartbeat has run yet")
}

func TestPressureLevel_DelegatesToStorageController(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, storage.PressureLevel(""), api.PressureLevel())
}

func TestTriggerCleanup_ReturnsImmediately(t *testing.T) {
	api := newTestAPI(t)
	require.NotPanics(t, func() { api.TriggerCleanup(false) })
}
