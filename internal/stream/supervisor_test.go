package stream

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/mediapipeline"
	"github.com/lenswatch/nvr-core/internal/repository"
)

func newTestSupervisor(t *testing.T) (*Supervisor, *mediapipeline.Fake, *repository.Repository) {
	t.Helper()
	root := t.TempDir()
	repo, err := repository.Open(filepath.Join(root, "test.db"), repository.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	fake := mediapipeline.NewFake()
	globalCfg := func() config.StorageConfig { return config.StorageConfig{StoragePath: root} }
	return New(fake, repo, globalCfg), fake, repo
}

func TestStartStream_ContinuousRecordingComesUpActive(t *testing.T) {
	s, fake, _ := newTestSupervisor(t)
	cfg := config.StreamConfig{Name: "cam1", Source: "rtsp://cam1", Record: true, StreamingEnabled: true}
	s.AddStream(cfg)

	require.NoError(t, s.StartStream(context.Background(), "cam1"))

	state, ok := s.State("cam1")
	require.True(t, ok)
	assert.Equal(t, StateActive, state)
	assert.True(t, fake.HLSStarted("cam1"))
	trigger, recording := fake.RecordingTrigger("cam1")
	assert.True(t, recording)
	assert.Equal(t, repository.TriggerContinuous, trigger)
}

func TestStartStream_InactiveStreamSkipsPipelineButStillActivates(t *testing.T) {
	s, fake, _ := newTestSupervisor(t)
	s.AddStream(config.StreamConfig{Name: "cam-idle"})

	require.NoError(t, s.StartStream(context.Background(), "cam-idle"))

	state, _ := s.State("cam-idle")
	assert.Equal(t, StateActive, state)
	assert.False(t, fake.HLSStarted("cam-idle"))
}

func TestStartStream_PipelineErrorYieldsErrorState(t *testing.T) {
	s, fake, _ := newTestSupervisor(t)
	fake.StartHLSErr = assertErr
	s.AddStream(config.StreamConfig{Name: "cam1", StreamingEnabled: true})

	err := s.StartStream(context.Background(), "cam1")
	assert.Error(t, err)

	state, _ := s.State("cam1")
	assert.Equal(t, StateError, state)
}

func TestStopStream_StopsRecordingAndHLS(t *testing.T) {
	s, fake, _ := newTestSupervisor(t)
	s.AddStream(config.StreamConfig{Name: "cam1", Source: "rtsp://cam1", Record: true, StreamingEnabled: true})
	require.NoError(t, s.StartStream(context.Background(), "cam1"))

	require.NoError(t, s.StopStream(context.Background(), "cam1"))

	state, _ := s.State("cam1")
	assert.Equal(t, StateInactive, state)
	assert.False(t, fake.HLSStarted("cam1"))
	_, recording := fake.RecordingTrigger("cam1")
	assert.False(t, recording)
}

func TestStartStream_DetectionBasedRecordingInvokesStartHook(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	var hookedName string
	s.SetDetectionHooks(
		func(name string, cfg config.StreamConfig) { hookedName = name },
		func(name string, cfg config.StreamConfig) {},
	)
	s.AddStream(config.StreamConfig{Name: "cam1", Source: "rtsp://cam1", DetectionBasedRecording: true})

	require.NoError(t, s.StartStream(context.Background(), "cam1"))
	assert.Equal(t, "cam1", hookedName)
}

func TestStopStream_DetectionBasedRecordingInvokesStopHook(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	var stopped bool
	s.SetDetectionHooks(
		func(name string, cfg config.StreamConfig) {},
		func(name string, cfg config.StreamConfig) { stopped = true },
	)
	s.AddStream(config.StreamConfig{Name: "cam1", Source: "rtsp://cam1", DetectionBasedRecording: true})
	require.NoError(t, s.StartStream(context.Background(), "cam1"))

	require.NoError(t, s.StopStream(context.Background(), "cam1"))
	assert.True(t, stopped)
}

func TestIsRecordingScheduled_UnscheduledStreamAlwaysPasses(t *testing.T) {
	cfg := config.StreamConfig{RecordOnSchedule: false}
	assert.True(t, IsRecordingScheduled(cfg, time.Now()))
}

func TestIsRecordingScheduled_GatesOnWeeklyVector(t *testing.T) {
	var sched config.Schedule
	monday := time.Date(2026, time.July, 27, 3, 0, 0, 0, time.UTC) // Monday
	sched[config.SlotFor(monday)] = true

	cfg := config.StreamConfig{RecordOnSchedule: true, RecordingSchedule: sched}
	assert.True(t, IsRecordingScheduled(cfg, monday))

	tuesdaySameHour := monday.Add(24 * time.Hour)
	assert.False(t, IsRecordingScheduled(cfg, tuesdaySameHour))
}

func TestSetFeature_ToggleRecordOnActiveStreamStartsPipelineRecording(t *testing.T) {
	s, fake, _ := newTestSupervisor(t)
	s.AddStream(config.StreamConfig{Name: "cam1", Source: "rtsp://cam1"})
	require.NoError(t, s.StartStream(context.Background(), "cam1"))
	_, recording := fake.RecordingTrigger("cam1")
	require.False(t, recording)

	require.NoError(t, s.SetFeature(context.Background(), "cam1", "record", true))
	_, recording = fake.RecordingTrigger("cam1")
	assert.True(t, recording)
}

func TestSetFeature_SecondIdenticalCallIsIdempotent(t *testing.T) {
	s, fake, _ := newTestSupervisor(t)
	s.AddStream(config.StreamConfig{Name: "cam1", Source: "rtsp://cam1"})
	require.NoError(t, s.StartStream(context.Background(), "cam1"))

	require.NoError(t, s.SetFeature(context.Background(), "cam1", "record", true))
	require.NoError(t, s.SetFeature(context.Background(), "cam1", "record", true))

	trigger, recording := fake.RecordingTrigger("cam1")
	assert.True(t, recording)
	assert.Equal(t, repository.TriggerContinuous, trigger)
}

func TestReconcileSchedules_StopsRecordingOutsideWindow(t *testing.T) {
	s, fake, repo := newTestSupervisor(t)
	var sched config.Schedule // all false: never scheduled
	cfg := config.StreamConfig{Name: "cam3", Source: "rtsp://cam3", Enabled: true, Record: true, RecordOnSchedule: true, RecordingSchedule: sched}
	require.NoError(t, repo.UpsertStreamConfig(cfg))
	s.AddStream(cfg)

	// Force a recording to be "already open" as if started during a prior window.
	require.NoError(t, fake.StartRecord(context.Background(), "cam3", "/tmp/x.mp4", repository.TriggerScheduled))
	s.mu.Lock()
	s.streams["cam3"].state = StateActive
	s.mu.Unlock()

	s.reconcileSchedules(context.Background())

	assert.False(t, fake.IsRecording("cam3"), "outside the weekly window, the monitor must stop the open recording")
}

var assertErr = context.DeadlineExceeded
