package stream

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/constants"
	"github.com/lenswatch/nvr-core/internal/logging"
	"github.com/lenswatch/nvr-core/internal/mediapipeline"
	"github.com/lenswatch/nvr-core/internal/repository"
)

// GlobalConfigFunc returns the current global storage configuration, so
// the Supervisor can place MP4 output under the configured storage root
// without importing the storage package (which would cycle back here).
type GlobalConfigFunc func() config.StorageConfig

// DetectionHook is invoked by the Supervisor when a stream enters or
// leaves a recording mode that requires the detection worker (spec.md
// §4.3: "Started by the Supervisor when a stream's derived recording
// mode is DetectionOnly or ContinuousWithAnnotation"). Wired by the
// process that owns both the Supervisor and the detection package, to
// avoid an import cycle between the two.
type DetectionHook func(streamName string, cfg config.StreamConfig)

type entry struct {
	mu      sync.Mutex
	cfg     config.StreamConfig
	state   State
	enabled bool // false while intentionally stopped/stopping
	stats   Stats
}

// Supervisor is the Stream/Recording Supervisor (spec.md §4.2): one
// state machine per configured stream, driving the MediaPipeline
// through its start/stop protocol and gating MP4 recording on the
// weekly schedule.
type Supervisor struct {
	pipeline  mediapipeline.MediaPipeline
	repo      *repository.Repository
	globalCfg GlobalConfigFunc

	mu      sync.RWMutex
	streams map[string]*entry

	startHook DetectionHook
	stopHook  DetectionHook
}

// New creates a Supervisor. It does not start any streams; call
// AddStream/StartStream for that.
func New(pipeline mediapipeline.MediaPipeline, repo *repository.Repository, globalCfg GlobalConfigFunc) *Supervisor {
	return &Supervisor{
		pipeline:  pipeline,
		repo:      repo,
		globalCfg: globalCfg,
		streams:   make(map[string]*entry),
	}
}

// SetDetectionHooks wires the start/stop callbacks for the detection
// worker. Called once during wiring, before any stream is started.
func (s *Supervisor) SetDetectionHooks(start, stop DetectionHook) {
	s.startHook = start
	s.stopHook = stop
}

// AddStream registers name with cfg in the Inactive state. A repeat
// call replaces the stored configuration without touching live state.
func (s *Supervisor) AddStream(cfg config.StreamConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.streams[cfg.Name]; ok {
		e.mu.Lock()
		e.cfg = cfg
		e.mu.Unlock()
		return
	}
	s.streams[cfg.Name] = &entry{cfg: cfg, state: StateInactive}
}

// RemoveStream drops name from supervision. Callers should StopStream
// first; RemoveStream does not itself touch the pipeline.
func (s *Supervisor) RemoveStream(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, name)
}

// Names returns the currently registered stream names.
func (s *Supervisor) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.streams))
	for n := range s.streams {
		out = append(out, n)
	}
	return out
}

func (s *Supervisor) get(name string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.streams[name]
	return e, ok
}

// State reports the current state of name.
func (s *Supervisor) State(name string) (State, bool) {
	e, ok := s.get(name)
	if !ok {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// Stats reports the current counters for name.
func (s *Supervisor) Stats(name string) (Stats, bool) {
	e, ok := s.get(name)
	if !ok {
		return Stats{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats, true
}

// RecordFrame updates frame/byte counters for name. Called by the
// detection worker (or any future frame source) as frames arrive.
func (s *Supervisor) RecordFrame(name string, bytes int) {
	e, ok := s.get(name)
	if !ok {
		return
	}
	e.mu.Lock()
	e.stats.FramesReceived++
	e.stats.BytesReceived += uint64(bytes)
	e.stats.LastFrameTime = time.Now()
	e.mu.Unlock()
}

// RecordError increments the error counter for name.
func (s *Supervisor) RecordError(name string) {
	e, ok := s.get(name)
	if !ok {
		return
	}
	e.mu.Lock()
	e.stats.Errors++
	e.mu.Unlock()
}

// SetFeature toggles one of the boolean recording feature flags at
// runtime (spec.md §4.2 "set_feature"), re-evaluating the derived
// recording mode and driving the pipeline accordingly. feature is one
// of "record", "detection_based_recording", "record_on_schedule",
// "streaming_enabled". Calling with the same value twice is a no-op at
// the pipeline layer, since StartRecord/StopRecord are themselves
// idempotent.
func (s *Supervisor) SetFeature(ctx context.Context, name, feature string, value bool) error {
	e, ok := s.get(name)
	if !ok {
		return fmt.Errorf("stream: unknown stream %q", name)
	}

	e.mu.Lock()
	wasDetectionBased := e.cfg.DetectionBasedRecording
	switch feature {
	case "record":
		e.cfg.Record = value
	case "detection_based_recording":
		e.cfg.DetectionBasedRecording = value
	case "record_on_schedule":
		e.cfg.RecordOnSchedule = value
	case "streaming_enabled":
		e.cfg.StreamingEnabled = value
	default:
		e.mu.Unlock()
		return fmt.Errorf("stream: unknown feature %q", feature)
	}
	cfg := e.cfg
	active := e.state == StateActive
	e.mu.Unlock()

	if !active {
		return nil
	}

	if feature == "detection_based_recording" {
		if value && !wasDetectionBased && s.startHook != nil {
			s.startHook(name, cfg)
		} else if !value && wasDetectionBased && s.stopHook != nil {
			s.stopHook(name, cfg)
		}
	}

	return s.reconcileRecording(ctx, name, cfg)
}

// StartStream runs the start protocol (spec.md §4.2): publish HLS when
// streaming or detection-based recording need it, start MP4 recording
// when record is on and the schedule gate (if any) currently permits
// it, and hand the stream to Active or Error depending on whether
// anything actually came up.
func (s *Supervisor) StartStream(ctx context.Context, name string) error {
	e, ok := s.get(name)
	if !ok {
		return fmt.Errorf("stream: unknown stream %q", name)
	}

	e.mu.Lock()
	if e.state == StateActive || e.state == StateStarting {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStarting
	cfg := e.cfg
	e.mu.Unlock()

	hlsOK := s.startHLSIfNeeded(ctx, name, cfg)
	recOK := s.startRecordingIfDue(ctx, name, cfg)

	e.mu.Lock()
	if hlsOK || recOK || (!cfg.StreamingEnabled && !cfg.Record && !cfg.DetectionBasedRecording) {
		e.state = StateActive
		e.enabled = true
	} else {
		e.state = StateError
	}
	finalState := e.state
	e.mu.Unlock()

	if finalState == StateActive && cfg.DetectionBasedRecording && s.startHook != nil {
		s.startHook(name, cfg)
	}
	if finalState == StateError {
		return fmt.Errorf("stream: %s failed to start (hls=%v record=%v)", name, hlsOK, recOK)
	}
	return nil
}

// StopStream runs the stop protocol: stop the detection worker (if
// running), stop MP4 recording, stop HLS, and settle in Inactive.
func (s *Supervisor) StopStream(ctx context.Context, name string) error {
	e, ok := s.get(name)
	if !ok {
		return fmt.Errorf("stream: unknown stream %q", name)
	}

	e.mu.Lock()
	if e.state == StateInactive || e.state == StateStopping {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopping
	e.enabled = false
	cfg := e.cfg
	e.mu.Unlock()

	if cfg.DetectionBasedRecording && s.stopHook != nil {
		s.stopHook(name, cfg)
	}
	if err := s.pipeline.StopRecord(ctx, name); err != nil {
		logging.StreamLogger("stream", name).WithError(err).Warn("stop record failed")
	}
	if err := s.pipeline.StopHLS(ctx, name); err != nil {
		logging.StreamLogger("stream", name).WithError(err).Warn("stop hls failed")
	}

	e.mu.Lock()
	e.state = StateInactive
	e.mu.Unlock()
	return nil
}

func (s *Supervisor) startHLSIfNeeded(ctx context.Context, name string, cfg config.StreamConfig) bool {
	if !cfg.StreamingEnabled && !cfg.DetectionBasedRecording {
		return false
	}
	if err := s.pipeline.StartHLS(ctx, name, cfg.Source); err != nil {
		logging.StreamLogger("stream", name).WithError(err).Error("start hls failed")
		return false
	}
	return true
}

func (s *Supervisor) startRecordingIfDue(ctx context.Context, name string, cfg config.StreamConfig) bool {
	mode := config.DerivedRecordingMode(cfg.Record, cfg.DetectionBasedRecording)
	if mode != config.RecordingModeContinuous && mode != config.RecordingModeContinuousWithAnnotation {
		return false
	}
	if !IsRecordingScheduled(cfg, time.Now()) {
		return false
	}
	trigger := repository.TriggerContinuous
	if cfg.RecordOnSchedule {
		trigger = repository.TriggerScheduled
	}
	path := s.recordingOutputPath(name, trigger)
	if err := s.pipeline.StartRecord(ctx, name, path, trigger); err != nil {
		logging.StreamLogger("stream", name).WithError(err).Error("start record failed")
		return false
	}
	return true
}

// reconcileRecording brings MP4 recording into line with cfg's current
// feature flags and schedule gate, without touching HLS or the overall
// state machine. Used by SetFeature and the schedule monitor.
func (s *Supervisor) reconcileRecording(ctx context.Context, name string, cfg config.StreamConfig) error {
	shouldRecord := cfg.Record && IsRecordingScheduled(cfg, time.Now())
	recording := s.pipeline.IsRecording(name)

	switch {
	case shouldRecord && !recording:
		trigger := repository.TriggerContinuous
		if cfg.RecordOnSchedule {
			trigger = repository.TriggerScheduled
		}
		path := s.recordingOutputPath(name, trigger)
		return s.pipeline.StartRecord(ctx, name, path, trigger)
	case !shouldRecord && recording:
		return s.pipeline.StopRecord(ctx, name)
	}
	return nil
}

func (s *Supervisor) recordingOutputPath(streamName string, trigger repository.TriggerType) string {
	root := s.globalCfg().StoragePath
	ts := time.Now().Format("20060102_150405")
	return filepath.Join(root, constants.RecordingsSubdirName, streamName, fmt.Sprintf("%s_%s.mp4", trigger, ts))
}
