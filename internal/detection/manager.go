package detection

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/lenswatch/nvr-core/internal/common"
	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/constants"
	"github.com/lenswatch/nvr-core/internal/detector"
	"github.com/lenswatch/nvr-core/internal/logging"
	"github.com/lenswatch/nvr-core/internal/mediapipeline"
	"github.com/lenswatch/nvr-core/internal/repository"
)

// FrameObserver is notified as frames are pulled off a stream's
// FrameSource, independent of whether the frame was actually processed
// (decimation may skip it). Wired to the Supervisor's stat counters
// without giving this package a dependency on the stream package.
type FrameObserver func(streamName string, bytes int)

// ErrorObserver is notified whenever a worker logs and skips a frame
// due to a Detector or Repository error.
type ErrorObserver func(streamName string)

// Manager owns one Worker per stream that has detection-based
// recording enabled. Its Start/Stop methods match the
// stream.DetectionHook signature exactly, so the Supervisor can wire
// them directly with SetDetectionHooks.
type Manager struct {
	repo      *repository.Repository
	det       detector.Detector
	pipeline  mediapipeline.MediaPipeline
	frames    FrameSource
	globalCfg func() config.StorageConfig

	// sem bounds total concurrent Detector.Infer calls across every
	// stream's worker, so a slow or overloaded inference backend can't
	// be driven past its own concurrency budget just because many
	// streams detect at once.
	sem *semaphore.Weighted

	onFrame FrameObserver
	onError ErrorObserver

	mu      sync.Mutex
	workers map[string]*worker
}

// MaxConcurrentInfer is the default bound on simultaneous Detector.Infer
// calls across all workers.
const MaxConcurrentInfer = 4

// NewManager creates a Manager. maxConcurrentInfer <= 0 selects
// MaxConcurrentInfer.
func NewManager(repo *repository.Repository, det detector.Detector, pipeline mediapipeline.MediaPipeline, frames FrameSource, globalCfg func() config.StorageConfig, maxConcurrentInfer int64) *Manager {
	if maxConcurrentInfer <= 0 {
		maxConcurrentInfer = MaxConcurrentInfer
	}
	return &Manager{
		repo:      repo,
		det:       det,
		pipeline:  pipeline,
		frames:    frames,
		globalCfg: globalCfg,
		sem:       semaphore.NewWeighted(maxConcurrentInfer),
		workers:   make(map[string]*worker),
	}
}

// SetObservers wires optional frame/error callbacks, typically the
// Supervisor's RecordFrame/RecordError methods.
func (m *Manager) SetObservers(onFrame FrameObserver, onError ErrorObserver) {
	m.onFrame = onFrame
	m.onError = onError
}

// Start launches a worker for name, if one isn't already running. It
// matches stream.DetectionHook's signature so it can be passed straight
// to Supervisor.SetDetectionHooks.
func (m *Manager) Start(name string, cfg config.StreamConfig) {
	m.mu.Lock()
	if _, exists := m.workers[name]; exists {
		m.mu.Unlock()
		return
	}
	w := &worker{
		name:      name,
		cfg:       cfg,
		repo:      m.repo,
		det:       m.det,
		pipeline:  m.pipeline,
		globalCfg: m.globalCfg,
		sem:       m.sem,
		logger:    logging.StreamLogger("detection", name),
		onFrame:   m.onFrame,
		onError:   m.onError,
		token:     common.NewCancellationToken(),
	}
	m.workers[name] = w
	m.mu.Unlock()

	frames, err := m.frames.Frames(context.Background(), name)
	if err != nil {
		logging.StreamLogger("detection", name).WithError(err).Error("detection worker: failed to open frame source")
		m.mu.Lock()
		delete(m.workers, name)
		m.mu.Unlock()
		return
	}

	go w.run(frames)
}

// Stop requests the worker for name to exit and waits up to the
// standard bounded-join budget. It matches stream.DetectionHook's
// signature; cfg is unused but kept to satisfy the hook shape.
func (m *Manager) Stop(name string, _ config.StreamConfig) {
	m.mu.Lock()
	w, ok := m.workers[name]
	if ok {
		delete(m.workers, name)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	w.token.Cancel()
	if !common.PollJoin(w.token, constants.ShutdownPollInterval, constants.ShutdownTimeout) {
		logging.StreamLogger("detection", name).Warn("detection worker did not exit within shutdown deadline; detaching")
	}
}

// Running reports whether a worker is currently active for name.
func (m *Manager) Running(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.workers[name]
	return ok
}
