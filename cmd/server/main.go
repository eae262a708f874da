// Package main implements the NVR core service entry point.
//
// Architecture follows the layered approach:
//   - Foundation: configuration and logging
//   - Core services: Repository, MediaPipeline, Detector
//   - Supervision: Stream Supervisor, Detection Worker Manager
//   - Lifecycle: Storage Controller, schedule monitor
//
// The startup sequence is:
// 1. Load and validate configuration
// 2. Initialize logging
// 3. Open the Repository
// 4. Build the Stream Supervisor and wire the Detection Worker Manager
// 5. Start the Storage Controller and schedule monitor
// 6. Start every enabled stream
//
// Graceful shutdown reverses this order.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lenswatch/nvr-core/internal/common"
	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/constants"
	"github.com/lenswatch/nvr-core/internal/detection"
	"github.com/lenswatch/nvr-core/internal/detector"
	"github.com/lenswatch/nvr-core/internal/eventbus"
	"github.com/lenswatch/nvr-core/internal/health"
	"github.com/lenswatch/nvr-core/internal/logging"
	"github.com/lenswatch/nvr-core/internal/mediapipeline"
	"github.com/lenswatch/nvr-core/internal/repository"
	"github.com/lenswatch/nvr-core/internal/storage"
	"github.com/lenswatch/nvr-core/internal/stream"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to the YAML configuration file")
	ffmpegBinary := flag.String("ffmpeg", "ffmpeg", "ffmpeg binary used for recording and frame sampling")
	detectorEndpoint := flag.String("detector-endpoint", "", "HTTP inference endpoint; empty selects the local stub detector")
	flag.Parse()

	// Layer 1: Foundation.
	configManager := config.NewConfigManager()
	if err := configManager.Load(*configPath); err != nil {
		logging.GetDefaultLogger().WithError(err).Fatal("failed to load configuration")
	}
	cfg := configManager.Get()

	_ = logging.SetupLogging(&logging.LoggingConfig{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FileEnabled:    cfg.Logging.FileEnabled,
		FilePath:       cfg.Logging.FilePath,
		MaxFileSize:    cfg.Logging.MaxFileSize,
		BackupCount:    cfg.Logging.BackupCount,
		ConsoleEnabled: cfg.Logging.ConsoleEnabled,
	})
	logger := logging.GetLogger("nvr-core")
	logger.Info("starting NVR core service")

	if err := configManager.WatchForChanges(); err != nil {
		logger.WithError(err).Warn("configuration hot-reload not available")
	}

	// Layer 2: Core services.
	repo, err := repository.Open(filepath.Join(cfg.Storage.StoragePath, "nvr.db"), repository.DefaultConfig())
	if err != nil {
		logger.WithError(err).Fatal("failed to open repository")
	}

	bus := eventbus.New()
	globalCfg := func() config.StorageConfig { return configManager.Get().Storage }

	pipeline := mediapipeline.NewFFmpegPipeline(*ffmpegBinary)

	var det detector.Detector
	if *detectorEndpoint != "" {
		det = detector.NewHTTPDetector(detector.DefaultHTTPConfig(*detectorEndpoint))
	} else {
		det = detector.NewStub()
	}

	frameSource := mediapipeline.NewFFmpegFrameSource(*ffmpegBinary, func(name string) (string, error) {
		s, ok := configManager.GetStream(name)
		if !ok {
			return "", os.ErrNotExist
		}
		return s.Source, nil
	}, 1)

	// Layer 3: Supervision.
	supervisor := stream.New(pipeline, repo, globalCfg)
	detectionMgr := detection.NewManager(repo, det, pipeline, frameSource, globalCfg, 0)
	detectionMgr.SetObservers(supervisor.RecordFrame, supervisor.RecordError)
	supervisor.SetDetectionHooks(detectionMgr.Start, detectionMgr.Stop)

	for _, s := range cfg.Streams {
		supervisor.AddStream(s)
	}

	// Layer 4: Lifecycle.
	storageCtl := storage.New(repo, bus, globalCfg, storage.GopsutilDiskUsage, storage.DefaultConfig(cfg.Storage.StoragePath))
	storageCtl.Start()

	scheduleToken := common.NewCancellationToken()
	scheduleCtx, cancelSchedule := context.WithCancel(context.Background())
	go supervisor.RunScheduleMonitor(scheduleCtx, scheduleToken)

	// api is the in-process query surface a future wire-protocol front
	// end would sit behind; not reachable externally here, per the
	// no-wire-protocol design.
	api := health.New(storageCtl, supervisor)

	startCtx := context.Background()
	for _, s := range cfg.Streams {
		if !s.Enabled {
			continue
		}
		if err := supervisor.StartStream(startCtx, s.Name); err != nil {
			logging.StreamLogger("nvr-core", s.Name).WithError(err).Error("failed to start stream")
		}
	}

	snap := api.HealthSnapshot()
	logger.WithField("pressure", snap.PressureLevel).Info("NVR core service started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("received shutdown signal, stopping services")

	// Reverse startup order.
	stopCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	for _, name := range supervisor.Names() {
		if err := supervisor.StopStream(stopCtx, name); err != nil {
			logging.StreamLogger("nvr-core", name).WithError(err).Warn("error stopping stream")
		}
	}

	cancelSchedule()
	scheduleToken.Cancel()
	if !common.PollJoin(scheduleToken, constants.ShutdownPollInterval, constants.ShutdownTimeout) {
		logger.Warn("schedule monitor did not exit within shutdown deadline; detaching")
	}

	storageCtl.Stop()
	configManager.StopWatching()

	if err := repo.Close(); err != nil {
		logger.WithError(err).Error("error closing repository")
	}

	logger.Info("NVR core service stopped")
}
