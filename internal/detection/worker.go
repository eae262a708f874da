package detection

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/lenswatch/nvr-core/internal/common"
	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/constants"
	"github.com/lenswatch/nvr-core/internal/detector"
	"github.com/lenswatch/nvr-core/internal/logging"
	"github.com/lenswatch/nvr-core/internal/mediapipeline"
	"github.com/lenswatch/nvr-core/internal/repository"
	"github.com/lenswatch/nvr-core/internal/zone"
)

type worker struct {
	name      string
	cfg       config.StreamConfig
	repo      *repository.Repository
	det       detector.Detector
	pipeline  mediapipeline.MediaPipeline
	globalCfg func() config.StorageConfig
	sem       interface {
		Acquire(context.Context, int64) error
		Release(int64)
	}
	logger  *logging.Logger
	onFrame FrameObserver
	onError ErrorObserver
	token   *common.CancellationToken

	frameCount int
	processed  bool
}

// run implements the per-frame pipeline (spec.md §4.3). It exits when
// frames closes or the token is cancelled.
func (w *worker) run(frames <-chan detector.Frame) {
	defer w.token.MarkExited()

	for w.token.Running() {
		frame, ok := <-frames
		if !ok {
			return
		}
		if w.onFrame != nil {
			w.onFrame(w.name, len(frame.Data))
		}

		w.frameCount++
		interval := w.cfg.DetectionInterval
		if interval <= 0 {
			interval = 1
		}
		if w.processed && w.frameCount < interval {
			continue
		}
		w.frameCount = 0
		w.processed = true

		w.processFrame(frame)
	}
}

func (w *worker) processFrame(frame detector.Frame) {
	ctx := context.Background()

	if err := w.sem.Acquire(ctx, 1); err != nil {
		return
	}
	boxes, err := w.det.Infer(ctx, frame)
	w.sem.Release(1)
	if err != nil {
		w.logger.WithError(err).Warn("detector inference failed, skipping frame")
		w.reportError()
		return
	}

	zones, err := w.repo.GetDetectionZones(w.name)
	if err != nil {
		w.logger.WithError(err).Warn("failed to load detection zones, skipping frame")
		w.reportError()
		return
	}
	filtered := zone.Filter(boxes, zones)
	filtered = zone.ApplyObjectFilter(filtered, zone.ObjectFilterMode(w.cfg.DetectionObjectFilter), splitFilterList(w.cfg.DetectionObjectFilterList))

	threshold := math.Max(w.cfg.DetectionThreshold, constants.MinTriggerConfidence)
	triggering := false
	for _, f := range filtered {
		d := repository.Detection{
			StreamName: w.name,
			Timestamp:  frame.Timestamp,
			Label:      f.Box.Label,
			Confidence: f.Box.Confidence,
			X:          f.Box.X, Y: f.Box.Y, W: f.Box.W, H: f.Box.H,
			ZoneID: f.ZoneID,
		}
		if err := w.repo.InsertDetection(d); err != nil {
			w.logger.WithError(err).Warn("failed to persist detection")
			w.reportError()
		}
		if f.Box.Confidence >= threshold {
			triggering = true
		}
	}

	w.applyRecordingDecision(ctx, triggering, threshold)
}

func (w *worker) applyRecordingDecision(ctx context.Context, triggering bool, threshold float64) {
	mode := config.DerivedRecordingMode(w.cfg.Record, w.cfg.DetectionBasedRecording)
	if mode != config.RecordingModeDetectionOnly {
		return // ContinuousWithAnnotation: detections persist only, never drive recording
	}

	recent, err := w.repo.GetDetectionsSince(w.name, constants.MaxDetectionAge)
	if err != nil {
		w.logger.WithError(err).Warn("failed to query recent detections for recording decision")
		w.reportError()
		return
	}
	shouldRecord := triggering
	if !shouldRecord {
		for _, d := range recent {
			if d.Confidence >= threshold {
				shouldRecord = true
				break
			}
		}
	}

	recording := w.pipeline.IsRecording(w.name)
	switch {
	case shouldRecord && !recording:
		path := w.outputPath()
		if err := w.pipeline.StartRecord(ctx, w.name, path, repository.TriggerDetection); err != nil {
			w.logger.WithError(err).Error("failed to start detection-triggered recording")
			w.reportError()
		}
	case !shouldRecord && recording:
		if err := w.pipeline.StopRecord(ctx, w.name); err != nil {
			w.logger.WithError(err).Error("failed to stop detection-triggered recording")
			w.reportError()
		}
	}
}

func (w *worker) outputPath() string {
	root := w.globalCfg().StoragePath
	ts := time.Now().Format("20060102_150405")
	return filepath.Join(root, constants.RecordingsSubdirName, w.name, fmt.Sprintf("detection_%s.mp4", ts))
}

func (w *worker) reportError() {
	if w.onError != nil {
		w.onError(w.name)
	}
}

func splitFilterList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
