package stream

import (
	"context"
	"time"

	"github.com/lenswatch/nvr-core/internal/common"
	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/constants"
	"github.com/lenswatch/nvr-core/internal/logging"
)

// IsRecordingScheduled is the schedule gate (spec.md §4.2): a stream
// with record_on_schedule unset always passes; one with it set only
// records during the hours its weekly vector marks true.
func IsRecordingScheduled(cfg config.StreamConfig, now time.Time) bool {
	if !cfg.RecordOnSchedule {
		return true
	}
	return cfg.RecordingSchedule[config.SlotFor(now)]
}

// RunScheduleMonitor polls the Repository every ScheduleMonitorPeriod
// and reconciles each scheduled stream's MP4 recording state against
// the current hour, so a schedule edit or a slot boundary takes effect
// without an operator restarting the stream (spec.md §8 "schedule
// edge" scenario). It blocks until token is cancelled.
func (s *Supervisor) RunScheduleMonitor(ctx context.Context, token *common.CancellationToken) {
	defer token.MarkExited()

	ticker := time.NewTicker(constants.ScheduleMonitorPeriod)
	defer ticker.Stop()

	for token.Running() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcileSchedules(ctx)
		}
	}
}

func (s *Supervisor) reconcileSchedules(ctx context.Context) {
	for _, name := range s.Names() {
		e, ok := s.get(name)
		if !ok {
			continue
		}
		e.mu.Lock()
		cfg := e.cfg
		e.mu.Unlock()
		if !cfg.Enabled || !cfg.Record || !cfg.RecordOnSchedule {
			continue
		}

		fresh, found, err := s.repo.GetStreamConfig(name)
		if err != nil {
			logging.StreamLogger("stream", name).WithError(err).Warn("schedule monitor: failed to refresh stream config")
			continue
		}
		if !found {
			continue
		}

		e.mu.Lock()
		e.cfg = fresh
		e.mu.Unlock()

		if err := s.reconcileRecording(ctx, name, fresh); err != nil {
			logging.StreamLogger("stream", name).WithError(err).Warn("schedule monitor: reconcile failed")
		}
	}
}
