package mediapipeline

import (
	"context"

	"github.com/lenswatch/nvr-core/internal/repository"
)

// MediaPipeline is the external collaborator that owns the actual
// RTSP/HLS/MP4 work. The core only ever starts, stops, and queries
// liveness; it never manipulates frames or containers directly
// (spec.md §1 Non-goals).
type MediaPipeline interface {
	// StartHLS begins publishing stream's source as HLS. A repeat call
	// for an already-started stream is a no-op.
	StartHLS(ctx context.Context, streamName, sourceURL string) error
	// StopHLS stops HLS publishing for stream, if started.
	StopHLS(ctx context.Context, streamName string) error

	// StartRecord opens a new MP4 segment at outputPath for stream with
	// the given trigger reason.
	StartRecord(ctx context.Context, streamName, outputPath string, trigger repository.TriggerType) error
	// StopRecord closes the currently open MP4 segment for stream, if any.
	StopRecord(ctx context.Context, streamName string) error
	// IsRecording reports whether stream currently has an open MP4
	// segment.
	IsRecording(streamName string) bool

	// WriterAlive reports whether any of stream's underlying writer
	// processes (HLS or MP4) is still running. Used by the schedule monitor and detection policy engine
	// to decide whether a start/stop call is actually necessary.
	WriterAlive(streamName string) bool
}
