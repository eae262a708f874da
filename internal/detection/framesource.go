package detection

import (
	"context"

	"github.com/lenswatch/nvr-core/internal/detector"
)

// FrameSource is the external collaborator that delivers already
// decoded, already normalized frames for a stream (spec.md §4.3 step
// 2: normalization detail lives with the Detector contract, not the
// core). The core never opens a decoder itself.
type FrameSource interface {
	// Frames returns a channel of frames for streamName. The channel is
	// closed when the source has nothing further to deliver (stream
	// stopped upstream, or ctx cancelled).
	Frames(ctx context.Context, streamName string) (<-chan detector.Frame, error)
}
