package mediapipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/lenswatch/nvr-core/internal/detector"
	"github.com/lenswatch/nvr-core/internal/logging"
)

// SourceLookupFunc resolves a stream name to its source URL, typically
// repository.GetStreamConfig(name).Source wrapped as a closure.
type SourceLookupFunc func(streamName string) (string, error)

// FFmpegFrameSource implements detection.FrameSource by spawning a
// second, independent ffmpeg process per stream that samples the RTSP
// source at a fixed rate and emits MJPEG frames on stdout, demuxed into
// detector.Frame values. It is deliberately separate from the HLS/MP4
// ffmpeg processes FFmpegPipeline manages, since detection sampling has
// its own, usually much lower, frame rate.
type FFmpegFrameSource struct {
	binary    string
	sourceURL SourceLookupFunc
	fps       float64
	logger    *logging.Logger
}

// NewFFmpegFrameSource creates a frame source sampling at fps frames
// per second (fps <= 0 selects 1).
func NewFFmpegFrameSource(binary string, sourceURL SourceLookupFunc, fps float64) *FFmpegFrameSource {
	if binary == "" {
		binary = "ffmpeg"
	}
	if fps <= 0 {
		fps = 1
	}
	return &FFmpegFrameSource{
		binary:    binary,
		sourceURL: sourceURL,
		fps:       fps,
		logger:    logging.GetLogger("mediapipeline"),
	}
}

// Frames starts the sampling process for streamName and returns the
// channel frames are delivered on. The channel closes when ctx is
// cancelled or the ffmpeg process exits.
func (s *FFmpegFrameSource) Frames(ctx context.Context, streamName string) (<-chan detector.Frame, error) {
	src, err := s.sourceURL(streamName)
	if err != nil {
		return nil, fmt.Errorf("resolve source for %q: %w", streamName, err)
	}

	args := []string{
		"-rtsp_transport", "tcp",
		"-i", src,
		"-vf", fmt.Sprintf("fps=%g", s.fps),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	}
	cmd := exec.CommandContext(ctx, s.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout for %q: %w", streamName, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg frame sampler for %q: %w", streamName, err)
	}

	out := make(chan detector.Frame, 4)
	go func() {
		defer close(out)
		defer func() { _ = cmd.Wait() }()
		demuxMJPEG(ctx, stdout, streamName, out)
	}()
	return out, nil
}

// demuxMJPEG splits a concatenated MJPEG byte stream on JPEG start/end
// markers (0xFFD8 / 0xFFD9) and emits one Frame per image.
func demuxMJPEG(ctx context.Context, r io.Reader, streamName string, out chan<- detector.Frame) {
	br := bufio.NewReaderSize(r, 64*1024)
	var buf bytes.Buffer
	inFrame := false
	var prev byte

	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if !inFrame {
			if prev == 0xFF && b == 0xD8 {
				inFrame = true
				buf.Reset()
				buf.WriteByte(0xFF)
				buf.WriteByte(0xD8)
			}
		} else {
			buf.WriteByte(b)
			if prev == 0xFF && b == 0xD9 {
				data := make([]byte, buf.Len())
				copy(data, buf.Bytes())
				select {
				case out <- detector.Frame{StreamName: streamName, Timestamp: time.Now(), Format: "jpeg", Data: data}:
				case <-ctx.Done():
					return
				}
				inFrame = false
			}
		}
		prev = b
	}
}
