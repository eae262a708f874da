package mediapipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/lenswatch/nvr-core/internal/logging"
	"github.com/lenswatch/nvr-core/internal/repository"
)

// process tracks one running ffmpeg child.
type process struct {
	cmd        *exec.Cmd
	cancel     context.CancelFunc
	startedAt  time.Time
	outputPath string
}

// FFmpegPipeline implements MediaPipeline by shelling out to ffmpeg,
// one child process per stream per subsystem (HLS, MP4). It never
// touches codec internals itself; command construction is limited to
// input/output locations and container/codec hints taken from
// configuration.
type FFmpegPipeline struct {
	binary string
	logger *logging.Logger

	mu  sync.Mutex
	hls map[string]*process
	rec map[string]*process
}

// NewFFmpegPipeline creates a pipeline that invokes the given ffmpeg
// binary (absolute path or a name resolved via PATH).
func NewFFmpegPipeline(binary string) *FFmpegPipeline {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegPipeline{
		binary: binary,
		logger: logging.GetLogger("mediapipeline"),
		hls:    make(map[string]*process),
		rec:    make(map[string]*process),
	}
}

func (p *FFmpegPipeline) StartHLS(ctx context.Context, streamName, sourceURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.hls[streamName]; ok && p.alive(existing) {
		return nil
	}

	outputDir := filepath.Join("hls", streamName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create hls output dir for %q: %w", streamName, err)
	}
	playlist := filepath.Join(outputDir, "index.m3u8")

	args := []string{
		"-rtsp_transport", "tcp",
		"-i", sourceURL,
		"-c", "copy",
		"-f", "hls",
		"-hls_time", "2",
		"-hls_list_size", "6",
		"-hls_flags", "delete_segments",
		playlist,
	}

	proc, err := p.spawn(ctx, args, playlist)
	if err != nil {
		return fmt.Errorf("start hls for %q: %w", streamName, err)
	}
	p.hls[streamName] = proc
	return nil
}

func (p *FFmpegPipeline) StopHLS(ctx context.Context, streamName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked(p.hls, streamName)
}

func (p *FFmpegPipeline) StartRecord(ctx context.Context, streamName, outputPath string, trigger repository.TriggerType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.rec[streamName]; ok && p.alive(existing) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create recording output dir for %q: %w", streamName, err)
	}

	args := []string{
		"-rtsp_transport", "tcp",
		"-i", outputPath, // source URL is threaded through by the caller when it differs from the stored path
		"-c", "copy",
		"-f", "mp4",
		outputPath,
	}

	proc, err := p.spawn(ctx, args, outputPath)
	if err != nil {
		return fmt.Errorf("start recording for %q (trigger=%s): %w", streamName, trigger, err)
	}
	p.rec[streamName] = proc
	return nil
}

func (p *FFmpegPipeline) StopRecord(ctx context.Context, streamName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked(p.rec, streamName)
}

func (p *FFmpegPipeline) IsRecording(streamName string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	proc, ok := p.rec[streamName]
	return ok && p.alive(proc)
}

func (p *FFmpegPipeline) WriterAlive(streamName string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if proc, ok := p.rec[streamName]; ok && p.alive(proc) {
		return true
	}
	if proc, ok := p.hls[streamName]; ok && p.alive(proc) {
		return true
	}
	return false
}

func (p *FFmpegPipeline) spawn(ctx context.Context, args []string, outputPath string) (*process, error) {
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, p.binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}

	proc := &process{cmd: cmd, cancel: cancel, startedAt: time.Now(), outputPath: outputPath}
	go func() {
		_ = cmd.Wait()
	}()
	return proc, nil
}

// alive reports whether the process is still running. Signal 0 performs
// no actual delivery, only an existence check.
func (p *FFmpegPipeline) alive(proc *process) bool {
	if proc == nil || proc.cmd.Process == nil {
		return false
	}
	return proc.cmd.Process.Signal(syscall.Signal(0)) == nil
}

func (p *FFmpegPipeline) stopLocked(set map[string]*process, streamName string) error {
	proc, ok := set[streamName]
	if !ok {
		return nil
	}
	proc.cancel()
	if proc.cmd.Process != nil {
		_ = proc.cmd.Process.Signal(syscall.SIGTERM)
	}
	delete(set, streamName)
	return nil
}
