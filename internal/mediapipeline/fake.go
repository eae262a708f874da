package mediapipeline

import (
	"context"
	"sync"

	"github.com/lenswatch/nvr-core/internal/repository"
)

// Fake is an in-memory MediaPipeline double for tests: no child
// processes, just bookkeeping of what was asked for.
type Fake struct {
	mu sync.Mutex

	hlsStarted map[string]bool
	recording  map[string]repository.TriggerType
	writerUp   map[string]bool

	StartHLSErr, StopHLSErr, StartRecordErr, StopRecordErr error
}

// NewFake creates an empty fake pipeline.
func NewFake() *Fake {
	return &Fake{
		hlsStarted: make(map[string]bool),
		recording:  make(map[string]repository.TriggerType),
		writerUp:   make(map[string]bool),
	}
}

func (f *Fake) StartHLS(ctx context.Context, streamName, sourceURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartHLSErr != nil {
		return f.StartHLSErr
	}
	f.hlsStarted[streamName] = true
	f.writerUp[streamName] = true
	return nil
}

func (f *Fake) StopHLS(ctx context.Context, streamName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StopHLSErr != nil {
		return f.StopHLSErr
	}
	delete(f.hlsStarted, streamName)
	if _, recording := f.recording[streamName]; !recording {
		delete(f.writerUp, streamName)
	}
	return nil
}

func (f *Fake) StartRecord(ctx context.Context, streamName, outputPath string, trigger repository.TriggerType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartRecordErr != nil {
		return f.StartRecordErr
	}
	f.recording[streamName] = trigger
	f.writerUp[streamName] = true
	return nil
}

func (f *Fake) StopRecord(ctx context.Context, streamName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StopRecordErr != nil {
		return f.StopRecordErr
	}
	delete(f.recording, streamName)
	if !f.hlsStarted[streamName] {
		delete(f.writerUp, streamName)
	}
	return nil
}

func (f *Fake) IsRecording(streamName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.recording[streamName]
	return ok
}

func (f *Fake) WriterAlive(streamName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writerUp[streamName]
}

// RecordingTrigger returns the trigger type of the currently open
// recording for streamName, if any.
func (f *Fake) RecordingTrigger(streamName string) (repository.TriggerType, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.recording[streamName]
	return t, ok
}

// HLSStarted reports whether HLS is (still) started for streamName.
func (f *Fake) HLSStarted(streamName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hlsStarted[streamName]
}
