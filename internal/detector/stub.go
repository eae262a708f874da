package detector

import (
	"context"
	"sync"
)

// Stub is a local Detector implementation for configurations that have
// no remote inference backend configured, and a scriptable test
// double. It never touches a model runtime; it returns whatever was
// queued for it.
type Stub struct {
	mu       sync.Mutex
	queued   []Box
	err      error
	inferred int
}

// NewStub creates a Stub that returns no detections until Queue is
// called.
func NewStub() *Stub {
	return &Stub{}
}

// Queue arranges for every subsequent Infer call to return boxes, until
// Queue is called again.
func (s *Stub) Queue(boxes ...Box) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = boxes
}

// SetErr arranges for the next Infer call to return err instead of a
// result. Cleared after being returned once.
func (s *Stub) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Stub) Infer(ctx context.Context, frame Frame) ([]Box, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inferred++
	if s.err != nil {
		err := s.err
		s.err = nil
		return nil, err
	}
	return s.queued, nil
}

// InferCount reports how many frames have been submitted.
func (s *Stub) InferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inferred
}
