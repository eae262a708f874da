package detector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStub_ReturnsQueuedBoxes(t *testing.T) {
	s := NewStub()
	s.Queue(Box{Label: "person", Confidence: 0.9, X: 1, Y: 2, W: 3, H: 4})

	boxes, err := s.Infer(context.Background(), Frame{StreamName: "cam1"})
	require.NoError(t, err)
	assert.Equal(t, []Box{{Label: "person", Confidence: 0.9, X: 1, Y: 2, W: 3, H: 4}}, boxes)
	assert.Equal(t, 1, s.InferCount())
}

func TestStub_EmptyByDefault(t *testing.T) {
	s := NewStub()
	boxes, err := s.Infer(context.Background(), Frame{StreamName: "cam1"})
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestStub_ErrIsOneShot(t *testing.T) {
	s := NewStub()
	s.SetErr(errors.New("boom"))

	_, err := s.Infer(context.Background(), Frame{})
	assert.Error(t, err)

	_, err = s.Infer(context.Background(), Frame{})
	assert.NoError(t, err)
}
