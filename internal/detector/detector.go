package detector

import (
	"context"
	"time"
)

// Frame is the unit of work handed to a Detector. Width/Height/Format
// describe Data as already normalized by the caller (spec.md §4.3 step
// 2); the Detector never re-decodes or re-scales on its own.
type Frame struct {
	StreamName string
	Timestamp  time.Time
	Width      int
	Height     int
	Format     string // e.g. "jpeg", "raw-rgb24"
	Data       []byte
}

// Box is one labelled detection, in the frame's own coordinate space
// (spec.md §1: "a list of labelled bounding boxes with confidences").
type Box struct {
	Label      string
	Confidence float64
	X, Y, W, H float64
}

// Detector is the external inference collaborator. The core places no
// constraint on how it turns a Frame into Boxes (spec.md §9 Redesign
// Flags: "the core places no format constraint").
type Detector interface {
	Infer(ctx context.Context, frame Frame) ([]Box, error)
}
