// Package detector implements the Detector external contract (spec.md
// §1, §9): given a frame, return a list of labelled bounding boxes
// with confidences. Two concrete shapes are provided: a Stub for
// local/offline use and a fixed-function test fixture, and an
// HTTP-backed implementation wrapped in a circuit breaker and a
// token-bucket limiter so a slow or failing backend cannot starve the
// frame-sampling loop that drives it.
package detector
