// Package storage implements the Storage Lifecycle Controller
// (spec.md §4.1): a single background worker that owns every decision
// about deleting recordings, classifies disk pressure, and publishes a
// pressure signal on the event bus. It never touches MediaPipeline or
// Detector; its only collaborators are the Repository, the filesystem,
// and the event bus.
package storage
