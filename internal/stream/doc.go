// Package stream implements the Stream/Recording Supervisor
// (spec.md §4.2): one authoritative state machine per configured
// camera, coordinating the MediaPipeline's HLS and MP4 subsystems
// through start/stop protocols, a schedule gate, a 60-second schedule
// monitor that re-reads the Repository, and feature toggles.
package stream
