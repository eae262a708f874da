// Package mediapipeline implements the MediaPipeline external
// contract (spec.md §1, §9): start/stop HLS, start/stop MP4 recording
// for a named source with a trigger type, and liveness queries. The
// RTSP demuxer / MP4 muxer / HLS segmenter itself is out of scope — the
// ffmpeg implementation here is a thin process-lifecycle wrapper, not a
// codec or container toolkit.
package mediapipeline
