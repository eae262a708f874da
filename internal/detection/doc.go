// Package detection implements the Detection Worker and Recording
// Policy Engine (spec.md §4.3): one worker per stream whose
// detection_based_recording flag is set, sampling frames, filtering
// detections by zone and object class, persisting survivors, and
// driving MP4 recording from the resulting rolling-window history.
package detection
