package config

import (
	"fmt"
	"strings"

	"github.com/lenswatch/nvr-core/internal/constants"
)

// Validate checks a loaded GlobalConfig against the invariants of
// spec.md §3 and §6. It fails fast with a descriptive error, per
// spec.md §7's "fatal errors surface to the caller at startup".
func Validate(cfg *GlobalConfig) error {
	if cfg.Storage.StoragePath == "" {
		return fmt.Errorf("storage.storage_path is required")
	}
	if cfg.Storage.RetentionDays < 0 {
		return fmt.Errorf("storage.retention_days must be >= 0")
	}
	if cfg.Storage.MaxSizeBytes < 0 {
		return fmt.Errorf("storage.max_size_bytes must be >= 0")
	}

	seen := make(map[string]bool, len(cfg.Streams))
	for i := range cfg.Streams {
		s := &cfg.Streams[i]
		if err := validateStream(s); err != nil {
			return fmt.Errorf("stream %q: %w", s.Name, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate stream name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

func validateStream(s *StreamConfig) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Name) > 63 {
		return fmt.Errorf("name must be 1-63 characters")
	}
	if strings.ContainsAny(s.Name, "/\\") {
		return fmt.Errorf("name must not contain path separators")
	}
	if s.RetentionDays < 0 {
		return fmt.Errorf("retention_days must be >= 0")
	}
	if s.DetectionRetentionDays < 0 {
		return fmt.Errorf("detection_retention_days must be >= 0")
	}
	if s.MaxStorageMB < 0 {
		return fmt.Errorf("max_storage_mb must be >= 0")
	}
	if s.DetectionThreshold < 0 || s.DetectionThreshold > 1 {
		return fmt.Errorf("detection_threshold must be in [0,1]")
	}
	if s.DetectionInterval < 1 {
		return fmt.Errorf("detection_interval must be >= 1")
	}
	if s.PreDetectionBuffer < 0 {
		return fmt.Errorf("pre_detection_buffer must be >= 0")
	}
	if s.PostDetectionBuffer < 0 {
		return fmt.Errorf("post_detection_buffer must be >= 0")
	}
	switch s.DetectionObjectFilter {
	case ObjectFilterNone, ObjectFilterInclude, ObjectFilterExclude, "":
	default:
		return fmt.Errorf("detection_object_filter must be none, include, or exclude")
	}
	return nil
}

// EffectiveRetentionDays resolves the stream-over-global override of
// spec.md §4.1 step 1. A zero global value (explicitly configured, not
// merely absent from the file — viper's SetDefault already supplies 30
// for an absent key) is honored rather than silently overridden, so
// that an operator can genuinely disable time-based retention service
// wide.
func EffectiveRetentionDays(stream *StreamConfig, global *StorageConfig) int {
	if stream.RetentionDays > 0 {
		return stream.RetentionDays
	}
	return global.RetentionDays
}

// EffectiveDetectionRetentionDays resolves detection_retention_days,
// defaulting to 3x the effective regular retention when the stream
// doesn't override it.
func EffectiveDetectionRetentionDays(stream *StreamConfig, global *StorageConfig) int {
	if stream.DetectionRetentionDays > 0 {
		return stream.DetectionRetentionDays
	}
	return EffectiveRetentionDays(stream, global) * constants.DefaultDetectionRetentionMult
}

// EffectiveMaxStorageMB resolves the stream's quota, falling back to
// the global max_size_bytes (converted to MB) when the stream leaves it
// at 0.
func EffectiveMaxStorageMB(stream *StreamConfig, global *StorageConfig) int64 {
	if stream.MaxStorageMB > 0 {
		return stream.MaxStorageMB
	}
	return global.MaxSizeBytes / (1024 * 1024)
}

// SkipRetention implements spec.md §4.1 step 2: "skip the stream if all
// retention knobs are zero", evaluated against the *effective* (post
// stream/global resolution) values so a global override genuinely
// disables retention the way spec.md §8's boundary case requires.
func SkipRetention(stream *StreamConfig, global *StorageConfig) bool {
	return EffectiveRetentionDays(stream, global) == 0 &&
		EffectiveDetectionRetentionDays(stream, global) == 0 &&
		EffectiveMaxStorageMB(stream, global) == 0
}
