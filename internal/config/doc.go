// Package config loads, validates, and hot-reloads the recorder's
// configuration surface: global storage/pressure/logging settings and
// the per-stream source, feature-flag, retention, detection, and
// weekly-schedule settings described in spec.md §6.
//
// Key features:
//   - YAML configuration loading with Viper, with NVR_-prefixed
//     environment variable overrides
//   - fsnotify-driven hot reload: a bad edit is logged and skipped
//     rather than taking the service down
//   - stream/global retention override resolution (EffectiveRetentionDays,
//     EffectiveDetectionRetentionDays, EffectiveMaxStorageMB, SkipRetention)
//   - direct yaml.v3 re-parsing of each stream's 168-slot weekly schedule
//     vector, which mapstructure cannot target as a fixed-size array
package config
