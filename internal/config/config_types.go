package config

import "time"

// ObjectFilterMode selects how detection_object_filter_list is applied.
type ObjectFilterMode string

const (
	ObjectFilterNone    ObjectFilterMode = "none"
	ObjectFilterInclude ObjectFilterMode = "include"
	ObjectFilterExclude ObjectFilterMode = "exclude"
)

// TierMultipliers holds the four retention-tier multipliers for a stream
// (spec.md §3's "four tier multipliers (critical/important/standard/
// ephemeral) as positive reals").
type TierMultipliers struct {
	Critical  float64 `mapstructure:"tier_critical_multiplier" yaml:"tier_critical_multiplier"`
	Important float64 `mapstructure:"tier_important_multiplier" yaml:"tier_important_multiplier"`
	Standard  float64 `mapstructure:"tier_standard_multiplier" yaml:"tier_standard_multiplier"`
	Ephemeral float64 `mapstructure:"tier_ephemeral_multiplier" yaml:"tier_ephemeral_multiplier"`
}

// DefaultTierMultipliers mirrors the spec's "ephemeral typically < 1,
// critical much greater than 1" guidance.
func DefaultTierMultipliers() TierMultipliers {
	return TierMultipliers{
		Critical:  10.0,
		Important: 3.0,
		Standard:  1.0,
		Ephemeral: 0.25,
	}
}

// Schedule is the 168-slot weekly boolean vector indexed by
// weekday*24+hour, local time. weekday 0 = Sunday, matching time.Weekday.
type Schedule [168]bool

// SlotFor returns the schedule index for a local time instant.
func SlotFor(t time.Time) int {
	return int(t.Weekday())*24 + t.Hour()
}

// StreamConfig is the configured view of one camera (spec.md §3
// "Stream").
type StreamConfig struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Source   string `mapstructure:"source_url" yaml:"source_url"`
	Codec    string `mapstructure:"codec" yaml:"codec"`
	FrameFPS float64 `mapstructure:"frame_rate_hint" yaml:"frame_rate_hint"`
	Priority int    `mapstructure:"priority" yaml:"priority"`
	IsONVIF  bool   `mapstructure:"is_onvif" yaml:"is_onvif"`

	// Feature flags.
	StreamingEnabled        bool `mapstructure:"streaming_enabled" yaml:"streaming_enabled"`
	Record                  bool `mapstructure:"record" yaml:"record"`
	DetectionBasedRecording bool `mapstructure:"detection_based_recording" yaml:"detection_based_recording"`
	RecordOnSchedule        bool `mapstructure:"record_on_schedule" yaml:"record_on_schedule"`

	// Retention.
	RetentionDays          int   `mapstructure:"retention_days" yaml:"retention_days"`
	DetectionRetentionDays int   `mapstructure:"detection_retention_days" yaml:"detection_retention_days"`
	MaxStorageMB           int64 `mapstructure:"max_storage_mb" yaml:"max_storage_mb"`

	TierCriticalMultiplier  float64 `mapstructure:"tier_critical_multiplier" yaml:"tier_critical_multiplier"`
	TierImportantMultiplier float64 `mapstructure:"tier_important_multiplier" yaml:"tier_important_multiplier"`
	TierStandardMultiplier  float64 `mapstructure:"tier_standard_multiplier" yaml:"tier_standard_multiplier"`
	TierEphemeralMultiplier float64 `mapstructure:"tier_ephemeral_multiplier" yaml:"tier_ephemeral_multiplier"`

	// Detection.
	DetectionModel            string           `mapstructure:"detection_model" yaml:"detection_model"`
	DetectionThreshold        float64          `mapstructure:"detection_threshold" yaml:"detection_threshold"`
	DetectionInterval         int              `mapstructure:"detection_interval" yaml:"detection_interval"`
	PreDetectionBuffer        time.Duration    `mapstructure:"pre_detection_buffer" yaml:"pre_detection_buffer"`
	PostDetectionBuffer       time.Duration    `mapstructure:"post_detection_buffer" yaml:"post_detection_buffer"`
	DetectionObjectFilter     ObjectFilterMode `mapstructure:"detection_object_filter" yaml:"detection_object_filter"`
	DetectionObjectFilterList string           `mapstructure:"detection_object_filter_list" yaml:"detection_object_filter_list"`

	// Schedule, only consulted when RecordOnSchedule is true.
	RecordingSchedule Schedule `mapstructure:"-" yaml:"recording_schedule"`

	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Tiers packs the four flattened multiplier fields back into a
// TierMultipliers value, substituting DefaultTierMultipliers for any
// multiplier left at its zero value.
func (s *StreamConfig) Tiers() TierMultipliers {
	d := DefaultTierMultipliers()
	t := TierMultipliers{
		Critical:  s.TierCriticalMultiplier,
		Important: s.TierImportantMultiplier,
		Standard:  s.TierStandardMultiplier,
		Ephemeral: s.TierEphemeralMultiplier,
	}
	if t.Critical <= 0 {
		t.Critical = d.Critical
	}
	if t.Important <= 0 {
		t.Important = d.Important
	}
	if t.Standard <= 0 {
		t.Standard = d.Standard
	}
	if t.Ephemeral <= 0 {
		t.Ephemeral = d.Ephemeral
	}
	return t
}

// RecordingMode is the derived table of spec.md §4.2.
type RecordingMode int

const (
	RecordingModeNone RecordingMode = iota
	RecordingModeContinuous
	RecordingModeDetectionOnly
	RecordingModeContinuousWithAnnotation
)

func (m RecordingMode) String() string {
	switch m {
	case RecordingModeContinuous:
		return "continuous"
	case RecordingModeDetectionOnly:
		return "detection_only"
	case RecordingModeContinuousWithAnnotation:
		return "continuous_with_annotation"
	default:
		return "none"
	}
}

// DerivedRecordingMode implements the spec.md §4.2 table.
func DerivedRecordingMode(record, detectionBased bool) RecordingMode {
	switch {
	case record && detectionBased:
		return RecordingModeContinuousWithAnnotation
	case record:
		return RecordingModeContinuous
	case detectionBased:
		return RecordingModeDetectionOnly
	default:
		return RecordingModeNone
	}
}

// StorageConfig is the global storage surface (spec.md §6).
type StorageConfig struct {
	StoragePath      string  `mapstructure:"storage_path" yaml:"storage_path"`
	StoragePathHLS   string  `mapstructure:"storage_path_hls" yaml:"storage_path_hls"`
	MaxSizeBytes     int64   `mapstructure:"max_size_bytes" yaml:"max_size_bytes"`
	RetentionDays    int     `mapstructure:"retention_days" yaml:"retention_days"`
	PressureNormal   float64 `mapstructure:"pressure_normal_floor" yaml:"pressure_normal_floor"`
	PressureElevated float64 `mapstructure:"pressure_elevated_floor" yaml:"pressure_elevated_floor"`
	PressureCritical float64 `mapstructure:"pressure_critical_floor" yaml:"pressure_critical_floor"`
}

// GlobalConfig is the top-level configuration document.
type GlobalConfig struct {
	Storage         StorageConfig  `mapstructure:"storage" yaml:"storage"`
	MQTTTopicPrefix string         `mapstructure:"mqtt_topic_prefix" yaml:"mqtt_topic_prefix"`
	ModelsPath      string         `mapstructure:"models_path" yaml:"models_path"`
	Logging         LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Streams         []StreamConfig `mapstructure:"streams" yaml:"streams"`
}

// LoggingConfig mirrors logging.LoggingConfig so config owns the
// mapstructure tags and logging stays free of a viper dependency.
type LoggingConfig struct {
	Level          string `mapstructure:"level" yaml:"level"`
	Format         string `mapstructure:"format" yaml:"format"`
	FileEnabled    bool   `mapstructure:"file_enabled" yaml:"file_enabled"`
	FilePath       string `mapstructure:"file_path" yaml:"file_path"`
	MaxFileSize    int    `mapstructure:"max_file_size" yaml:"max_file_size"`
	BackupCount    int    `mapstructure:"backup_count" yaml:"backup_count"`
	ConsoleEnabled bool   `mapstructure:"console_enabled" yaml:"console_enabled"`
}
