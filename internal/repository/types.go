package repository

import "time"

// TriggerType is the reason a recording was created (spec.md §3).
type TriggerType string

const (
	TriggerContinuous TriggerType = "continuous"
	TriggerScheduled  TriggerType = "scheduled"
	TriggerDetection  TriggerType = "detection"
	TriggerManual     TriggerType = "manual"
)

// RetentionTier classifies a recording's importance for the tiered
// retention pass. Ordering matters: ascending from Ephemeral is the
// deletion order used by emergency cleanup.
type RetentionTier string

const (
	TierEphemeral RetentionTier = "ephemeral"
	TierStandard  RetentionTier = "standard"
	TierImportant RetentionTier = "important"
	TierCritical  RetentionTier = "critical"
)

// Recording is a persisted MP4 segment's metadata row (spec.md §3).
type Recording struct {
	ID            int64
	StreamName    string
	FilePath      string
	SizeBytes     int64
	CreatedAt     time.Time
	TriggerType   TriggerType
	RetentionTier RetentionTier
	Protected     bool
}

// Detection is a single labelled box observed on one stream at one
// instant (spec.md §3).
type Detection struct {
	StreamName string
	Timestamp  time.Time
	Label      string
	Confidence float64
	X, Y, W, H float64
	ZoneID     string
}

// Zone is a named polygon per stream (spec.md §3).
type Zone struct {
	ID            string
	StreamName    string
	Name          string
	Points        [][2]float64
	Enabled       bool
	ClassFilter   []string
	MinConfidence float64
}

// RetentionConfig is the resolved (stream-or-global) retention view the
// Storage Controller acts on.
type RetentionConfig struct {
	RetentionDays          int
	DetectionRetentionDays int
	MaxStorageMB           int64
	TierCriticalMult       float64
	TierImportantMult      float64
	TierStandardMult       float64
	TierEphemeralMult      float64
}
