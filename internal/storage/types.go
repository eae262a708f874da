package storage

import "time"

// PressureLevel classifies how close the storage root is to full
// (spec.md §3 StorageHealth, §4.1 "Pressure classification").
type PressureLevel string

const (
	PressureNormal    PressureLevel = "normal"
	PressureElevated  PressureLevel = "elevated"
	PressureCritical  PressureLevel = "critical"
	PressureEmergency PressureLevel = "emergency"
)

// Health is the cached snapshot updated only by the Controller
// (spec.md §3 "StorageHealth").
type Health struct {
	PressureLevel      PressureLevel
	FreeSpacePct       float64
	FreeSpaceBytes     uint64
	TotalSpaceBytes    uint64
	UsedSpaceBytes     uint64
	LastCheckTime      time.Time
	LastCleanupTime    time.Time
	LastDeepTime       time.Time
	LastCleanupDeleted int
	LastCleanupFreed   uint64
}

// classify is the pure function of free_pct described in spec.md §4.1.
// Floors are inclusive lower bounds for their level.
func classify(freePct, normalFloor, elevatedFloor, criticalFloor float64) PressureLevel {
	switch {
	case freePct >= normalFloor:
		return PressureNormal
	case freePct >= elevatedFloor:
		return PressureElevated
	case freePct >= criticalFloor:
		return PressureCritical
	default:
		return PressureEmergency
	}
}
