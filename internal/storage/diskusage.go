package storage

import "github.com/shirou/gopsutil/v3/disk"

// GopsutilDiskUsage is the production DiskUsageFunc, backed by
// gopsutil's cross-platform disk.Usage (replacing the teacher's
// Linux-only syscall.Statfs calculation with the same percent-of-total
// math driven by a portable library call).
func GopsutilDiskUsage(path string) (total, free uint64, err error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, 0, err
	}
	return usage.Total, usage.Free, nil
}
