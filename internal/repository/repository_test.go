package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenswatch/nvr-core/internal/config"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	r, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRepository_StreamConfigRoundTrip(t *testing.T) {
	r := openTestRepo(t)

	s := config.StreamConfig{Name: "front-door", Source: "rtsp://cam/front", RetentionDays: 7}
	require.NoError(t, r.UpsertStreamConfig(s))

	got, ok, err := r.GetStreamConfig("front-door")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.Source, got.Source)
	assert.Equal(t, 7, got.RetentionDays)

	all, err := r.GetAllStreamConfigs()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, r.DeleteStreamConfig("front-door"))
	_, ok, err = r.GetStreamConfig("front-door")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_GetStreamConfig_MissingReturnsFalse(t *testing.T) {
	r := openTestRepo(t)
	_, ok, err := r.GetStreamConfig("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func insertTestRecording(t *testing.T, r *Repository, stream, path string, age time.Duration, trigger TriggerType, tier RetentionTier, protected bool) int64 {
	t.Helper()
	id, err := r.InsertRecording(Recording{
		StreamName:    stream,
		FilePath:      path,
		SizeBytes:     3 * 1024 * 1024,
		CreatedAt:     time.Now().Add(-age),
		TriggerType:   trigger,
		RetentionTier: tier,
		Protected:     protected,
	})
	require.NoError(t, err)
	return id
}

func TestRepository_GetRecordingsForRetention_ExcludesProtectedAndRecent(t *testing.T) {
	r := openTestRepo(t)

	insertTestRecording(t, r, "cam1", "/a", 40*24*time.Hour, TriggerContinuous, TierStandard, false)
	insertTestRecording(t, r, "cam1", "/b", 1*24*time.Hour, TriggerContinuous, TierStandard, false)
	insertTestRecording(t, r, "cam1", "/c", 40*24*time.Hour, TriggerContinuous, TierStandard, true)

	recs, err := r.GetRecordingsForRetention("cam1", 30, 90, 100)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "/a", recs[0].FilePath)
}

func TestRepository_GetRecordingsForRetention_DetectionTriggerUsesDetectionHorizon(t *testing.T) {
	r := openTestRepo(t)

	// 10 days old: older than regular retention (5) but younger than detection retention (30).
	insertTestRecording(t, r, "cam1", "/d", 10*24*time.Hour, TriggerDetection, TierStandard, false)

	recs, err := r.GetRecordingsForRetention("cam1", 5, 30, 100)
	require.NoError(t, err)
	assert.Empty(t, recs, "a detection recording within its detection retention horizon must not be selected")
}

func TestRepository_GetRecordingsForQuotaEnforcement_OldestFirstExcludesProtected(t *testing.T) {
	r := openTestRepo(t)

	insertTestRecording(t, r, "cam1", "/old", 10*24*time.Hour, TriggerContinuous, TierStandard, false)
	insertTestRecording(t, r, "cam1", "/new", 1*24*time.Hour, TriggerContinuous, TierStandard, false)
	insertTestRecording(t, r, "cam1", "/protected", 20*24*time.Hour, TriggerContinuous, TierStandard, true)

	recs, err := r.GetRecordingsForQuotaEnforcement("cam1", 100)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "/old", recs[0].FilePath)
	assert.Equal(t, "/new", recs[1].FilePath)
}

func TestRepository_GetRecordingsForPressureCleanup_EphemeralFirstThenOldest(t *testing.T) {
	r := openTestRepo(t)

	insertTestRecording(t, r, "cam1", "/critical-old", 20*24*time.Hour, TriggerContinuous, TierCritical, false)
	insertTestRecording(t, r, "cam1", "/ephemeral-new", 1*24*time.Hour, TriggerContinuous, TierEphemeral, false)
	insertTestRecording(t, r, "cam1", "/ephemeral-old", 5*24*time.Hour, TriggerContinuous, TierEphemeral, false)

	recs, err := r.GetRecordingsForPressureCleanup(100)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "/ephemeral-old", recs[0].FilePath)
	assert.Equal(t, "/ephemeral-new", recs[1].FilePath)
	assert.Equal(t, "/critical-old", recs[2].FilePath)
}

func TestRepository_GetOrphanedDBEntries_DetectsMissingFiles(t *testing.T) {
	r := openTestRepo(t)

	existing := filepath.Join(t.TempDir(), "real.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	insertTestRecording(t, r, "cam1", existing, time.Hour, TriggerContinuous, TierStandard, false)
	insertTestRecording(t, r, "cam1", "/does/not/exist.mp4", time.Hour, TriggerContinuous, TierStandard, false)

	orphans, checked, err := r.GetOrphanedDBEntries(100)
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	require.Len(t, orphans, 1)
	assert.Equal(t, "/does/not/exist.mp4", orphans[0].FilePath)
}

func TestRepository_GetStreamStorageBytes_SumsRecordings(t *testing.T) {
	r := openTestRepo(t)
	insertTestRecording(t, r, "cam1", "/a", time.Hour, TriggerContinuous, TierStandard, false)
	insertTestRecording(t, r, "cam1", "/b", time.Hour, TriggerContinuous, TierStandard, false)

	total, err := r.GetStreamStorageBytes("cam1")
	require.NoError(t, err)
	assert.Equal(t, uint64(6*1024*1024), total)
}

func TestRepository_GetStreamStorageBytes_ZeroWhenNoRecordings(t *testing.T) {
	r := openTestRepo(t)
	total, err := r.GetStreamStorageBytes("cam-none")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
}

func TestRepository_DeleteRecordingMetadata_RemovesRowAndThumbnails(t *testing.T) {
	r := openTestRepo(t)
	id := insertTestRecording(t, r, "cam1", "/a", time.Hour, TriggerContinuous, TierStandard, false)

	require.NoError(t, r.DeleteRecordingMetadata(id))

	_, ok, err := r.GetRecordingMetadataByPath("/a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_GetRecordingMetadataByPath(t *testing.T) {
	r := openTestRepo(t)
	insertTestRecording(t, r, "cam1", "/a", time.Hour, TriggerContinuous, TierStandard, false)

	rec, ok, err := r.GetRecordingMetadataByPath("/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cam1", rec.StreamName)

	_, ok, err = r.GetRecordingMetadataByPath("/missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_DetectionRoundTrip(t *testing.T) {
	r := openTestRepo(t)
	require.NoError(t, r.InsertDetection(Detection{
		StreamName: "cam1", Timestamp: time.Now(), Label: "person", Confidence: 0.9,
		X: 0.1, Y: 0.1, W: 0.2, H: 0.3,
	}))

	dets, err := r.GetDetectionsSince("cam1", 30*time.Second)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "person", dets[0].Label)
}

func TestRepository_GetDetectionsSince_ExcludesOldDetections(t *testing.T) {
	r := openTestRepo(t)
	require.NoError(t, r.InsertDetection(Detection{
		StreamName: "cam1", Timestamp: time.Now().Add(-time.Hour), Label: "car", Confidence: 0.8,
	}))

	dets, err := r.GetDetectionsSince("cam1", 30*time.Second)
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestRepository_ZoneRoundTrip(t *testing.T) {
	r := openTestRepo(t)
	z := Zone{
		ID: "z1", StreamName: "cam1", Name: "driveway",
		Points:        [][2]float64{{0, 0}, {1, 0}, {1, 1}},
		Enabled:       true,
		ClassFilter:   []string{"person"},
		MinConfidence: 0.5,
	}
	require.NoError(t, r.UpsertZone(z))

	zones, err := r.GetDetectionZones("cam1")
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "driveway", zones[0].Name)
	assert.Equal(t, []string{"person"}, zones[0].ClassFilter)

	require.NoError(t, r.DeleteZone("z1"))
	zones, err = r.GetDetectionZones("cam1")
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestRepository_GetStreamRetentionConfig_ResolvesAgainstGlobal(t *testing.T) {
	r := openTestRepo(t)
	require.NoError(t, r.UpsertStreamConfig(config.StreamConfig{Name: "cam1"}))

	rc, err := r.GetStreamRetentionConfig("cam1", config.StorageConfig{RetentionDays: 30})
	require.NoError(t, err)
	assert.Equal(t, 30, rc.RetentionDays)
	assert.Equal(t, 90, rc.DetectionRetentionDays)
	assert.Equal(t, config.DefaultTierMultipliers().Critical, rc.TierCriticalMult)
}
