package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_SetsComponentAndDefaultFormatter(t *testing.T) {
	l := NewLogger("stream-supervisor")
	assert.NotNil(t, l.Logger)
	assert.Equal(t, "stream-supervisor", l.component)
	_, isText := l.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestGetDefaultLogger_ReturnsSameInstance(t *testing.T) {
	a := GetDefaultLogger()
	b := GetDefaultLogger()
	assert.Same(t, a, b)
}

func TestSetupLogging_ParsesValidLevel(t *testing.T) {
	err := SetupLogging(&LoggingConfig{Level: "warn", ConsoleEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, GetDefaultLogger().GetLevel())
}

func TestSetupLogging_FallsBackToInfoOnInvalidLevel(t *testing.T) {
	err := SetupLogging(&LoggingConfig{Level: "not-a-level", ConsoleEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, GetDefaultLogger().GetLevel())
}

func TestSetupLogging_FileHandlerCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "nvr.log")

	err := SetupLogging(&LoggingConfig{
		Level:       "info",
		FileEnabled: true,
		FilePath:    logPath,
		MaxFileSize: 10 * 1024 * 1024,
		BackupCount: 3,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Dir(logPath))
	assert.NoError(t, err)
}

func TestCreateFileFormatter_JSONWhenEnvIsProduction(t *testing.T) {
	os.Setenv("NVR_ENV", "production")
	defer os.Unsetenv("NVR_ENV")

	f := createFileFormatter("text")
	_, isJSON := f.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestCreateFileFormatter_TextByDefault(t *testing.T) {
	os.Unsetenv("NVR_ENV")
	f := createFileFormatter("text")
	_, isText := f.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestLogger_WithFieldAndWithError_PreserveComponent(t *testing.T) {
	base := NewLogger("detector")
	withField := base.WithField("stream", "front-door")
	assert.Equal(t, "detector", withField.component)

	withErr := base.WithError(assert.AnError)
	assert.Equal(t, "detector", withErr.component)
}

func TestLogger_WithCorrelationID(t *testing.T) {
	base := NewLogger("detector")
	withID := base.WithCorrelationID("abc-123")
	assert.Equal(t, "abc-123", withID.correlationID)
}

func TestCorrelationIDContext_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "req-1")
	assert.Equal(t, "req-1", GetCorrelationIDFromContext(ctx))
}

func TestGetCorrelationIDFromContext_EmptyWhenAbsent(t *testing.T) {
	assert.Equal(t, "", GetCorrelationIDFromContext(context.Background()))
	assert.Equal(t, "", GetCorrelationIDFromContext(nil))
}

func TestGenerateCorrelationID_ProducesUniqueValues(t *testing.T) {
	a := GenerateCorrelationID()
	b := GenerateCorrelationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestSetupLoggingSimple(t *testing.T) {
	dir := t.TempDir()
	err := SetupLoggingSimple(filepath.Join(dir, "simple.log"), "debug")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, GetDefaultLogger().GetLevel())
}
