package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "test_files", cfg.TestDir)
	assert.Equal(t, "test_reports", cfg.ReportDir)
	assert.Equal(t, 10*time.Second, cfg.ElementTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.StepDelay)
	assert.Equal(t, time.Second, cfg.SettleDelay)
	assert.Equal(t, 3, cfg.MaxParallel)
	assert.Equal(t, int64(16<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"chrome", "chromium", "edge"}, cfg.Targets)
	assert.True(t, cfg.Headless)
	assert.False(t, cfg.Record)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PAGETEST_PORT", "9100")
	t.Setenv("PAGETEST_ELEMENT_TIMEOUT", "3s")
	t.Setenv("PAGETEST_STEP_DELAY", "50ms")
	t.Setenv("PAGETEST_HEADLESS", "false")
	t.Setenv("PAGETEST_TARGETS", "chrome, edge")
	t.Setenv("PAGETEST_MAX_UPLOAD_MB", "4")

	cfg := LoadConfig()

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.ElementTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.StepDelay)
	assert.False(t, cfg.Headless)
	assert.Equal(t, []string{"chrome", "edge"}, cfg.Targets)
	assert.Equal(t, int64(4<<20), cfg.MaxUploadBytes)
}

func TestLoadConfigIgnoresInvalidValues(t *testing.T) {
	t.Setenv("PAGETEST_PORT", "not-a-number")
	t.Setenv("PAGETEST_ELEMENT_TIMEOUT", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ElementTimeout)
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	cfg := LoadConfig()
	cfg.TestDir = filepath.Join(base, "tests")
	cfg.ReportDir = filepath.Join(base, "reports")
	cfg.ScreenshotDir = filepath.Join(base, "shots")
	cfg.RecordingDir = filepath.Join(base, "recs")

	require.NoError(t, cfg.EnsureDirs())
	require.DirExists(t, cfg.TestDir)
	require.DirExists(t, cfg.ReportDir)
	require.DirExists(t, cfg.ScreenshotDir)
	require.DirExists(t, cfg.RecordingDir)
}

func TestBinFor(t *testing.T) {
	cfg := LoadConfig()
	cfg.EdgeBin = "/opt/edge/msedge"

	assert.Equal(t, "/opt/edge/msedge", cfg.BinFor("edge"))
	assert.Equal(t, "", cfg.BinFor("chrome"))
	assert.Equal(t, "", cfg.BinFor("netscape"))
}
