package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Port          int
	TestDir       string
	ReportDir     string
	ScreenshotDir string
	RecordingDir  string

	Headless bool
	Record   bool

	ElementTimeout time.Duration
	StepDelay      time.Duration
	SettleDelay    time.Duration

	MaxParallel    int
	MaxUploadBytes int64

	// Targets is the browser set an "all" run expands to.
	Targets []string

	// Explicit browser binary overrides; empty means auto-detect.
	ChromeBin   string
	ChromiumBin string
	EdgeBin     string

	Debug bool
}

// LoadConfig loads configuration from environment variables with sensible defaults
func LoadConfig() *Config {
	return &Config{
		Port:           getEnvIntOrDefault("PAGETEST_PORT", 8000),
		TestDir:        getEnvOrDefault("PAGETEST_TEST_DIR", "test_files"),
		ReportDir:      getEnvOrDefault("PAGETEST_REPORT_DIR", "test_reports"),
		ScreenshotDir:  getEnvOrDefault("PAGETEST_SCREENSHOT_DIR", "screenshots"),
		RecordingDir:   getEnvOrDefault("PAGETEST_RECORDING_DIR", "recordings"),
		Headless:       getEnvBoolOrDefault("PAGETEST_HEADLESS", true),
		Record:         getEnvBoolOrDefault("PAGETEST_RECORD", false),
		ElementTimeout: getEnvDurationOrDefault("PAGETEST_ELEMENT_TIMEOUT", 10*time.Second),
		StepDelay:      getEnvDurationOrDefault("PAGETEST_STEP_DELAY", 500*time.Millisecond),
		SettleDelay:    getEnvDurationOrDefault("PAGETEST_SETTLE_DELAY", time.Second),
		MaxParallel:    getEnvIntOrDefault("PAGETEST_MAX_PARALLEL", 3),
		MaxUploadBytes: int64(getEnvIntOrDefault("PAGETEST_MAX_UPLOAD_MB", 16)) << 20,
		Targets:        splitList(getEnvOrDefault("PAGETEST_TARGETS", "chrome,chromium,edge")),
		ChromeBin:      getEnvOrDefault("PAGETEST_CHROME_BIN", ""),
		ChromiumBin:    getEnvOrDefault("PAGETEST_CHROMIUM_BIN", ""),
		EdgeBin:        getEnvOrDefault("PAGETEST_EDGE_BIN", ""),
		Debug:          getEnvBoolOrDefault("PAGETEST_DEBUG", false),
	}
}

// EnsureDirs creates every directory the application writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.TestDir, c.ReportDir, c.ScreenshotDir, c.RecordingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// BinFor returns the configured binary override for a browser target, if any.
func (c *Config) BinFor(target string) string {
	switch target {
	case "chrome":
		return c.ChromeBin
	case "chromium":
		return c.ChromiumBin
	case "edge":
		return c.EdgeBin
	}
	return ""
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go duration strings ("10s", "500ms").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
