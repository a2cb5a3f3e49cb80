// Package testsupport provides shared fixtures for mainline tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"mainline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Timings are collapsed so orchestrator tests run without real sleeps.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputBase = filepath.Join(base, "output")
	cfg.Encoder.BaseURL = "http://127.0.0.1:0"
	cfg.Encoder.APIKey = "test"
	cfg.Transcode.SubmitDelayMS = 0
	cfg.Transcode.SubmitJitterMS = 0
	cfg.Transcode.BatchCooldownMS = 0
	cfg.Transcode.PollIntervalMS = 0
	cfg.Transcode.RateLimitBackoffMS = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithEncoderURL points the test config at a specific encoder endpoint,
// typically an httptest server.
func WithEncoderURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Encoder.BaseURL = url
	}
}

// WithTargetHeight overrides the transcode target height.
func WithTargetHeight(height int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Transcode.TargetHeight = height
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
