package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and output location configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	OutputBase string `toml:"output_base"`
}

// Encoder contains configuration for the remote encoding service.
type Encoder struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Transcode contains batching, pacing, and target-profile configuration for
// the transcode orchestrator.
type Transcode struct {
	MaxBatchSize             int `toml:"max_batch_size"`
	MaxConcurrentSubmissions int `toml:"max_concurrent_submissions"`
	SubmitDelayMS            int `toml:"submit_delay_ms"`
	SubmitJitterMS           int `toml:"submit_jitter_ms"`
	BatchCooldownMS          int `toml:"batch_cooldown_ms"`
	SubmitTimeoutSeconds     int `toml:"submit_timeout_seconds"`
	PollIntervalMS           int `toml:"poll_interval_ms"`
	MaxPollAttempts          int `toml:"max_poll_attempts"`
	RateLimitBackoffMS       int `toml:"rate_limit_backoff_ms"`
	StuckThresholdMinutes    int `toml:"stuck_threshold_minutes"`
	TargetHeight             int `toml:"target_height"`
	VideoBitrateKbps         int `toml:"video_bitrate_kbps"`
	AudioBitrateKbps         int `toml:"audio_bitrate_kbps"`
}

// Scheduler contains daemon invocation intervals, in seconds.
type Scheduler struct {
	ProcessInterval   int `toml:"process_interval"`
	ReconcileInterval int `toml:"reconcile_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mainline.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and the canonical output base URI
//   - Encoder: remote encoding service endpoint and credentials
//   - Transcode: batch sizing, submission pacing, polling, target profile
//   - Scheduler: daemon invocation intervals
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Encoder   Encoder   `toml:"encoder"`
	Transcode Transcode `toml:"transcode"`
	Scheduler Scheduler `toml:"scheduler"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mainline/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mainline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SubmitDelay returns the base delay between job submissions.
func (t Transcode) SubmitDelay() time.Duration {
	return time.Duration(t.SubmitDelayMS) * time.Millisecond
}

// SubmitJitter returns the maximum random jitter added to SubmitDelay.
func (t Transcode) SubmitJitter() time.Duration {
	return time.Duration(t.SubmitJitterMS) * time.Millisecond
}

// BatchCooldown returns the pause between submission windows.
func (t Transcode) BatchCooldown() time.Duration {
	return time.Duration(t.BatchCooldownMS) * time.Millisecond
}

// SubmitTimeout returns the per-call deadline for remote job creation.
func (t Transcode) SubmitTimeout() time.Duration {
	return time.Duration(t.SubmitTimeoutSeconds) * time.Second
}

// PollInterval returns the delay between per-asset status checks.
func (t Transcode) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMS) * time.Millisecond
}

// RateLimitBackoff returns the pause applied after a rate-limited status check.
func (t Transcode) RateLimitBackoff() time.Duration {
	return time.Duration(t.RateLimitBackoffMS) * time.Millisecond
}

// StuckThreshold returns the age past which a non-terminal job is flagged as
// possibly stuck.
func (t Transcode) StuckThreshold() time.Duration {
	return time.Duration(t.StuckThresholdMinutes) * time.Minute
}

// Timeout returns the deadline applied to encoder API calls.
func (e Encoder) Timeout() time.Duration {
	return time.Duration(e.RequestTimeout) * time.Second
}

// ProcessEvery returns the daemon interval between candidate-processing passes.
func (s Scheduler) ProcessEvery() time.Duration {
	return time.Duration(s.ProcessInterval) * time.Second
}

// ReconcileEvery returns the daemon interval between reconciliation passes.
func (s Scheduler) ReconcileEvery() time.Duration {
	return time.Duration(s.ReconcileInterval) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
