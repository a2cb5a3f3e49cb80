package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoder()
	c.normalizeTranscode()
	c.normalizeScheduler()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.OutputBase = strings.TrimSpace(c.Paths.OutputBase)
	if c.Paths.OutputBase == "" {
		c.Paths.OutputBase = defaultOutputBase
	}
	c.Paths.OutputBase = strings.TrimRight(c.Paths.OutputBase, "/")
	return nil
}

func (c *Config) normalizeEncoder() {
	c.Encoder.BaseURL = strings.TrimRight(strings.TrimSpace(c.Encoder.BaseURL), "/")
	if c.Encoder.BaseURL == "" {
		c.Encoder.BaseURL = defaultEncoderBaseURL
	}
	c.Encoder.APIKey = strings.TrimSpace(c.Encoder.APIKey)
	if c.Encoder.APIKey == "" {
		if value, ok := os.LookupEnv("MAINLINE_ENCODER_API_KEY"); ok {
			c.Encoder.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Encoder.RequestTimeout <= 0 {
		c.Encoder.RequestTimeout = defaultEncoderRequestTimeout
	}
}

func (c *Config) normalizeTranscode() {
	t := &c.Transcode
	if t.MaxBatchSize <= 0 {
		t.MaxBatchSize = defaultMaxBatchSize
	}
	if t.MaxConcurrentSubmissions <= 0 {
		t.MaxConcurrentSubmissions = defaultMaxConcurrentSubmissions
	}
	if t.SubmitDelayMS < 0 {
		t.SubmitDelayMS = defaultSubmitDelayMS
	}
	if t.SubmitJitterMS < 0 {
		t.SubmitJitterMS = defaultSubmitJitterMS
	}
	if t.BatchCooldownMS < 0 {
		t.BatchCooldownMS = defaultBatchCooldownMS
	}
	if t.SubmitTimeoutSeconds <= 0 {
		t.SubmitTimeoutSeconds = defaultSubmitTimeoutSeconds
	}
	if t.PollIntervalMS < 0 {
		t.PollIntervalMS = defaultPollIntervalMS
	}
	if t.MaxPollAttempts <= 0 {
		t.MaxPollAttempts = defaultMaxPollAttempts
	}
	if t.RateLimitBackoffMS <= 0 {
		t.RateLimitBackoffMS = defaultRateLimitBackoffMS
	}
	if t.StuckThresholdMinutes <= 0 {
		t.StuckThresholdMinutes = defaultStuckThresholdMinutes
	}
	if t.TargetHeight <= 0 {
		t.TargetHeight = defaultTargetHeight
	}
	if t.VideoBitrateKbps <= 0 {
		t.VideoBitrateKbps = defaultVideoBitrateKbps
	}
	if t.AudioBitrateKbps <= 0 {
		t.AudioBitrateKbps = defaultAudioBitrateKbps
	}
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.ProcessInterval <= 0 {
		c.Scheduler.ProcessInterval = defaultProcessInterval
	}
	if c.Scheduler.ReconcileInterval <= 0 {
		c.Scheduler.ReconcileInterval = defaultReconcileInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
