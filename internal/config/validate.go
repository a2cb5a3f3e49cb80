package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/mainline/config.toml"
		}
		return fmt.Errorf("encoder.api_key is required. Set MAINLINE_ENCODER_API_KEY env var or edit %s (create with 'mainline config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Encoder.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("encoder.base_url %q must be an absolute URL", c.Encoder.BaseURL)
	}
	if c.Encoder.RequestTimeout <= 0 {
		return errors.New("encoder.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	t := c.Transcode
	if err := ensurePositiveMap(map[string]int{
		"transcode.max_batch_size":             t.MaxBatchSize,
		"transcode.max_concurrent_submissions": t.MaxConcurrentSubmissions,
		"transcode.submit_timeout_seconds":     t.SubmitTimeoutSeconds,
		"transcode.max_poll_attempts":          t.MaxPollAttempts,
		"transcode.rate_limit_backoff_ms":      t.RateLimitBackoffMS,
		"transcode.stuck_threshold_minutes":    t.StuckThresholdMinutes,
		"transcode.target_height":              t.TargetHeight,
		"transcode.video_bitrate_kbps":         t.VideoBitrateKbps,
		"transcode.audio_bitrate_kbps":         t.AudioBitrateKbps,
	}); err != nil {
		return err
	}
	if t.MaxConcurrentSubmissions > t.MaxBatchSize {
		return errors.New("transcode.max_concurrent_submissions must not exceed transcode.max_batch_size")
	}
	if t.SubmitDelayMS < 0 || t.SubmitJitterMS < 0 || t.BatchCooldownMS < 0 || t.PollIntervalMS < 0 {
		return errors.New("transcode delays must be >= 0")
	}
	if strings.TrimSpace(c.Paths.OutputBase) == "" {
		return errors.New("paths.output_base must be set")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	return ensurePositiveMap(map[string]int{
		"scheduler.process_interval":   c.Scheduler.ProcessInterval,
		"scheduler.reconcile_interval": c.Scheduler.ReconcileInterval,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
