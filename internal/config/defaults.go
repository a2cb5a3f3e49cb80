package config

const (
	defaultDataDir    = "~/.local/share/mainline/data"
	defaultLogDir     = "~/.local/share/mainline/logs"
	defaultOutputBase = "media/transcoded"

	defaultEncoderBaseURL        = "https://encode.mainline.app/v1"
	defaultEncoderRequestTimeout = 30

	defaultMaxBatchSize             = 20
	defaultMaxConcurrentSubmissions = 4
	defaultSubmitDelayMS            = 250
	defaultSubmitJitterMS           = 150
	defaultBatchCooldownMS          = 2000
	defaultSubmitTimeoutSeconds     = 60
	defaultPollIntervalMS           = 500
	defaultMaxPollAttempts          = 100
	defaultRateLimitBackoffMS       = 5000
	defaultStuckThresholdMinutes    = 15
	defaultTargetHeight             = 480
	defaultVideoBitrateKbps         = 1200
	defaultAudioBitrateKbps         = 96

	defaultProcessInterval   = 60
	defaultReconcileInterval = 30

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			OutputBase: defaultOutputBase,
		},
		Encoder: Encoder{
			BaseURL:        defaultEncoderBaseURL,
			RequestTimeout: defaultEncoderRequestTimeout,
		},
		Transcode: Transcode{
			MaxBatchSize:             defaultMaxBatchSize,
			MaxConcurrentSubmissions: defaultMaxConcurrentSubmissions,
			SubmitDelayMS:            defaultSubmitDelayMS,
			SubmitJitterMS:           defaultSubmitJitterMS,
			BatchCooldownMS:          defaultBatchCooldownMS,
			SubmitTimeoutSeconds:     defaultSubmitTimeoutSeconds,
			PollIntervalMS:           defaultPollIntervalMS,
			MaxPollAttempts:          defaultMaxPollAttempts,
			RateLimitBackoffMS:       defaultRateLimitBackoffMS,
			StuckThresholdMinutes:    defaultStuckThresholdMinutes,
			TargetHeight:             defaultTargetHeight,
			VideoBitrateKbps:         defaultVideoBitrateKbps,
			AudioBitrateKbps:         defaultAudioBitrateKbps,
		},
		Scheduler: Scheduler{
			ProcessInterval:   defaultProcessInterval,
			ReconcileInterval: defaultReconcileInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
