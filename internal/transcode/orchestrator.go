package transcode

import (
	"log/slog"
	"time"

	"mainline/internal/assets"
	"mainline/internal/config"
	"mainline/internal/encoder"
	"mainline/internal/logging"
	"mainline/internal/outputpath"
)

// Orchestrator drives the transcode lifecycle: it submits batches of
// candidate assets to the encoding service and reconciles in-flight jobs
// against the service's reported state.
type Orchestrator struct {
	cfg      *config.Config
	store    *assets.Store
	svc      encoder.Service
	resolver outputpath.Resolver
	logger   *slog.Logger

	// sleep is swappable in tests so passes run without real delays.
	sleep func(time.Duration)
}

// New constructs an orchestrator using the configured encoder client.
func New(cfg *config.Config, store *assets.Store, logger *slog.Logger) *Orchestrator {
	return NewWithService(cfg, store, encoder.New(cfg), logger)
}

// NewWithService constructs an orchestrator with an explicit encoder service,
// used by tests to substitute a fake.
func NewWithService(cfg *config.Config, store *assets.Store, svc encoder.Service, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		svc:      svc,
		resolver: outputpath.NewResolver(cfg.Paths.OutputBase),
		logger:   logging.NewComponentLogger(logger, "transcode"),
		sleep:    time.Sleep,
	}
}
