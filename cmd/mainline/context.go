package main

import (
	"strings"
	"sync"

	"mainline/internal/assets"
	"mainline/internal/config"
	"mainline/internal/logging"
	"mainline/internal/transcode"
)

type commandContext struct {
	configFlag  *string
	projectFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, projectFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		projectFlag: projectFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) project() string {
	if c.projectFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.projectFlag)
}

// withStore opens the asset store for one command invocation.
func (c *commandContext) withStore(fn func(*config.Config, *assets.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := assets.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withOrchestrator additionally wires the orchestrator with a configured
// logger and encoder client.
func (c *commandContext) withOrchestrator(fn func(*config.Config, *assets.Store, *transcode.Orchestrator) error) error {
	return c.withStore(func(cfg *config.Config, store *assets.Store) error {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		orch := transcode.New(cfg, store, logger)
		return fn(cfg, store, orch)
	})
}
