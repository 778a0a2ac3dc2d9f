package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"demoforge/internal/artifact"
	"demoforge/internal/config"
	"demoforge/internal/logging"
	"demoforge/internal/product"
)

// commandContext loads the configuration and logger on first use so commands
// that never touch them work without a config file.
type commandContext struct {
	configFlag *string
	configPath string

	ensureConfig func() (*config.Config, error)
	ensureLogger func() (*slog.Logger, error)
}

func newCommandContext(configFlag *string) *commandContext {
	c := &commandContext{configFlag: configFlag}
	c.ensureConfig = sync.OnceValues(c.loadConfig)
	c.ensureLogger = sync.OnceValues(func() (*slog.Logger, error) {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		return logging.NewFromConfig(cfg)
	})
	return c
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	cfg, resolved, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	c.configPath = resolved
	return cfg, nil
}

// productWorkspace is a loaded product spec with its run root.
type productWorkspace struct {
	cfg   *config.Config
	spec  *product.Spec
	store *artifact.Store
}

func (c *commandContext) openProduct(path string) (*productWorkspace, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("a product specification is required (--product)")
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve product path: %w", err)
	}
	spec, err := product.Load(expanded)
	if err != nil {
		return nil, err
	}
	store, err := artifact.Open(cfg.RunDir(spec.Slug()))
	if err != nil {
		return nil, err
	}
	return &productWorkspace{cfg: cfg, spec: spec, store: store}, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
