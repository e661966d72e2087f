package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"github.com/rote-srs/rote/internal/config"
	"github.com/rote-srs/rote/internal/logging"
	"github.com/rote-srs/rote/internal/storage"
)

// commandContext carries lazily loaded configuration into the
// subcommands. The config is resolved once, on first use.
type commandContext struct {
	configFlag *string
	flags      *pflag.FlagSet

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, flags *pflag.FlagSet) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		flags:      flags,
	}
}

// ensureConfig loads the configuration and installs the logger the
// first time it is called.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path, c.flags)
		if err != nil {
			c.configErr = err
			return
		}
		if err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withDB opens the card database, runs fn against it and closes it again.
func (c *commandContext) withDB(fn func(cfg *config.Config, db *storage.DB) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return fn(cfg, db)
}
