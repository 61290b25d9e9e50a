package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"camroll/internal/config"
	"camroll/internal/dropbox"
	"camroll/internal/logging"
	"camroll/internal/notifications"
	"camroll/internal/services"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	dryRunFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, jsonFlag, dryRunFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		dryRunFlag: dryRunFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.dryRunFlag != nil && *c.dryRunFlag {
			cfg.Organize.DryRun = true
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) dropboxClient(opts ...dropbox.Option) (*dropbox.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return dropbox.NewFromConfig(cfg, opts...), nil
}

func (c *commandContext) notifier() notifications.Service {
	return notifications.NewService(c.config)
}

// runEnv carries what a mutating command needs once the run lock is held.
type runEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	ctx    context.Context
}

// withRun loads config and logger, takes the run lock so only one camroll
// process changes the remote tree at a time, and tags ctx with a run id.
func (c *commandContext) withRun(cmd *cobra.Command, fn func(env runEnv) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.RunLockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return errRunInProgress
	}
	defer func() { _ = lock.Unlock() }()

	ctx := services.WithRunID(commandCtx(cmd), services.NewRunID())
	return fn(runEnv{cfg: cfg, logger: logger, ctx: ctx})
}

var errRunInProgress = errors.New("another camroll run is in progress (run lock held)")

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
