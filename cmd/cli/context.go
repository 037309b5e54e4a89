package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/config"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/logger"

	"github.com/joho/godotenv"
)

const shutdownGrace = 30 * time.Second

type commandContext struct {
	envFile *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(envFile *string) *commandContext {
	return &commandContext{envFile: envFile}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFile != nil {
			if path := strings.TrimSpace(*c.envFile); path != "" {
				if err := godotenv.Overload(path); err != nil {
					c.configErr = fmt.Errorf("load env file %s: %w", path, err)
					return
				}
			}
		}
		c.config = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return logger.New("info", "text", os.Stderr)
	}
	return logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
}

// withApp builds the application, runs fn and shuts it down. Background
// analyses started by fn are awaited before the store closes.
func (c *commandContext) withApp(ctx context.Context, fn func(*application) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	app, err := newApplication(ctx, cfg, c.logger())
	if err != nil {
		return err
	}
	runErr := fn(app)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := app.close(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
