// File: internal/service/components.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/internal/browser"
	"github.com/xkilldash9x/svccheck/internal/workflow"
)

const shutdownTimeout = 30 * time.Second

// Components holds the initialized services a lookup command runs against and
// centralizes their lifecycle.
type Components struct {
	Launcher browser.Launcher
	Driver   *workflow.Driver

	logger *zap.Logger
}

// Shutdown releases the launcher, reclaiming any session a lookup kept open.
// It uses its own deadline so it completes after the command's context ended.
func (c *Components) Shutdown(ctx context.Context) {
	if c == nil || c.Launcher == nil {
		return
	}
	logger := c.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	shutdownCtx, cancel := context.WithTimeout(browser.Detach(ctx), shutdownTimeout)
	defer cancel()
	if err := c.Launcher.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Error during launcher shutdown.", zap.Error(err))
		return
	}
	logger.Debug("Lookup components shut down.")
}
