// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/internal/browser"
	"github.com/xkilldash9x/svccheck/internal/browser/cdp"
	"github.com/xkilldash9x/svccheck/internal/browser/htmldoc"
	"github.com/xkilldash9x/svccheck/internal/config"
	"github.com/xkilldash9x/svccheck/internal/diagnostics"
	"github.com/xkilldash9x/svccheck/internal/workflow"
)

// ComponentFactory builds the set of components a lookup command needs.
// Commands depend on this interface so their wiring can be replaced in tests.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, opts Options, logger *zap.Logger) (*Components, error)
}

// Options carries command-line choices that affect wiring rather than behaviour.
type Options struct {
	// FixturePath replays a saved page instead of launching Chrome.
	FixturePath string
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create wires a launcher, the diagnostic capturer and the workflow driver.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, opts Options, logger *zap.Logger) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	launcher, err := newLauncher(ctx, cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	capturer := diagnostics.NewCapturer(cfg.Diagnostics(), logger)
	components := &Components{
		Launcher: launcher,
		Driver:   workflow.NewDriver(cfg, launcher, capturer, logger),
		logger:   logger,
	}
	logger.Debug("Lookup components initialized.", zap.Bool("replay", opts.FixturePath != ""))
	return components, nil
}

func newLauncher(ctx context.Context, cfg config.Interface, opts Options, logger *zap.Logger) (browser.Launcher, error) {
	if opts.FixturePath != "" {
		l, err := htmldoc.FromFile(opts.FixturePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load replay fixture: %w", err)
		}
		logger.Info("Replaying saved page instead of launching a browser.", zap.String("fixture", opts.FixturePath))
		return l, nil
	}
	// The browser process starts lazily with the first session.
	return cdp.NewManager(ctx, cfg.Browser(), logger), nil
}
