// internal/browser/cdp/manager.go
// Package cdp drives a real Chrome instance over the DevTools protocol with
// chromedp. One Manager owns the browser process; every lookup receives its own
// tab through NewSession.
package cdp

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/internal/browser"
	"github.com/xkilldash9x/svccheck/internal/config"
)

const defaultLaunchTimeout = 30 * time.Second

// Manager handles the lifecycle of the browser process and hands out tabs.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process; browserCtx owns the first tab and
	// keeps the browser alive while sessions come and go.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	startOnce sync.Once
	startErr  error

	mu       sync.Mutex
	sessions map[string]*Session
	// wg tracks open sessions for a graceful shutdown.
	wg sync.WaitGroup
}

var _ browser.Launcher = (*Manager)(nil)

// NewManager prepares the allocator. The browser process starts with the first session.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return &Manager{
		logger:          logger.Named("browser_manager"),
		cfg:             cfg,
		allocatorCtx:    allocCtx,
		allocatorCancel: allocCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		sessions:        make(map[string]*Session),
	}
}

// AllocatorOptions translates the browser configuration into exec allocator flags.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.DisableGPU),
		chromedp.Flag("disable-extensions", true),
	)

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.Language != "" {
		opts = append(opts, chromedp.Flag("lang", cfg.Language))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	// Nested frames of another origin are only reachable from the top-level
	// target when they share its renderer.
	if cfg.DisableSiteIsolation {
		opts = append(opts,
			chromedp.Flag("disable-site-isolation-trials", true),
			chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		)
	}

	// Containers usually lack the privileges the sandbox needs.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if key == "" {
			continue
		}
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

func (m *Manager) launchTimeout() time.Duration {
	if m.cfg.LaunchTimeout > 0 {
		return m.cfg.LaunchTimeout
	}
	return defaultLaunchTimeout
}

// start launches the browser process once, bounded by the launch timeout.
func (m *Manager) start(ctx context.Context) error {
	m.startOnce.Do(func() {
		m.logger.Info("Launching browser process.", zap.Bool("headless", m.cfg.Headless))
		m.startErr = runBounded(ctx, m.launchTimeout(), func() error {
			// The first Run on the browser context allocates the process.
			return chromedp.Run(m.browserCtx)
		})
		if m.startErr != nil {
			m.startErr = fmt.Errorf("browser failed to start: %w", m.startErr)
			m.browserCancel()
			return
		}
		m.logger.Info("Browser launched successfully.")
	})
	return m.startErr
}

// runBounded runs fn in the background and gives up when ctx is done or the
// timeout passes. chromedp ties a target's lifetime to the context of its first
// Run, so that context cannot simply carry the deadline.
func runBounded(ctx context.Context, timeout time.Duration, fn func() error) error {
	boundCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-boundCtx.Done():
		return boundCtx.Err()
	}
}

// NewSession opens a new tab in the shared browser process.
func (m *Manager) NewSession(ctx context.Context) (browser.Document, error) {
	if err := m.start(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	if err := runBounded(ctx, m.launchTimeout(), func() error { return chromedp.Run(tabCtx) }); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}

	s := newSession(tabCtx, tabCancel, m.logger)
	m.wg.Add(1)
	s.onClose = func() {
		m.mu.Lock()
		delete(m.sessions, s.ID())
		m.mu.Unlock()
		m.wg.Done()
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Debug("New session created.", zap.String("session_id", s.ID()))
	return s, nil
}

// Shutdown closes every session still open, waits for them within ctx and then
// terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated.")

	m.mu.Lock()
	pending := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		pending = append(pending, s)
	}
	m.mu.Unlock()

	for _, s := range pending {
		m.logger.Debug("Reclaiming open session.", zap.String("session_id", s.ID()))
		if err := s.Close(ctx); err != nil {
			m.logger.Warn("Failed to close session during shutdown.", zap.String("session_id", s.ID()), zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	m.browserCancel()
	m.allocatorCancel()
	<-m.allocatorCtx.Done()
	m.logger.Info("Browser process terminated.")
	return nil
}
