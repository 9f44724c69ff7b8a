// Package browser owns everything process-local about the automation engine:
// the Chrome allocator, the per-session handle, and the bounded registry that
// maps session ids to live handles. Nothing in this package is persisted.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
	"github.com/asima2006/Grocery-Cart-Automater/internal/config"
)

// Manager owns the browser executable via a shared ChromeDP allocator and
// creates isolated browsing contexts from it.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
}

// NewManager initializes the allocator. The browser process itself starts
// lazily with the first handle.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) *Manager {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}

	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, m.allocatorOptions()...)

	m.logger.Info("Browser manager initialized",
		zap.Bool("headless", cfg.Headless),
		zap.Duration("step_timeout", cfg.StepTimeout),
	)
	return m
}

// allocatorOptions configures the flags for the browser executable.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	if m.cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}

	opts = append(opts,
		// Retail sites gate features on automation detection.
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		// Stability flags for long-lived containerized runs.
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-extensions", true),

		chromedp.Flag("disable-gpu", m.cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.IgnoreTLSErrors),
	)

	return opts
}

// NewHandle creates a fresh, isolated browsing context and verifies it is
// responsive before returning it.
func (m *Manager) NewHandle(ctx context.Context) (schemas.BrowserSession, error) {
	tabCtx, cancel := chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Errorf),
	)

	// The caller's context bounds initialization only. The handle itself
	// outlives the request that launched it and dies on Close or allocator
	// shutdown.
	initCtx, initCancel := context.WithTimeout(tabCtx, m.cfg.StepTimeout)
	defer initCancel()
	go func() {
		select {
		case <-ctx.Done():
			initCancel()
		case <-initCtx.Done():
		}
	}()

	if err := chromedp.Run(initCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize browser context: %w", err)
	}

	return newHandle(tabCtx, cancel, m.logger, m.cfg.StepTimeout), nil
}

// Shutdown terminates the browser process. Handles must be closed first via
// the pool's ClearAll.
func (m *Manager) Shutdown() {
	m.logger.Info("Shutting down browser manager")
	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}
}
