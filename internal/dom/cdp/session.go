// internal/dom/cdp/session.go
package cdp

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/xkilldash9x/tourguard-cli/internal/dom"
	"go.uber.org/zap"
)

// Session owns a browser tab for live validation runs. It exists so the CLI
// can point the engine at a running application; unit paths use the in-memory
// document instead.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	viewportWidth  float64
	viewportHeight float64
	logger         *zap.Logger
}

// SessionOptions controls browser startup.
type SessionOptions struct {
	Headless       bool
	ViewportWidth  int64
	ViewportHeight int64
	NavTimeout     time.Duration
}

// NewSession launches a browser and opens a blank tab.
func NewSession(parent context.Context, opts SessionOptions, logger *zap.Logger) (*Session, error) {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1280
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 768
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(int(opts.ViewportWidth), int(opts.ViewportHeight)),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	emulate := chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(opts.ViewportWidth, opts.ViewportHeight, 1, false).Do(ctx)
	})
	if err := chromedp.Run(tabCtx, emulate); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser startup: %w", err)
	}

	logger.Named("session").Info("Browser session started",
		zap.Bool("headless", opts.Headless),
		zap.Int64("viewport_width", opts.ViewportWidth),
		zap.Int64("viewport_height", opts.ViewportHeight))

	return &Session{
		allocCtx:       allocCtx,
		allocCancel:    allocCancel,
		tabCtx:         tabCtx,
		tabCancel:      tabCancel,
		viewportWidth:  float64(opts.ViewportWidth),
		viewportHeight: float64(opts.ViewportHeight),
		logger:         logger.Named("session"),
	}, nil
}

// Navigate loads a URL and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()

	start := time.Now()
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	s.logger.Debug("Navigation complete",
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Document returns a dom.Document view over the current tab.
func (s *Session) Document() dom.Document {
	return NewDocument(s.tabCtx, s.viewportWidth, s.viewportHeight, s.logger)
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
	s.logger.Debug("Browser session closed")
}
