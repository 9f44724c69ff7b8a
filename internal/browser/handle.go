package browser

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
)

// Handle is one live browsing context. It implements schemas.BrowserSession
// over ChromeDP; every interaction runs under the configured step timeout so
// a wedged page never leaves the caller hanging.
type Handle struct {
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.Logger
	stepTimeout time.Duration

	closeOnce sync.Once
	onClose   func()
}

var _ schemas.BrowserSession = (*Handle)(nil)

func newHandle(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger, stepTimeout time.Duration) *Handle {
	return &Handle{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("browser_handle"),
		stepTimeout: stepTimeout,
	}
}

// SetOnClose registers a callback fired exactly once when the handle closes.
// The pool uses it to return the capacity slot.
func (h *Handle) SetOnClose(fn func()) {
	h.onClose = fn
}

// run executes actions against the browsing context, bounded by the step
// timeout and cancelled if the caller's context ends first.
func (h *Handle) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(h.ctx, h.stepTimeout)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()
	return chromedp.Run(runCtx, actions...)
}

// queryOption picks the selector strategy: selectors starting with "/" or
// "(" are XPath, everything else is CSS.
func queryOption(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (h *Handle) Navigate(ctx context.Context, url string) error {
	h.logger.Debug("Navigating", zap.String("url", url))
	return h.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (h *Handle) Click(ctx context.Context, selector string) error {
	h.logger.Debug("Clicking", zap.String("selector", selector))
	return h.run(ctx, chromedp.Click(selector, queryOption(selector), chromedp.NodeVisible))
}

func (h *Handle) Fill(ctx context.Context, selector, text string) error {
	h.logger.Debug("Filling", zap.String("selector", selector), zap.Int("length", len(text)))
	return h.run(ctx,
		chromedp.WaitVisible(selector, queryOption(selector)),
		chromedp.SendKeys(selector, text, queryOption(selector)),
	)
}

func (h *Handle) Cookies(ctx context.Context) ([]schemas.Cookie, error) {
	var raw []*network.Cookie
	err := h.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(c)
		return err
	}))
	if err != nil {
		return nil, err
	}

	cookies := make([]schemas.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, schemas.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}
	return cookies, nil
}

func (h *Handle) SetCookies(ctx context.Context, cookies []schemas.Cookie) error {
	h.logger.Debug("Restoring cookies", zap.Int("count", len(cookies)))
	return h.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		for _, ck := range cookies {
			p := network.SetCookie(ck.Name, ck.Value).
				WithDomain(ck.Domain).
				WithPath(ck.Path).
				WithHTTPOnly(ck.HTTPOnly).
				WithSecure(ck.Secure)
			if ck.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
				p = p.WithExpires(&expires)
			}
			if ck.SameSite != "" {
				p = p.WithSameSite(network.CookieSameSite(ck.SameSite))
			}
			if err := p.Do(c); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (h *Handle) HTMLSnapshot(ctx context.Context) (string, error) {
	var dom string
	if err := h.run(ctx, chromedp.OuterHTML("html", &dom, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return dom, nil
}

func (h *Handle) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := h.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Close releases the browsing context. Idempotent.
func (h *Handle) Close(_ context.Context) error {
	h.closeOnce.Do(func() {
		h.logger.Debug("Closing browser handle")
		if h.onClose != nil {
			h.onClose()
		}
		h.cancel()
	})
	return nil
}
