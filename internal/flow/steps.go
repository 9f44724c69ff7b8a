// Package flow holds the three site-specific automation procedures. Each
// drives the browser through one phase of the login-and-purchase workflow and
// keeps the persisted session record in step with what the browser did.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
	"github.com/asima2006/Grocery-Cart-Automater/internal/config"
)

// Steps implements schemas.AutomationSteps against a handle pool and a
// session store.
type Steps struct {
	logger *zap.Logger
	store  schemas.SessionStore
	pool   schemas.HandlePool
	site   config.SiteConfig
}

var _ schemas.AutomationSteps = (*Steps)(nil)

func NewSteps(logger *zap.Logger, store schemas.SessionStore, pool schemas.HandlePool, site config.SiteConfig) *Steps {
	return &Steps{
		logger: logger.Named("flow"),
		store:  store,
		pool:   pool,
		site:   site,
	}
}

// snapshot captures the persistable browser state: cookies, page markup, and
// location.
type snapshot struct {
	cookies []schemas.Cookie
	dom     string
	url     string
}

func capture(ctx context.Context, h schemas.BrowserSession) (*snapshot, error) {
	cookies, err := h.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture cookies: %w", err)
	}
	dom, err := h.HTMLSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture page markup: %w", err)
	}
	url, err := h.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture current URL: %w", err)
	}
	return &snapshot{cookies: cookies, dom: dom, url: url}, nil
}

// RequestLogin opens a fresh browsing context, drives the site to the point
// where an OTP has been sent to the phone, then persists a new session
// record and registers the handle. On any failure the never-registered
// handle is closed inline and no record is persisted.
func (s *Steps) RequestLogin(ctx context.Context, phoneNumber string) (string, error) {
	log := s.logger.With(zap.String("step", "request_login"))

	h, err := s.pool.Launch(ctx)
	if err != nil {
		if errors.Is(err, schemas.ErrPoolExhausted) {
			return "", err
		}
		return "", schemas.NewStepError("request_login", "failed to launch browser", err)
	}

	registered := false
	defer func() {
		if !registered {
			if cerr := h.Close(context.Background()); cerr != nil {
				log.Warn("Failed to close unregistered handle", zap.Error(cerr))
			}
		}
	}()

	if err := s.driveLoginRequest(ctx, h, phoneNumber); err != nil {
		return "", schemas.NewStepError("request_login", "site interaction failed", err)
	}

	snap, err := capture(ctx, h)
	if err != nil {
		return "", schemas.NewStepError("request_login", "state capture failed", err)
	}

	sessionID := uuid.New().String()
	rec := &schemas.SessionRecord{
		PhoneNumber: phoneNumber,
		State:       schemas.StateOtpRequested,
		Cookies:     snap.cookies,
		DOMSnapshot: snap.dom,
		CurrentURL:  snap.url,
	}
	if err := s.store.Save(ctx, sessionID, rec); err != nil {
		return "", schemas.NewStepError("request_login", "failed to persist session", err)
	}

	s.pool.Save(sessionID, h)
	registered = true

	log.Info("Login requested", zap.String("session_id", sessionID))
	return sessionID, nil
}

// driveLoginRequest performs the scripted site interactions: set a delivery
// location, open the login control, submit the phone number.
func (s *Steps) driveLoginRequest(ctx context.Context, h schemas.BrowserSession, phoneNumber string) error {
	if err := h.Navigate(ctx, s.site.BaseURL); err != nil {
		return fmt.Errorf("open site: %w", err)
	}
	if err := h.Click(ctx, selLocationInput); err != nil {
		return fmt.Errorf("focus location search: %w", err)
	}
	if err := h.Fill(ctx, selLocationInput, s.site.PinCode); err != nil {
		return fmt.Errorf("enter delivery pin code: %w", err)
	}
	if err := h.Click(ctx, selFirstAddress); err != nil {
		return fmt.Errorf("pick first suggested address: %w", err)
	}
	if err := h.Click(ctx, xpLoginControl); err != nil {
		return fmt.Errorf("open login: %w", err)
	}
	if err := h.Click(ctx, selPhoneInput); err != nil {
		return fmt.Errorf("focus phone input: %w", err)
	}
	if err := h.Fill(ctx, selPhoneInput, phoneNumber); err != nil {
		return fmt.Errorf("enter phone number: %w", err)
	}
	if err := h.Click(ctx, xpContinue); err != nil {
		return fmt.Errorf("submit phone number: %w", err)
	}
	return nil
}

// VerifyCode restores the persisted cookies onto the live handle, enters the
// verification code digit by digit, and marks the record verified. The
// handle deliberately survives success: the cart phase still needs it. Every
// error path after the handle lookup closes it.
func (s *Steps) VerifyCode(ctx context.Context, sessionID string, rec *schemas.SessionRecord, code string) error {
	log := s.logger.With(zap.String("step", "verify_code"), zap.String("session_id", sessionID))

	h, ok := s.pool.Get(sessionID)
	if !ok {
		return schemas.ErrHandleExpired
	}

	verified := false
	defer func() {
		if !verified {
			if cerr := s.pool.Close(context.Background(), sessionID); cerr != nil {
				log.Warn("Failed to close handle after error", zap.Error(cerr))
			}
		}
	}()

	if err := h.SetCookies(ctx, rec.Cookies); err != nil {
		return schemas.NewStepError("verify_code", "failed to restore cookies", err)
	}

	for i, digit := range code {
		selector := fmt.Sprintf(xpOtpBoxFmt, i+1)
		if err := h.Fill(ctx, selector, string(digit)); err != nil {
			return schemas.NewStepError("verify_code", fmt.Sprintf("failed to enter code digit %d", i+1), err)
		}
	}

	snap, err := capture(ctx, h)
	if err != nil {
		return schemas.NewStepError("verify_code", "state capture failed", err)
	}

	rec.Cookies = snap.cookies
	rec.DOMSnapshot = snap.dom
	rec.CurrentURL = snap.url
	rec.IsVerified = true
	rec.State = schemas.StateVerified

	if err := s.store.Save(ctx, sessionID, rec); err != nil {
		return schemas.NewStepError("verify_code", "failed to persist session", err)
	}

	verified = true
	log.Info("Session verified")
	return nil
}

// PopulateCart adds each product in input order, then scrapes the rendered
// cart. The loop is all-or-nothing: a failure on any product aborts the
// whole call. The handle is a one-shot resource for this final phase and is
// closed unconditionally, success or failure.
func (s *Steps) PopulateCart(ctx context.Context, sessionID string, rec *schemas.SessionRecord, products []schemas.Product) (*schemas.CartSummary, error) {
	log := s.logger.With(zap.String("step", "populate_cart"), zap.String("session_id", sessionID))

	h, ok := s.pool.Get(sessionID)
	if !ok {
		return nil, schemas.ErrHandleExpired
	}
	defer func() {
		if cerr := s.pool.Close(context.Background(), sessionID); cerr != nil {
			log.Warn("Failed to close handle", zap.Error(cerr))
		}
	}()

	if err := h.SetCookies(ctx, rec.Cookies); err != nil {
		return nil, schemas.NewStepError("populate_cart", "failed to restore cookies", err)
	}

	for i, product := range products {
		if err := s.addProduct(ctx, h, product); err != nil {
			return nil, schemas.NewStepError("populate_cart",
				fmt.Sprintf("failed to add product %d of %d", i+1, len(products)), err)
		}
	}

	if err := h.Navigate(ctx, s.site.BaseURL+cartPath); err != nil {
		return nil, schemas.NewStepError("populate_cart", "failed to open cart", err)
	}
	html, err := h.HTMLSnapshot(ctx)
	if err != nil {
		return nil, schemas.NewStepError("populate_cart", "failed to capture cart markup", err)
	}

	summary, err := parseCartHTML(html)
	if err != nil {
		return nil, err
	}

	rec.Cart = summary.Items
	rec.State = schemas.StateCartPopulated
	if url, uerr := h.CurrentURL(ctx); uerr == nil {
		rec.CurrentURL = url
	}
	rec.DOMSnapshot = html

	if err := s.store.Save(ctx, sessionID, rec); err != nil {
		return nil, schemas.NewStepError("populate_cart", "failed to persist session", err)
	}

	log.Info("Cart populated",
		zap.Int("items", len(summary.Items)),
		zap.Float64("total", summary.TotalPrice),
	)
	return summary, nil
}

// addProduct navigates to one product page, selects the variant when given,
// activates the add-to-cart control, and waits out the site's asynchronous
// cart update.
func (s *Steps) addProduct(ctx context.Context, h schemas.BrowserSession, product schemas.Product) error {
	if err := h.Navigate(ctx, product.URL); err != nil {
		return fmt.Errorf("open product page: %w", err)
	}
	if product.Variant != "" {
		if err := h.Click(ctx, fmt.Sprintf(xpVariantFmt, product.Variant)); err != nil {
			return fmt.Errorf("select variant %q: %w", product.Variant, err)
		}
	}
	if err := h.Click(ctx, xpAddToCart); err != nil {
		return fmt.Errorf("activate add-to-cart: %w", err)
	}
	return settle(ctx, s.site.SettleDelay)
}

// settle pauses for the configured delay, honoring cancellation.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
