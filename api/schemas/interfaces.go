package schemas

import (
	"context"
	"time"
)

// SessionStore persists SessionRecords across requests and restarts.
// Get returns (nil, nil) when no record exists in either tier; absence is a
// normal outcome, not an error.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, rec *SessionRecord) error
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
}

// BrowserSession is one live automation-engine handle: an open browser
// context plus its page. It is strictly process-local, never serialized, and
// valid only until Close. Every interaction may suspend and carries a
// bounded timeout inside the implementation.
//
// Selectors are CSS by default; selectors starting with "/" or "(" are
// treated as XPath.
type BrowserSession interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, text string) error
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	HTMLSnapshot(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// HandlePool is the in-process registry mapping session ids to live browser
// handles. A SessionRecord surviving in persistence implies nothing about an
// entry here.
type HandlePool interface {
	// Launch admits and creates a fresh handle, or fails with
	// ErrPoolExhausted. The handle is not registered yet; callers must pair
	// it with exactly one eventual Close (directly, or via the pool after
	// Save).
	Launch(ctx context.Context) (BrowserSession, error)

	// Save registers the handle under the id, replacing any prior entry
	// without closing it.
	Save(sessionID string, h BrowserSession)

	// Get returns the registered handle. Absence is normal: never created,
	// already closed, or reaped.
	Get(sessionID string) (BrowserSession, bool)

	// Close releases the handle and removes the entry. Idempotent; closing
	// an absent id is a no-op.
	Close(ctx context.Context, sessionID string) error

	// ClearAll closes every registered handle. Full-process shutdown only.
	ClearAll(ctx context.Context)
}

// AutomationSteps are the three site-specific procedures driving the engine.
// VerifyCode and PopulateCart receive the already-loaded record; the
// orchestrator owns record lookup and state checks.
type AutomationSteps interface {
	RequestLogin(ctx context.Context, phoneNumber string) (string, error)
	VerifyCode(ctx context.Context, sessionID string, rec *SessionRecord, code string) error
	PopulateCart(ctx context.Context, sessionID string, rec *SessionRecord, products []Product) (*CartSummary, error)
}

// Orchestrator is the public contract toward the calling layer.
type Orchestrator interface {
	RequestLogin(ctx context.Context, phoneNumber string) (string, error)
	VerifyCode(ctx context.Context, sessionID, code string) error
	PopulateCart(ctx context.Context, sessionID string, products []Product) (*CartSummary, error)
}

// Clock abstracts time for components that stamp records; tests substitute
// a fixed clock.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
