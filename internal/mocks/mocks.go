// Package mocks holds testify doubles for the collaborator interfaces, so
// flow and orchestrator tests run without a browser, Redis, or Postgres.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
)

// -- Browser Session Mock --

// MockBrowserSession mocks the schemas.BrowserSession interface.
type MockBrowserSession struct {
	mock.Mock
}

func (m *MockBrowserSession) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockBrowserSession) Click(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockBrowserSession) Fill(ctx context.Context, selector, text string) error {
	return m.Called(ctx, selector, text).Error(0)
}

func (m *MockBrowserSession) Cookies(ctx context.Context) ([]schemas.Cookie, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.Cookie), args.Error(1)
}

func (m *MockBrowserSession) SetCookies(ctx context.Context, cookies []schemas.Cookie) error {
	return m.Called(ctx, cookies).Error(0)
}

func (m *MockBrowserSession) HTMLSnapshot(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrowserSession) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrowserSession) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Handle Pool Mock --

// MockHandlePool mocks the schemas.HandlePool interface.
type MockHandlePool struct {
	mock.Mock
}

func (m *MockHandlePool) Launch(ctx context.Context) (schemas.BrowserSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(schemas.BrowserSession), args.Error(1)
}

func (m *MockHandlePool) Save(sessionID string, h schemas.BrowserSession) {
	m.Called(sessionID, h)
}

func (m *MockHandlePool) Get(sessionID string) (schemas.BrowserSession, bool) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(schemas.BrowserSession), args.Bool(1)
}

func (m *MockHandlePool) Close(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockHandlePool) ClearAll(ctx context.Context) {
	m.Called(ctx)
}

// -- Session Store Mock --

// MockSessionStore mocks the schemas.SessionStore interface.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Save(ctx context.Context, sessionID string, rec *schemas.SessionRecord) error {
	return m.Called(ctx, sessionID, rec).Error(0)
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*schemas.SessionRecord, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.SessionRecord), args.Error(1)
}

// -- Persistence Tier Mocks --

// MockCacheTier mocks the store.CacheTier interface.
type MockCacheTier struct {
	mock.Mock
}

func (m *MockCacheTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCacheTier) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockDurableTier mocks the store.DurableTier interface.
type MockDurableTier struct {
	mock.Mock
}

func (m *MockDurableTier) Upsert(ctx context.Context, sessionID string, doc []byte, updatedAt time.Time) error {
	return m.Called(ctx, sessionID, doc, updatedAt).Error(0)
}

func (m *MockDurableTier) FindOne(ctx context.Context, sessionID string) ([]byte, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// -- Orchestrator Mock --

// MockOrchestrator mocks the schemas.Orchestrator interface for API tests.
type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) RequestLogin(ctx context.Context, phoneNumber string) (string, error) {
	args := m.Called(ctx, phoneNumber)
	return args.String(0), args.Error(1)
}

func (m *MockOrchestrator) VerifyCode(ctx context.Context, sessionID, code string) error {
	return m.Called(ctx, sessionID, code).Error(0)
}

func (m *MockOrchestrator) PopulateCart(ctx context.Context, sessionID string, products []schemas.Product) (*schemas.CartSummary, error) {
	args := m.Called(ctx, sessionID, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.CartSummary), args.Error(1)
}

// FixedClock is a schemas.Clock returning a constant instant.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time { return c.Instant }
