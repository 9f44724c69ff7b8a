package flow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
	"github.com/asima2006/Grocery-Cart-Automater/internal/config"
	"github.com/asima2006/Grocery-Cart-Automater/internal/flow"
	"github.com/asima2006/Grocery-Cart-Automater/internal/mocks"
)

const cartFixture = `<html><body>
<div data-test-id="cart-item">
  <span class="cart-item__name">A</span>
  <span class="cart-item__quantity">2</span>
  <span class="cart-item__price">₹3.99</span>
</div>
<div data-test-id="cart-total">₹13.47</div>
</body></html>`

func testSite() config.SiteConfig {
	return config.SiteConfig{
		BaseURL: "https://www.blinkit.com",
		PinCode: "110001",
		// No settle delay in tests.
	}
}

func newSteps(store *mocks.MockSessionStore, pool *mocks.MockHandlePool) *flow.Steps {
	return flow.NewSteps(zap.NewNop(), store, pool, testSite())
}

// stubLoginDrive wires a session mock to accept the whole login script.
func stubLoginDrive(s *mocks.MockBrowserSession) {
	s.On("Navigate", mock.Anything, "https://www.blinkit.com").Return(nil)
	s.On("Click", mock.Anything, mock.AnythingOfType("string")).Return(nil)
	s.On("Fill", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)
}

func stubCapture(s *mocks.MockBrowserSession) {
	s.On("Cookies", mock.Anything).Return([]schemas.Cookie{{Name: "auth", Value: "tok"}}, nil)
	s.On("HTMLSnapshot", mock.Anything).Return("<html>login</html>", nil)
	s.On("CurrentURL", mock.Anything).Return("https://www.blinkit.com/login", nil)
}

func TestRequestLogin_Success(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	session := new(mocks.MockBrowserSession)

	stubLoginDrive(session)
	stubCapture(session)

	pool.On("Launch", mock.Anything).Return(session, nil)
	pool.On("Save", mock.AnythingOfType("string"), session).Return()

	var saved *schemas.SessionRecord
	store.On("Save", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("*schemas.SessionRecord")).
		Run(func(args mock.Arguments) { saved = args.Get(2).(*schemas.SessionRecord) }).
		Return(nil)

	steps := newSteps(store, pool)
	sessionID, err := steps.RequestLogin(context.Background(), "9999999999")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)

	require.NotNil(t, saved)
	assert.Equal(t, "9999999999", saved.PhoneNumber)
	assert.Equal(t, schemas.StateOtpRequested, saved.State)
	assert.NotEmpty(t, saved.Cookies)
	assert.False(t, saved.IsVerified)

	// The handle survives into the verify phase.
	session.AssertNotCalled(t, "Close", mock.Anything)
	pool.AssertCalled(t, "Save", sessionID, session)
}

func TestRequestLogin_EngineFailureClosesHandleInline(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	session := new(mocks.MockBrowserSession)

	session.On("Navigate", mock.Anything, mock.Anything).Return(errors.New("net::ERR_TIMED_OUT"))
	session.On("Close", mock.Anything).Return(nil)
	pool.On("Launch", mock.Anything).Return(session, nil)

	steps := newSteps(store, pool)
	_, err := steps.RequestLogin(context.Background(), "9999999999")

	var stepErr *schemas.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "request_login", stepErr.Step)

	// The handle never reached the pool and no partial record was saved.
	session.AssertCalled(t, "Close", mock.Anything)
	pool.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestLogin_PersistFailureClosesHandle(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	session := new(mocks.MockBrowserSession)

	stubLoginDrive(session)
	stubCapture(session)
	session.On("Close", mock.Anything).Return(nil)
	pool.On("Launch", mock.Anything).Return(session, nil)
	store.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	steps := newSteps(store, pool)
	_, err := steps.RequestLogin(context.Background(), "9999999999")
	require.Error(t, err)

	session.AssertCalled(t, "Close", mock.Anything)
	pool.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRequestLogin_PoolExhaustedPassesThrough(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	pool.On("Launch", mock.Anything).Return(nil, schemas.ErrPoolExhausted)

	steps := newSteps(store, pool)
	_, err := steps.RequestLogin(context.Background(), "9999999999")
	assert.ErrorIs(t, err, schemas.ErrPoolExhausted)
}

func otpRecord() *schemas.SessionRecord {
	return &schemas.SessionRecord{
		SessionID:   "sid-1",
		PhoneNumber: "9999999999",
		State:       schemas.StateOtpRequested,
		Cookies:     []schemas.Cookie{{Name: "auth", Value: "tok"}},
	}
}

func TestVerifyCode_HandleExpired(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	pool.On("Get", "sid-1").Return(nil, false)

	steps := newSteps(store, pool)
	err := steps.VerifyCode(context.Background(), "sid-1", otpRecord(), "1234")
	assert.ErrorIs(t, err, schemas.ErrHandleExpired)
}

func TestVerifyCode_Success(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	session := new(mocks.MockBrowserSession)

	session.On("SetCookies", mock.Anything, mock.Anything).Return(nil)
	for i := 1; i <= 4; i++ {
		selector := fmt.Sprintf(`(//input[@data-test-id="otp-text-box"])[%d]`, i)
		session.On("Fill", mock.Anything, selector, mock.AnythingOfType("string")).Return(nil).Once()
	}
	stubCapture(session)

	pool.On("Get", "sid-1").Return(session, true)

	var saved *schemas.SessionRecord
	store.On("Save", mock.Anything, "sid-1", mock.AnythingOfType("*schemas.SessionRecord")).
		Run(func(args mock.Arguments) { saved = args.Get(2).(*schemas.SessionRecord) }).
		Return(nil)

	steps := newSteps(store, pool)
	rec := otpRecord()
	require.NoError(t, steps.VerifyCode(context.Background(), "sid-1", rec, "1234"))

	require.NotNil(t, saved)
	assert.True(t, saved.IsVerified)
	assert.Equal(t, schemas.StateVerified, saved.State)

	// The handle must survive success into the cart phase.
	pool.AssertNotCalled(t, "Close", mock.Anything, mock.Anything)
	session.AssertExpectations(t)
}

func TestVerifyCode_EngineFailureClosesHandle(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	session := new(mocks.MockBrowserSession)

	session.On("SetCookies", mock.Anything, mock.Anything).Return(nil)
	session.On("Fill", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("node not found"))
	pool.On("Get", "sid-1").Return(session, true)
	pool.On("Close", mock.Anything, "sid-1").Return(nil)

	steps := newSteps(store, pool)
	err := steps.VerifyCode(context.Background(), "sid-1", otpRecord(), "1234")

	var stepErr *schemas.StepError
	require.ErrorAs(t, err, &stepErr)
	pool.AssertCalled(t, "Close", mock.Anything, "sid-1")
}

func verifiedRecord() *schemas.SessionRecord {
	rec := otpRecord()
	rec.State = schemas.StateVerified
	rec.IsVerified = true
	return rec
}

func TestPopulateCart_HandleExpired(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	pool.On("Get", "sid-1").Return(nil, false)

	steps := newSteps(store, pool)
	_, err := steps.PopulateCart(context.Background(), "sid-1", verifiedRecord(), []schemas.Product{{URL: "https://www.blinkit.com/p/x", Variant: "500g"}})
	assert.ErrorIs(t, err, schemas.ErrHandleExpired)
}

func TestPopulateCart_Success(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	session := new(mocks.MockBrowserSession)

	session.On("SetCookies", mock.Anything, mock.Anything).Return(nil)
	session.On("Navigate", mock.Anything, "https://www.blinkit.com/p/x").Return(nil)
	session.On("Click", mock.Anything, `//div[text()="500g"]`).Return(nil)
	session.On("Click", mock.Anything, `//div[text()="ADD"]`).Return(nil)
	session.On("Navigate", mock.Anything, "https://www.blinkit.com/cart").Return(nil)
	session.On("HTMLSnapshot", mock.Anything).Return(cartFixture, nil)
	session.On("CurrentURL", mock.Anything).Return("https://www.blinkit.com/cart", nil)

	pool.On("Get", "sid-1").Return(session, true)
	pool.On("Close", mock.Anything, "sid-1").Return(nil)

	var saved *schemas.SessionRecord
	store.On("Save", mock.Anything, "sid-1", mock.AnythingOfType("*schemas.SessionRecord")).
		Run(func(args mock.Arguments) { saved = args.Get(2).(*schemas.SessionRecord) }).
		Return(nil)

	steps := newSteps(store, pool)
	summary, err := steps.PopulateCart(context.Background(), "sid-1", verifiedRecord(),
		[]schemas.Product{{URL: "https://www.blinkit.com/p/x", Variant: "500g"}})
	require.NoError(t, err)

	assert.Equal(t, 13.47, summary.TotalPrice)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, "A", summary.Items[0].Name)

	require.NotNil(t, saved)
	assert.Equal(t, schemas.StateCartPopulated, saved.State)
	assert.Equal(t, summary.Items, saved.Cart)

	// One-shot resource: closed even on success.
	pool.AssertCalled(t, "Close", mock.Anything, "sid-1")
}

func TestPopulateCart_AllOrNothing(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	session := new(mocks.MockBrowserSession)

	session.On("SetCookies", mock.Anything, mock.Anything).Return(nil)
	session.On("Navigate", mock.Anything, "https://www.blinkit.com/p/ok").Return(nil)
	session.On("Click", mock.Anything, `//div[text()="ADD"]`).Return(nil).Once()
	session.On("Navigate", mock.Anything, "https://www.blinkit.com/p/broken").Return(errors.New("404"))

	pool.On("Get", "sid-1").Return(session, true)
	pool.On("Close", mock.Anything, "sid-1").Return(nil)

	steps := newSteps(store, pool)
	_, err := steps.PopulateCart(context.Background(), "sid-1", verifiedRecord(), []schemas.Product{
		{URL: "https://www.blinkit.com/p/ok"},
		{URL: "https://www.blinkit.com/p/broken"},
		{URL: "https://www.blinkit.com/p/never-reached"},
	})

	var stepErr *schemas.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Contains(t, stepErr.Reason, "product 2 of 3")

	// The third product was never attempted and nothing was persisted.
	session.AssertNotCalled(t, "Navigate", mock.Anything, "https://www.blinkit.com/p/never-reached")
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	pool.AssertCalled(t, "Close", mock.Anything, "sid-1")
}

func TestPopulateCart_ScrapeFailureStillClosesHandle(t *testing.T) {
	store := new(mocks.MockSessionStore)
	pool := new(mocks.MockHandlePool)
	session := new(mocks.MockBrowserSession)

	session.On("SetCookies", mock.Anything, mock.Anything).Return(nil)
	session.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	session.On("Click", mock.Anything, mock.Anything).Return(nil)
	session.On("HTMLSnapshot", mock.Anything).Return("<html><body>maintenance</body></html>", nil)

	pool.On("Get", "sid-1").Return(session, true)
	pool.On("Close", mock.Anything, "sid-1").Return(nil)

	steps := newSteps(store, pool)
	_, err := steps.PopulateCart(context.Background(), "sid-1", verifiedRecord(),
		[]schemas.Product{{URL: "https://www.blinkit.com/p/x"}})

	assert.ErrorIs(t, err, schemas.ErrScrapeParse)
	pool.AssertCalled(t, "Close", mock.Anything, "sid-1")
}
