package browser_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
	"github.com/asima2006/Grocery-Cart-Automater/internal/browser"
	"github.com/asima2006/Grocery-Cart-Automater/internal/config"
	"github.com/asima2006/Grocery-Cart-Automater/internal/mocks"
)

// fakeLauncher hands out mock sessions and counts launches.
type fakeLauncher struct {
	launched atomic.Int64
}

func (f *fakeLauncher) NewHandle(_ context.Context) (schemas.BrowserSession, error) {
	f.launched.Add(1)
	s := new(mocks.MockBrowserSession)
	s.On("Close", mock.Anything).Return(nil)
	return s, nil
}

func poolConfig(capacity int) config.BrowserConfig {
	return config.BrowserConfig{
		PoolCapacity: capacity,
		StepTimeout:  time.Second,
	}
}

func TestPool_SaveGetClose(t *testing.T) {
	p := browser.NewPool(zap.NewNop(), &fakeLauncher{}, poolConfig(4))

	h, err := p.Launch(context.Background())
	require.NoError(t, err)

	p.Save("sid-1", h)

	got, ok := p.Get("sid-1")
	require.True(t, ok)
	assert.Equal(t, h, got)

	require.NoError(t, p.Close(context.Background(), "sid-1"))

	_, ok = p.Get("sid-1")
	assert.False(t, ok, "handle should be absent after close")
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	p := browser.NewPool(zap.NewNop(), &fakeLauncher{}, poolConfig(4))

	h, err := p.Launch(context.Background())
	require.NoError(t, err)
	p.Save("sid-1", h)

	require.NoError(t, p.Close(context.Background(), "sid-1"))
	require.NoError(t, p.Close(context.Background(), "sid-1"))
	require.NoError(t, p.Close(context.Background(), "never-existed"))
}

func TestPool_CapacityBackpressure(t *testing.T) {
	p := browser.NewPool(zap.NewNop(), &fakeLauncher{}, poolConfig(2))

	h1, err := p.Launch(context.Background())
	require.NoError(t, err)
	_, err = p.Launch(context.Background())
	require.NoError(t, err)

	_, err = p.Launch(context.Background())
	assert.ErrorIs(t, err, schemas.ErrPoolExhausted)

	// Closing an admitted handle frees its slot even though it was never
	// registered.
	require.NoError(t, h1.Close(context.Background()))

	_, err = p.Launch(context.Background())
	assert.NoError(t, err)
}

func TestPool_SlotFreedByPoolClose(t *testing.T) {
	p := browser.NewPool(zap.NewNop(), &fakeLauncher{}, poolConfig(1))

	h, err := p.Launch(context.Background())
	require.NoError(t, err)
	p.Save("sid-1", h)

	_, err = p.Launch(context.Background())
	assert.ErrorIs(t, err, schemas.ErrPoolExhausted)

	require.NoError(t, p.Close(context.Background(), "sid-1"))

	_, err = p.Launch(context.Background())
	assert.NoError(t, err)
}

func TestPool_DoubleCloseReleasesSlotOnce(t *testing.T) {
	p := browser.NewPool(zap.NewNop(), &fakeLauncher{}, poolConfig(1))

	h, err := p.Launch(context.Background())
	require.NoError(t, err)

	// Closing the same handle twice must not release two slots.
	require.NoError(t, h.Close(context.Background()))
	require.NoError(t, h.Close(context.Background()))

	_, err = p.Launch(context.Background())
	require.NoError(t, err)
	_, err = p.Launch(context.Background())
	assert.ErrorIs(t, err, schemas.ErrPoolExhausted)
}

func TestPool_ClearAll(t *testing.T) {
	p := browser.NewPool(zap.NewNop(), &fakeLauncher{}, poolConfig(4))

	for _, id := range []string{"a", "b", "c"} {
		h, err := p.Launch(context.Background())
		require.NoError(t, err)
		p.Save(id, h)
	}

	p.ClearAll(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		_, ok := p.Get(id)
		assert.False(t, ok)
	}
}

func TestPool_IdleReaper(t *testing.T) {
	cfg := poolConfig(4)
	cfg.IdleTimeout = 20 * time.Millisecond
	cfg.ReapInterval = 5 * time.Millisecond
	p := browser.NewPool(zap.NewNop(), &fakeLauncher{}, cfg)
	defer p.ClearAll(context.Background())

	h, err := p.Launch(context.Background())
	require.NoError(t, err)
	p.Save("stale", h)

	// Polling with Get would refresh the idle clock, so wait once. The
	// handle is stale after 20ms and the reaper runs every 5ms.
	time.Sleep(100 * time.Millisecond)

	_, ok := p.Get("stale")
	assert.False(t, ok, "idle handle should be reaped")

	// The reaped slot is free again.
	_, err = p.Launch(context.Background())
	assert.NoError(t, err)
}
