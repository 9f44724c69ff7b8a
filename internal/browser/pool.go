package browser

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
	"github.com/asima2006/Grocery-Cart-Automater/internal/config"
)

// Launcher creates fresh browser handles. Satisfied by *Manager; tests
// substitute a fake.
type Launcher interface {
	NewHandle(ctx context.Context) (schemas.BrowserSession, error)
}

type poolEntry struct {
	handle   schemas.BrowserSession
	lastUsed time.Time
}

// Pool is the bounded in-process registry of live handles. Admission is
// controlled by a weighted semaphore sized to the configured capacity; the
// slot travels with the handle and returns when the handle closes, wherever
// that close happens. A background reaper closes handles whose session has
// not progressed within the idle timeout, so abandoned OTP flows cannot leak
// browser processes.
type Pool struct {
	logger      *zap.Logger
	launcher    Launcher
	sem         *semaphore.Weighted
	idleTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*poolEntry

	stop     chan struct{}
	stopOnce sync.Once
}

var _ schemas.HandlePool = (*Pool)(nil)

// NewPool builds the registry and starts the idle reaper when configured.
func NewPool(logger *zap.Logger, launcher Launcher, cfg config.BrowserConfig) *Pool {
	p := &Pool{
		logger:      logger.Named("handle_pool"),
		launcher:    launcher,
		sem:         semaphore.NewWeighted(int64(cfg.PoolCapacity)),
		idleTimeout: cfg.IdleTimeout,
		entries:     make(map[string]*poolEntry),
		stop:        make(chan struct{}),
	}
	if cfg.IdleTimeout > 0 && cfg.ReapInterval > 0 {
		go p.reapLoop(cfg.ReapInterval)
	}
	return p
}

// managedHandle couples a handle with its capacity slot. Close returns the
// slot exactly once, no matter how many times or from where it is called.
type managedHandle struct {
	schemas.BrowserSession
	releaseOnce sync.Once
	release     func()
}

func (m *managedHandle) Close(ctx context.Context) error {
	err := m.BrowserSession.Close(ctx)
	m.releaseOnce.Do(m.release)
	return err
}

// Launch admits a new handle or rejects with ErrPoolExhausted. The caller
// owns the handle until it is registered with Save, and must close it on any
// path where registration does not happen.
func (p *Pool) Launch(ctx context.Context) (schemas.BrowserSession, error) {
	if !p.sem.TryAcquire(1) {
		p.logger.Warn("Pool at capacity, rejecting new handle")
		return nil, schemas.ErrPoolExhausted
	}

	h, err := p.launcher.NewHandle(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	return &managedHandle{
		BrowserSession: h,
		release:        func() { p.sem.Release(1) },
	}, nil
}

// Save registers the handle, replacing any prior entry for the id without
// closing it. Callers pair every registration with exactly one eventual
// Close.
func (p *Pool) Save(sessionID string, h schemas.BrowserSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[sessionID] = &poolEntry{handle: h, lastUsed: time.Now()}
	p.logger.Debug("Handle registered",
		zap.String("session_id", sessionID),
		zap.Int("active", len(p.entries)),
	)
}

// Get returns the live handle for the id. Absence is a normal outcome:
// never created, already closed, or reaped.
func (p *Pool) Get(sessionID string) (schemas.BrowserSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastUsed = time.Now()
	return entry.handle, true
}

// Close releases the handle and removes the entry. Closing an absent or
// already-closed id is a no-op.
func (p *Pool) Close(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	entry, ok := p.entries[sessionID]
	delete(p.entries, sessionID)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	p.logger.Debug("Closing handle", zap.String("session_id", sessionID))
	return entry.handle.Close(ctx)
}

// ClearAll stops the reaper and closes every registered handle concurrently.
// Full-process shutdown only.
func (p *Pool) ClearAll(ctx context.Context) {
	p.stopOnce.Do(func() { close(p.stop) })

	p.mu.Lock()
	toClose := make(map[string]schemas.BrowserSession, len(p.entries))
	for id, entry := range p.entries {
		toClose[id] = entry.handle
	}
	p.entries = make(map[string]*poolEntry)
	p.mu.Unlock()

	var wg sync.WaitGroup
	for id, h := range toClose {
		wg.Add(1)
		go func(id string, h schemas.BrowserSession) {
			defer wg.Done()
			closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := h.Close(closeCtx); err != nil {
				p.logger.Warn("Error closing handle during shutdown",
					zap.String("session_id", id),
					zap.Error(err),
				)
			}
		}(id, h)
	}
	wg.Wait()
	p.logger.Info("Handle pool cleared", zap.Int("closed", len(toClose)))
}

func (p *Pool) reapLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.reapIdle()
		}
	}
}

// reapIdle closes handles whose session has not progressed within the idle
// timeout.
func (p *Pool) reapIdle() {
	cutoff := time.Now().Add(-p.idleTimeout)

	p.mu.Lock()
	expired := make(map[string]schemas.BrowserSession)
	for id, entry := range p.entries {
		if entry.lastUsed.Before(cutoff) {
			expired[id] = entry.handle
			delete(p.entries, id)
		}
	}
	p.mu.Unlock()

	for id, h := range expired {
		p.logger.Info("Reaping idle handle", zap.String("session_id", id))
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := h.Close(closeCtx); err != nil {
			p.logger.Warn("Error closing idle handle", zap.String("session_id", id), zap.Error(err))
		}
		cancel()
	}
}
