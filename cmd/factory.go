package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
	"github.com/asima2006/Grocery-Cart-Automater/internal/browser"
	"github.com/asima2006/Grocery-Cart-Automater/internal/config"
	"github.com/asima2006/Grocery-Cart-Automater/internal/flow"
	"github.com/asima2006/Grocery-Cart-Automater/internal/observability"
	"github.com/asima2006/Grocery-Cart-Automater/internal/orchestrator"
	"github.com/asima2006/Grocery-Cart-Automater/internal/store"
)

// Components holds the initialized services behind the HTTP surface. The
// struct centralizes lifecycle management so shutdown happens in one place,
// in the right order.
type Components struct {
	Orchestrator schemas.Orchestrator

	browserPool    *browser.Pool
	browserManager *browser.Manager
	redisClient    *redis.Client
	dbPool         *pgxpool.Pool
}

// buildComponents wires the full dependency graph from configuration:
// Redis and Postgres tiers under the session store, the browser manager and
// handle pool, the flow steps, and the orchestrator on top.
func buildComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	redisClient, err := store.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	dbPool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	durable, err := store.NewPostgresStore(ctx, dbPool)
	if err != nil {
		redisClient.Close()
		dbPool.Close()
		return nil, err
	}
	if err := durable.InitSchema(ctx); err != nil {
		redisClient.Close()
		dbPool.Close()
		return nil, err
	}

	sessions := store.New(store.NewRedisCache(redisClient), durable, cfg.Store.SessionTTL, logger)

	// The allocator must not die with the signal context; Shutdown owns its
	// lifetime so in-flight phases can finish during graceful teardown.
	manager := browser.NewManager(context.Background(), logger, cfg.Browser)
	pool := browser.NewPool(logger, manager, cfg.Browser)

	steps := flow.NewSteps(logger, sessions, pool, cfg.Site)
	orch := orchestrator.New(logger, sessions, steps)

	return &Components{
		Orchestrator:   orch,
		browserPool:    pool,
		browserManager: manager,
		redisClient:    redisClient,
		dbPool:         dbPool,
	}, nil
}

// Shutdown closes every component, live browser handles first so Chrome
// processes do not outlive the service.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if c.browserPool != nil {
		c.browserPool.ClearAll(ctx)
		logger.Debug("Handle pool cleared.")
	}
	if c.browserManager != nil {
		c.browserManager.Shutdown()
		logger.Debug("Browser manager stopped.")
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if c.dbPool != nil {
		c.dbPool.Close()
		logger.Debug("Database pool closed.")
	}
}
