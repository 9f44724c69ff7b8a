// Package store persists session records in two tiers: an expiring Redis
// cache for fast resume within the TTL window, and a Postgres document table
// as the durable fallback. Every save writes both tiers; reads fall through
// from cache to durable and write back on the way out.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
)

// TwoTierStore implements schemas.SessionStore over a CacheTier and a
// DurableTier. Writes are fire-and-replace keyed by session id; the caller
// layer serializes operations per session, so last-writer-wins is safe.
type TwoTierStore struct {
	cache   CacheTier
	durable DurableTier
	ttl     time.Duration
	clock   schemas.Clock
	log     *zap.Logger
}

var _ schemas.SessionStore = (*TwoTierStore)(nil)

// New builds the two-tier store. ttl applies to every cache write, including
// the write-back performed by Get.
func New(cache CacheTier, durable DurableTier, ttl time.Duration, logger *zap.Logger) *TwoTierStore {
	return &TwoTierStore{
		cache:   cache,
		durable: durable,
		ttl:     ttl,
		clock:   schemas.RealClock{},
		log:     logger.Named("session_store"),
	}
}

// WithClock substitutes the timestamp source; tests use a fixed clock.
func (s *TwoTierStore) WithClock(clock schemas.Clock) *TwoTierStore {
	s.clock = clock
	return s
}

// Save stamps the record and writes it to both tiers. A cache write failure
// is a hard failure; a durable write failure is logged and swallowed, since
// the session remains resumable from the cache within the TTL window.
func (s *TwoTierStore) Save(ctx context.Context, sessionID string, rec *schemas.SessionRecord) error {
	now := s.clock.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.SessionID = sessionID

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sessionID, err)
	}

	if err := s.cache.Set(ctx, sessionID, doc, s.ttl); err != nil {
		return fmt.Errorf("cache tier write failed for session %s: %w", sessionID, err)
	}

	if err := s.durable.Upsert(ctx, sessionID, doc, rec.UpdatedAt); err != nil {
		// Soft failure: never surfaced to the caller.
		s.log.Warn("Durable tier write failed, continuing on cache only",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
	return nil
}

// Get reads the cache tier first, falling back to the durable tier on a
// miss. A durable hit is written back into the cache with a full TTL.
// Returns (nil, nil) when the record exists in neither tier.
func (s *TwoTierStore) Get(ctx context.Context, sessionID string) (*schemas.SessionRecord, error) {
	doc, err := s.cache.Get(ctx, sessionID)
	if err == nil {
		return unmarshalRecord(sessionID, doc)
	}
	if err != ErrCacheMiss {
		// A broken cache should not strand sessions that the durable tier
		// still remembers.
		s.log.Warn("Cache tier read failed, falling back to durable tier",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	doc, err = s.durable.FindOne(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("durable tier read failed for session %s: %w", sessionID, err)
	}
	if doc == nil {
		return nil, nil
	}

	if err := s.cache.Set(ctx, sessionID, doc, s.ttl); err != nil {
		s.log.Warn("Cache write-back failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
	return unmarshalRecord(sessionID, doc)
}

func unmarshalRecord(sessionID string, doc []byte) (*schemas.SessionRecord, error) {
	var rec schemas.SessionRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &rec, nil
}
