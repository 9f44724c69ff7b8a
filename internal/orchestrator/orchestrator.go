// Package orchestrator exposes the public workflow contract and reconciles
// the two lifetimes involved: the persisted session record, which survives
// restarts, and the live browser handle, which does not. Every operation
// that needs the handle treats its absence as a first-class outcome
// (ErrHandleExpired), not an exception path.
package orchestrator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
)

// Service sequences the automation steps against the session store and the
// handle pool, enforcing the workflow state machine and serializing all
// operations per session id.
type Service struct {
	logger *zap.Logger
	store  schemas.SessionStore
	steps  schemas.AutomationSteps
	locks  *keyedMutex
}

var _ schemas.Orchestrator = (*Service)(nil)

func New(logger *zap.Logger, store schemas.SessionStore, steps schemas.AutomationSteps) *Service {
	return &Service{
		logger: logger.Named("orchestrator"),
		store:  store,
		steps:  steps,
		locks:  newKeyedMutex(),
	}
}

// RequestLogin starts a fresh workflow. The session id does not exist until
// the step succeeds, so there is nothing to serialize against.
func (s *Service) RequestLogin(ctx context.Context, phoneNumber string) (string, error) {
	sessionID, err := s.steps.RequestLogin(ctx, phoneNumber)
	if err != nil {
		s.logger.Error("Login request failed", zap.Error(err))
		return "", err
	}
	return sessionID, nil
}

// VerifyCode advances OtpRequested to Verified.
func (s *Service) VerifyCode(ctx context.Context, sessionID, code string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	rec, err := s.loadForTransition(ctx, sessionID, schemas.StateVerified)
	if err != nil {
		return err
	}

	if err := s.steps.VerifyCode(ctx, sessionID, rec, code); err != nil {
		s.logger.Error("Code verification failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// PopulateCart advances Verified to CartPopulated and returns the scraped
// cart summary.
func (s *Service) PopulateCart(ctx context.Context, sessionID string, products []schemas.Product) (*schemas.CartSummary, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	rec, err := s.loadForTransition(ctx, sessionID, schemas.StateCartPopulated)
	if err != nil {
		return nil, err
	}

	summary, err := s.steps.PopulateCart(ctx, sessionID, rec, products)
	if err != nil {
		s.logger.Error("Cart population failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, err
	}
	return summary, nil
}

// loadForTransition fetches the record and rejects operations attempted from
// the wrong workflow state. Record absence and wrong state are distinct
// outcomes: the first means "log in again", the second means the caller
// skipped or repeated a phase.
func (s *Service) loadForTransition(ctx context.Context, sessionID string, target schemas.WorkflowState) (*schemas.SessionRecord, error) {
	rec, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, schemas.ErrSessionNotFound
	}
	if !schemas.CanTransition(rec.State, target) {
		s.logger.Warn("Rejected out-of-order operation",
			zap.String("session_id", sessionID),
			zap.String("current_state", string(rec.State)),
			zap.String("target_state", string(target)),
		)
		return nil, schemas.ErrInvalidTransition
	}
	return rec, nil
}

// IsRetryable reports whether the caller may retry the same call without a
// fresh login. Engine failures are not retryable without re-inspection: the
// site's live state after a partial automation action is unknown.
func IsRetryable(err error) bool {
	return errors.Is(err, schemas.ErrPoolExhausted)
}
