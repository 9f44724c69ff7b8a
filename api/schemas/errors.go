package schemas

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the outcome taxonomy of the orchestrator. Callers
// branch on these with errors.Is; everything else is a StepError.
var (
	// ErrSessionNotFound means no persisted record exists for the id. The
	// caller must restart from RequestLogin.
	ErrSessionNotFound = errors.New("session not found")

	// ErrHandleExpired means the logical session is intact but the live
	// browser handle is gone (process restart, idle reap, or an earlier
	// close). Recoverable only by restarting from RequestLogin.
	ErrHandleExpired = errors.New("session expired or browser closed")

	// ErrPoolExhausted means the browser pool is at capacity and a new
	// login cannot be admitted right now.
	ErrPoolExhausted = errors.New("browser pool at capacity")

	// ErrInvalidTransition means the operation is not legal from the
	// session's current workflow state.
	ErrInvalidTransition = errors.New("operation not valid in current session state")

	// ErrScrapeParse means the rendered cart page did not match the
	// expected markup while scraping.
	ErrScrapeParse = errors.New("cart page did not match expected structure")
)

// StepError wraps an engine or persistence failure inside one automation
// step. The handle involved is always closed before a StepError is returned.
type StepError struct {
	Step   string
	Reason string
	Err    error
}

func NewStepError(step, reason string, err error) *StepError {
	return &StepError{Step: step, Reason: reason, Err: err}
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("automation step %s failed: %s: %v", e.Step, e.Reason, e.Err)
	}
	return fmt.Sprintf("automation step %s failed: %s", e.Step, e.Reason)
}

func (e *StepError) Unwrap() error { return e.Err }

// UserMessage maps any workflow error to a short, human-readable message
// safe to expose across the API boundary. Selector and engine detail stays
// in the logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionNotFound):
		return "Session not found. Please log in again."
	case errors.Is(err, ErrHandleExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrPoolExhausted):
		return "Too many active sessions right now. Please try again shortly."
	case errors.Is(err, ErrInvalidTransition):
		return "That step is not available for this session."
	case errors.Is(err, ErrScrapeParse):
		return "Could not read the cart page. Please try again."
	default:
		return "The automation step failed. Please try again."
	}
}
