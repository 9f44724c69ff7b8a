// Package api exposes the three workflow operations over HTTP. Handlers
// validate input, delegate to the orchestrator, and map workflow errors to
// status codes; they hold no workflow logic of their own.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
)

// Indian mobile numbers: ten digits, first digit 6 through 9.
var phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// The site issues four-digit one-time codes.
var otpPattern = regexp.MustCompile(`^\d{4}$`)

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	logger       *zap.Logger
	orchestrator schemas.Orchestrator
}

// NewHandler creates a new HTTP handler.
func NewHandler(logger *zap.Logger, orch schemas.Orchestrator) *Handler {
	return &Handler{
		logger:       logger.Named("api"),
		orchestrator: orch,
	}
}

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type loginResponse struct {
	SessionID string `json:"sessionId"`
}

type verifyRequest struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

type cartRequest struct {
	SessionID string            `json:"sessionId"`
	Products  []schemas.Product `json:"products"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RequestLogin handles POST /api/login.
func (h *Handler) RequestLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		writeError(w, http.StatusBadRequest, "phoneNumber must be a valid 10-digit Indian mobile number")
		return
	}

	sessionID, err := h.orchestrator.RequestLogin(r.Context(), req.PhoneNumber)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loginResponse{SessionID: sessionID})
}

// VerifyCode handles POST /api/verify.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if !otpPattern.MatchString(req.Code) {
		writeError(w, http.StatusBadRequest, "code must be a 4-digit number")
		return
	}

	if err := h.orchestrator.VerifyCode(r.Context(), req.SessionID, req.Code); err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Verified: true})
}

// PopulateCart handles POST /api/cart.
func (h *Handler) PopulateCart(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if len(req.Products) == 0 {
		writeError(w, http.StatusBadRequest, "products must not be empty")
		return
	}
	for i, p := range req.Products {
		if !validProductURL(p.URL) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("products[%d].url must be a valid http(s) URL", i))
			return
		}
	}

	summary, err := h.orchestrator.PopulateCart(r.Context(), req.SessionID, req.Products)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeWorkflowError translates the orchestrator's error taxonomy into HTTP
// statuses. The response carries only the user-safe message; full detail
// goes to the log.
func (h *Handler) writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, schemas.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, schemas.ErrHandleExpired):
		status = http.StatusGone
	case errors.Is(err, schemas.ErrPoolExhausted):
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "30")
	case errors.Is(err, schemas.ErrInvalidTransition):
		status = http.StatusConflict
	}

	h.logger.Error("Workflow operation failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, status, schemas.UserMessage(err))
}

func validProductURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
