package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/internal/config"
)

// NewRouter wires the workflow endpoints.
func NewRouter(logger *zap.Logger, h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", h.RequestLogin).Methods(http.MethodPost)
	api.HandleFunc("/verify", h.VerifyCode).Methods(http.MethodPost)
	api.HandleFunc("/cart", h.PopulateCart).Methods(http.MethodPost)

	r.Use(requestLogging(logger))
	return r
}

// NewServer builds the http.Server around the router. Automation phases can
// run for minutes, so the write timeout is generous.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
