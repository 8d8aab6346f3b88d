package httpserver

import (
	"net/http"

	"vaultline/internal/platform/config"
)

// New builds the API server from cfg. WriteTimeout stays zero so
// /unlocks/stream can hold its response open; RequestTimeout is applied per
// route by the router.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
