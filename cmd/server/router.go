package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vaultline/internal/catalog"
	cataloghandler "vaultline/internal/catalog/handler"
	jwttoken "vaultline/internal/jwt_token"
	"vaultline/internal/platform/config"
	"vaultline/internal/platform/metrics"
	"vaultline/internal/repayment/calculator"
	repaymenthandler "vaultline/internal/repayment/handler"
	unlockhandler "vaultline/internal/unlock/handler"
	"vaultline/internal/unlock/service/challenge"
	"vaultline/internal/unlock/service/unlockset"
	auditpublisher "vaultline/pkg/platform/audit/publisher"
	"vaultline/pkg/platform/httputil"
	"vaultline/pkg/platform/middleware/admin"
	"vaultline/pkg/platform/middleware/auth"
	"vaultline/pkg/platform/middleware/metadata"
	"vaultline/pkg/platform/middleware/request"
	"vaultline/pkg/platform/middleware/requesttime"
)

type routerDeps struct {
	cfg         config.Config
	logger      *slog.Logger
	registry    *prometheus.Registry
	httpMetrics *metrics.Metrics
	health      func(context.Context) map[string]error
	catalog     *catalog.Provider
	unlocks     *unlockset.Service
	challenges  *challenge.Service
	calculator  *calculator.Calculator
	audit       *auditpublisher.Publisher
}

func newRouter(d routerDeps) http.Handler {
	unlocks := unlockhandler.New(d.unlocks, d.challenges, d.logger)
	catalogs := cataloghandler.New(d.catalog, d.unlocks, d.logger)
	repayments := repaymenthandler.New(d.catalog, d.calculator, d.logger,
		repaymenthandler.WithAuditPublisher(d.audit),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.logger))
	r.Use(d.httpMetrics.Middleware)

	r.Get("/healthz", healthHandler(d.health))
	r.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{Registry: d.registry}))

	r.Group(func(r chi.Router) {
		r.Use(ownerMiddleware(d.cfg.Auth, d.logger))
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(d.cfg.Server.RequestTimeout))
			unlocks.Register(r)
			catalogs.Register(r)
			repayments.Register(r)
		})
		unlocks.RegisterStream(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(d.cfg.Auth.AdminToken, d.logger))
		unlocks.RegisterAdmin(r)
	})
	return r
}

func ownerMiddleware(cfg config.Auth, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return auth.DefaultOwner(cfg.DefaultOwner)
	}
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.Issuer, cfg.Audience)
	return auth.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), logger)
}

func healthHandler(check func(context.Context) map[string]error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		components := map[string]string{}
		for name, err := range check(ctx) {
			components[name] = "ok"
			if err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{"status": state, "components": components})
	}
}
