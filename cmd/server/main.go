package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"vaultline/internal/catalog"
	"vaultline/internal/platform/config"
	"vaultline/internal/platform/httpserver"
	"vaultline/internal/platform/logger"
	"vaultline/internal/platform/metrics"
	"vaultline/internal/platform/scheduler"
	"vaultline/internal/repayment/calculator"
	unlockmetrics "vaultline/internal/unlock/metrics"
	"vaultline/internal/unlock/service/challenge"
	"vaultline/internal/unlock/service/unlockset"
	"vaultline/internal/unlock/store/session"
	auditpublisher "vaultline/pkg/platform/audit/publisher"
)

// main wires high-level dependencies, exposes the HTTP router, and supervises
// the server and background jobs. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "vaultline:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.New(reg)
	unlockMetrics := unlockmetrics.New(reg)

	infra, err := openInfrastructure(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	auditPub := auditpublisher.NewPublisher(infra.auditStore,
		auditpublisher.WithAsyncBuffer(1024),
		auditpublisher.WithLogger(log),
	)
	defer auditPub.Close()

	provider, err := catalog.NewProvider(catalog.SampleEntities())
	if err != nil {
		return err
	}

	unlocks, err := unlockset.New(infra.preferences,
		unlockset.WithLogger(log),
		unlockset.WithAuditPublisher(auditPub),
		unlockset.WithEventPublisher(infra.events),
		unlockset.WithMetrics(unlockMetrics),
	)
	if err != nil {
		return err
	}

	verifier, err := newVerifier(cfg.Challenge, provider, log)
	if err != nil {
		return err
	}
	challenges, err := challenge.New(session.New(), infra.lockouts, unlocks, provider, verifier,
		challenge.WithConfig(challenge.Config{
			MaxAttempts:  cfg.Challenge.MaxAttempts,
			LockDuration: cfg.Challenge.LockDuration,
			SessionTTL:   cfg.Challenge.SessionTTL,
		}),
		challenge.WithLogger(log),
		challenge.WithAuditPublisher(auditPub),
		challenge.WithMetrics(unlockMetrics),
	)
	if err != nil {
		return err
	}

	calc, err := calculator.New(calculator.PoliciesFromConfig(cfg.Repayment))
	if err != nil {
		return err
	}

	sched := scheduler.New(log)
	if err := sched.Add(challenges.SweepJob(cfg.Challenge.SweepSchedule)); err != nil {
		return err
	}

	router := newRouter(routerDeps{
		cfg:         cfg,
		logger:      log,
		registry:    reg,
		httpMetrics: httpMetrics,
		health:      infra.Health,
		catalog:     provider,
		unlocks:     unlocks,
		challenges:  challenges,
		calculator:  calc,
		audit:       auditPub,
	})

	g, gctx := errgroup.WithContext(ctx)
	srv := httpserver.New(cfg.Server, router)
	srv.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		log.Info("starting vaultline",
			"addr", cfg.Server.Addr,
			"preferences_backend", cfg.Preferences.Backend,
			"verification", cfg.Challenge.Verification,
			"auth_enabled", cfg.Auth.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newVerifier(cfg config.Challenge, provider *catalog.Provider, log *slog.Logger) (challenge.Verifier, error) {
	if cfg.Verification == config.VerificationStrict {
		return challenge.NewStrictVerifier(provider, challenge.LogSender{Logger: log})
	}
	log.Warn("challenge verification is mocked: any well-formed cvv and otp will unlock")
	return challenge.MockVerifier{ResendDelay: cfg.ResendDelay}, nil
}
