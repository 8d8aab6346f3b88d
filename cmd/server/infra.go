package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vaultline/internal/platform/config"
	"vaultline/internal/platform/kafka"
	"vaultline/internal/platform/mysql"
	"vaultline/internal/platform/postgres"
	"vaultline/internal/platform/rabbitmq"
	"vaultline/internal/platform/redis"
	"vaultline/internal/unlock/ports"
	"vaultline/internal/unlock/store/lockout"
	"vaultline/internal/unlock/store/preference"
	"vaultline/pkg/platform/audit"
	auditmemory "vaultline/pkg/platform/audit/store/memory"
	pkgstrings "vaultline/pkg/platform/strings"
)

// infrastructure holds the configured backends and how to release them.
type infrastructure struct {
	preferences ports.PreferenceStore
	lockouts    ports.LockoutStore
	auditStore  audit.Store
	events      rabbitmq.Publisher
	checks      map[string]func(context.Context) error
	closers     []func()
}

func openInfrastructure(ctx context.Context, cfg config.Config, log *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{checks: make(map[string]func(context.Context) error)}
	ok := false
	defer func() {
		if !ok {
			infra.Close()
		}
	}()

	var pgDB *sql.DB
	openPostgres := func() (*sql.DB, error) {
		if pgDB != nil {
			return pgDB, nil
		}
		db, err := postgres.Open(ctx, cfg.Preferences.PostgresURL)
		if err != nil {
			return nil, err
		}
		infra.onClose(func() { _ = db.Close() })
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		infra.checks["postgres"] = db.PingContext
		pgDB = db
		return db, nil
	}

	switch cfg.Preferences.Backend {
	case "memory":
		infra.preferences = preference.NewInMemory()
	case "file":
		store, err := preference.NewFileStore(cfg.Preferences.FileDir)
		if err != nil {
			return nil, err
		}
		infra.preferences = store
	case "redis":
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("redis backend selected without REDIS_URL")
		}
		infra.onClose(func() { _ = client.Close() })
		infra.checks["redis"] = client.Health
		infra.preferences = preference.NewRedis(client.Client)
	case "postgres":
		db, err := openPostgres()
		if err != nil {
			return nil, err
		}
		infra.preferences = preference.NewPostgres(db)
	case "mysql":
		db, err := mysql.Open(ctx, cfg.Preferences.MySQLDSN)
		if err != nil {
			return nil, err
		}
		infra.onClose(func() { _ = db.Close() })
		if err := mysql.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		infra.checks["mysql"] = db.PingContext
		infra.preferences = preference.NewMySQL(db)
	default:
		return nil, fmt.Errorf("unknown preferences backend %q", cfg.Preferences.Backend)
	}
	log.Info("preference store ready", "backend", cfg.Preferences.Backend)

	switch cfg.Challenge.LockoutBackend {
	case "postgres":
		if _, err := openPostgres(); err != nil {
			return nil, err
		}
		pool, err := postgres.OpenPool(ctx, cfg.Preferences.PostgresURL)
		if err != nil {
			return nil, err
		}
		infra.onClose(pool.Close)
		infra.lockouts = lockout.NewPostgres(pool)
	default:
		infra.lockouts = lockout.New()
	}

	brokers := pkgstrings.SplitAndDedupe(cfg.Kafka.Brokers)
	if len(brokers) > 0 {
		producer, err := kafka.NewProducer(ctx, brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			return nil, err
		}
		infra.onClose(func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			producer.Close(closeCtx)
		})
		infra.auditStore = producer
		log.Info("audit events stream to kafka", "topic", cfg.Kafka.AuditTopic, "brokers", brokers)
	} else {
		infra.auditStore = auditmemory.NewInMemoryStore()
	}

	if cfg.RabbitMQ.URL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.Warn("rabbitmq unavailable, domain events will be dropped", "error", err)
			infra.events = rabbitmq.NoopPublisher{Logger: log}
		} else {
			infra.events = producer
		}
	} else {
		infra.events = rabbitmq.NoopPublisher{Logger: log}
	}
	infra.onClose(infra.events.Close)

	ok = true
	return infra, nil
}

func (i *infrastructure) onClose(fn func()) {
	i.closers = append(i.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (i *infrastructure) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
	i.closers = nil
}

// Health pings every networked backend.
func (i *infrastructure) Health(ctx context.Context) map[string]error {
	results := make(map[string]error, len(i.checks))
	for name, check := range i.checks {
		results[name] = check(ctx)
	}
	return results
}
