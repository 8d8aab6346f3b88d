package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server      Server      `mapstructure:"server"`
	Log         Log         `mapstructure:"log"`
	Auth        Auth        `mapstructure:"auth"`
	Preferences Preferences `mapstructure:"preferences"`
	Redis       RedisConfig `mapstructure:"redis"`
	Challenge   Challenge   `mapstructure:"challenge"`
	Repayment   Repayment   `mapstructure:"repayment"`
	Kafka       Kafka       `mapstructure:"kafka"`
	RabbitMQ    RabbitMQ    `mapstructure:"rabbitmq"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `mapstructure:"addr"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// Auth controls bearer-token owner resolution. When disabled every request
// acts as DefaultOwner, matching the single-user device the data came from.
type Auth struct {
	Enabled       bool   `mapstructure:"enabled"`
	JWTSigningKey string `mapstructure:"jwt_signing_key"`
	Issuer        string `mapstructure:"issuer"`
	Audience      string `mapstructure:"audience"`
	DefaultOwner  string `mapstructure:"default_owner"`
	AdminToken    string `mapstructure:"admin_token"`
}

// Preferences selects the durable backend for unlock sets.
type Preferences struct {
	Backend     string `mapstructure:"backend"`
	FileDir     string `mapstructure:"file_dir"`
	PostgresURL string `mapstructure:"postgres_url"`
	MySQLDSN    string `mapstructure:"mysql_dsn"`
}

// RedisConfig configures the shared go-redis client.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Challenge configures the CVV/OTP unlock flow.
type Challenge struct {
	Verification   string        `mapstructure:"verification"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	LockDuration   time.Duration `mapstructure:"lock_duration"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	ResendDelay    time.Duration `mapstructure:"resend_delay"`
	SweepSchedule  string        `mapstructure:"sweep_schedule"`
	LockoutBackend string        `mapstructure:"lockout_backend"`
}

// Repayment overrides the per-kind policy table.
type Repayment struct {
	CardMinimumRate   float64 `mapstructure:"card_minimum_rate"`
	CardProcessingFee float64 `mapstructure:"card_processing_fee"`
	LoanMinimumRate   float64 `mapstructure:"loan_minimum_rate"`
	LoanProcessingFee float64 `mapstructure:"loan_processing_fee"`
}

type Kafka struct {
	Brokers    []string `mapstructure:"brokers"`
	AuditTopic string   `mapstructure:"audit_topic"`
}

type RabbitMQ struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

const (
	VerificationMock   = "mock"
	VerificationStrict = "strict"
)

var (
	preferenceBackends = []string{"memory", "file", "redis", "postgres", "mysql"}
	lockoutBackends    = []string{"memory", "postgres"}
)

// Load reads configuration from the environment, an optional .env file and an
// optional CONFIG_FILE. Environment keys are the upper-cased paths with "."
// replaced by "_" (PREFERENCES_BACKEND, CHALLENGE_MAX_ATTEMPTS, ...).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_signing_key", "")
	v.SetDefault("auth.issuer", "vaultline")
	v.SetDefault("auth.audience", "vaultline-app")
	v.SetDefault("auth.default_owner", "device-owner")
	v.SetDefault("auth.admin_token", "")

	v.SetDefault("preferences.backend", "file")
	v.SetDefault("preferences.file_dir", "./data/preferences")
	v.SetDefault("preferences.postgres_url", "")
	v.SetDefault("preferences.mysql_dsn", "")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("challenge.verification", VerificationMock)
	v.SetDefault("challenge.max_attempts", 5)
	v.SetDefault("challenge.lock_duration", 15*time.Minute)
	v.SetDefault("challenge.session_ttl", 10*time.Minute)
	v.SetDefault("challenge.resend_delay", time.Second)
	v.SetDefault("challenge.sweep_schedule", "@every 1m")
	v.SetDefault("challenge.lockout_backend", "memory")

	v.SetDefault("repayment.card_minimum_rate", 0.03)
	v.SetDefault("repayment.card_processing_fee", 2.50)
	v.SetDefault("repayment.loan_minimum_rate", 0.05)
	v.SetDefault("repayment.loan_processing_fee", 5.00)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.audit_topic", "vaultline.audit")

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "vaultline.events")
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	if !slices.Contains(preferenceBackends, c.Preferences.Backend) {
		return fmt.Errorf("PREFERENCES_BACKEND must be one of %s, got %q", strings.Join(preferenceBackends, "|"), c.Preferences.Backend)
	}
	switch c.Preferences.Backend {
	case "file":
		if c.Preferences.FileDir == "" {
			return errors.New("PREFERENCES_FILE_DIR is required for the file backend")
		}
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("REDIS_URL is required for the redis backend")
		}
	case "postgres":
		if c.Preferences.PostgresURL == "" {
			return errors.New("PREFERENCES_POSTGRES_URL is required for the postgres backend")
		}
	case "mysql":
		if c.Preferences.MySQLDSN == "" {
			return errors.New("PREFERENCES_MYSQL_DSN is required for the mysql backend")
		}
	}

	if !slices.Contains(lockoutBackends, c.Challenge.LockoutBackend) {
		return fmt.Errorf("CHALLENGE_LOCKOUT_BACKEND must be one of %s, got %q", strings.Join(lockoutBackends, "|"), c.Challenge.LockoutBackend)
	}
	if c.Challenge.LockoutBackend == "postgres" && c.Preferences.PostgresURL == "" {
		return errors.New("PREFERENCES_POSTGRES_URL is required for the postgres lockout backend")
	}
	if c.Challenge.Verification != VerificationMock && c.Challenge.Verification != VerificationStrict {
		return fmt.Errorf("CHALLENGE_VERIFICATION must be mock or strict, got %q", c.Challenge.Verification)
	}
	if c.Challenge.MaxAttempts <= 0 {
		return errors.New("CHALLENGE_MAX_ATTEMPTS must be positive")
	}
	if c.Challenge.SessionTTL <= 0 || c.Challenge.LockDuration <= 0 {
		return errors.New("CHALLENGE_SESSION_TTL and CHALLENGE_LOCK_DURATION must be positive")
	}

	if c.Auth.Enabled && c.Auth.JWTSigningKey == "" {
		return errors.New("AUTH_JWT_SIGNING_KEY is required when AUTH_ENABLED=true")
	}
	if !c.Auth.Enabled && c.Auth.DefaultOwner == "" {
		return errors.New("AUTH_DEFAULT_OWNER is required when auth is disabled")
	}

	for name, v := range map[string]float64{
		"REPAYMENT_CARD_MINIMUM_RATE":   c.Repayment.CardMinimumRate,
		"REPAYMENT_LOAN_MINIMUM_RATE":   c.Repayment.LoanMinimumRate,
		"REPAYMENT_CARD_PROCESSING_FEE": c.Repayment.CardProcessingFee,
		"REPAYMENT_LOAN_PROCESSING_FEE": c.Repayment.LoanProcessingFee,
	} {
		if v < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	return nil
}
