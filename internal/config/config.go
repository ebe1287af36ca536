package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/urbispulse/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Submission   SubmissionConfig
	RateLimit    RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory stores.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	LedgerBackend string
	LedgerPrefix  string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token parameters for the sign-in stub.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
	QueueSize  int
}

// SubmissionConfig tunes the reporting workflow.
type SubmissionConfig struct {
	CommitDelayMillis int
	DraftTTLMinutes   int
	JanitorInterval   int
	Categories        []domain.Category
}

// RateLimitConfig caps per-caller mutation rates.
type RateLimitConfig struct {
	UpvotesPerMinute int
	CommitsPerMinute int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	categories, err := parseCategories(os.Getenv("SUBMISSION_CATEGORIES"))
	if err != nil {
		return nil, err
	}

	ledger := strings.ToLower(getEnv("LEDGER_BACKEND", "redis"))
	if ledger != "redis" && ledger != "memory" {
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q", ledger)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "urbispulse"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:          os.Getenv("REDIS_ADDR"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			LedgerBackend: ledger,
			LedgerPrefix:  getEnv("REDIS_LEDGER_PREFIX", "urbispulse:upvotes"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@urbispulse.local"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			QueueSize:  getEnvAsInt("NOTIFY_QUEUE_SIZE", 100),
		},
		Submission: SubmissionConfig{
			CommitDelayMillis: getEnvAsInt("SUBMISSION_COMMIT_DELAY_MS", 2000),
			DraftTTLMinutes:   getEnvAsInt("SUBMISSION_DRAFT_TTL_MINUTES", 60),
			JanitorInterval:   getEnvAsInt("SUBMISSION_JANITOR_INTERVAL_SECONDS", 60),
			Categories:        categories,
		},
		RateLimit: RateLimitConfig{
			UpvotesPerMinute: getEnvAsInt("RATE_LIMIT_UPVOTES_PER_MINUTE", 60),
			CommitsPerMinute: getEnvAsInt("RATE_LIMIT_COMMITS_PER_MINUTE", 10),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// UseRedisLedger reports whether upvotes should be kept in Redis.
func (r RedisConfig) UseRedisLedger() bool {
	return r.Addr != "" && r.LedgerBackend == "redis"
}

// CommitDelay is the simulated classification time applied on commit.
func (s SubmissionConfig) CommitDelay() time.Duration {
	if s.CommitDelayMillis <= 0 {
		return 0
	}
	return time.Duration(s.CommitDelayMillis) * time.Millisecond
}

// DraftTTL is how long an untouched draft survives before the janitor removes it.
func (s SubmissionConfig) DraftTTL() time.Duration {
	if s.DraftTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.DraftTTLMinutes) * time.Minute
}

// SweepInterval is the janitor tick.
func (s SubmissionConfig) SweepInterval() time.Duration {
	if s.JanitorInterval <= 0 {
		return time.Minute
	}
	return time.Duration(s.JanitorInterval) * time.Second
}

// parseCategories reads "id:Name,id:Name". An empty value keeps the default list.
func parseCategories(raw string) ([]domain.Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.DefaultCategories, nil
	}
	var out []domain.Category
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, _ := strings.Cut(entry, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("invalid SUBMISSION_CATEGORIES entry %q", entry)
		}
		out = append(out, domain.Category{ID: id, Name: strings.TrimSpace(name)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("SUBMISSION_CATEGORIES has no entries")
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
