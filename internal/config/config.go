package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Pipeline     PipelineConfig
	RateLimit    RateLimitConfig
	Classifier   ClassifierConfig
	Knowledge    KnowledgeConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	MigrationsDir   string
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectAttempts int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	OperatorEmail         string
	OperatorPasswordHash  string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// PipelineConfig holds the tunable decision thresholds.
type PipelineConfig struct {
	RiskRejectThreshold        float64
	ResolveThreshold           float64
	AnonymousConfidenceCeiling float64
	OutputLowConfidence        float64
	OutputHighConfidence       float64
	MaxInputLength             int
	RiskPatternsFile           string
}

// RateLimitConfig holds the process-wide ceiling shared by all identities.
type RateLimitConfig struct {
	GlobalEnabled   bool
	GlobalPerMinute int
	GlobalPerHour   int
}

// ClassifierConfig selects and tunes the classification collaborator.
type ClassifierConfig struct {
	Provider              string
	OpenAIAPIKey          string
	OpenAIModel           string
	OpenAIBaseURL         string
	TimeoutSeconds        int
	MaxAttempts           int
	RetryInitialBackoffMS int
	DiagnoseOnMiss        bool
}

// KnowledgeConfig controls the known-issue cache.
type KnowledgeConfig struct {
	CacheTTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-triage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OperatorEmail:         getEnv("AUTH_OPERATOR_EMAIL", "ops@example.com"),
			OperatorPasswordHash:  os.Getenv("AUTH_OPERATOR_PASSWORD_HASH"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Pipeline: PipelineConfig{
			RiskRejectThreshold:        getEnvAsFloat("RISK_REJECT_THRESHOLD", 0.7),
			ResolveThreshold:           getEnvAsFloat("RESOLVE_THRESHOLD", 0.75),
			AnonymousConfidenceCeiling: getEnvAsFloat("ANONYMOUS_CONFIDENCE_CEILING", 0.6),
			OutputLowConfidence:        getEnvAsFloat("OUTPUT_LOW_CONFIDENCE", 0.6),
			OutputHighConfidence:       getEnvAsFloat("OUTPUT_HIGH_CONFIDENCE", 0.85),
			MaxInputLength:             getEnvAsInt("MAX_INPUT_LENGTH", 5000),
			RiskPatternsFile:           os.Getenv("RISK_PATTERNS_FILE"),
		},
		RateLimit: RateLimitConfig{
			GlobalEnabled:   getEnvAsBool("RATE_LIMIT_GLOBAL_ENABLED", true),
			GlobalPerMinute: getEnvAsInt("RATE_LIMIT_GLOBAL_PER_MINUTE", 1000),
			GlobalPerHour:   getEnvAsInt("RATE_LIMIT_GLOBAL_PER_HOUR", 50000),
		},
		Classifier: ClassifierConfig{
			Provider:              getEnv("CLASSIFIER_PROVIDER", "keyword"),
			OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
			TimeoutSeconds:        getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 10),
			MaxAttempts:           getEnvAsInt("CLASSIFIER_MAX_ATTEMPTS", 3),
			RetryInitialBackoffMS: getEnvAsInt("CLASSIFIER_RETRY_INITIAL_BACKOFF_MS", 200),
			DiagnoseOnMiss:        getEnvAsBool("CLASSIFIER_DIAGNOSE_ON_MISS", false),
		},
		Knowledge: KnowledgeConfig{
			CacheTTLSeconds: getEnvAsInt("KB_CACHE_TTL_SECONDS", 300),
		},
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
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

// Validate rejects thresholds outside [0,1].
func (p PipelineConfig) Validate() error {
	checks := map[string]float64{
		"RISK_REJECT_THRESHOLD":        p.RiskRejectThreshold,
		"RESOLVE_THRESHOLD":            p.ResolveThreshold,
		"ANONYMOUS_CONFIDENCE_CEILING": p.AnonymousConfidenceCeiling,
		"OUTPUT_LOW_CONFIDENCE":        p.OutputLowConfidence,
		"OUTPUT_HIGH_CONFIDENCE":       p.OutputHighConfidence,
	}
	for key, val := range checks {
		if val < 0 || val > 1 {
			return fmt.Errorf("invalid %s: %v not in [0,1]", key, val)
		}
	}
	if p.MaxInputLength <= 0 {
		return fmt.Errorf("invalid MAX_INPUT_LENGTH: %d", p.MaxInputLength)
	}
	return nil
}

// Timeout returns the per-attempt classifier deadline.
func (c ClassifierConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InitialBackoff returns the first retry delay.
func (c ClassifierConfig) InitialBackoff() time.Duration {
	return time.Duration(c.RetryInitialBackoffMS) * time.Millisecond
}

// CacheTTL returns the known-issue cache lifetime; zero disables caching.
func (k KnowledgeConfig) CacheTTL() time.Duration {
	if k.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(k.CacheTTLSeconds) * time.Second
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

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
