package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Directory DirectoryConfig
	Kafka     KafkaConfig
	Janitor   JanitorConfig
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

// PostgresConfig holds DB connection values for the postgres directory driver.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	OpTimeoutMS int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and login parameters.
type AuthConfig struct {
	JWTSecret              string
	JWTIssuer              string
	AccessTokenTTLMinutes  int
	RefreshTokenTTLHours   int
	RememberMeTTLDays      int
	VerifyPassword         bool
	BcryptCost             int
	PublicPaths            []string
	LastLoginUpdateTimeout int
}

// RateLimitRule is a (max, window) pair for one operation.
type RateLimitRule struct {
	MaxRequests   int
	WindowSeconds int
}

// RateLimitConfig holds per-operation rules.
type RateLimitConfig struct {
	Login   RateLimitRule
	Refresh RateLimitRule
}

// DirectoryConfig selects and configures the identity directory backend.
type DirectoryConfig struct {
	Driver        string
	BaseURL       string
	TimeoutMS     int
	RatePerSecond int
}

// KafkaConfig enables event publishing when brokers are set.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

// JanitorConfig controls the session cleanup worker.
type JanitorConfig struct {
	IntervalSeconds int
}

const defaultPublicPaths = "/api/v1/auth/login,/api/v1/auth/refresh,/api/v1/auth/logout,/api/v1/auth/health,/health,/metrics"

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "auth-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8081"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 10),
			OpTimeoutMS: getEnvAsInt("REDIS_OP_TIMEOUT_MS", 500),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret-change-me-dev-secret-change-me"),
			JWTIssuer:              getEnv("AUTH_JWT_ISSUER", "auth-service"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLHours:   getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 168),
			RememberMeTTLDays:      getEnvAsInt("AUTH_REMEMBER_ME_TTL_DAYS", 30),
			VerifyPassword:         getEnvAsBool("AUTH_VERIFY_PASSWORD", true),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			PublicPaths:            getEnvAsList("AUTH_PUBLIC_PATHS", defaultPublicPaths),
			LastLoginUpdateTimeout: getEnvAsInt("AUTH_LAST_LOGIN_TIMEOUT_MS", 1000),
		},
		RateLimit: RateLimitConfig{
			Login: RateLimitRule{
				MaxRequests:   getEnvAsInt("RATE_LIMIT_LOGIN_MAX", 5),
				WindowSeconds: getEnvAsInt("RATE_LIMIT_LOGIN_WINDOW_SECONDS", 900),
			},
			Refresh: RateLimitRule{
				MaxRequests:   getEnvAsInt("RATE_LIMIT_REFRESH_MAX", 10),
				WindowSeconds: getEnvAsInt("RATE_LIMIT_REFRESH_WINDOW_SECONDS", 3600),
			},
		},
		Directory: DirectoryConfig{
			Driver:        strings.ToLower(getEnv("DIRECTORY_DRIVER", "http")),
			BaseURL:       getEnv("DIRECTORY_BASE_URL", "http://127.0.0.1:8082"),
			TimeoutMS:     getEnvAsInt("DIRECTORY_TIMEOUT_MS", 3000),
			RatePerSecond: getEnvAsInt("DIRECTORY_RATE_PER_SECOND", 50),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvAsList("KAFKA_BROKERS", ""),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "auth"),
		},
		Janitor: JanitorConfig{
			IntervalSeconds: getEnvAsInt("SESSION_JANITOR_INTERVAL_SECONDS", 600),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 bytes, got %d", len(c.Auth.JWTSecret))
	}
	for name, rule := range map[string]RateLimitRule{"LOGIN": c.RateLimit.Login, "REFRESH": c.RateLimit.Refresh} {
		if rule.MaxRequests <= 0 || rule.WindowSeconds <= 0 {
			return fmt.Errorf("RATE_LIMIT_%s_MAX and RATE_LIMIT_%s_WINDOW_SECONDS must be positive, got %d/%d",
				name, name, rule.MaxRequests, rule.WindowSeconds)
		}
	}
	switch c.Directory.Driver {
	case "http", "postgres":
	default:
		return fmt.Errorf("invalid DIRECTORY_DRIVER %q", c.Directory.Driver)
	}
	if c.Directory.Driver == "postgres" && c.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for the postgres directory driver")
	}
	return nil
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

// OpTimeout bounds every individual store call.
func (r RedisConfig) OpTimeout() time.Duration {
	if r.OpTimeoutMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(r.OpTimeoutMS) * time.Millisecond
}

func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

func (a AuthConfig) RememberMeTTL() time.Duration {
	return time.Duration(a.RememberMeTTLDays) * 24 * time.Hour
}

func (a AuthConfig) LastLoginTimeout() time.Duration {
	return time.Duration(a.LastLoginUpdateTimeout) * time.Millisecond
}

// Window returns the rule window as a duration.
func (r RateLimitRule) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// Timeout returns the per-call directory timeout.
func (d DirectoryConfig) Timeout() time.Duration {
	if d.TimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(d.TimeoutMS) * time.Millisecond
}

// Enabled reports whether Kafka publishing is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

func (j JanitorConfig) Interval() time.Duration {
	return time.Duration(j.IntervalSeconds) * time.Second
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

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
