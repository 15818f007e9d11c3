package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "SHOPIN"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	Upstream UpstreamConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Cart     CartConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Upstream.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPIN_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPIN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPIN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPIN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points at the commerce API this service orchestrates.
type UpstreamConfig struct {
	BaseURL string        `envconfig:"SHOPIN_UPSTREAM_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"SHOPIN_UPSTREAM_TIMEOUT" default:"10s"`
}

func (u UpstreamConfig) validate() error {
	if strings.TrimSpace(u.BaseURL) == "" {
		return fmt.Errorf("upstream base url is required")
	}
	if u.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPIN_REDIS_URL"`
	Address      string        `envconfig:"SHOPIN_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPIN_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPIN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPIN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPIN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPIN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPIN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPIN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"SHOPIN_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SHOPIN_JWT_ISSUER" required:"true"`
}

// CartConfig tunes the debounced cart reconciler.
type CartConfig struct {
	// DebounceInterval is the quiet period after the last local mutation
	// before a bulk sync is dispatched.
	DebounceInterval time.Duration `envconfig:"SHOPIN_CART_DEBOUNCE_INTERVAL" default:"500ms"`
	// SnapshotTTL bounds how long an optimistic cart snapshot survives in
	// Redis without further mutations.
	SnapshotTTL time.Duration `envconfig:"SHOPIN_CART_SNAPSHOT_TTL" default:"24h"`
	// SessionIdle evicts reconciler sessions untouched for this long.
	SessionIdle time.Duration `envconfig:"SHOPIN_CART_SESSION_IDLE" default:"30m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SHOPIN_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}
