package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	Guard        GuardConfig
	Negotiation  NegotiationConfig
	Sweep        SweepConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AUTOVENDAS_APP_ENV" required:"true"`
	Port         string `envconfig:"AUTOVENDAS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AUTOVENDAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AUTOVENDAS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"AUTOVENDAS_DB_DSN"`

	Host     string `envconfig:"AUTOVENDAS_DB_HOST"`
	Port     int    `envconfig:"AUTOVENDAS_DB_PORT" default:"5432"`
	User     string `envconfig:"AUTOVENDAS_DB_USER"`
	Password string `envconfig:"AUTOVENDAS_DB_PASSWORD"`
	Name     string `envconfig:"AUTOVENDAS_DB_NAME"`
	SSLMode  string `envconfig:"AUTOVENDAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AUTOVENDAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AUTOVENDAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AUTOVENDAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AUTOVENDAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AUTOVENDAS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AUTOVENDAS_REDIS_ADDR"`
	Password     string        `envconfig:"AUTOVENDAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"AUTOVENDAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AUTOVENDAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AUTOVENDAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AUTOVENDAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AUTOVENDAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AUTOVENDAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AUTOVENDAS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AUTOVENDAS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AUTOVENDAS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RateLimitConfig struct {
	WriteWindow    time.Duration `envconfig:"AUTOVENDAS_RATE_LIMIT_WRITE_WINDOW" default:"1m"`
	WriteUserLimit int           `envconfig:"AUTOVENDAS_RATE_LIMIT_WRITE_USER_LIMIT" default:"30"`
	WriteIPLimit   int           `envconfig:"AUTOVENDAS_RATE_LIMIT_WRITE_IP_LIMIT" default:"60"`
}

// GuardConfig tunes the in-memory duplicate request guard.
type GuardConfig struct {
	Timeout       time.Duration `envconfig:"AUTOVENDAS_GUARD_TIMEOUT" default:"30s"`
	SweepInterval time.Duration `envconfig:"AUTOVENDAS_GUARD_SWEEP_INTERVAL" default:"60s"`
}

// NegotiationConfig carries the lifecycle knobs of the negotiation engine.
type NegotiationConfig struct {
	ExpiryHours int `envconfig:"AUTOVENDAS_NEGOTIATION_EXPIRY_HOURS" default:"72"`
	PurgeHours  int `envconfig:"AUTOVENDAS_NEGOTIATION_PURGE_HOURS" default:"48"`
}

// ExpiryTTL returns how long a negotiation stays open before the sweep may expire it.
func (n NegotiationConfig) ExpiryTTL() time.Duration {
	if n.ExpiryHours <= 0 {
		return 0
	}
	return time.Duration(n.ExpiryHours) * time.Hour
}

// PurgeDelay returns how long a cancelled negotiation is retained before purge.
func (n NegotiationConfig) PurgeDelay() time.Duration {
	if n.PurgeHours <= 0 {
		return 0
	}
	return time.Duration(n.PurgeHours) * time.Hour
}

type SweepConfig struct {
	Interval time.Duration `envconfig:"AUTOVENDAS_SWEEP_INTERVAL" default:"15m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AUTOVENDAS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range componentDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
