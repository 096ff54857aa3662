package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Exchanges     ExchangesConfig
	Cache         CacheConfig
	Notifications NotificationsConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Exchanges.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ECOSWAP_APP_ENV" required:"true"`
	Port         string `envconfig:"ECOSWAP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ECOSWAP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ECOSWAP_LOG_WARN_STACK" default:"false"`
	CORSOrigin   string `envconfig:"ECOSWAP_CORS_ORIGIN" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ECOSWAP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ECOSWAP_DB_DSN"`
	Driver string `envconfig:"ECOSWAP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ECOSWAP_DB_HOST"`
	LegacyPort     int    `envconfig:"ECOSWAP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ECOSWAP_DB_USER"`
	LegacyPassword string `envconfig:"ECOSWAP_DB_PASSWORD"`
	LegacyName     string `envconfig:"ECOSWAP_DB_NAME"`
	LegacySSLMode  string `envconfig:"ECOSWAP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ECOSWAP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ECOSWAP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ECOSWAP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ECOSWAP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ECOSWAP_REDIS_URL"`
	Address      string        `envconfig:"ECOSWAP_REDIS_ADDR"`
	Password     string        `envconfig:"ECOSWAP_REDIS_PASSWORD"`
	DB           int           `envconfig:"ECOSWAP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ECOSWAP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ECOSWAP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ECOSWAP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ECOSWAP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ECOSWAP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how bearer tokens issued by the identity provider are verified.
type JWTConfig struct {
	Secret            string `envconfig:"ECOSWAP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ECOSWAP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ECOSWAP_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig throttles write-heavy exchange endpoints per user.
type RateLimitConfig struct {
	ExchangeWindow time.Duration `envconfig:"ECOSWAP_RATE_LIMIT_EXCHANGE_WINDOW" default:"1m"`
	ExchangeLimit  int           `envconfig:"ECOSWAP_RATE_LIMIT_EXCHANGE_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ECOSWAP_AUTO_MIGRATE" default:"false"`
	Idempotency bool `envconfig:"ECOSWAP_FEATURE_IDEMPOTENCY" default:"true"`
}

// ExchangesConfig selects how the exchange lifecycle validates status changes.
type ExchangesConfig struct {
	TransitionPolicy string `envconfig:"ECOSWAP_EXCHANGE_TRANSITION_POLICY" default:"strict"`
}

func (e ExchangesConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(e.TransitionPolicy)) {
	case TransitionPolicyStrict, TransitionPolicyLegacy, "":
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvExchangeTransitionPolicy, TransitionPolicyStrict, TransitionPolicyLegacy)
	}
}

// LegacyTransitions reports whether the permissive status policy is enabled.
func (e ExchangesConfig) LegacyTransitions() bool {
	return strings.EqualFold(strings.TrimSpace(e.TransitionPolicy), TransitionPolicyLegacy)
}

type CacheConfig struct {
	UserSummarySize int `envconfig:"ECOSWAP_CACHE_USER_SUMMARY_SIZE" default:"2048"`
}

type NotificationsConfig struct {
	RetentionDays int `envconfig:"ECOSWAP_NOTIFICATION_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ECOSWAP_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"ECOSWAP_CRON_LOCK_TTL" default:"25h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
