package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App             AppConfig
	Service         ServiceConfig
	DB              DBConfig
	Redis           RedisConfig
	JWT             JWTConfig
	Token           TokenConfig
	Send            SendConfig
	Sendgrid        SendgridConfig
	CORS            CORSConfig
	Proxy           ProxyConfig
	PublicRateLimit PublicRateLimitConfig
	FollowUp        FollowUpConfig
	FeatureFlags    FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Send.validate(); err != nil {
		return nil, err
	}
	if cfg.Proxy.TrustedHops < 0 {
		return nil, fmt.Errorf("%s must not be negative", EnvTrustedProxyHops)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRICESHEETS_APP_ENV" required:"true"`
	Port         string `envconfig:"PRICESHEETS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRICESHEETS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRICESHEETS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PRICESHEETS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRICESHEETS_DB_DSN"`
	Driver string `envconfig:"PRICESHEETS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRICESHEETS_DB_HOST"`
	LegacyPort     int    `envconfig:"PRICESHEETS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRICESHEETS_DB_USER"`
	LegacyPassword string `envconfig:"PRICESHEETS_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRICESHEETS_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRICESHEETS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRICESHEETS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRICESHEETS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRICESHEETS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRICESHEETS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRICESHEETS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PRICESHEETS_REDIS_ADDR"`
	Password     string        `envconfig:"PRICESHEETS_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRICESHEETS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRICESHEETS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRICESHEETS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRICESHEETS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRICESHEETS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRICESHEETS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig carries the owner access-token verification settings. Tokens are
// minted by the account service.
type JWTConfig struct {
	Secret            string `envconfig:"PRICESHEETS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PRICESHEETS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PRICESHEETS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TokenConfig holds the server secret used to derive recipient access tokens.
type TokenConfig struct {
	Secret string `envconfig:"PRICESHEETS_TOKEN_SECRET" required:"true"`
}

type SendConfig struct {
	BaseURL     string        `envconfig:"PRICESHEETS_SHEET_BASE_URL" required:"true"`
	Delay       time.Duration `envconfig:"PRICESHEETS_SEND_DELAY" default:"250ms"`
	Concurrency int           `envconfig:"PRICESHEETS_SEND_CONCURRENCY" default:"1"`
}

func (s SendConfig) validate() error {
	if s.Concurrency < 0 {
		return fmt.Errorf("%s must not be negative", EnvSendConcurrency)
	}
	if s.Delay < 0 {
		return fmt.Errorf("%s must not be negative", EnvSendDelay)
	}
	parsed, err := url.Parse(s.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvSheetBaseURL)
	}
	return nil
}

// SheetBaseURL returns the public sheet url prefix without a trailing slash.
func (s SendConfig) SheetBaseURL() string {
	return strings.TrimRight(s.BaseURL, "/")
}

type SendgridConfig struct {
	APIKey      string `envconfig:"PRICESHEETS_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"PRICESHEETS_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"PRICESHEETS_SENDGRID_FROM_NAME" default:"Price Sheets"`
	BaseURL     string `envconfig:"PRICESHEETS_SENDGRID_BASE_URL" default:"https://api.sendgrid.com"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PRICESHEETS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// ProxyConfig counts the reverse proxies in front of the API that append to
// X-Forwarded-For. Zero means the header is ignored.
type ProxyConfig struct {
	TrustedHops int `envconfig:"PRICESHEETS_TRUSTED_PROXY_HOPS" default:"0"`
}

type PublicRateLimitConfig struct {
	Window  time.Duration `envconfig:"PRICESHEETS_PUBLIC_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"PRICESHEETS_PUBLIC_RATE_LIMIT_IP_LIMIT" default:"120"`
}

type FollowUpConfig struct {
	After    time.Duration `envconfig:"PRICESHEETS_FOLLOWUP_AFTER" default:"72h"`
	Lookback time.Duration `envconfig:"PRICESHEETS_FOLLOWUP_LOOKBACK" default:"720h"`
	Interval time.Duration `envconfig:"PRICESHEETS_FOLLOWUP_INTERVAL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRICESHEETS_AUTO_MIGRATE" default:"false"`
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
