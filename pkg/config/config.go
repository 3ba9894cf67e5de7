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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	Checkout      CheckoutConfig
	Webhook       WebhookConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PROMPTVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"PROMPTVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PROMPTVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROMPTVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PROMPTVAULT_DB_DSN"`
	Driver string `envconfig:"PROMPTVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PROMPTVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"PROMPTVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PROMPTVAULT_DB_USER"`
	LegacyPassword string `envconfig:"PROMPTVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"PROMPTVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"PROMPTVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROMPTVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROMPTVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROMPTVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROMPTVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PROMPTVAULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PROMPTVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"PROMPTVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROMPTVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROMPTVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROMPTVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROMPTVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROMPTVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROMPTVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PROMPTVAULT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PROMPTVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PROMPTVAULT_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"PROMPTVAULT_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session lifetime.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PROMPTVAULT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PROMPTVAULT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PROMPTVAULT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PROMPTVAULT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PROMPTVAULT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PROMPTVAULT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PROMPTVAULT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PROMPTVAULT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PROMPTVAULT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PROMPTVAULT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PROMPTVAULT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PROMPTVAULT_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"PROMPTVAULT_STRIPE_API_KEY"`
	Secret string `envconfig:"PROMPTVAULT_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"PROMPTVAULT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Configured reports whether gateway credentials are present. Paid checkouts
// require this; free-tier checkouts do not.
func (s StripeConfig) Configured() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.Secret) != ""
}

type CheckoutConfig struct {
	SuccessURL string `envconfig:"PROMPTVAULT_CHECKOUT_SUCCESS_URL" default:"https://promptvault.app/checkout/success"`
	CancelURL  string `envconfig:"PROMPTVAULT_CHECKOUT_CANCEL_URL" default:"https://promptvault.app/checkout/cancel"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PROMPTVAULT_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PROMPTVAULT_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"PROMPTVAULT_CRON_LOCK_TTL" default:"55m"`
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
