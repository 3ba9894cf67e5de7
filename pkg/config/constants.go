package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "PROMPTVAULT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "PROMPTVAULT_APP_ENV"
	EnvPort       = "PROMPTVAULT_APP_PORT"
	EnvDBDSN      = "PROMPTVAULT_DB_DSN"
	EnvDBHost     = "PROMPTVAULT_DB_HOST"
	EnvDBUser     = "PROMPTVAULT_DB_USER"
	EnvDBName     = "PROMPTVAULT_DB_NAME"
	EnvRedisURL   = "PROMPTVAULT_REDIS_URL"
	EnvJWTSecret  = "PROMPTVAULT_JWT_SECRET"
	EnvJWTIssuer  = "PROMPTVAULT_JWT_ISSUER"
	EnvStripeKey  = "PROMPTVAULT_STRIPE_API_KEY"
	EnvStripeHook = "PROMPTVAULT_STRIPE_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
