package config

// EnvPrefix namespaces envconfig lookups; explicit tags fall back to their literal names.
const EnvPrefix = "PRICESHEETS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv           = "PRICESHEETS_APP_ENV"
	EnvPort             = "PRICESHEETS_APP_PORT"
	EnvDBDSN            = "PRICESHEETS_DB_DSN"
	EnvDBHost           = "PRICESHEETS_DB_HOST"
	EnvDBUser           = "PRICESHEETS_DB_USER"
	EnvDBName           = "PRICESHEETS_DB_NAME"
	EnvRedisURL         = "PRICESHEETS_REDIS_URL"
	EnvJWTSecret        = "PRICESHEETS_JWT_SECRET"
	EnvJWTIssuer        = "PRICESHEETS_JWT_ISSUER"
	EnvTokenSecret      = "PRICESHEETS_TOKEN_SECRET"
	EnvSheetBaseURL     = "PRICESHEETS_SHEET_BASE_URL"
	EnvSendDelay        = "PRICESHEETS_SEND_DELAY"
	EnvSendConcurrency  = "PRICESHEETS_SEND_CONCURRENCY"
	EnvFollowUpAfter    = "PRICESHEETS_FOLLOWUP_AFTER"
	EnvTrustedProxyHops = "PRICESHEETS_TRUSTED_PROXY_HOPS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
