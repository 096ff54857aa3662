package config

const (
	EnvPrefix = "ECOSWAP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	TransitionPolicyStrict = "strict"
	TransitionPolicyLegacy = "legacy"
)

const (
	EnvAppEnv     = "ECOSWAP_APP_ENV"
	EnvPort       = "ECOSWAP_APP_PORT"
	EnvLogLevel   = "ECOSWAP_LOG_LEVEL"
	EnvDBDSN      = "ECOSWAP_DB_DSN"
	EnvDBHost     = "ECOSWAP_DB_HOST"
	EnvDBPort     = "ECOSWAP_DB_PORT"
	EnvDBUser     = "ECOSWAP_DB_USER"
	EnvDBPassword = "ECOSWAP_DB_PASSWORD"
	EnvDBName     = "ECOSWAP_DB_NAME"
	EnvRedisURL   = "ECOSWAP_REDIS_URL"
	EnvJWTSecret  = "ECOSWAP_JWT_SECRET"
	EnvJWTIssuer  = "ECOSWAP_JWT_ISSUER"
	EnvJWTExpMins = "ECOSWAP_JWT_EXPIRATION_MINUTES"

	EnvExchangeTransitionPolicy = "ECOSWAP_EXCHANGE_TRANSITION_POLICY"
	EnvNotificationRetention    = "ECOSWAP_NOTIFICATION_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
