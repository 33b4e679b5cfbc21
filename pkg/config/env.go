package config

// EnvPrefix is handed to envconfig; every field carries its full name.
const EnvPrefix = "MAPAS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:mapas.db?cache=shared&_foreign_keys=on"

	NotificationsPlugin = "notifications"
)

const (
	EnvAppEnv                  = "MAPAS_APP_ENV"
	EnvPort                    = "MAPAS_APP_PORT"
	EnvDBDSN                   = "MAPAS_DB_DSN"
	EnvDBDriver                = "MAPAS_DB_DRIVER"
	EnvDBHost                  = "MAPAS_DB_HOST"
	EnvDBUser                  = "MAPAS_DB_USER"
	EnvDBName                  = "MAPAS_DB_NAME"
	EnvRedisURL                = "MAPAS_REDIS_URL"
	EnvJWTSecret               = "MAPAS_JWT_SECRET"
	EnvJWTIssuer               = "MAPAS_JWT_ISSUER"
	EnvJWTExpMins              = "MAPAS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "MAPAS_REFRESH_TOKEN_TTL_MINUTES"
	EnvAuthProviders           = "MAPAS_AUTH_PROVIDERS"
	EnvPluginsEnabled          = "MAPAS_PLUGINS_ENABLED"
	EnvNotificationsUserAccess = "MAPAS_NOTIFICATIONS_USER_ACCESS"
	EnvUseSQLite               = "MAPAS_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
