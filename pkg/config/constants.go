package config

const (
	EnvPrefix = "DRIVESUB"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "DRIVESUB_APP_ENV"
	EnvPort     = "DRIVESUB_APP_PORT"
	EnvDBDSN    = "DRIVESUB_DB_DSN"
	EnvDBHost   = "DRIVESUB_DB_HOST"
	EnvDBUser   = "DRIVESUB_DB_USER"
	EnvDBName   = "DRIVESUB_DB_NAME"
	EnvRedisURL = "DRIVESUB_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
