package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for fields without a tag.
const EnvPrefix = "PASARSEGAR"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names shared between Load and tests.
const (
	EnvAppEnv   = "PASARSEGAR_APP_ENV"
	EnvPort     = "PASARSEGAR_APP_PORT"
	EnvDBDSN    = "PASARSEGAR_DB_DSN"
	EnvDBHost   = "PASARSEGAR_DB_HOST"
	EnvDBUser   = "PASARSEGAR_DB_USER"
	EnvDBName   = "PASARSEGAR_DB_NAME"
	EnvRedisURL = "PASARSEGAR_REDIS_URL"

	EnvMarketplaceBaseURL = "PASARSEGAR_MARKETPLACE_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
