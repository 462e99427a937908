package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "MPBOOKS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error text).
const (
	EnvAppEnv     = "MPBOOKS_APP_ENV"
	EnvPort       = "MPBOOKS_APP_PORT"
	EnvDBDSN      = "MPBOOKS_DB_DSN"
	EnvDBHost     = "MPBOOKS_DB_HOST"
	EnvDBUser     = "MPBOOKS_DB_USER"
	EnvDBName     = "MPBOOKS_DB_NAME"
	EnvRedisURL   = "MPBOOKS_REDIS_URL"
	EnvJWTSecret  = "MPBOOKS_JWT_SECRET"
	EnvJWTIssuer  = "MPBOOKS_JWT_ISSUER"
	EnvJWTExpMins = "MPBOOKS_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
