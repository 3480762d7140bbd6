package config

// EnvPrefix is passed to envconfig; individual fields carry fully qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "CAMPUSFINDZ_APP_ENV"
	EnvPort     = "CAMPUSFINDZ_APP_PORT"
	EnvDBDSN    = "CAMPUSFINDZ_DB_DSN"
	EnvDBHost   = "CAMPUSFINDZ_DB_HOST"
	EnvDBUser   = "CAMPUSFINDZ_DB_USER"
	EnvDBName   = "CAMPUSFINDZ_DB_NAME"
	EnvRedisURL = "CAMPUSFINDZ_REDIS_URL"

	EnvGoogleClientID     = "CAMPUSFINDZ_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "CAMPUSFINDZ_GOOGLE_CLIENT_SECRET"
	EnvGoogleRedirectURI  = "CAMPUSFINDZ_GOOGLE_REDIRECT_URI"
	EnvAllowedEmailDomain = "CAMPUSFINDZ_ALLOWED_EMAIL_DOMAIN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
