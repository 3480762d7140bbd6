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
	Session       SessionConfig
	GoogleOAuth   GoogleOAuthConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Uploads       UploadsConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"CAMPUSFINDZ_APP_ENV" required:"true"`
	Port         string `envconfig:"CAMPUSFINDZ_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"CAMPUSFINDZ_APP_BASE_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"CAMPUSFINDZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CAMPUSFINDZ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CAMPUSFINDZ_DB_DSN"`
	Driver string `envconfig:"CAMPUSFINDZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CAMPUSFINDZ_DB_HOST"`
	LegacyPort     int    `envconfig:"CAMPUSFINDZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CAMPUSFINDZ_DB_USER"`
	LegacyPassword string `envconfig:"CAMPUSFINDZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"CAMPUSFINDZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"CAMPUSFINDZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CAMPUSFINDZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CAMPUSFINDZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CAMPUSFINDZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CAMPUSFINDZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CAMPUSFINDZ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CAMPUSFINDZ_REDIS_ADDR"`
	Password     string        `envconfig:"CAMPUSFINDZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"CAMPUSFINDZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CAMPUSFINDZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CAMPUSFINDZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CAMPUSFINDZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CAMPUSFINDZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CAMPUSFINDZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig controls the browser session cookie and its server-side record.
type SessionConfig struct {
	CookieName string        `envconfig:"CAMPUSFINDZ_SESSION_COOKIE_NAME" default:"cf_session"`
	TTL        time.Duration `envconfig:"CAMPUSFINDZ_SESSION_TTL" default:"168h"`
}

// GoogleOAuthConfig carries the credentials for the institutional Google login.
type GoogleOAuthConfig struct {
	ClientID     string `envconfig:"CAMPUSFINDZ_GOOGLE_CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"CAMPUSFINDZ_GOOGLE_CLIENT_SECRET" required:"true"`
	RedirectURI  string `envconfig:"CAMPUSFINDZ_GOOGLE_REDIRECT_URI" required:"true"`
	// AllowedEmailDomain gates callback completion; includes the leading @.
	AllowedEmailDomain string `envconfig:"CAMPUSFINDZ_ALLOWED_EMAIL_DOMAIN" default:"@wit.edu"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CAMPUSFINDZ_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"CAMPUSFINDZ_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"CAMPUSFINDZ_PUBSUB_EVENTS_TOPIC" default:"cf-domain-events"`
	EventsSubscription string `envconfig:"CAMPUSFINDZ_PUBSUB_EVENTS_SUBSCRIPTION" default:"cf-notifications-worker"`
}

type UploadsConfig struct {
	Dir         string `envconfig:"CAMPUSFINDZ_UPLOADS_DIR" default:"uploads"`
	MaxUploadMB int    `envconfig:"CAMPUSFINDZ_MAX_UPLOAD_MB" default:"10"`
}

type AuthRateLimitConfig struct {
	LoginWindow  time.Duration `envconfig:"CAMPUSFINDZ_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit int           `envconfig:"CAMPUSFINDZ_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CAMPUSFINDZ_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CAMPUSFINDZ_AUTO_MIGRATE" default:"false"`
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
