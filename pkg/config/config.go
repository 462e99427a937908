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
	SMTP          SMTPConfig
	Uploads       UploadsConfig
	Verification  VerificationConfig
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
	Env            string   `envconfig:"MPBOOKS_APP_ENV" required:"true"`
	Port           string   `envconfig:"MPBOOKS_APP_PORT" required:"true"`
	LogLevel       string   `envconfig:"MPBOOKS_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"MPBOOKS_LOG_WARN_STACK" default:"false"`
	AllowedOrigins []string `envconfig:"MPBOOKS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MPBOOKS_DB_DSN"`

	LegacyHost     string `envconfig:"MPBOOKS_DB_HOST"`
	LegacyPort     int    `envconfig:"MPBOOKS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MPBOOKS_DB_USER"`
	LegacyPassword string `envconfig:"MPBOOKS_DB_PASSWORD"`
	LegacyName     string `envconfig:"MPBOOKS_DB_NAME"`
	LegacySSLMode  string `envconfig:"MPBOOKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MPBOOKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MPBOOKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MPBOOKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MPBOOKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MPBOOKS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MPBOOKS_REDIS_ADDR"`
	Password     string        `envconfig:"MPBOOKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MPBOOKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MPBOOKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MPBOOKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MPBOOKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MPBOOKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MPBOOKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MPBOOKS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MPBOOKS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MPBOOKS_JWT_EXPIRATION_MINUTES" required:"true"`
	CookieName        string `envconfig:"MPBOOKS_JWT_COOKIE_NAME" default:"mpb_session"`
	CookieSecure      bool   `envconfig:"MPBOOKS_JWT_COOKIE_SECURE" default:"true"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MPBOOKS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MPBOOKS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MPBOOKS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MPBOOKS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MPBOOKS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MPBOOKS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MPBOOKS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MPBOOKS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MPBOOKS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MPBOOKS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MPBOOKS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type SMTPConfig struct {
	Host        string `envconfig:"MPBOOKS_SMTP_HOST"`
	Port        int    `envconfig:"MPBOOKS_SMTP_PORT" default:"587"`
	Username    string `envconfig:"MPBOOKS_SMTP_USERNAME"`
	Password    string `envconfig:"MPBOOKS_SMTP_PASSWORD"`
	FromAddress string `envconfig:"MPBOOKS_SMTP_FROM_ADDRESS"`
	FromName    string `envconfig:"MPBOOKS_SMTP_FROM_NAME" default:"MP Books & Stationery"`
}

// Enabled reports whether outbound mail is configured at all.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.FromAddress != ""
}

type UploadsConfig struct {
	Dir         string `envconfig:"MPBOOKS_UPLOADS_DIR" default:"uploads"`
	MaxUploadMB int    `envconfig:"MPBOOKS_MAX_UPLOAD_MB" default:"10"`
}

type VerificationConfig struct {
	EmailCodeTTL time.Duration `envconfig:"MPBOOKS_VERIFICATION_EMAIL_CODE_TTL" default:"10m"`
	ResetCodeTTL time.Duration `envconfig:"MPBOOKS_VERIFICATION_RESET_CODE_TTL" default:"30m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MPBOOKS_AUTO_MIGRATE" default:"false"`
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
