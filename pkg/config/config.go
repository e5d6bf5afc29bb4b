package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the backend reads.
	EnvPrefix = "MOTOYARD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MOTOYARD_DB_DSN"
	EnvDBHost = "MOTOYARD_DB_HOST"
	EnvDBUser = "MOTOYARD_DB_USER"
	EnvDBName = "MOTOYARD_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
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
	Env          string `envconfig:"MOTOYARD_APP_ENV" required:"true"`
	Port         string `envconfig:"MOTOYARD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MOTOYARD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOTOYARD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MOTOYARD_DB_DSN"`
	Driver string `envconfig:"MOTOYARD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOTOYARD_DB_HOST"`
	LegacyPort     int    `envconfig:"MOTOYARD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOTOYARD_DB_USER"`
	LegacyPassword string `envconfig:"MOTOYARD_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOTOYARD_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOTOYARD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOTOYARD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOTOYARD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOTOYARD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOTOYARD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MOTOYARD_REDIS_URL" required:"true"`
	Password     string        `envconfig:"MOTOYARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOTOYARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOTOYARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOTOYARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOTOYARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOTOYARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOTOYARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MOTOYARD_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MOTOYARD_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MOTOYARD_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MOTOYARD_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MOTOYARD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MOTOYARD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MOTOYARD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MOTOYARD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MOTOYARD_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow       time.Duration `envconfig:"MOTOYARD_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUserLimit    int           `envconfig:"MOTOYARD_AUTH_RATE_LIMIT_LOGIN_USER_LIMIT" default:"5"`
	LoginIPLimit      int           `envconfig:"MOTOYARD_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow    time.Duration `envconfig:"MOTOYARD_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUserLimit int           `envconfig:"MOTOYARD_AUTH_RATE_LIMIT_REGISTER_USER_LIMIT" default:"3"`
	RegisterIPLimit   int           `envconfig:"MOTOYARD_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"MOTOYARD_CORS_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MOTOYARD_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MOTOYARD_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MOTOYARD_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MOTOYARD_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"MOTOYARD_GCS_BUCKET_NAME" required:"true"`
}

type MediaConfig struct {
	MaxUploadMB     int `envconfig:"MOTOYARD_MAX_UPLOAD_MB" default:"20"`
	ThumbnailWidth  int `envconfig:"MOTOYARD_THUMBNAIL_WIDTH" default:"640"`
	ThumbnailHeight int `envconfig:"MOTOYARD_THUMBNAIL_HEIGHT" default:"480"`
}

type PubSubConfig struct {
	StorageEventsSubscription string `envconfig:"MOTOYARD_PUBSUB_STORAGE_EVENTS_SUBSCRIPTION"`
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
