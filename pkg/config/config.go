package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"VERITAS_APP_ENV" required:"true"`
	Port         string `envconfig:"VERITAS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VERITAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VERITAS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VERITAS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VERITAS_DB_DSN"`
	Driver string `envconfig:"VERITAS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VERITAS_DB_HOST"`
	LegacyPort     int    `envconfig:"VERITAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VERITAS_DB_USER"`
	LegacyPassword string `envconfig:"VERITAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"VERITAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"VERITAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VERITAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VERITAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VERITAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VERITAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VERITAS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VERITAS_REDIS_ADDR"`
	Password     string        `envconfig:"VERITAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"VERITAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VERITAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VERITAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VERITAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VERITAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VERITAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VERITAS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VERITAS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VERITAS_JWT_EXPIRATION_MINUTES" required:"true"`
}

func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VERITAS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VERITAS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"VERITAS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VERITAS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VERITAS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VERITAS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DisputeTopic                string `envconfig:"VERITAS_PUBSUB_DISPUTE_TOPIC" required:"true"`
	DisputeSubscription         string `envconfig:"VERITAS_PUBSUB_DISPUTE_SUBSCRIPTION" required:"true"`
	ModeratorTopic              string `envconfig:"VERITAS_PUBSUB_MODERATOR_TOPIC" required:"true"`
	ModeratorSubscription       string `envconfig:"VERITAS_PUBSUB_MODERATOR_SUBSCRIPTION" required:"true"`
	ModeratorNotifySubscription string `envconfig:"VERITAS_PUBSUB_MODERATOR_NOTIFY_SUBSCRIPTION" required:"true"`
	NotificationTopic           string `envconfig:"VERITAS_PUBSUB_NOTIFICATION_TOPIC" default:"veritas-notification-events"`
	NotificationSubscription    string `envconfig:"VERITAS_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VERITAS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VERITAS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VERITAS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	LockTTL                 time.Duration `envconfig:"VERITAS_CRON_LOCK_TTL" default:"5m"`
	RebalanceInterval       time.Duration `envconfig:"VERITAS_CRON_REBALANCE_INTERVAL" default:"15m"`
	RebalanceThreshold      int           `envconfig:"VERITAS_CRON_REBALANCE_THRESHOLD" default:"3"`
	EarningsRolloverHourUTC int           `envconfig:"VERITAS_CRON_EARNINGS_ROLLOVER_HOUR_UTC" default:"0"`
	OutboxRetention         time.Duration `envconfig:"VERITAS_CRON_OUTBOX_RETENTION" default:"168h"`
}

type RateLimitConfig struct {
	SubmitWindow time.Duration `envconfig:"VERITAS_RATE_LIMIT_SUBMIT_WINDOW" default:"1m"`
	SubmitLimit  int           `envconfig:"VERITAS_RATE_LIMIT_SUBMIT_LIMIT" default:"10"`
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
