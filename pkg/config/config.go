package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Engine       EngineConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Engine.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DRIVESUB_APP_ENV" required:"true"`
	Port         string `envconfig:"DRIVESUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DRIVESUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DRIVESUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DRIVESUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DRIVESUB_DB_DSN"`
	Driver string `envconfig:"DRIVESUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DRIVESUB_DB_HOST"`
	LegacyPort     int    `envconfig:"DRIVESUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DRIVESUB_DB_USER"`
	LegacyPassword string `envconfig:"DRIVESUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"DRIVESUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"DRIVESUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DRIVESUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DRIVESUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DRIVESUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DRIVESUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DRIVESUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DRIVESUB_REDIS_ADDR"`
	Password     string        `envconfig:"DRIVESUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"DRIVESUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DRIVESUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DRIVESUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DRIVESUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DRIVESUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DRIVESUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DRIVESUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DRIVESUB_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"DRIVESUB_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"DRIVESUB_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"DRIVESUB_PUBSUB_NOTIFICATION_TOPIC" default:"ds-notification-intents"`
	NotificationSubscription string `envconfig:"DRIVESUB_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"ds-notification-intents-inapp"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DRIVESUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DRIVESUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DRIVESUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// EngineConfig carries the dispatch policy knobs that vary per deployment.
// Point values and window durations that are part of the scoring contract
// stay as package constants next to the code that applies them.
type EngineConfig struct {
	ScheduleLookaheadWeeks int           `envconfig:"DRIVESUB_SCHEDULE_LOOKAHEAD_WEEKS" default:"2"`
	NoShowBonusPercent     string        `envconfig:"DRIVESUB_NO_SHOW_BONUS_PERCENT" default:"25"`
	SweepInterval          time.Duration `envconfig:"DRIVESUB_SWEEP_INTERVAL" default:"5m"`
}

// NoShowBonus returns the emergency pay bonus as a decimal percentage.
func (e EngineConfig) NoShowBonus() decimal.Decimal {
	d, err := decimal.NewFromString(e.NoShowBonusPercent)
	if err != nil {
		return decimal.NewFromInt(25)
	}
	return d
}

func (e EngineConfig) validate() error {
	if e.ScheduleLookaheadWeeks < 1 {
		return fmt.Errorf("schedule lookahead must be at least one week")
	}
	if _, err := decimal.NewFromString(e.NoShowBonusPercent); err != nil {
		return fmt.Errorf("invalid no-show bonus percent %q: %w", e.NoShowBonusPercent, err)
	}
	return nil
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
