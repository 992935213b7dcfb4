package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/dropflowhq/dropflow-backend/pkg/errors"
)

type Config struct {
	App          App
	Service      Service
	DB           DB
	Redis        Redis
	JWT          JWT
	Fulfillment  Fulfillment
	Stripe       Stripe
	Square       Square
	GCP          GCP
	PubSub       PubSub
	Outbox       Outbox
	Cron         Cron
	FeatureFlags FeatureFlags
}

type App struct {
	Env          string `envconfig:"APP_ENV" default:"development"`
	Name         string `envconfig:"APP_NAME" default:"dropflow-backend"`
	LogLevel     string `envconfig:"APP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"APP_LOG_WARN_STACK" default:"false"`
}

type Service struct {
	Host string `envconfig:"SERVICE_HOST" default:"0.0.0.0"`
	Port string `envconfig:"SERVICE_PORT" default:"8080"`
}

type DB struct {
	DSN             string        `envconfig:"DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
}

type Redis struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type JWT struct {
	Secret string        `envconfig:"JWT_SECRET" required:"true"`
	Issuer string        `envconfig:"JWT_ISSUER" default:"dropflow"`
	TTL    time.Duration `envconfig:"JWT_TTL" default:"12h"`
}

type Fulfillment struct {
	BatchSize           int           `envconfig:"FULFILLMENT_BATCH_SIZE" default:"10"`
	DefaultMargin       string        `envconfig:"FULFILLMENT_DEFAULT_MARGIN" default:"0.25"`
	DispatchMaxAttempts uint64        `envconfig:"FULFILLMENT_DISPATCH_MAX_ATTEMPTS" default:"3"`
	StaleClaimAfter     time.Duration `envconfig:"FULFILLMENT_STALE_CLAIM_AFTER" default:"15m"`
}

type Stripe struct {
	APIKey      string `envconfig:"STRIPE_API_KEY"`
	Environment string `envconfig:"STRIPE_ENVIRONMENT" default:"test"`
}

type Square struct {
	AccessToken string `envconfig:"SQUARE_ACCESS_TOKEN"`
	Environment string `envconfig:"SQUARE_ENVIRONMENT" default:"sandbox"`
}

type GCP struct {
	ProjectID string `envconfig:"GCP_PROJECT_ID"`
}

type PubSub struct {
	DomainTopic        string `envconfig:"PUBSUB_DOMAIN_TOPIC" default:"dropflow-domain-events"`
	DomainSubscription string `envconfig:"PUBSUB_DOMAIN_SUBSCRIPTION" default:"dropflow-domain-events-sub"`
}

type Outbox struct {
	PollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	MaxAttempts  int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention    time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`
}

type Cron struct {
	Interval  time.Duration `envconfig:"CRON_INTERVAL" default:"1m"`
	LockTTL   time.Duration `envconfig:"CRON_LOCK_TTL" default:"5m"`
	JobsLimit int           `envconfig:"CRON_JOBS_LIMIT" default:"0"`
}

type FeatureFlags struct {
	AutoMigrate bool `envconfig:"FEATURE_AUTO_MIGRATE" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("DROPFLOW", &cfg); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "process environment config")
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
