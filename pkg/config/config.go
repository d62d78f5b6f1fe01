package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Escrow       EscrowConfig
	Scheduler    SchedulerConfig
	Tracing      TracingConfig
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
	if err := cfg.Escrow.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PASMA_APP_ENV" required:"true"`
	Port         string `envconfig:"PASMA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PASMA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PASMA_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"PASMA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PASMA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PASMA_DB_DSN"`
	Driver string `envconfig:"PASMA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PASMA_DB_HOST"`
	LegacyPort     int    `envconfig:"PASMA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PASMA_DB_USER"`
	LegacyPassword string `envconfig:"PASMA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PASMA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PASMA_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"PASMA_SQLITE_PATH" default:"file:pasma.db?cache=shared"`

	MaxOpenConns    int           `envconfig:"PASMA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PASMA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PASMA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PASMA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PASMA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PASMA_REDIS_ADDR"`
	Password     string        `envconfig:"PASMA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PASMA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PASMA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PASMA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PASMA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PASMA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PASMA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies access tokens minted by the identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"PASMA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PASMA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PASMA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PASMA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PASMA_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"PASMA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"PASMA_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"PASMA_PUBSUB_ORDERS_TOPIC" required:"true"`
	NotificationTopic        string `envconfig:"PASMA_PUBSUB_NOTIFICATION_TOPIC" default:"pasma-notification-events"`
	NotificationSubscription string `envconfig:"PASMA_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PASMA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PASMA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PASMA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PASMA_OUTBOX_RETENTION_DAYS" default:"30"`
}

// EscrowConfig holds the money and timeline policy of the order lifecycle.
type EscrowConfig struct {
	AdminUserID string `envconfig:"PASMA_ESCROW_ADMIN_USER_ID" required:"true"`
	ServiceFee  int64  `envconfig:"PASMA_ESCROW_SERVICE_FEE" default:"2000"`
	TaxRate     string `envconfig:"PASMA_ESCROW_TAX_RATE" default:"0.01"`
	Currency    string `envconfig:"PASMA_ESCROW_CURRENCY" default:"IDR"`

	AcceptWindow       time.Duration `envconfig:"PASMA_ESCROW_ACCEPT_WINDOW" default:"24h"`
	ShipWindow         time.Duration `envconfig:"PASMA_ESCROW_SHIP_WINDOW" default:"48h"`
	GraceDelay         time.Duration `envconfig:"PASMA_ESCROW_GRACE_DELAY" default:"48h"`
	AutoCompleteDelay  time.Duration `envconfig:"PASMA_ESCROW_AUTO_COMPLETE_DELAY" default:"60h"`
	RejectResumeWindow time.Duration `envconfig:"PASMA_ESCROW_REJECT_RESUME_WINDOW" default:"24h"`

	UnacceptedBatchSize int `envconfig:"PASMA_ESCROW_UNACCEPTED_BATCH" default:"300"`
	UnshippedBatchSize  int `envconfig:"PASMA_ESCROW_UNSHIPPED_BATCH" default:"300"`
	ReminderBatchSize   int `envconfig:"PASMA_ESCROW_REMINDER_BATCH" default:"100"`
	AutoCompleteBatch   int `envconfig:"PASMA_ESCROW_AUTO_COMPLETE_BATCH" default:"100"`

	MaxTxAttempts int `envconfig:"PASMA_ESCROW_MAX_TX_ATTEMPTS" default:"5"`

	NotificationRetentionDays int `envconfig:"PASMA_NOTIFICATION_RETENTION_DAYS" default:"90"`
}

// AdminID parses the platform account that receives fees.
func (e EscrowConfig) AdminID() (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(e.AdminUserID))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", EnvEscrowAdminUserID, err)
	}
	return id, nil
}

// Rate parses the tax rate as a decimal fraction.
func (e EscrowConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(e.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", EnvEscrowTaxRate, err)
	}
	return rate, nil
}

func (e EscrowConfig) validate() error {
	if _, err := e.AdminID(); err != nil {
		return err
	}
	rate, err := e.Rate()
	if err != nil {
		return err
	}
	if rate.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvEscrowTaxRate)
	}
	if e.ServiceFee < 0 {
		return fmt.Errorf("%s must not be negative", EnvEscrowServiceFee)
	}
	return nil
}

// SchedulerConfig sets the cadence of each periodic sweep.
type SchedulerConfig struct {
	UnacceptedInterval   time.Duration `envconfig:"PASMA_CRON_UNACCEPTED_INTERVAL" default:"15m"`
	UnshippedInterval    time.Duration `envconfig:"PASMA_CRON_UNSHIPPED_INTERVAL" default:"15m"`
	GracePeriodInterval  time.Duration `envconfig:"PASMA_CRON_GRACE_INTERVAL" default:"1h"`
	RetentionInterval    time.Duration `envconfig:"PASMA_CRON_RETENTION_INTERVAL" default:"24h"`
	LockTTL              time.Duration `envconfig:"PASMA_CRON_LOCK_TTL" default:"10m"`
	MetricsListenAddress string        `envconfig:"PASMA_CRON_METRICS_ADDR" default:":9091"`
}

// RateLimitConfig caps order placement and dispute filing per client.
type RateLimitConfig struct {
	Window           time.Duration `envconfig:"PASMA_RATE_LIMIT_WINDOW" default:"1m"`
	PlaceIPLimit     int           `envconfig:"PASMA_RATE_LIMIT_PLACE_IP" default:"30"`
	PlaceUserLimit   int           `envconfig:"PASMA_RATE_LIMIT_PLACE_USER" default:"10"`
	DisputeIPLimit   int           `envconfig:"PASMA_RATE_LIMIT_DISPUTE_IP" default:"20"`
	DisputeUserLimit int           `envconfig:"PASMA_RATE_LIMIT_DISPUTE_USER" default:"5"`
}

type TracingConfig struct {
	Enabled      bool    `envconfig:"PASMA_TRACING_ENABLED" default:"false"`
	OTLPEndpoint string  `envconfig:"PASMA_OTLP_ENDPOINT" default:"localhost:4317"`
	SampleRate   float64 `envconfig:"PASMA_TRACING_SAMPLE_RATE" default:"0.1"`
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
