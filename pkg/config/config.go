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
	DB           DBConfig
	Redis        RedisConfig
	Supplier     SupplierConfig
	Messenger    MessengerConfig
	Drafts       DraftsConfig
	ViewCache    ViewCacheConfig
	Orders       OrdersConfig
	GCP          GCPConfig
	Alerts       AlertsConfig
	FeatureFlags FeatureFlagsConfig
	Cron         CronConfig
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
	Env          string `envconfig:"CLINICSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"CLINICSTOCK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CLINICSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CLINICSTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CLINICSTOCK_DB_DSN"`
	Driver string `envconfig:"CLINICSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLINICSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"CLINICSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLINICSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"CLINICSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLINICSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLINICSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CLINICSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLINICSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLINICSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLINICSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CLINICSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CLINICSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"CLINICSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CLINICSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CLINICSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLINICSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLINICSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLINICSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLINICSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SupplierConfig drives both directions of the supplier platform integration:
// outbound webhooks to linked supplier tenants and the static key that inbound
// callbacks must present.
type SupplierConfig struct {
	DefaultBaseURL string        `envconfig:"CLINICSTOCK_SUPPLIER_BASE_URL"`
	OutboundAPIKey string        `envconfig:"CLINICSTOCK_SUPPLIER_OUTBOUND_API_KEY"`
	InboundAPIKey  string        `envconfig:"CLINICSTOCK_SUPPLIER_INBOUND_API_KEY" required:"true"`
	Timeout        time.Duration `envconfig:"CLINICSTOCK_SUPPLIER_WEBHOOK_TIMEOUT" default:"5s"`
}

// MessengerConfig points at the SMS/email relay used for manually-entered
// supplier contacts.
type MessengerConfig struct {
	RelayURL    string        `envconfig:"CLINICSTOCK_MESSENGER_RELAY_URL"`
	APIKey      string        `envconfig:"CLINICSTOCK_MESSENGER_API_KEY"`
	FromEmail   string        `envconfig:"CLINICSTOCK_MESSENGER_FROM_EMAIL"`
	Timeout     time.Duration `envconfig:"CLINICSTOCK_MESSENGER_TIMEOUT" default:"5s"`
	SMSEnabled  bool          `envconfig:"CLINICSTOCK_MESSENGER_SMS_ENABLED" default:"true"`
	MailEnabled bool          `envconfig:"CLINICSTOCK_MESSENGER_MAIL_ENABLED" default:"true"`
}

type DraftsConfig struct {
	TTL time.Duration `envconfig:"CLINICSTOCK_DRAFT_TTL" default:"24h"`
}

type ViewCacheConfig struct {
	TTL         time.Duration `envconfig:"CLINICSTOCK_VIEW_CACHE_TTL" default:"30s"`
	StaleWindow time.Duration `envconfig:"CLINICSTOCK_VIEW_CACHE_STALE_WINDOW" default:"5m"`
}

type OrdersConfig struct {
	NumberRetries int `envconfig:"CLINICSTOCK_ORDER_NUMBER_RETRIES" default:"5"`
	TxnRetries    int `envconfig:"CLINICSTOCK_ORDER_TXN_RETRIES" default:"3"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CLINICSTOCK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CLINICSTOCK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CLINICSTOCK_GOOGLE_APPLICATION_CREDENTIALS"`
}

// AlertsConfig names the operator alert topic escalated notification failures
// are published to. Empty topic disables alerting.
type AlertsConfig struct {
	Topic string `envconfig:"CLINICSTOCK_ALERTS_TOPIC"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CLINICSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CLINICSTOCK_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	DraftPurgeInterval time.Duration `envconfig:"CLINICSTOCK_CRON_DRAFT_PURGE_INTERVAL" default:"15m"`
	LockTTL            time.Duration `envconfig:"CLINICSTOCK_CRON_LOCK_TTL" default:"5m"`
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
