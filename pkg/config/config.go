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
	Shopify      ShopifyConfig
	Sync         SyncConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"SW_APP_ENV" required:"true"`
	Port         string `envconfig:"SW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SW_DB_DSN"`
	Driver string `envconfig:"SW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SW_DB_HOST"`
	LegacyPort     int    `envconfig:"SW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SW_DB_USER"`
	LegacyPassword string `envconfig:"SW_DB_PASSWORD"`
	LegacyName     string `envconfig:"SW_DB_NAME"`
	LegacySSLMode  string `envconfig:"SW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SW_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"SW_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"SW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SW_REDIS_ADDR"`
	Password     string        `envconfig:"SW_REDIS_PASSWORD"`
	DB           int           `envconfig:"SW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ShopifyConfig describes the external order source.
type ShopifyConfig struct {
	ShopDomain  string        `envconfig:"SW_SHOPIFY_SHOP_DOMAIN" required:"true"`
	AccessToken string        `envconfig:"SW_SHOPIFY_ACCESS_TOKEN" required:"true"`
	APIVersion  string        `envconfig:"SW_SHOPIFY_API_VERSION" default:"2024-01"`
	PageSize    int           `envconfig:"SW_SHOPIFY_PAGE_SIZE" default:"250"`
	CallDelay   time.Duration `envconfig:"SW_SHOPIFY_CALL_DELAY" default:"550ms"`
	Timeout     time.Duration `envconfig:"SW_SHOPIFY_TIMEOUT" default:"30s"`
}

// SyncConfig tunes the reconciliation runs.
type SyncConfig struct {
	OrderNumberPrefix string        `envconfig:"SW_SYNC_ORDER_PREFIX" default:"SW"`
	DefaultPeriod     string        `envconfig:"SW_SYNC_DEFAULT_PERIOD" default:"3months"`
	WorkerInterval    time.Duration `envconfig:"SW_SYNC_WORKER_INTERVAL" default:"1h"`
	LockTTL           time.Duration `envconfig:"SW_SYNC_LOCK_TTL" default:"2h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"SW_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"SW_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	SyncEventsTopic string `envconfig:"SW_PUBSUB_SYNC_EVENTS_TOPIC" default:"sw-sync-events"`
	BackupTopic     string `envconfig:"SW_PUBSUB_BACKUP_TOPIC" default:"sw-backup-requests"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"SW_AUTO_MIGRATE" default:"false"`
	PublishEvents bool `envconfig:"SW_PUBLISH_EVENTS" default:"false"`
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
