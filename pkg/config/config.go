package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	DB      DBConfig
	Redis   RedisConfig
	Sync    SyncConfig
	Updates UpdatesConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"FRYSEN_APP_ENV" default:"dev"`
	Port         string   `envconfig:"FRYSEN_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"FRYSEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FRYSEN_LOG_WARN_STACK" default:"false"`
	LogFile      string   `envconfig:"FRYSEN_LOG_FILE"`
	AutoMigrate  bool     `envconfig:"FRYSEN_AUTO_MIGRATE" default:"false"`
	CORSOrigins  []string `envconfig:"FRYSEN_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorageConfig selects the on-device key-value backend.
type StorageConfig struct {
	Driver string `envconfig:"FRYSEN_STORAGE_DRIVER" default:"sqlite"`
	Path   string `envconfig:"FRYSEN_STORAGE_PATH" default:"frysen.db"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverSQLite, StorageDriverFile, StorageDriverMemory:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s", EnvStorageDriver, StorageDriverSQLite, StorageDriverFile, StorageDriverMemory)
}

// DBConfig points at the shared Postgres database that backs family sync.
// Leaving it empty runs the app in local-only mode.
type DBConfig struct {
	DSN string `envconfig:"FRYSEN_DB_DSN"`

	LegacyHost     string `envconfig:"FRYSEN_DB_HOST"`
	LegacyPort     int    `envconfig:"FRYSEN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FRYSEN_DB_USER"`
	LegacyPassword string `envconfig:"FRYSEN_DB_PASSWORD"`
	LegacyName     string `envconfig:"FRYSEN_DB_NAME"`
	LegacySSLMode  string `envconfig:"FRYSEN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRYSEN_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"FRYSEN_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"FRYSEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRYSEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Enabled reports whether a remote database was configured.
func (db DBConfig) Enabled() bool {
	return db.DSN != ""
}

type RedisConfig struct {
	URL          string        `envconfig:"FRYSEN_REDIS_URL"`
	Address      string        `envconfig:"FRYSEN_REDIS_ADDR"`
	Password     string        `envconfig:"FRYSEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRYSEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRYSEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRYSEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRYSEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRYSEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRYSEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type SyncConfig struct {
	Debounce     time.Duration `envconfig:"FRYSEN_SYNC_DEBOUNCE" default:"2s"`
	WriteTimeout time.Duration `envconfig:"FRYSEN_SYNC_WRITE_TIMEOUT" default:"15s"`
}

type UpdatesConfig struct {
	FeedURL        string        `envconfig:"FRYSEN_UPDATES_FEED_URL" default:"https://api.github.com/repos/thejonthinator/frysen/releases/latest"`
	CurrentVersion string        `envconfig:"FRYSEN_UPDATES_CURRENT_VERSION" default:"1.0.2"`
	Throttle       time.Duration `envconfig:"FRYSEN_UPDATES_THROTTLE" default:"1h"`
	PollInterval   time.Duration `envconfig:"FRYSEN_UPDATES_POLL_INTERVAL" default:"120m"`
	Enabled        bool          `envconfig:"FRYSEN_UPDATES_ENABLED" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.LegacyHost == "" && db.LegacyUser == "" && db.LegacyName == "" {
		// local-only mode
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
