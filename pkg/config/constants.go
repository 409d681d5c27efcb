package config

const EnvPrefix = "FRYSEN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverSQLite = "sqlite"
	StorageDriverFile   = "file"
	StorageDriverMemory = "memory"
)

const (
	EnvAppEnv        = "FRYSEN_APP_ENV"
	EnvPort          = "FRYSEN_APP_PORT"
	EnvLogLevel      = "FRYSEN_LOG_LEVEL"
	EnvLogFile       = "FRYSEN_LOG_FILE"
	EnvStorageDriver = "FRYSEN_STORAGE_DRIVER"
	EnvStoragePath   = "FRYSEN_STORAGE_PATH"
	EnvDBDSN         = "FRYSEN_DB_DSN"
	EnvDBHost        = "FRYSEN_DB_HOST"
	EnvDBPort        = "FRYSEN_DB_PORT"
	EnvDBUser        = "FRYSEN_DB_USER"
	EnvDBPassword    = "FRYSEN_DB_PASSWORD"
	EnvDBName        = "FRYSEN_DB_NAME"
	EnvRedisURL      = "FRYSEN_REDIS_URL"
	EnvSyncDebounce  = "FRYSEN_SYNC_DEBOUNCE"
	EnvUpdatesFeed   = "FRYSEN_UPDATES_FEED_URL"
	EnvUpdatesPoll   = "FRYSEN_UPDATES_POLL_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
