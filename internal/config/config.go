package config

import (
	"errors"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	AppPort                 int     `mapstructure:"APP_PORT"`
	LogLevel                string  `mapstructure:"LOG_LEVEL"`
	LogFormat               string  `mapstructure:"LOG_FORMAT"`
	StoreDriver             string  `mapstructure:"STORE_DRIVER"`
	MongoURI                string  `mapstructure:"MONGO_URI"`
	MongoDBName             string  `mapstructure:"MONGO_DB_NAME"`
	APIBaseURL              string  `mapstructure:"API_BASE_URL"`
	APIToken                string  `mapstructure:"API_TOKEN"`
	APITimeoutSec           int     `mapstructure:"API_TIMEOUT_SEC"`
	ProbeIntervalSec        int     `mapstructure:"PROBE_INTERVAL_SEC"`
	SnapshotPath            string  `mapstructure:"SNAPSHOT_PATH"`
	SnapshotTTLMin          int     `mapstructure:"SNAPSHOT_TTL_MIN"`
	BreakerFailureThreshold float64 `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerOpenSec          int     `mapstructure:"BREAKER_OPEN_SEC"`
	WSMaxSessionSec         int     `mapstructure:"WS_MAX_SESSION_SEC"`
	WSOutboxBuffer          int     `mapstructure:"WS_OUTBOX_BUFFER"`
	SyncRatePerMin          int     `mapstructure:"SYNC_RATE_PER_MIN"`
	RouteMetricsEnabled     bool    `mapstructure:"ROUTE_METRICS_ENABLED"`
	RequestLoggingEnabled   bool    `mapstructure:"REQUEST_LOGGING_ENABLED"`
	PyroscopeServerAddress  string  `mapstructure:"PYROSCOPE_SERVER_ADDRESS"`
}

var (
	ErrAppPortRange           = errors.New("APP_PORT must be between 1 and 65535")
	ErrLogLevelEmpty          = errors.New("LOG_LEVEL cannot be empty")
	ErrLogFormatEmpty         = errors.New("LOG_FORMAT cannot be empty")
	ErrStoreDriverUnsupported = errors.New("STORE_DRIVER must be either mongo or memory")
	ErrMongoURIEmpty          = errors.New("MONGO_URI cannot be empty")
	ErrMongoDBNameEmpty       = errors.New("MONGO_DB_NAME cannot be empty")
	ErrAPIBaseURLEmpty        = errors.New("API_BASE_URL cannot be empty")
	ErrAPITimeout             = errors.New("API_TIMEOUT_SEC must be greater than 0")
	ErrProbeInterval          = errors.New("PROBE_INTERVAL_SEC must be greater than 0")
	ErrSnapshotTTL            = errors.New("SNAPSHOT_TTL_MIN must not be negative")
	ErrBreakerThreshold       = errors.New("BREAKER_FAILURE_THRESHOLD must be in (0, 1]")
	ErrBreakerOpen            = errors.New("BREAKER_OPEN_SEC must be greater than 0")
	ErrWSMaxSession           = errors.New("WS_MAX_SESSION_SEC must be greater than 0")
	ErrWSOutboxBuffer         = errors.New("WS_OUTBOX_BUFFER must be greater than 0")
)

var (
	cachedConfig *Config
	configMutex  sync.RWMutex
)

// Load loads configuration from environment variables and .env file
// It caches the result for subsequent calls
func Load() (Config, error) {
	configMutex.RLock()
	if cachedConfig != nil {
		defer configMutex.RUnlock()
		return *cachedConfig, nil
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	// Double-check in case another goroutine loaded it while we waited for the lock
	if cachedConfig != nil {
		return *cachedConfig, nil
	}

	v := viper.New()

	v.SetDefault("APP_PORT", 8090)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", StoreDriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MONGO_DB_NAME", "notesync")
	v.SetDefault("API_BASE_URL", "http://localhost:5001")
	v.SetDefault("API_TOKEN", "")
	v.SetDefault("API_TIMEOUT_SEC", 10)
	v.SetDefault("PROBE_INTERVAL_SEC", 15)
	v.SetDefault("SNAPSHOT_PATH", "./data/notes-snapshot.json")
	v.SetDefault("SNAPSHOT_TTL_MIN", 24*60)
	v.SetDefault("BREAKER_FAILURE_THRESHOLD", 0.6)
	v.SetDefault("BREAKER_OPEN_SEC", 30)
	v.SetDefault("WS_MAX_SESSION_SEC", 900)
	v.SetDefault("WS_OUTBOX_BUFFER", 16)
	v.SetDefault("SYNC_RATE_PER_MIN", 30)
	v.SetDefault("ROUTE_METRICS_ENABLED", true)
	v.SetDefault("REQUEST_LOGGING_ENABLED", true)
	v.SetDefault("PYROSCOPE_SERVER_ADDRESS", "")

	// Configure Viper to read from .env file (if present)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// Try to read .env file (it's okay if it doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	// Override with OS environment variables
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cachedConfig = &cfg

	return cfg, nil
}

// ResetCache clears the cached configuration (for testing purposes)
func ResetCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	cachedConfig = nil
}

// Validate checks if required configuration fields are properly set
func (c Config) Validate() error {
	if c.AppPort <= 0 || c.AppPort > 65535 {
		return ErrAppPortRange
	}
	if c.LogLevel == "" {
		return ErrLogLevelEmpty
	}
	if c.LogFormat == "" {
		return ErrLogFormatEmpty
	}
	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return ErrMongoURIEmpty
		}
		if c.MongoDBName == "" {
			return ErrMongoDBNameEmpty
		}
	case StoreDriverMemory:
	default:
		return ErrStoreDriverUnsupported
	}
	if c.APIBaseURL == "" {
		return ErrAPIBaseURLEmpty
	}
	if c.APITimeoutSec <= 0 {
		return ErrAPITimeout
	}
	if c.ProbeIntervalSec <= 0 {
		return ErrProbeInterval
	}
	if c.SnapshotTTLMin < 0 {
		return ErrSnapshotTTL
	}
	if c.BreakerFailureThreshold <= 0 || c.BreakerFailureThreshold > 1 {
		return ErrBreakerThreshold
	}
	if c.BreakerOpenSec <= 0 {
		return ErrBreakerOpen
	}
	if c.WSMaxSessionSec <= 0 {
		return ErrWSMaxSession
	}
	if c.WSOutboxBuffer <= 0 {
		return ErrWSOutboxBuffer
	}
	return nil
}
