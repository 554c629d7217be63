package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

// baseValidConfig returns a fully-valid configuration object that callers
// can tweak inside table tests.
func baseValidConfig() Config {
	return Config{
		AppPort:                 8090,
		LogLevel:                "info",
		LogFormat:               "json",
		StoreDriver:             StoreDriverMongo,
		MongoURI:                "mongodb://localhost:27017",
		MongoDBName:             "test",
		APIBaseURL:              "http://localhost:5001",
		APITimeoutSec:           10,
		ProbeIntervalSec:        15,
		SnapshotPath:            "./data/snapshot.json",
		SnapshotTTLMin:          60,
		BreakerFailureThreshold: 0.6,
		BreakerOpenSec:          30,
		WSMaxSessionSec:         900,
		WSOutboxBuffer:          16,
	}
}

// clearConfigEnvVars removes every environment variable that the Config loader
// consumes so each test starts with a clean slate.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()

	for _, k := range []string{
		"APP_PORT",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"STORE_DRIVER",
		"MONGO_URI",
		"MONGO_DB_NAME",
		"API_BASE_URL",
		"API_TOKEN",
		"API_TIMEOUT_SEC",
		"PROBE_INTERVAL_SEC",
		"SNAPSHOT_PATH",
		"SNAPSHOT_TTL_MIN",
		"BREAKER_FAILURE_THRESHOLD",
		"BREAKER_OPEN_SEC",
		"WS_MAX_SESSION_SEC",
		"WS_OUTBOX_BUFFER",
		"SYNC_RATE_PER_MIN",
		"ROUTE_METRICS_ENABLED",
		"REQUEST_LOGGING_ENABLED",
		"PYROSCOPE_SERVER_ADDRESS",
	} {
		if err := os.Unsetenv(k); err != nil {
			t.Logf("warning: failed to unset %s: %v", k, err)
		}
	}
}

func TestConfigLoadDefaults(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()
	t.Cleanup(ResetCache)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.AppPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, StoreDriverMongo, cfg.StoreDriver)
	assert.Equal(t, "notesync", cfg.MongoDBName)
	assert.Equal(t, "http://localhost:5001", cfg.APIBaseURL)
	assert.Equal(t, "", cfg.APIToken)
	assert.Equal(t, 10, cfg.APITimeoutSec)
	assert.Equal(t, 15, cfg.ProbeIntervalSec)
	assert.Equal(t, 24*60, cfg.SnapshotTTLMin)
	assert.InDelta(t, 0.6, cfg.BreakerFailureThreshold, 1e-9)
	assert.Equal(t, 30, cfg.BreakerOpenSec)
	assert.Equal(t, 900, cfg.WSMaxSessionSec)
	assert.Equal(t, 16, cfg.WSOutboxBuffer)
	assert.Equal(t, 30, cfg.SyncRatePerMin)
	assert.True(t, cfg.RouteMetricsEnabled)
	assert.True(t, cfg.RequestLoggingEnabled)
}

func TestConfigLoadWithOverride(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()
	t.Cleanup(ResetCache)

	t.Setenv("APP_PORT", "9999")
	t.Setenv("STORE_DRIVER", " Memory ")
	t.Setenv("API_BASE_URL", "https://notes.example.com/api")
	t.Setenv("PROBE_INTERVAL_SEC", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.AppPort)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "https://notes.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 3, cfg.ProbeIntervalSec)
}

func TestConfigLoadRejectsInvalidEnv(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()
	t.Cleanup(ResetCache)

	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreDriverUnsupported)
}

func TestConfigCaching(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()
	t.Cleanup(ResetCache)

	cfg1, err := Load()
	require.NoError(t, err)

	// second call should hit the cache even though the env changed
	t.Setenv("APP_PORT", "7000")
	cfg2, err := Load()
	require.NoError(t, err)

	assert.Equal(t, cfg1, cfg2)
}

// -----------------------------------------------------------------------------
// Validate() unit tests (table-driven)
// -----------------------------------------------------------------------------

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:    "invalid port - zero",
			modify:  func(c *Config) { c.AppPort = 0 },
			wantErr: ErrAppPortRange,
		},
		{
			name:    "invalid port - too high",
			modify:  func(c *Config) { c.AppPort = 70000 },
			wantErr: ErrAppPortRange,
		},
		{
			name:    "empty log level",
			modify:  func(c *Config) { c.LogLevel = "" },
			wantErr: ErrLogLevelEmpty,
		},
		{
			name:    "empty log format",
			modify:  func(c *Config) { c.LogFormat = "" },
			wantErr: ErrLogFormatEmpty,
		},
		{
			name:    "unknown store driver",
			modify:  func(c *Config) { c.StoreDriver = "bolt" },
			wantErr: ErrStoreDriverUnsupported,
		},
		{
			name:    "mongo driver needs uri",
			modify:  func(c *Config) { c.MongoURI = "" },
			wantErr: ErrMongoURIEmpty,
		},
		{
			name:    "mongo driver needs db name",
			modify:  func(c *Config) { c.MongoDBName = "" },
			wantErr: ErrMongoDBNameEmpty,
		},
		{
			name: "memory driver ignores mongo settings",
			modify: func(c *Config) {
				c.StoreDriver = StoreDriverMemory
				c.MongoURI = ""
				c.MongoDBName = ""
			},
		},
		{
			name:    "empty api base url",
			modify:  func(c *Config) { c.APIBaseURL = "" },
			wantErr: ErrAPIBaseURLEmpty,
		},
		{
			name:    "api timeout zero",
			modify:  func(c *Config) { c.APITimeoutSec = 0 },
			wantErr: ErrAPITimeout,
		},
		{
			name:    "probe interval zero",
			modify:  func(c *Config) { c.ProbeIntervalSec = 0 },
			wantErr: ErrProbeInterval,
		},
		{
			name:    "negative snapshot ttl",
			modify:  func(c *Config) { c.SnapshotTTLMin = -1 },
			wantErr: ErrSnapshotTTL,
		},
		{
			name:    "breaker threshold above one",
			modify:  func(c *Config) { c.BreakerFailureThreshold = 1.5 },
			wantErr: ErrBreakerThreshold,
		},
		{
			name:    "breaker open window zero",
			modify:  func(c *Config) { c.BreakerOpenSec = 0 },
			wantErr: ErrBreakerOpen,
		},
		{
			name:    "ws session zero",
			modify:  func(c *Config) { c.WSMaxSessionSec = 0 },
			wantErr: ErrWSMaxSession,
		},
		{
			name:    "ws outbox zero",
			modify:  func(c *Config) { c.WSOutboxBuffer = 0 },
			wantErr: ErrWSOutboxBuffer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseValidConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
