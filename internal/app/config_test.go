package app

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 5, cfg.LowStockThreshold)
	require.Equal(t, 3, cfg.SaleRetryLimit)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.Equal(t, "0 7 * * *", cfg.LowStockScanCron)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "c")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsThreshold(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("LOW_STOCK_THRESHOLD", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfigLocation(t *testing.T) {
	require.Equal(t, time.Local, (*Config)(nil).Location())
	require.Equal(t, time.Local, (&Config{AppLocation: "Nowhere/Invalid"}).Location())
	require.Equal(t, "UTC", (&Config{AppLocation: "UTC"}).Location().String())
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "test", LogFormat: "json"}, &buf)
	logger.Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, "test", entry["env"])
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	require.False(t, InTestMode())
}
