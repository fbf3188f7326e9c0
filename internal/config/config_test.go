package config

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "8100", cfg.Port)
	// a deployment that forgets APP_ENV must not expose payment simulation
	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Bakong.TestMode)
	assert.False(t, cfg.Bakong.HasCredential())
	assert.Equal(t, "https://sit-api-bakong.nbc.gov.kh", cfg.Bakong.BaseURL())
	assert.Equal(t, 8*time.Second, cfg.Bakong.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.Bakong.QRTTL)
	assert.Equal(t, 10*time.Minute, cfg.Bakong.SimulationTTL)
	assert.Equal(t, 30*time.Second, cfg.Reconcile.Interval)
	assert.Equal(t, 50, cfg.Reconcile.BatchSize)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"APP_ENV":            "Production",
		"BAKONG_API_TOKEN":   "tok",
		"BAKONG_TEST_MODE":   "false",
		"BAKONG_TIMEOUT":     "3s",
		"RECONCILE_ENABLED":  "0",
		"RECONCILE_INTERVAL": "1m",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Bakong.HasCredential())
	assert.Equal(t, "https://api-bakong.nbc.gov.kh", cfg.Bakong.BaseURL())
	assert.Equal(t, 3*time.Second, cfg.Bakong.Timeout)
	assert.False(t, cfg.Reconcile.Enabled)
	assert.Equal(t, time.Minute, cfg.Reconcile.Interval)
}

func TestFromEnv_ParseErrorFailsStartup(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"BAKONG_TIMEOUT": "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAKONG_TIMEOUT")
}

func TestFromEnv_LocalEnvironment(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"APP_ENV": "local"}))
	require.NoError(t, err)
	assert.Equal(t, EnvLocal, cfg.Environment)
	assert.False(t, cfg.IsProduction())
}

func TestBakongReport(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	report := cfg.BakongReport()
	assert.Equal(t, false, report["configuration_valid"])
	assert.Contains(t, report["issues"], "BAKONG_API_TOKEN is not set")

	settings := report["current_settings"].(map[string]any)
	assert.Equal(t, false, settings["simulation_enabled"])
	assert.Equal(t, false, settings["has_token"])

	cfg, err = FromEnv(envMap(map[string]string{"APP_ENV": "local"}))
	require.NoError(t, err)
	settings = cfg.BakongReport()["current_settings"].(map[string]any)
	assert.Equal(t, true, settings["simulation_enabled"])
}
