package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvLocal      = "local"
	EnvProduction = "production"
)

type Config struct {
	Port        string
	Environment string
	PostgresURL string
	RedisURL    string
	JWTSecret   string

	Log       LogConfig
	Bakong    BakongConfig
	Reconcile ReconcileConfig
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// BakongConfig is threaded into the QR generator and the status checker at
// construction time. An empty APIToken means no upstream verifier exists.
type BakongConfig struct {
	APIToken      string
	TestMode      bool // sandbox when true, live otherwise
	LiveURL       string
	SandboxURL    string
	GeneratePath  string
	AppID         string
	Timeout       time.Duration
	AccountID     string // default merchant used when a request omits it
	AccountName   string
	MerchantCity  string
	QRTTL         time.Duration
	SimulationTTL time.Duration
}

type ReconcileConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

func (b BakongConfig) HasCredential() bool {
	return strings.TrimSpace(b.APIToken) != ""
}

// BaseURL picks the gateway host for the configured mode. Generation and
// status checks must use the same mode or the gateway denies access.
func (b BakongConfig) BaseURL() string {
	if b.TestMode {
		return b.SandboxURL
	}
	return b.LiveURL
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	r := reader{getenv: getenv}

	cfg := Config{
		Port:        r.str("PORT", "8100"),
		Environment: r.str("APP_ENV", EnvProduction),
		PostgresURL: r.str("POSTGRES_URL", ""),
		RedisURL:    r.str("REDIS_URL", ""),
		JWTSecret:   r.str("JWT_SECRET", ""),
		Log: LogConfig{
			Level:  r.str("LOG_LEVEL", "info"),
			Format: r.str("LOG_FORMAT", "json"),
		},
		Bakong: BakongConfig{
			APIToken:      r.str("BAKONG_API_TOKEN", ""),
			TestMode:      r.boolean("BAKONG_TEST_MODE", true),
			LiveURL:       r.str("BAKONG_LIVE_URL", "https://api-bakong.nbc.gov.kh"),
			SandboxURL:    r.str("BAKONG_SANDBOX_URL", "https://sit-api-bakong.nbc.gov.kh"),
			GeneratePath:  r.str("BAKONG_GENERATE_PATH", "/v1/generate_khqr_individual"),
			AppID:         r.str("BAKONG_APP_ID", ""),
			Timeout:       r.duration("BAKONG_TIMEOUT", 8*time.Second),
			AccountID:     r.str("BAKONG_ACCOUNT_ID", ""),
			AccountName:   r.str("BAKONG_ACCOUNT_NAME", ""),
			MerchantCity:  r.str("BAKONG_MERCHANT_CITY", "PHNOM PENH"),
			QRTTL:         r.duration("QR_TTL", 2*time.Hour),
			SimulationTTL: r.duration("SIMULATION_TTL", 10*time.Minute),
		},
		Reconcile: ReconcileConfig{
			Enabled:   r.boolean("RECONCILE_ENABLED", true),
			Interval:  r.duration("RECONCILE_INTERVAL", 30*time.Second),
			BatchSize: r.integer("RECONCILE_BATCH_SIZE", 50),
		},
	}

	if r.err != nil {
		return Config{}, r.err
	}
	return cfg, nil
}

// BakongReport lists configuration issues and recommendations for operators.
func (c Config) BakongReport() map[string]any {
	issues := []string{}
	recommendations := []string{}

	b := c.Bakong
	switch {
	case !b.HasCredential():
		issues = append(issues, "BAKONG_API_TOKEN is not set")
		recommendations = append(recommendations, "Add a Bakong API token to enable payment tracking")
	case len(b.APIToken) < 50:
		issues = append(issues, "BAKONG_API_TOKEN appears to be invalid (too short)")
		recommendations = append(recommendations, "Verify the Bakong API token is correct")
	}
	if b.AppID == "" {
		issues = append(issues, "BAKONG_APP_ID is not set")
	}
	if b.TestMode && c.IsProduction() {
		recommendations = append(recommendations, "Sandbox mode in production: QR codes will not be tracked against real payments; set BAKONG_TEST_MODE=false")
	}
	if !b.TestMode && !c.IsProduction() {
		recommendations = append(recommendations, "Live gateway mode outside production: make sure QR codes are generated and checked in the same mode")
	}

	return map[string]any{
		"configuration_valid": len(issues) == 0,
		"issues":              issues,
		"recommendations":     recommendations,
		"current_settings": map[string]any{
			"environment":        c.Environment,
			"test_mode":          b.TestMode,
			"has_token":          b.HasCredential(),
			"has_app_id":         b.AppID != "",
			"api_base_url":       b.BaseURL(),
			"simulation_enabled": !c.IsProduction(),
		},
	}
}

type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

func (r *reader) integer(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}

func (r *reader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("config %s=%q: %w", key, value, err)
	}
}
