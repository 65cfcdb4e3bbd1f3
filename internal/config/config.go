package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the YAML config at path and overlays TRADEWIRE_* environment
// variables (TRADEWIRE_BYBIT_API_KEY -> bybit.api_key). The file is optional:
// a missing file yields a config built purely from env and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRADEWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
			}
			// File absent: env-only operation.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindLegacyEnv maps the variable names the original deployment used, so an
// existing environment keeps working without a rename.
func bindLegacyEnv(v *viper.Viper) {
	pairs := map[string]string{
		"bybit.api_key":        "BYBIT_API_KEY",
		"bybit.api_secret":     "BYBIT_API_SECRET",
		"bybit.testnet":        "BYBIT_TESTNET",
		"webhook.secret":       "EXECUTOR_WEBHOOK_SECRET",
		"schema.path":          "DECISION_SCHEMA_PATH",
		"audit.supabase_url":   "SUPABASE_URL",
		"audit.supabase_key":   "SUPABASE_SERVICE_ROLE_KEY",
		"audit.supabase_table": "SUPABASE_TABLE",
	}
	for key, env := range pairs {
		if val, ok := os.LookupEnv(env); ok {
			v.Set(key, val)
		}
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":8000"
	}
	if strings.TrimSpace(c.Server.Banner) == "" {
		c.Server.Banner = "tradewire"
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if c.Bybit.RecvWindowMS <= 0 {
		c.Bybit.RecvWindowMS = 5000
	}
	if c.Bybit.TimeoutSeconds <= 0 {
		c.Bybit.TimeoutSeconds = 15
	}
	if strings.TrimSpace(c.Schema.Path) == "" {
		c.Schema.Path = "decision_schema.json"
	}
	if c.Trading.FallbackQty <= 0 {
		c.Trading.FallbackQty = 0.1
	}
	if c.Trading.LimitQtyMode == "" {
		c.Trading.LimitQtyMode = LimitQtyNotional
	}
	if strings.TrimSpace(c.Audit.SupabaseTable) == "" {
		c.Audit.SupabaseTable = "signals"
	}
}
