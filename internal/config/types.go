package config

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Bybit   BybitConfig   `mapstructure:"bybit"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Schema  SchemaConfig  `mapstructure:"schema"`
	Trading TradingConfig `mapstructure:"trading"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	Banner string `mapstructure:"banner"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// BybitConfig carries the exchange session credentials. APIKey/APISecret empty
// means the relay runs without trading capability.
type BybitConfig struct {
	APIKey         string `mapstructure:"api_key"`
	APISecret      string `mapstructure:"api_secret"`
	Testnet        bool   `mapstructure:"testnet"`
	RecvWindowMS   int    `mapstructure:"recv_window_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (c BybitConfig) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// WebhookConfig holds the shared secret for inbound signature checks.
// An empty secret disables verification (bring-up mode).
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

// LimitQtyMode selects how the limit-order quantity is derived from the
// risk plan. "notional" forwards position_usd*size_frac as-is (inherited
// behavior); "converted" divides by the limit price first.
type LimitQtyMode string

const (
	LimitQtyNotional  LimitQtyMode = "notional"
	LimitQtyConverted LimitQtyMode = "converted"
)

type TradingConfig struct {
	FallbackQty  float64      `mapstructure:"fallback_qty"`
	LimitQtyMode LimitQtyMode `mapstructure:"limit_qty_mode"`
}

type AuditConfig struct {
	SQLitePath    string `mapstructure:"sqlite_path"`
	SupabaseURL   string `mapstructure:"supabase_url"`
	SupabaseKey   string `mapstructure:"supabase_key"`
	SupabaseTable string `mapstructure:"supabase_table"`
}
