package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Bybit.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Audit.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Schema.Path) == "" {
		return fmt.Errorf("schema.path is required")
	}
	return nil
}

func (b *BybitConfig) validate() error {
	// Partial credentials are a misconfiguration; fully absent means the
	// relay runs in trading-unavailable mode.
	if (b.APIKey == "") != (b.APISecret == "") {
		return fmt.Errorf("bybit.api_key and bybit.api_secret must be set together")
	}
	if b.RecvWindowMS < 0 {
		return fmt.Errorf("bybit.recv_window_ms must be >= 0")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.FallbackQty <= 0 {
		return fmt.Errorf("trading.fallback_qty must be > 0")
	}
	switch t.LimitQtyMode {
	case LimitQtyNotional, LimitQtyConverted:
		return nil
	default:
		return fmt.Errorf("trading.limit_qty_mode must be %q or %q", LimitQtyNotional, LimitQtyConverted)
	}
}

func (a *AuditConfig) validate() error {
	if a.SupabaseURL != "" && strings.TrimSpace(a.SupabaseKey) == "" {
		return fmt.Errorf("audit.supabase_key is required when audit.supabase_url is set")
	}
	return nil
}
