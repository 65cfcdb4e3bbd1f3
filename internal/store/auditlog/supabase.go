package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// SupabaseSink inserts trade records into a Supabase table through the
// PostgREST endpoint. The service role key is sent on every request and
// never logged.
type SupabaseSink struct {
	client *resty.Client
	table  string
}

func NewSupabaseSink(baseURL, serviceKey, table string) *SupabaseSink {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(strings.TrimSpace(baseURL), "/")).
		SetTimeout(10 * time.Second).
		SetHeader("apikey", serviceKey).
		SetHeader("Authorization", "Bearer "+serviceKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=minimal")
	if strings.TrimSpace(table) == "" {
		table = "signals"
	}
	return &SupabaseSink{client: client, table: table}
}

type supabaseRow struct {
	ID        string          `json:"id"`
	CreatedAt string          `json:"created_at"`
	Symbol    string          `json:"symbol"`
	Status    string          `json:"status"`
	Raw       json.RawMessage `json:"raw"`
}

func (s *SupabaseSink) Insert(ctx context.Context, rec Record) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("supabase sink not initialized")
	}
	row := supabaseRow{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		Symbol:    rec.Symbol,
		Status:    rec.Status,
		Raw:       rec.Raw,
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(row).
		Post("/rest/v1/" + s.table)
	if err != nil {
		return fmt.Errorf("supabase insert failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("supabase insert failed: %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	}
	return nil
}
