// Package app wires configuration into the running service.
package app

import (
	"context"

	"tradewire/internal/config"
	"tradewire/internal/executor"
	"tradewire/internal/gateway/bybit"
	"tradewire/internal/logger"
	"tradewire/internal/schema"
	"tradewire/internal/store/auditlog"
	httpapi "tradewire/internal/transport/http"
	"tradewire/internal/webhook"

	"golang.org/x/sync/errgroup"
)

// App owns the process-lifetime service objects: the exchange gateway, the
// audit sinks, the schema registry, and the HTTP server. Everything is
// constructed once here and injected; nothing is reassigned afterwards.
type App struct {
	cfg     *config.Config
	server  *httpapi.Server
	schemas *schema.Registry
	sqlite  *auditlog.SQLiteStore
}

// NewApp builds the full dependency graph. A missing or malformed schema
// document fails construction; missing exchange credentials do not, the
// relay then runs in trading-unavailable mode.
func NewApp(cfg *config.Config) (*App, error) {
	schemas, err := schema.NewRegistry(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}

	verifier := webhook.NewVerifier(cfg.Webhook.Secret)
	if !verifier.Enabled() {
		logger.Warnf("webhook signature verification disabled: no shared secret configured")
	}

	var (
		gateway executor.Gateway
		readGw  httpapi.ReadGateway
	)
	if cfg.Bybit.Configured() {
		client, err := bybit.NewClient(cfg.Bybit)
		if err != nil {
			return nil, err
		}
		gateway = client
		readGw = client
	} else {
		logger.Warnf("exchange credentials not configured: running without trading capability")
	}

	app := &App{cfg: cfg, schemas: schemas}

	var sinks auditlog.Fanout
	if cfg.Audit.SQLitePath != "" {
		store, err := auditlog.NewSQLiteStore(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, err
		}
		app.sqlite = store
		sinks = append(sinks, store)
		logger.Infof("audit sink: sqlite at %s", cfg.Audit.SQLitePath)
	}
	if cfg.Audit.SupabaseURL != "" {
		sinks = append(sinks, auditlog.NewSupabaseSink(cfg.Audit.SupabaseURL, cfg.Audit.SupabaseKey, cfg.Audit.SupabaseTable))
		logger.Infof("audit sink: supabase table %q", cfg.Audit.SupabaseTable)
	}
	var recorder auditlog.Recorder
	if len(sinks) > 0 {
		recorder = sinks
	}

	logger.Infof("limit order quantity mode: %s", cfg.Trading.LimitQtyMode)

	translator := executor.NewTranslator(gateway, cfg.Trading)
	orchestrator := executor.NewOrchestrator(verifier, schemas, translator, gateway, recorder)

	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:         cfg.Server.Addr,
		Banner:       cfg.Server.Banner,
		Orchestrator: orchestrator,
		Gateway:      readGw,
	})
	if err != nil {
		return nil, err
	}
	app.server = server
	return app, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	logger.Infof("listening on %s", a.server.Addr())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Start(ctx)
	})
	err := g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.schemas != nil {
		_ = a.schemas.Close()
	}
	if a.sqlite != nil {
		_ = a.sqlite.Close()
	}
}
