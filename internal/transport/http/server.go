// Package httpapi exposes the relay's HTTP surface on gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradewire/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server hosts the webhook and account routes.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the HTTP server dependencies. Gateway may be nil;
// the affected routes then degrade to a trading-unavailable answer.
type ServerConfig struct {
	Addr         string
	Banner       string
	Orchestrator Orchestrator
	Gateway      ReadGateway
}

// NewServer builds the HTTP server and registers all routes.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("http server requires an orchestrator")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	h := &handlers{banner: cfg.Banner, orchestrator: cfg.Orchestrator, gateway: cfg.Gateway}
	h.register(router)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Router exposes the handler tree. Used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves HTTP until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, path, status, client, dur)
	}
}
