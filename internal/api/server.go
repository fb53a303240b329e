// Package api exposes the wordgate command surface to the browser
// extension: block-state queries, tab lifecycle events, answer submission,
// settings updates, and the per-tab display command outbox.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wordgate/wordgate/internal/config"
	"github.com/wordgate/wordgate/internal/logging"
	"github.com/wordgate/wordgate/internal/questions"
	"github.com/wordgate/wordgate/internal/scheduler"
)

// SettingsApplier persists blocking settings; config.Manager implements it.
// Runtime propagation to the scheduler happens via the manager's change
// callbacks, not through this interface.
type SettingsApplier interface {
	UpdateBlocking(config.BlockingConfig) error
}

// Server serves the local HTTP command surface.
type Server struct {
	addr      string
	svc       *scheduler.Service
	provider  questions.Provider
	settings  SettingsApplier
	outbox    *Outbox
	server    *http.Server
	startTime time.Time
	ctx       context.Context
}

// NewServer wires the command surface. outbox must be the same instance
// registered as the scheduler's messenger.
func NewServer(ctx context.Context, addr string, svc *scheduler.Service, provider questions.Provider, settings SettingsApplier, outbox *Outbox) *Server {
	return &Server{
		addr:     addr,
		svc:      svc,
		provider: provider,
		settings: settings,
		outbox:   outbox,
		ctx:      logging.WithComponent(ctx, "api"),
	}
}

// Router builds the gin engine. Exposed separately so tests can drive the
// handlers through httptest without binding a socket.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/v1")
	v1.GET("/healthz", s.handleHealth)
	v1.GET("/tabs/:id/block-state", s.handleBlockState)
	v1.GET("/tabs/:id/messages", s.handleMessages)
	v1.POST("/tabs/events", s.handleTabEvent)
	v1.GET("/question", s.handleQuestion)
	v1.POST("/answer", s.handleAnswer)
	v1.PUT("/settings", s.handleSettings)
	v1.POST("/block/trigger", s.handleTrigger)

	return r
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Router(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()
	logging.FromContext(s.ctx).Info().Str("addr", s.addr).Msg("command surface listening")

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logging.FromContext(s.ctx).Error().Err(err).Msg("command surface stopped")
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
