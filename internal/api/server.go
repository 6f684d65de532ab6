// Package api provides the admin/introspection REST API for flowinspectord.
// It exposes health, runtime stats, reverse-index lookups, cache control,
// and clustersync status via a Gin-based HTTP server.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jroosing/flowinspect/internal/api/handlers"
	"github.com/jroosing/flowinspect/internal/api/middleware"
	"github.com/jroosing/flowinspect/internal/config"
	"github.com/jroosing/flowinspect/internal/flow"
)

// Server is the admin REST API server.
//
// Security note: do not expose this API to untrusted networks without
// setting admin.api_key.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	ginEngine  *gin.Engine
	httpServer *http.Server
	handler    *handlers.Handler
}

// New builds the admin API server, wired to the given flow engine.
func New(cfg *config.Config, logger *slog.Logger, engine *flow.Engine) *Server {
	if cfg == nil {
		panic("api.New: cfg is nil")
	}

	gin.SetMode(gin.ReleaseMode)
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())
	ginEngine.Use(middleware.SlogRequestLogger(logger))

	h := handlers.New(cfg, logger, engine)
	RegisterRoutes(ginEngine, h, cfg)

	addr := net.JoinHostPort(cfg.Admin.Host, strconv.Itoa(cfg.Admin.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           ginEngine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{cfg: cfg, logger: logger, ginEngine: ginEngine, httpServer: httpServer, handler: h}
}

// Handler returns the underlying handler, for wiring the store/syncer
// after construction.
func (s *Server) Handler() *handlers.Handler {
	return s.handler
}

func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

func (s *Server) Engine() *gin.Engine {
	return s.ginEngine
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
