// Package rest exposes the auth API over HTTP using gin.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/logging"
	"github.com/dmitrijs2005/ergoauth/internal/server/metrics"
	"github.com/gin-gonic/gin"
)

// AdminRole guards the user lookup endpoint.
const AdminRole = "admin"

const shutdownTimeout = 5 * time.Second

// NewRouter mounts the API, health and metrics routes.
func NewRouter(h *Handler, m *metrics.Metrics, origins []string, l logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(l, m), securityHeaders(), cors(origins))

	r.GET("/healthz", healthz)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api/auth")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.POST("/logout", h.logout)
		api.POST("/refresh", h.refresh)
		api.GET("/me", h.me)
		api.GET("/oauth/start", h.oauthStart)
		api.GET("/oauth/callback", h.oauthCallback)

		admin := api.Group("/users", h.requireAuth(), h.RequireRole(AdminRole))
		admin.GET("/:id", h.getUser)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not found"})
	})
	return r
}

// HTTPServer runs a router until its context is cancelled.
type HTTPServer struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewHTTPServer(address string, handler http.Handler, l logging.Logger) *HTTPServer {
	return &HTTPServer{address: address, handler: handler, logger: l.With("module", "http_server")}
}

// Run listens on the configured address and shuts down gracefully when ctx
// is done.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
