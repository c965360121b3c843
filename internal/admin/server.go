// Package admin serves the optional operator HTTP endpoints: prometheus
// metrics, a health check, and frame injection.
package admin

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/llmbridge/internal/domain"
	"github.com/bft-labs/llmbridge/internal/ports"
)

// maxInjectBytes bounds one injected body.
const maxInjectBytes = 64 << 10

// Bridge is what the admin server needs from the running bridge.
type Bridge interface {
	Running() bool
	Inject(ctx context.Context, p []byte) error
}

// Server is the admin HTTP server.
type Server struct {
	addr   string
	echo   *echo.Echo
	logger ports.Logger
}

// New builds the routes for bridge.
func New(addr string, bridge Bridge, logger ports.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		if !bridge.Running() {
			return c.String(http.StatusServiceUnavailable, "not running")
		}
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/inject", func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxInjectBytes))
		if err != nil {
			return c.String(http.StatusBadRequest, "read body: "+err.Error())
		}
		if len(body) == 0 {
			return c.String(http.StatusBadRequest, "empty body")
		}
		if err := bridge.Inject(c.Request().Context(), body); err != nil {
			if errors.Is(err, domain.ErrNotRunning) {
				return c.String(http.StatusServiceUnavailable, "bridge not running")
			}
			return c.String(http.StatusInternalServerError, err.Error())
		}
		logger.Debug("frame injected", ports.Int("bytes", len(body)))
		return c.NoContent(http.StatusAccepted)
	})

	return &Server{addr: addr, echo: e, logger: logger}
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("admin server listening", ports.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
