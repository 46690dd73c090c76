package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"horse.fit/lisan/internal/clock"
	"horse.fit/lisan/internal/translation"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	// AdminTokenHash is the bcrypt hash guarding /api/v1/admin. Empty disables admin routes.
	AdminTokenHash string
	// MaxBatchSize caps /translate/batch. Zero means 50.
	MaxBatchSize int
}

// Pinger reports database health. Nil when running on in-memory stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Orchestrator *translation.Orchestrator
	Quotas       *translation.Quotas
	Gatherer     prometheus.Gatherer
	Pinger       Pinger
	Clock        clock.Clock
}

type Server struct {
	orchestrator *translation.Orchestrator
	quotas       *translation.Quotas
	gatherer     prometheus.Gatherer
	pinger       Pinger
	clock        clock.Clock
	logger       zerolog.Logger
	opts         Options
}

func NewServer(deps Dependencies, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8095
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// The fallback chain alone may take up to its 45s deadline.
		writeTimeout = 60 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	maxBatch := opts.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = 50
	}

	quotas := deps.Quotas
	if quotas == nil {
		quotas = translation.NewQuotas(nil, translation.DefaultFreeDailyLimit, deps.Clock)
	}

	return &Server{
		orchestrator: deps.Orchestrator,
		quotas:       quotas,
		gatherer:     deps.Gatherer,
		pinger:       deps.Pinger,
		clock:        clock.OrSystem(deps.Clock),
		logger:       logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  opts.AllowedOrigins,
			AdminTokenHash:  strings.TrimSpace(opts.AdminTokenHash),
			MaxBatchSize:    maxBatch,
		},
	}
}

// Handler builds the echo instance with every route mounted.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	allowOrigins := s.opts.AllowedOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", userHeader, adminTokenHeader},
		ExposeHeaders:    []string{userHeader},
		AllowCredentials: len(s.opts.AllowedOrigins) > 0,
		MaxAge:           3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/providers", s.handleProviders)
	api.POST("/providers/:id/test", s.handleTestProvider)
	api.GET("/usage", s.handleUsage)

	metered := api.Group("", s.identifyUser())
	metered.POST("/translate", s.handleTranslate)
	metered.POST("/translate/batch", s.handleBatchTranslate)
	metered.POST("/translate/context", s.handleContextTranslate)
	metered.GET("/quota", s.handleQuota)

	admin := api.Group("/admin", s.requireAdmin())
	admin.POST("/cache/evict", s.handleEvictCache)
	admin.POST("/usage/reset", s.handleResetUsage)
	admin.POST("/users/:id/premium", s.handleUpgradeUser)

	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.orchestrator == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("lisan api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("lisan api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}
