package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ytfilter/sieve/filter"
	"github.com/ytfilter/sieve/youtube"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
)

type Server struct {
	pipeline         *filter.Pipeline
	yt               *youtube.Client
	batchConcurrency int
	echo             *echo.Echo
	httpd            *http.Server
	logger           *slog.Logger
}

type Config struct {
	Logger   *slog.Logger
	Pipeline *filter.Pipeline
	// nil if no API key is configured
	YouTube          *youtube.Client
	Bind             string
	BatchConcurrency int
	// where HTTP request metrics are registered; defaults to the global registry
	MetricsRegisterer prometheus.Registerer
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	if config.Pipeline == nil {
		return nil, errors.New("server requires a moderation pipeline")
	}
	reg := config.MetricsRegisterer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	batch := config.BatchConcurrency
	if batch < 1 {
		batch = 1
	}

	e := echo.New()

	// httpd
	var (
		httpTimeout        = 2 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		pipeline:         config.Pipeline,
		yt:               config.YouTube,
		batchConcurrency: batch,
		echo:             e,
		logger:           logger,
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "sieve",
		Registerer: reg,
	}))
	e.Use(middleware.BodyLimit("4M"))
	e.HTTPErrorHandler = srv.errorHandler
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000, // 365 days
	}))

	e.GET("/_health", srv.HandleHealthCheck)

	// individual pipeline stages
	e.POST("/api/modules/first-pass", srv.HandleFirstPass)
	e.POST("/api/modules/second-pass", srv.HandleSecondPass)
	e.POST("/api/modules/score", srv.HandleScore)
	e.POST("/api/modules/policy", srv.HandlePolicy)
	e.GET("/api/modules/youtube/video", srv.HandleYouTubeVideo)
	e.GET("/api/modules/youtube/comments", srv.HandleYouTubeComments)

	// full pipeline
	e.POST("/api/workflow/analyze-text", srv.HandleAnalyzeText)
	e.POST("/api/workflow/analyze-youtube", srv.HandleAnalyzeYouTube)

	return srv, nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

// RunAPI serves until SIGINT or SIGTERM, then shuts down gracefully. If the
// listener fails (eg, the port is in use), the error is returned.
func (srv *Server) RunAPI() error {
	srv.logger.Info("registering OS exit signal handler")
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(exitSignals)
	return srv.serveUntil(exitSignals)
}

func (srv *Server) serveUntil(stop <-chan os.Signal) error {
	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.httpd.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-stop:
		srv.logger.Info("received OS exit signal", "signal", sig)
	}

	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	srv.logger.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}
