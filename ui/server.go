// Package ui serves the trial analytics HTTP API and the trial dashboard page.
package ui

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trialmetrics/app"
	"trialmetrics/internal"
	"trialmetrics/ui/middleware"
)

const shutdownTimeout = 10 * time.Second

// Server represents the web server for the trial dashboard and API
type Server struct {
	router    *gin.Engine
	service   *app.AnalysisService
	templates *template.Template
	logger    *internal.Logger
}

// NewServer creates a server over service. ginMode is one of gin's modes;
// empty keeps gin's default.
func NewServer(service *app.AnalysisService, logger *internal.Logger, ginMode string) (*Server, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if ginMode != "" {
		gin.SetMode(ginMode)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		service:   service,
		templates: tmpl,
		logger:    logger.With("ui"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger(s.logger))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/trials/:nct_id", s.handleTrialPage)

	api := s.router.Group("/api")
	api.GET("/trials", s.handleSearchTrials)
	api.GET("/trials/:nct_id/analysis", s.handleTrialAnalysis)
	api.GET("/trials/:nct_id/summary", s.handleTrialSummary)
	api.GET("/trials/:nct_id/export", s.handleTrialExport)

	api.GET("/power", s.handlePower)
	api.GET("/power/curve", s.handlePowerCurve)
	api.GET("/power/sample-size", s.handleSampleSize)
	api.POST("/budget", s.handleBudget)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting trialmetrics on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
