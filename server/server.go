// Package server exposes the operational REST API: health, pipeline
// status and recent anomaly alerts.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mta/metro-disruptions/config"
	"mta/metro-disruptions/detect"
	"mta/metro-disruptions/store"
)

// Status is a point-in-time view of the running pipeline.
type Status struct {
	LastPassTimestamp int64 `json:"last_pass_timestamp"`
	TrackedKeys       int   `json:"tracked_keys"`
	RowsScored        int   `json:"rows_scored"`
	ScoreWindowLen    int   `json:"score_window_len"`
	Warmup            bool  `json:"warmup"`
}

// StatusProvider supplies the current pipeline status.
type StatusProvider interface {
	Status() Status
}

// AlertSource supplies recently raised alerts, newest first.
type AlertSource interface {
	RecentAlerts(limit int) []detect.Result
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.ServerConfig
	status StatusProvider
	alerts AlertSource
	db     *store.Store
	engine *gin.Engine
}

// New constructs a server with routes and middleware. db may be nil; the
// recent-alert route then serves from the in-memory source only.
func New(cfg config.ServerConfig, status StatusProvider, alerts AlertSource, db *store.Store) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{cfg: cfg, status: status, alerts: alerts, db: db, engine: engine}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/api/health", s.handleHealth)
	s.engine.GET("/api/status", s.handleStatus)
	s.engine.GET("/api/alerts/recent", s.handleRecentAlerts)
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.status.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"last_pass_timestamp": st.LastPassTimestamp,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Status())
}

func (s *Server) handleRecentAlerts(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	if s.db != nil {
		var since int64
		if raw := c.Query("since"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
				return
			}
			since = n
		}
		alerts, err := s.db.RecentAlerts(c.Request.Context(), since, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": alerts})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": s.alerts.RecentAlerts(limit)})
}
