// Package api exposes the scan lifecycle over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"serprank/internal/export"
	"serprank/internal/models"
	"serprank/internal/scan"
	"serprank/internal/store"
	"serprank/pkg/logger"
)

// Server wires the orchestrator and store into HTTP handlers.
type Server struct {
	scans *scan.Orchestrator
	store store.Store
	log   logger.Logger
}

func NewServer(scans *scan.Orchestrator, st store.Store, log logger.Logger) *Server {
	return &Server{scans: scans, store: st, log: log}
}

// Router builds the route tree. The literal ID "current" resolves to
// the active or most recent scan.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/scans", s.startScan)
		apiGroup.GET("/scans", s.listScans)
		apiGroup.GET("/scans/:id", s.getScan)
		apiGroup.GET("/scans/:id/progress", s.getProgress)
		apiGroup.GET("/scans/:id/export", s.exportScan)
		apiGroup.POST("/scans/:id/cancel", s.cancelScan)
	}
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()))
	}
}

type startRequest struct {
	Keyword string `json:"keyword" binding:"required"`
	Locale  string `json:"locale"`
	Domain  string `json:"domain"`
}

func (s *Server) startScan(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}

	state, err := s.scans.Start(scan.Request{
		Keyword:      req.Keyword,
		Locale:       req.Locale,
		TargetDomain: req.Domain,
	})
	if errors.Is(err, scan.ErrScanInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, state)
}

func (s *Server) listScans(c *gin.Context) {
	history, err := s.store.History(c.Request.Context())
	if err != nil {
		s.log.Error("history query failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if history == nil {
		history = []*models.ScanState{}
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) getScan(c *gin.Context) {
	state, ok := s.resolve(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) getProgress(c *gin.Context) {
	state, ok := s.resolve(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, state.Progress())
}

func (s *Server) exportScan(c *gin.Context) {
	state, ok := s.resolve(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body, err := export.Render(state, format)
	if err != nil {
		s.log.Error("export render failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render export"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(state, format)+`"`)
	c.Data(http.StatusOK, format.MIME(), body)
}

func (s *Server) cancelScan(c *gin.Context) {
	if c.Param("id") != "current" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only the current scan can be cancelled"})
		return
	}
	if !s.scans.Cancel() {
		c.JSON(http.StatusConflict, gin.H{"error": "no scan is running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// resolve maps the :id path segment to a scan state, writing the error
// response itself when nothing matches.
func (s *Server) resolve(c *gin.Context) (*models.ScanState, bool) {
	id := c.Param("id")

	if id == "current" {
		if state, ok := s.scans.Current(); ok {
			return state, true
		}
		state, err := s.store.LoadCurrent(c.Request.Context())
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no scan has run yet"})
			return nil, false
		}
		if err != nil {
			s.log.Error("current scan load failed", logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan"})
			return nil, false
		}
		return state, true
	}

	if state, ok := s.scans.Current(); ok && state.ID == id {
		return state, true
	}
	state, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return nil, false
	}
	if err != nil {
		s.log.Error("scan lookup failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan"})
		return nil, false
	}
	return state, true
}
