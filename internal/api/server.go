package api

// server.go — superficie HTTP de administración.
//
// Lecturas públicas (/health, /v1/events, /v1/scoreboard) y mutaciones bajo
// /v1/admin protegidas por el header x-admin-token. El token se compara en
// tiempo constante y el 401 corta antes de tocar jobs o storage.

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alejandrodnm/edgemachine/config"
	"github.com/alejandrodnm/edgemachine/internal/application/pipeline"
	"github.com/alejandrodnm/edgemachine/internal/ports"
)

const adminTokenHeader = "x-admin-token"

const defaultListLimit = 100

// Server expone el pipeline y el storage por HTTP.
type Server struct {
	store  ports.EventStore
	runner *pipeline.Runner
	cfg    config.ServerConfig
	engine *gin.Engine
}

// NewServer construye el router completo.
func NewServer(store ports.EventStore, runner *pipeline.Runner, cfg config.ServerConfig) *Server {
	gin.SetMode(cfg.Mode)

	s := &Server{store: store, runner: runner, cfg: cfg}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", s.handleHealth)
	engine.GET("/v1/events", s.handleListEvents)
	engine.GET("/v1/scoreboard", s.handleScoreboard)

	admin := engine.Group("/v1/admin", s.requireAdminToken())
	admin.POST("/events", s.handleCreateEvent)
	admin.POST("/jobs/run", s.handleRunJob)

	s.engine = engine
	return s
}

// Router devuelve el handler HTTP, para el listener y para tests.
func (s *Server) Router() http.Handler {
	return s.engine
}

// Run sirve hasta que el listener falle.
func (s *Server) Run() error {
	slog.Info("admin server listening", "addr", s.cfg.Addr)
	return s.engine.Run(s.cfg.Addr)
}

// requireAdminToken protege el grupo admin. Sin token configurado, toda
// mutación se rechaza — nunca se abre por omisión.
func (s *Server) requireAdminToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(adminTokenHeader)
		if s.cfg.AdminToken == "" || provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.AdminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing admin token",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListEvents(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.store.ListEvents(c.Request.Context(), limit)
	if err != nil {
		slog.Error("list events failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}

	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, newEventView(e))
	}
	c.JSON(http.StatusOK, gin.H{"events": out, "count": len(out)})
}

func (s *Server) handleScoreboard(c *gin.Context) {
	sb, err := s.store.Scoreboard(c.Request.Context())
	if err != nil {
		slog.Error("scoreboard failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}
	c.JSON(http.StatusOK, sb)
}

type createEventRequest struct {
	Title string `json:"title" binding:"required"`
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	e, err := s.store.CreateEvent(c.Request.Context(), req.Title)
	if err != nil {
		slog.Error("create event failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}

	slog.Info("event created via admin", "event_id", e.ID)
	c.JSON(http.StatusCreated, newEventView(e))
}

func (s *Server) handleRunJob(c *gin.Context) {
	name := c.Query("job_name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_name query parameter is required",
			"jobs":  s.runner.JobNames(),
		})
		return
	}

	summary, err := s.runner.Run(c.Request.Context(), name)
	if errors.Is(err, pipeline.ErrUnknownJob) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown job name",
			"jobs":  s.runner.JobNames(),
		})
		return
	}
	if err != nil {
		slog.Error("job run failed", "job_name", name, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "job failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_name": name, "summary": summary})
}
