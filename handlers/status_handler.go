// handlers/status_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/models"
)

const pingTimeout = 2 * time.Second

// RunHistory yields the most recent run, or nil when none has happened.
type RunHistory interface {
	LastRun(ctx context.Context) (*models.RunSummary, error)
}

// Pinger checks a backing dependency, e.g. *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// TriggerFunc runs the pipeline now and reports whether it ran; false means
// a run was already in flight.
type TriggerFunc func(ctx context.Context) bool

// StatusHandler serves health, run status and metrics.
type StatusHandler struct {
	history  RunHistory
	db       Pinger
	trigger  TriggerFunc
	gatherer prometheus.Gatherer
	log      logger.Logger
	started  time.Time
}

// NewStatusHandler wires the handler. db and trigger may be nil; a nil
// gatherer serves the default registry.
func NewStatusHandler(history RunHistory, db Pinger, trigger TriggerFunc, gatherer prometheus.Gatherer, log logger.Logger) *StatusHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &StatusHandler{
		history:  history,
		db:       db,
		trigger:  trigger,
		gatherer: gatherer,
		log:      log,
		started:  time.Now(),
	}
}

func respondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// Register mounts the routes on r.
func (h *StatusHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/runs/last", h.LastRun)
	if h.trigger != nil {
		api.POST("/runs", h.TriggerRun)
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
}

// NewRouter builds a gin engine with recovery and request logging.
func NewRouter(h *StatusHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())
	h.Register(r)
	return r
}

func (h *StatusHandler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Debug("HTTP request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)))
	}
}

// Health reports process uptime and, when a database is configured, its reachability.
func (h *StatusHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.log.Warn("Health check failed, database unreachable", logger.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database connection error"})
			return
		}
		body["database"] = "ok"
	}
	c.JSON(http.StatusOK, body)
}

// LastRun returns the most recent run summary.
func (h *StatusHandler) LastRun(c *gin.Context) {
	run, err := h.history.LastRun(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to load last run", logger.Error(err))
		respondWithError(c, http.StatusInternalServerError, "failed to load last run")
		return
	}
	if run == nil {
		respondWithError(c, http.StatusNotFound, "no runs recorded yet")
		return
	}
	c.JSON(http.StatusOK, run)
}

// TriggerRun runs the pipeline synchronously and returns its summary. The
// run is detached from the request so a client disconnect cannot cancel it.
func (h *StatusHandler) TriggerRun(c *gin.Context) {
	if !h.trigger(context.WithoutCancel(c.Request.Context())) {
		respondWithError(c, http.StatusConflict, "a run is already in progress")
		return
	}
	h.LastRun(c)
}
