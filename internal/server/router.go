// Package server exposes the supervisor over a small HTTP control API so
// an operator can inspect and drive instances without a shell on the box.
// Single-host; binds loopback by default.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"parkwarden/internal/config"
	"parkwarden/internal/errdefs"
	"parkwarden/internal/history"
	"parkwarden/internal/metrics"
	"parkwarden/internal/schedule"
	"parkwarden/internal/supervisor"
)

// Router provides the HTTP handlers.
// Endpoints:
//
//	GET  /api/servers              running instances (process-table view)
//	GET  /api/configs              configuration store contents
//	POST /api/servers/:name/start  launch a named configuration
//	POST /api/servers/stop         query: pid=... or name=...
//	GET  /api/history              query: name=..., limit=...
//	GET  /api/scheduled            raw crontab lines
//	GET  /metrics                  Prometheus metrics
type Router struct {
	sup   *supervisor.Supervisor
	store *config.Store
	hist  *history.DB      // optional
	sched *schedule.Bridge // optional
	log   *slog.Logger
}

func NewRouter(sup *supervisor.Supervisor, store *config.Store, hist *history.DB, sched *schedule.Bridge, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{sup: sup, store: store, hist: hist, sched: sched, log: log}
}

// Handler returns an http.Handler powered by gin.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	api := g.Group("/api")
	api.GET("/servers", r.handleServers)
	api.GET("/configs", r.handleConfigs)
	api.POST("/servers/:name/start", r.handleStart)
	api.POST("/servers/stop", r.handleStop)
	api.GET("/history", r.handleHistory)
	api.GET("/scheduled", r.handleScheduled)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr string, r *Router) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("http server failed", "addr", addr, "err", err)
		}
	}()
	return srv
}

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleServers(c *gin.Context) {
	insts, err := r.sup.ListRunning()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, insts)
}

func (r *Router) handleConfigs(c *gin.Context) {
	m, err := r.store.Load()
	if err != nil {
		// degraded store still serves the (empty) mapping, but flag it
		r.log.Warn("configuration store degraded", "err", err)
	}
	c.JSON(http.StatusOK, m)
}

func (r *Router) handleStart(c *gin.Context) {
	name := c.Param("name")
	cfg, err := r.store.Get(name)
	if err != nil {
		c.JSON(statusFor(err), errorResp{Error: err.Error()})
		return
	}
	inst, err := r.sup.Start(cfg)
	if err != nil {
		c.JSON(statusFor(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (r *Router) handleStop(c *gin.Context) {
	if name := c.Query("name"); name != "" {
		if err := r.sup.StopName(name); err != nil {
			c.JSON(statusFor(err), errorResp{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	pid, err := strconv.Atoi(c.Query("pid"))
	if err != nil || pid <= 0 {
		c.JSON(http.StatusBadRequest, errorResp{Error: "pid or name query parameter required"})
		return
	}
	if err := r.sup.Stop(pid); err != nil {
		c.JSON(statusFor(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.hist == nil {
		c.JSON(http.StatusNotImplemented, errorResp{Error: "history disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	var (
		evs []history.Event
		err error
	)
	if name := c.Query("name"); name != "" {
		evs, err = r.hist.ByName(ctx, name, limit)
	} else {
		evs, err = r.hist.Recent(ctx, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, evs)
}

func (r *Router) handleScheduled(c *gin.Context) {
	if r.sched == nil {
		c.JSON(http.StatusNotImplemented, errorResp{Error: "scheduling disabled"})
		return
	}
	lines, err := r.sched.ListScheduled()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, lines)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errdefs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errdefs.ErrInvalidConfig), errors.Is(err, errdefs.ErrScheduleParse):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrLaunch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
