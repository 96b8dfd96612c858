package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/bgtimer/internal/metrics"
	"github.com/loykin/bgtimer/internal/monitor"
	"github.com/loykin/bgtimer/internal/registry"
)

// Router provides embeddable HTTP handlers over the timer registry.
// Endpoints:
//   GET    {basePath}/timers         live timers (expired ones are reaped)
//   GET    {basePath}/timers/:id     one live timer
//   DELETE {basePath}/timers/:id     terminate one timer and drop its record
//   DELETE {basePath}/timers         terminate every live timer
//   GET    {basePath}/history        query: limit=N (default 20), newest first
//   GET    /metrics                  prometheus
// basePath may be empty or start with '/'; no trailing slash.

// HistoryStore is the read side of the timer history.
type HistoryStore interface {
	ListHistory(ctx context.Context, limit int) ([]registry.HistoryEntry, error)
}

// Router serves the timers API over a Monitor and the registry history.
type Router struct {
	mon      *monitor.Monitor
	history  HistoryStore
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/timers, /api/history.
func NewRouter(mon *monitor.Monitor, history HistoryStore, basePath string) *Router {
	return &Router{mon: mon, history: history, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	group := g.Group(r.basePath)
	group.GET("/timers", r.handleList)
	group.GET("/timers/:id", r.handleGet)
	group.DELETE("/timers/:id", r.handleKill)
	group.DELETE("/timers", r.handleKillAll)
	group.GET("/history", r.handleHistory)
	return g
}

// NewServer binds addr and serves this router in the background. Bind errors
// are returned; the caller shuts the server down with Shutdown or Close.
func NewServer(addr string, r *Router) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.Serve(ln) }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type killAllResp struct {
	Killed int `json:"killed"`
}

func (r *Router) handleList(c *gin.Context) {
	f, err := r.mon.Snapshot(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, f)
}

func (r *Router) handleGet(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	f, err := r.mon.Snapshot(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	row, ok := f.Find(id)
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "timer not found"})
		return
	}
	writeJSON(c, http.StatusOK, row)
}

func (r *Router) handleKill(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	ctx := c.Request.Context()
	f, err := r.mon.Snapshot(ctx)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if err := r.mon.Kill(ctx, id, f); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, registry.ErrNotFound) {
			code = http.StatusNotFound
		}
		writeJSON(c, code, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleKillAll(c *gin.Context) {
	ctx := c.Request.Context()
	f, err := r.mon.Snapshot(ctx)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	n, err := r.mon.KillAll(ctx, f)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, killAllResp{Killed: n})
}

func (r *Router) handleHistory(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	entries, err := r.history.ListHistory(c.Request.Context(), limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, entries)
}
