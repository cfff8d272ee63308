// Package server exposes the live session over HTTP: entity and signal
// tables, recent events, analysis on demand, signal injection, and the
// WebSocket event stream.
package server

import (
	"encoding/binary"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/reactorctl/internal/auth"
	"github.com/danmuck/reactorctl/internal/blackbox"
	"github.com/danmuck/reactorctl/internal/monitor"
	"github.com/danmuck/reactorctl/internal/observability"
	"github.com/danmuck/reactorctl/internal/protocol/frame"
	"github.com/danmuck/reactorctl/internal/shell"
	"github.com/danmuck/reactorctl/internal/trace"
	"github.com/danmuck/reactorctl/internal/ws"
)

var ErrUnknownCommand = errors.New("server: unknown command")

type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	mon       *monitor.Monitor
	hub       *ws.Hub
	router    *gin.Engine
	validator auth.Validator
}

// New builds the API server. A non-empty apiToken puts the mutating
// endpoints behind bearer authentication; read endpoints stay open.
func New(name, addr string, corsOrigins []string, apiToken string, mon *monitor.Monitor, hub *ws.Hub) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:     name,
		Addr:     addr,
		Appeared: time.Now(),
		mon:      mon,
		hub:      hub,
		router:   r,
	}
	if apiToken != "" {
		s.validator = auth.StaticToken{Token: apiToken}
	}
	return s
}

// requireAuth rejects requests without a valid bearer token. With no
// validator configured it is a no-op.
func (s *Server) requireAuth(c *gin.Context) {
	if s.validator == nil {
		return
	}
	token, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}
	if err := s.validator.Validate(token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

type nameEntry struct {
	ID   uint16 `json:"id"`
	Name string `json:"name"`
}

type injectRequest struct {
	SignalID uint16 `json:"signal_id" binding:"required"`
	SrcID    uint16 `json:"src_id"`
	Payload  uint32 `json:"payload"`
}

type commandRequest struct {
	Command string `json:"command" binding:"required"`
	ParamID uint16 `json:"param_id"`
	Value   string `json:"value"`
}

func (s *Server) RegisterRoutes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"name":    s.Name,
			"version": "0.1.0",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/entities", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"entities": sortedNames(s.mon.Names().Entities())})
	})

	r.GET("/signals", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"signals": sortedNames(s.mon.Names().Signals())})
	})

	r.GET("/events", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"events": s.mon.Records()})
	})

	r.GET("/stats", func(c *gin.Context) {
		streamStats, textStats := s.mon.Stats()
		c.JSON(http.StatusOK, gin.H{
			"stream": gin.H{
				"frames_decoded":  streamStats.FramesDecoded,
				"checksum_errors": streamStats.ChecksumErrors,
				"bytes_dropped":   streamStats.BytesDropped,
				"bytes_consumed":  streamStats.BytesConsumed,
			},
			"text": gin.H{
				"messages": textStats.Messages,
				"dropped":  textStats.Dropped,
			},
		})
	})

	r.GET("/issues", func(c *gin.Context) {
		a := s.mon.Analyze()
		c.JSON(http.StatusOK, gin.H{"issues": a.Issues})
	})

	r.GET("/memory", func(c *gin.Context) {
		mem, ok := s.mon.Memory()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no memory report received yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"free_heap":     mem.FreeHeap,
			"min_free_heap": mem.MinFreeHeap,
		})
	})

	// With an empty body the analysis runs over the live event ring; a
	// non-empty body is decoded as a black box dump (raw or hex) and
	// analyzed with the session's name tables.
	r.POST("/analyze", s.requireAuth, func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(body) == 0 {
			c.JSON(http.StatusOK, s.mon.Analyze())
			return
		}
		dump, err := blackbox.Decode(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, trace.Analyze(trace.FromBlackbox(dump), s.mon.Names()))
	})

	r.POST("/inject", s.requireAuth, func(c *gin.Context) {
		var req injectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sig := frame.Signal{ID: req.SignalID, SrcID: req.SrcID}
		binary.LittleEndian.PutUint32(sig.Payload[:], req.Payload)
		if err := s.mon.SendSignal(sig); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		log.Info().
			Uint16("signal_id", req.SignalID).
			Uint16("src_id", req.SrcID).
			Msg("signal injected")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/command", s.requireAuth, func(c *gin.Context) {
		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cmd, err := buildCommand(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.mon.SendCommand(cmd); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.hub != nil {
		r.GET("/ws", gin.WrapH(s.hub.Handler()))
	}
}

// buildCommand maps the API command vocabulary onto shell wire commands.
func buildCommand(req commandRequest) ([]byte, error) {
	switch req.Command {
	case "list":
		return shell.ListEntities(), nil
	case "status":
		return shell.Status(), nil
	case "trace_start":
		return shell.TraceStart(), nil
	case "trace_stop":
		return shell.TraceStop(), nil
	case "trace_dump":
		return shell.TraceDump(), nil
	case "param_get":
		return shell.ParamGet(req.ParamID), nil
	case "param_set":
		if req.Value == "" {
			return nil, errors.New("server: param_set requires value")
		}
		return shell.ParamSet(req.ParamID, req.Value), nil
	}
	return nil, ErrUnknownCommand
}

func (s *Server) Serve() error {
	s.RegisterRoutes()
	return s.router.Run(s.Addr)
}

func sortedNames(m map[uint16]string) []nameEntry {
	out := make([]nameEntry, 0, len(m))
	for id, name := range m {
		out = append(out, nameEntry{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
