// Package server hosts agents over HTTP: SWML documents, SWAIG callbacks,
// health checks, the handoff admin API and the static web directory.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"call-screening/internal/agent"
	"call-screening/internal/auth"
	"call-screening/internal/httpapi"
	"call-screening/internal/swaig"
	"call-screening/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// TokenManager issues and verifies per-session tool tokens. *auth.TokenManager implements it.
type TokenManager interface {
	agent.TokenIssuer
	Verify(token, sessionID, function string, now time.Time) (auth.ToolClaims, error)
}

// Check reports whether one dependency (redis, postgres) is reachable.
type Check func(ctx context.Context) error

type Options struct {
	Logger *slog.Logger

	URLs   agent.URLResolver
	Tokens TokenManager

	BasicAuthUser     string
	BasicAuthPassword string

	// WebDir is served for unmatched GET/HEAD requests when it exists.
	WebDir      string
	CORSOrigins []string

	// Admin enables the /v1 handoff API when set.
	Admin *httpapi.Handlers

	ReadyChecks map[string]Check

	Now func() time.Time
}

// Server is the AgentServer: a gin engine with agents mounted on their routes.
type Server struct {
	opts      Options
	engine    *gin.Engine
	basicAuth gin.HandlerFunc

	agents []*agent.Agent
	routes map[string]*agent.Agent
}

func New(opts Options) (*Server, error) {
	if opts.URLs == nil {
		return nil, errors.New("server: url resolver is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		opts:      opts,
		engine:    gin.New(),
		basicAuth: auth.RequireBasicAuth(opts.BasicAuthUser, opts.BasicAuthPassword),
		routes:    map[string]*agent.Agent{},
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(logger.Middleware(opts.Logger, "/health", "/ready"))
	if len(opts.CORSOrigins) > 0 {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = opts.CORSOrigins
		cc.AllowHeaders = append(cc.AllowHeaders, "Authorization")
		s.engine.Use(cors.New(cc))
	}

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)

	if opts.Admin != nil {
		v1 := s.engine.Group("/v1", s.basicAuth)
		{
			v1.GET("/handoffs", opts.Admin.ListHandoffs)
			v1.GET("/handoffs/summary", opts.Admin.HandoffSummary)
			v1.GET("/handoffs/:call_id", opts.Admin.GetHandoff)
		}
	}

	s.engine.NoRoute(s.handleStatic())
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Agents returns the registered agents in registration order.
func (s *Server) Agents() []*agent.Agent {
	out := make([]*agent.Agent, len(s.agents))
	copy(out, s.agents)
	return out
}

// Register mounts an agent. Each route may host one agent.
func (s *Server) Register(a *agent.Agent) error {
	if a == nil {
		return errors.New("server: nil agent")
	}
	route := a.Route()
	if prev, ok := s.routes[route]; ok {
		return fmt.Errorf("server: route %s already serves %s", route, prev.Name())
	}
	s.routes[route] = a
	s.agents = append(s.agents, a)

	swmlHandler := s.handleSWML(a)
	swaigHandler := s.handleSWAIG(a)

	paths := []string{route}
	if route != "/" {
		paths = append(paths, route+"/")
	}
	for _, p := range paths {
		s.engine.GET(p, s.basicAuth, swmlHandler)
		s.engine.POST(p, s.basicAuth, swmlHandler)
	}
	s.engine.POST(a.SWAIGRoute(), s.basicAuth, swaigHandler)
	s.engine.POST(a.SWAIGRoute()+"/", s.basicAuth, swaigHandler)

	s.opts.Logger.Debug("agent registered", "agent", a.Name(), "route", route)
	return nil
}

func (s *Server) handleSWML(a *agent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := a.Render(c.Request.Context(), c.Request, s.opts.URLs, s.opts.Tokens, s.opts.Now())
		if err != nil {
			logger.FromGin(c).Error("swml render failed", "agent", a.Name(), "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func (s *Server) handleSWAIG(a *agent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c).With("agent", a.Name())

		req, err := swaig.ParseRequest(c.Request.Body)
		if err != nil {
			log.Warn("swaig request rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		if req.Action == swaig.ActionGetSignature {
			fns, err := a.Signatures(c.Request, s.opts.URLs, s.opts.Tokens, s.opts.Now(), req.Functions)
			if err != nil {
				log.Error("signature render failed", "err", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "signature failed"})
				return
			}
			c.JSON(http.StatusOK, fns)
			return
		}

		tool, ok := a.Tool(req.Function)
		if !ok {
			log.Warn("unknown function", "function", req.Function)
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown function"})
			return
		}
		if tool.Secure && s.opts.Tokens != nil {
			_, err := s.opts.Tokens.Verify(c.Query(agent.TokenParam), c.Query(agent.SessionParam), tool.Name, s.opts.Now())
			if err != nil {
				log.Warn("tool token rejected", "function", tool.Name, "err", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid tool token"})
				return
			}
		}

		ctx := agent.WithRequest(c.Request.Context(), c.Request)
		res, err := a.Dispatch(ctx, req)
		switch {
		case errors.Is(err, swaig.ErrUnknownFunction):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown function"})
			return
		case err != nil:
			log.Error("function failed", "function", req.Function, "call_id", req.CallID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "function failed"})
			return
		}

		log.Info("function executed", "function", req.Function, "call_id", req.CallID, "actions", len(res.Actions))
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	names := make([]string, 0, len(s.agents))
	for _, a := range s.agents {
		names = append(names, a.Name())
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "agents": names})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.opts.ReadyChecks))
	for name := range s.opts.ReadyChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := gin.H{}
	for _, name := range names {
		if err := s.opts.ReadyChecks[name](ctx); err != nil {
			logger.FromGin(c).Warn("readiness check failed", "check", name, "err", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// handleStatic serves the web directory (hold music, index.html) without auth.
// The directory is checked per request so it can be created after startup.
func (s *Server) handleStatic() gin.HandlerFunc {
	fs := http.FileServer(http.Dir(s.opts.WebDir))
	return func(c *gin.Context) {
		if s.opts.WebDir == "" || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if fi, err := os.Stat(s.opts.WebDir); err != nil || !fi.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		fs.ServeHTTP(c.Writer, c.Request)
	}
}
