// Package server wires the dispatcher, the engine adapter, the chat
// template, the thinking/tool-call parsers and the SSE framer into the
// gateway's HTTP routing table. Grounded on the teacher's gin-based
// server/routes.go and on middleware/openai.go's response-wrapping
// pattern, folded in here rather than kept as a separate middleware
// package, since nothing else in this repository needs it.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fastllm/gateway/api"
	"github.com/fastllm/gateway/config"
	"github.com/fastllm/gateway/dispatcher"
	"github.com/fastllm/gateway/engine"
	"github.com/fastllm/gateway/stats"
	"github.com/fastllm/gateway/template"
	"github.com/fastllm/gateway/toolcall"
)

// Version is the gateway's reported build version, overridden at build
// time via -ldflags the way the teacher stamps its own version string.
var Version = "dev"

// Server holds every long-lived dependency a handler needs. It is built
// once by cmd and never mutated except for the conversation registry used
// by the dev-only cancel endpoint.
type Server struct {
	cfg        config.Config
	engine     engine.Engine
	dispatcher *dispatcher.Dispatcher
	template   *template.Template
	dialect    toolcall.Dialect
	stats      *stats.Recorder
	startedAt  time.Time

	mu            sync.Mutex
	conversations map[string]context.CancelFunc
}

// New constructs a Server. tmpl is fixed for the process's lifetime,
// matching the gateway's single-model design. dialect selects the
// tool-call wire format to parse model output against; pass
// toolcall.DialectUnknown (the default from cmd) to have each request's
// stream detect its own dialect instead of fixing one up front.
func New(cfg config.Config, eng engine.Engine, tmpl *template.Template, dialect toolcall.Dialect) *Server {
	if tmpl == nil {
		tmpl = template.Default
	}
	rec := stats.New(cfg.MaxActive)
	rec.SetModelLoaded(eng.Ready(context.Background()) == nil, cfg.EmbeddingPath != "")

	return &Server{
		cfg:           cfg,
		engine:        eng,
		dispatcher:    dispatcher.New(cfg.MaxActive, cfg.MaxQueued),
		template:      tmpl,
		dialect:       dialect,
		stats:         rec,
		startedAt:     time.Now(),
		conversations: make(map[string]context.CancelFunc),
	}
}

// Handler builds the gin engine and registers every route in the gateway's
// routing table. Unknown routes fall through to gin's default 404, which
// the teacher's own router leaves unhandled the same way.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.logMiddleware(), s.corsMiddleware(), s.responseHeaderMiddleware())

	r.GET("/health", s.handleHealth)
	r.GET("/v1/health", s.handleHealth)
	r.GET("/version", s.handleVersion)
	r.GET("/v1/models", s.auth(), s.handleModels)
	r.POST("/v1/chat/completions", s.auth(), s.handleChatCompletions)
	r.POST("/v1/completions", s.auth(), s.handleCompletions)
	r.POST("/v1/embeddings", s.auth(), s.handleEmbeddings)
	r.POST("/v1/rerank", s.auth(), s.handleRerank)
	r.POST("/tokenize", s.auth(), s.handleTokenize)
	r.POST("/detokenize", s.auth(), s.handleDetokenize)
	r.GET("/slots", s.auth(), s.handleSlots)
	r.GET("/props", s.auth(), s.handleProps)
	r.GET("/metrics", s.auth(), s.handleMetrics)

	if s.cfg.DevMode {
		r.POST("/v1/cancel", s.auth(), s.handleCancel)
		r.GET("/v1/active_conversations", s.auth(), s.handleActiveConversations)
	} else {
		r.POST("/v1/cancel", s.auth(), s.handleDevDisabled)
		r.GET("/v1/active_conversations", s.auth(), s.handleDevDisabled)
	}

	return r
}

// Serve runs the HTTP server on cfg.Addr() until ctx is cancelled, then
// shuts it down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{Addr: s.cfg.Addr(), Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("shutting down", "addr", s.cfg.Addr())
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (s *Server) responseHeaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Server", "fastllm api server")
		c.Next()
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
		} else {
			c.Header("Access-Control-Allow-Origin", "*")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.AllowOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.AllowOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// auth rejects requests missing a valid Bearer token when an API key is
// configured, exempting /health, /v1/health and /version per the
// gateway's auth rule -- those three never reach a route registered with
// auth() in the first place, so this only needs the Bearer check itself.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.APIKey == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token != s.cfg.APIKey {
			writeError(c, api.ErrUnauthorized("invalid API key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
