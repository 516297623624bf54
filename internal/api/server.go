// Package api serves the uptime-probe status page. It only ever reads
// counters; all state mutation stays on the bot's update path.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"join-warden/internal/approval"
	"join-warden/internal/config"
	"join-warden/internal/security"
	"join-warden/internal/store"
)

type Server struct {
	log     *slog.Logger
	cfg     config.Config
	store   *store.Store
	sweep   *approval.Sweep
	router  *gin.Engine
	limiter *security.LimiterStore
}

func NewServer(log *slog.Logger, cfg config.Config, st *store.Store, sweep *approval.Sweep) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		log:     log,
		cfg:     cfg,
		store:   st,
		sweep:   sweep,
		router:  gin.New(),
		limiter: security.NewLimiterStore(rate.Limit(2), 10, 10*time.Minute),
	}

	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.loggingMiddleware())
	r.Use(s.rateLimitMiddleware())

	r.GET("/", s.status)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.log.Debug("http_request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"code": "rate_limited", "message": "too many requests"},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
