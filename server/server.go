package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auto_tweet_agent/agent"
	"auto_tweet_agent/failure"
	"auto_tweet_agent/logging"
)

const defaultRequestTimeout = 90 * time.Second

// Options configure the HTTP surface.
type Options struct {
	// CronSecret, when set, must be presented as "Authorization: Bearer <secret>" on /api/agent.
	CronSecret     string
	RequestTimeout time.Duration
	Registry       *prometheus.Registry
	Logger         logging.Logger
}

type Server struct {
	orch           *agent.Orchestrator
	cronSecret     string
	requestTimeout time.Duration
	registry       *prometheus.Registry
	httpMetrics    *httpMetrics
	logger         logging.Logger
}

func New(orch *agent.Orchestrator, opts Options) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	s := &Server{
		orch:           orch,
		cronSecret:     opts.CronSecret,
		requestTimeout: opts.RequestTimeout,
		registry:       opts.Registry,
		logger:         opts.Logger,
	}
	if opts.Registry != nil {
		s.httpMetrics = newHTTPMetrics(opts.Registry)
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(s.logger))
	router.Use(recoveryMiddleware(s.logger))
	if s.httpMetrics != nil {
		router.Use(s.httpMetrics.middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if s.registry != nil {
		handler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
		router.GET("/metrics", gin.WrapH(handler))
	}

	api := router.Group("/api")
	api.POST("/preview", s.handlePreview)
	api.GET("/agent", s.handleAgent)
	api.POST("/tweet", s.handleTweet)
	api.GET("/status", s.handleStatus)
	return router
}

// --- Handlers ---

type previewReq struct {
	Topic string `json:"topic"`
}

type tweetReq struct {
	Tweet    string         `json:"tweet"`
	Metadata map[string]any `json:"metadata"`
	Topic    string         `json:"topic"`
}

func (s *Server) handlePreview(c *gin.Context) {
	var req previewReq
	// a malformed or empty body means "no topic"
	_ = c.ShouldBindJSON(&req)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()
	draft, err := s.orch.Preview(ctx, req.Topic)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure.Message(err)})
		return
	}
	if draft.Metadata == nil {
		draft.Metadata = map[string]any{}
	}
	c.JSON(http.StatusOK, draft)
}

func (s *Server) handleAgent(c *gin.Context) {
	if !s.cronAuthorized(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, agent.Outcome{OK: false, Error: "unauthorized"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()
	writeOutcome(c, s.orch.PublishFromTopic(ctx, c.Query("topic"), agent.TriggerCron))
}

func (s *Server) handleTweet(c *gin.Context) {
	var req tweetReq
	_ = c.ShouldBindJSON(&req)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()
	writeOutcome(c, s.orch.Publish(ctx, agent.ManualRequest{
		Tweet:    req.Tweet,
		Metadata: req.Metadata,
		Topic:    req.Topic,
	}))
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.Status(c.Request.Context()))
}

// --- Helpers ---

func writeOutcome(c *gin.Context, out agent.Outcome) {
	if out.RunID != "" {
		c.Header("X-Run-ID", out.RunID)
	}
	if !out.OK {
		c.JSON(http.StatusInternalServerError, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) cronAuthorized(header string) bool {
	if s.cronSecret == "" {
		return true
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) == 1
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.requestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Server stopped")
	return nil
}
