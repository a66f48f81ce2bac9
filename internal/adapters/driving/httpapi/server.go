package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

// Config configures the HTTP server.
type Config struct {
	// WebhookSecret is the shared HMAC secret for CMS webhooks.
	WebhookSecret string

	// AdminToken guards the admin endpoints. Empty leaves them open.
	AdminToken string

	// AllowedTypes lists document types forwarded from webhooks. Empty means all.
	AllowedTypes []domain.SourceType

	Debug bool
}

// Server is the gin based HTTP ingress.
type Server struct {
	cfg       Config
	engine    *gin.Engine
	server    *http.Server
	sync      driving.Synchronizer
	retriever driving.Retriever
	index     driving.IndexService
}

// NewServer creates a server. retriever and index may be nil, in which case
// their routes answer 503.
func NewServer(
	cfg Config,
	sync driving.Synchronizer,
	retriever driving.Retriever,
	index driving.IndexService,
) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		engine:    gin.New(),
		sync:      sync,
		retriever: retriever,
		index:     index,
	}
	s.registerMiddlewares()
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerMiddlewares() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(loggingMiddleware())
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.POST("/webhooks/cms", s.handleWebhook)
		api.POST("/retrieve", s.handleRetrieve)

		admin := api.Group("/admin", s.adminAuth())
		{
			admin.GET("/sync", s.handleAdminStats)
			admin.POST("/sync", s.handleAdminSync)
		}
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on %s", addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// adminAuth requires "Authorization: Bearer <token>" when a token is configured.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminToken == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || !tokenMatches(strings.TrimSpace(token), s.cfg.AdminToken) {
			fail(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// tokenMatches compares in constant time so response timing leaks nothing about the token.
func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
}

func (s *Server) allowed(t domain.SourceType) bool {
	if len(s.cfg.AllowedTypes) == 0 {
		return true
	}
	for _, a := range s.cfg.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}

// fail writes the error envelope.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// failErr maps err to a status code and writes the error envelope.
func failErr(c *gin.Context, err error) {
	fail(c, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrVectorStoreUnavailable),
		errors.Is(err, domain.ErrContentSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
