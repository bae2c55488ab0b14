package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/pkg/response"
	"document-qa/internal/session"
)

// Counter reports how many chunks the index holds
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	session *session.Session
	index   Counter
}

func NewHandler(sess *session.Session, index Counter) *Handler {
	return &Handler{session: sess, index: index}
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer  string `json:"answer"`
	Sources string `json:"sources,omitempty"`
}

func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.Success(c, askResponse{Answer: models.PromptForInput})
		return
	}
	reply := h.session.Ask(c.Request.Context(), req.Question)
	if reply.Failed {
		response.Error(c, http.StatusBadGateway, "answer_failed", reply.Text)
		return
	}
	response.Success(c, askResponse{Answer: reply.Text, Sources: reply.Sources})
}

func (h *Handler) History(c *gin.Context) {
	response.Success(c, h.session.History().Entries())
}

func (h *Handler) Health(c *gin.Context) {
	n, err := h.index.Count(c.Request.Context())
	if err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		response.Error(c, http.StatusServiceUnavailable, "unavailable", "index unavailable")
		return
	}
	response.Success(c, gin.H{"status": "ok", "chunks": n})
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", h.Health)
	api := r.Group("/api")
	api.POST("/ask", h.Ask)
	api.GET("/history", h.History)
}

// NewRouter builds the engine with request logging through zerolog
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	RegisterRoutes(r, h)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID, _ = helper.GenerateUUID()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
		log.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("Request served")
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
