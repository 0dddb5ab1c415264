// Package server exposes speech generation, parameter management and the
// style catalog over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"speechwriter/internal/ai"
	"speechwriter/internal/catalog"
	"speechwriter/internal/speech"
)

const requestIDHeader = "X-Request-ID"

// Narration is the optional text-to-speech capability.
type Narration struct {
	Client ai.TTSClient
	Model  string
	Voice  string
}

type Service struct {
	generator *speech.Generator
	params    *speech.ParamStore
	styles    *catalog.Catalog
	narration *Narration

	router *gin.Engine
	server *http.Server
}

// NewService wires handlers onto a fresh gin engine. narration may be nil.
func NewService(generator *speech.Generator, styles *catalog.Catalog, narration *Narration) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		slog.Error("failed to set trusted proxies", "err", err)
	}
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		accessLogMiddleware("/health"),
	)

	s := &Service{
		generator: generator,
		params:    generator.Params(),
		styles:    styles,
		narration: narration,
		router:    router,
		server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.initRouter()
	return s
}

func (s *Service) initRouter() {
	s.router.GET("/health", s.handleHealth)

	model := s.router.Group("/api/model")
	model.POST("/generate_speech", s.handleGenerateSpeech)
	model.POST("/set_model_settings", s.handleSetModelSettings)
	model.GET("/settings", s.handleGetModelSettings)
	model.POST("/narrate", s.handleNarrate)

	styles := s.router.Group("/api/styles")
	styles.POST("", s.handleAddStyles)
	styles.GET("", s.handleGetStyles)
	styles.PUT("", s.handleUpdateStyle)
}

func (s *Service) Router() *gin.Engine {
	return s.router
}

// ListenAndServe blocks until the server stops.
func (s *Service) ListenAndServe(addr string) error {
	s.server.Addr = addr
	slog.Info("starting HTTP server", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	slog.Info("HTTP server stopped")
	return nil
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLogMiddleware(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if skip[c.Request.URL.Path] {
			return
		}
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String(),
			"requestID", c.GetString("requestID"),
		)
	}
}
