// Package api exposes the studio over HTTP: a stateless generate endpoint
// plus REST resources for profiles, samples, styles, and outputs.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/studio"
)

// Server handles HTTP API requests.
type Server struct {
	studio         *studio.Studio
	log            *logger.Logger
	server         *http.Server
	uploadsDir     string
	maxUploadBytes int64
	defaults       core.SynthesisOptions
}

// Options configures the HTTP server.
type Options struct {
	Port           int
	UploadsDir     string
	MaxUploadBytes int64
	Timeout        time.Duration

	// Defaults fill in synthesis options a request leaves unset.
	Defaults core.SynthesisOptions
}

// New creates the API server and registers its routes.
func New(st *studio.Studio, log *logger.Logger, opts Options) *Server {
	s := &Server{
		studio:         st,
		log:            log,
		uploadsDir:     opts.UploadsDir,
		maxUploadBytes: opts.MaxUploadBytes,
		defaults:       opts.Defaults,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.routes(),
		ReadTimeout:       opts.Timeout,
		WriteTimeout:      opts.Timeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the route table. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /generate", s.handleGenerate)

	mux.HandleFunc("GET /v1/presets", s.handlePresets)

	mux.HandleFunc("POST /v1/profiles", s.handleCreateProfile)
	mux.HandleFunc("GET /v1/profiles", s.handleListProfiles)
	mux.HandleFunc("GET /v1/profiles/{name}", s.handleGetProfile)

	mux.HandleFunc("POST /v1/profiles/{name}/samples", s.handleAddSample)
	mux.HandleFunc("GET /v1/profiles/{name}/samples", s.handleListSamples)

	mux.HandleFunc("POST /v1/profiles/{name}/styles", s.handleAddStyle)
	mux.HandleFunc("GET /v1/profiles/{name}/styles", s.handleListStyles)

	mux.HandleFunc("POST /v1/profiles/{name}/generate", s.handleProfileGenerate)
	mux.HandleFunc("GET /v1/profiles/{name}/outputs", s.handleListOutputs)
	mux.HandleFunc("GET /v1/profiles/{name}/outputs/{output}", s.handleGetOutput)

	return mux
}

// Start begins listening for HTTP requests. It blocks until the server
// stops.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.server.Addr)

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}
