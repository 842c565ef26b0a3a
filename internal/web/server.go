// Package web exposes the tag store over HTTP.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tagwing/birdtag/internal/blobstore"
	"github.com/tagwing/birdtag/internal/cleanup"
	"github.com/tagwing/birdtag/internal/detect"
	"github.com/tagwing/birdtag/internal/notify"
	"github.com/tagwing/birdtag/internal/search"
	"github.com/tagwing/birdtag/internal/tagging"
	"github.com/tagwing/birdtag/internal/tagstore"
	"github.com/tagwing/birdtag/internal/web/middleware"
)

// Deps bundles the collaborators the HTTP surface is built on.
type Deps struct {
	Store    tagstore.Store
	Blobs    blobstore.Store
	Detector detect.Detector
	Notifier *notify.Notifier
}

// Server represents the web server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	searcher *search.Engine
	tagger   *tagging.Engine
	cleaner  *cleanup.Cleaner
	deps     Deps
}

// NewServer creates a new web server.
func NewServer(host string, port int, deps Deps) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:   r,
		searcher: search.NewEngine(deps.Store),
		tagger:   tagging.NewEngine(deps.Store),
		cleaner:  cleanup.NewCleaner(deps.Store, deps.Blobs),
		deps:     deps,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
