package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/tagwing/birdtag/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	searchHandler := handlers.NewSearchHandler(s.searcher, s.deps.Detector)
	resolveHandler := handlers.NewResolveHandler(s.searcher)
	tagsHandler := handlers.NewTagsHandler(s.tagger)
	filesHandler := handlers.NewFilesHandler(s.cleaner, s.deps.Blobs)
	subscriptionsHandler := handlers.NewSubscriptionsHandler(s.deps.Notifier)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/search/tags", searchHandler.ByTags)
		r.Post("/search/tags/counts", searchHandler.ByTagCounts)
		r.Post("/search/file", searchHandler.ByFile)

		r.Post("/resolve/thumbnail", resolveHandler.Thumbnail)

		r.Post("/tags", tagsHandler.Mutate)

		r.Post("/files/delete", filesHandler.Delete)
		r.Post("/upload/presign", filesHandler.Presign)

		r.Post("/subscriptions", subscriptionsHandler.Create)
		r.Get("/subscriptions", subscriptionsHandler.List)
	})
}
