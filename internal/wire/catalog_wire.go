package wire

import (
	"yamdb/internal/adaptor"
	"yamdb/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

// wireCatalog mounts categories and genres: anyone reads, admins write
func wireCatalog(r chi.Router, categoryHandler *adaptor.CategoryHandler, genreHandler *adaptor.GenreHandler) {
	r.Route("/categories", func(r chi.Router) {
		r.Use(middleware.AdminOrReadOnly)

		r.Get("/", categoryHandler.GetCategories)
		r.Post("/", categoryHandler.CreateCategory)
		r.Delete("/{slug}", categoryHandler.DeleteCategory)
	})

	r.Route("/genres", func(r chi.Router) {
		r.Use(middleware.AdminOrReadOnly)

		r.Get("/", genreHandler.GetGenres)
		r.Post("/", genreHandler.CreateGenre)
		r.Delete("/{slug}", genreHandler.DeleteGenre)
	})
}
