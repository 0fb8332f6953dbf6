package wire

import (
	"yamdb/internal/adaptor"
	"yamdb/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

// wireTitle mounts titles with their nested reviews and comments
func wireTitle(r chi.Router, handler *adaptor.Handler) {
	r.Route("/titles", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOrReadOnly)

			r.Get("/", handler.Title.GetTitles) // GET /api/v1/titles?category=&genre=&name=&year=
			r.Post("/", handler.Title.CreateTitle)
			r.Get("/{titleID}", handler.Title.GetTitleByID)
			r.Patch("/{titleID}", handler.Title.UpdateTitle)
			r.Delete("/{titleID}", handler.Title.DeleteTitle)
		})

		r.Route("/{titleID}/reviews", func(r chi.Router) {
			wireReview(r, handler.Review, handler.Comment)
		})
	})
}
