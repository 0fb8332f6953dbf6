package wire

import (
	"yamdb/internal/adaptor"
	"yamdb/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

// wireReview mounts reviews and their comments under a title. Reads are
// public; object ownership is checked by the services.
func wireReview(r chi.Router, reviewHandler *adaptor.ReviewHandler, commentHandler *adaptor.CommentHandler) {
	r.Use(middleware.AuthenticatedOrReadOnly)

	r.Get("/", reviewHandler.GetTitleReviews)
	r.Post("/", reviewHandler.CreateReview)
	r.Get("/{reviewID}", reviewHandler.GetReview)
	r.Patch("/{reviewID}", reviewHandler.UpdateReview)
	r.Delete("/{reviewID}", reviewHandler.DeleteReview)

	r.Route("/{reviewID}/comments", func(r chi.Router) {
		r.Get("/", commentHandler.GetReviewComments)
		r.Post("/", commentHandler.CreateComment)
		r.Get("/{commentID}", commentHandler.GetComment)
		r.Patch("/{commentID}", commentHandler.UpdateComment)
		r.Delete("/{commentID}", commentHandler.DeleteComment)
	})
}
