package wire

import (
	"yamdb/internal/adaptor"
	"yamdb/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

// wireUser mounts the profile endpoints and admin user management
func wireUser(r chi.Router, userHandler *adaptor.UserHandler) {
	r.Route("/users", func(r chi.Router) {
		// any authenticated user, static path wins over {username}
		r.With(middleware.RequireAuth).Get("/me", userHandler.GetMe)
		r.With(middleware.RequireAuth).Patch("/me", userHandler.UpdateMe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOnly)

			r.Get("/", userHandler.GetAllUsers) // GET /api/v1/users?search=&page=1
			r.Post("/", userHandler.CreateUser)
			r.Get("/{username}", userHandler.GetUser)
			r.Patch("/{username}", userHandler.UpdateUser)
			r.Delete("/{username}", userHandler.DeleteUser)
		})
	})
}
