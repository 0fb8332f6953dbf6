package wire

import (
	"yamdb/internal/adaptor"
	"yamdb/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

func wireAuth(r chi.Router, authHandler *adaptor.AuthHandler, config *utils.Config) {
	r.Route("/auth", func(r chi.Router) {
		// both endpoints are public, so they are limited per client IP
		if config.RateLimit.Requests > 0 {
			r.Use(httprate.LimitByIP(config.RateLimit.Requests, config.RateLimit.Window))
		}

		r.Post("/signup", authHandler.SignUp) // POST /api/v1/auth/signup
		r.Post("/token", authHandler.Token)   // POST /api/v1/auth/token
	})
}
