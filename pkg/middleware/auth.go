package middleware

import (
	"net/http"
	"strings"

	"yamdb/internal/data/repository"
	"yamdb/pkg/utils"

	"go.uber.org/zap"
)

// Authenticate resolves a Bearer token into a Principal on the request
// context. Requests without a token pass through anonymously; a present but
// invalid token is rejected. The role is read from the database so role
// changes apply to tokens already issued.
func Authenticate(jwt *utils.JWTManager, userRepo repository.UserRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			token := parts[1]

			claims, err := jwt.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token", zap.Error(err))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				utils.ResponseUnauthorized(w, "Invalid token subject")
				return
			}

			user, err := userRepo.FindByID(r.Context(), userID)
			if err != nil {
				logger.Error("Failed to load token user",
					zap.Error(err),
					zap.String("user_id", userID.String()))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}

			if user == nil || !user.IsActive {
				logger.Warn("Token for unknown or inactive user", zap.String("user_id", userID.String()))
				utils.ResponseUnauthorized(w, "User not found or inactive")
				return
			}

			ctx := utils.SetPrincipalContext(r.Context(), utils.Principal{
				UserID:      user.ID,
				Username:    user.Username,
				Role:        string(user.Role),
				IsSuperuser: user.IsSuperuser,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.ResponseUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOnly allows admins and superusers.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := utils.GetPrincipalFromContext(r.Context())
		if !ok {
			utils.ResponseUnauthorized(w, "Authentication required")
			return
		}
		if !p.IsAdmin() {
			utils.ResponseForbidden(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOrReadOnly lets anyone read and only admins write.
func AdminOrReadOnly(next http.Handler) http.Handler {
	admin := AdminOnly(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		admin.ServeHTTP(w, r)
	})
}

// AuthenticatedOrReadOnly lets anyone read and any signed-in user write.
// Ownership of the target object is checked by the service.
func AuthenticatedOrReadOnly(next http.Handler) http.Handler {
	authed := RequireAuth(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		authed.ServeHTTP(w, r)
	})
}
