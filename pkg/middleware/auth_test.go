package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"yamdb/internal/data/entity"
	"yamdb/internal/data/repository"
	"yamdb/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubUsers struct {
	repository.UserRepository
	users map[uuid.UUID]*entity.User
}

func (s *stubUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return s.users[id], nil
}

func newUser(role entity.UserRole) *entity.User {
	u := &entity.User{Base: entity.Base{ID: uuid.New()}, Username: string(role) + "-user", Role: role}
	u.BeforeSave()
	return u
}

type authFixture struct {
	jwt   *utils.JWTManager
	users *stubUsers
}

func newAuthFixture(t *testing.T, users ...*entity.User) authFixture {
	t.Helper()
	jwt, err := utils.NewJWTManager(utils.JWTConfig{Secret: "middleware-secret", ExpiryHours: 1})
	require.NoError(t, err)

	stub := &stubUsers{users: map[uuid.UUID]*entity.User{}}
	for _, u := range users {
		stub.users[u.ID] = u
	}
	return authFixture{jwt: jwt, users: stub}
}

func (f authFixture) token(t *testing.T, u *entity.User) string {
	t.Helper()
	tok, _, err := f.jwt.GenerateToken(u.ID, u.Username, string(u.Role))
	require.NoError(t, err)
	return tok
}

// serve runs req through Authenticate followed by guard and returns the status.
func (f authFixture) serve(guard func(http.Handler) http.Handler, req *http.Request) (int, *utils.Principal) {
	var seen *utils.Principal
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := utils.GetPrincipalFromContext(r.Context()); ok {
			seen = &p
		}
		w.WriteHeader(http.StatusOK)
	})

	var h http.Handler = final
	if guard != nil {
		h = guard(h)
	}
	h = Authenticate(f.jwt, f.users, zap.NewNop())(h)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, seen
}

func TestAuthenticate(t *testing.T) {
	user := newUser(entity.RoleUser)
	f := newAuthFixture(t, user)

	t.Run("anonymous passes through", func(t *testing.T) {
		code, p := f.serve(nil, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, code)
		assert.Nil(t, p)
	})

	t.Run("valid token sets principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+f.token(t, user))
		code, p := f.serve(nil, req)
		assert.Equal(t, http.StatusOK, code)
		require.NotNil(t, p)
		assert.Equal(t, user.ID, p.UserID)
		assert.Equal(t, "user", p.Role)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		code, _ := f.serve(nil, req)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("bad signature", func(t *testing.T) {
		other, err := utils.NewJWTManager(utils.JWTConfig{Secret: "other"})
		require.NoError(t, err)
		tok, _, err := other.GenerateToken(user.ID, user.Username, "admin")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		code, _ := f.serve(nil, req)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("deleted user", func(t *testing.T) {
		ghost := newUser(entity.RoleAdmin)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+f.token(t, ghost))
		code, _ := f.serve(nil, req)
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}

func TestRoleComesFromDatabase(t *testing.T) {
	user := newUser(entity.RoleUser)
	f := newAuthFixture(t, user)
	tok := f.token(t, user)

	promoted := *user
	promoted.Role = entity.RoleAdmin
	f.users.users[user.ID] = &promoted

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	code, _ := f.serve(AdminOnly, req)
	assert.Equal(t, http.StatusOK, code)
}

func TestPermissionGuards(t *testing.T) {
	user := newUser(entity.RoleUser)
	moderator := newUser(entity.RoleModerator)
	admin := newUser(entity.RoleAdmin)
	f := newAuthFixture(t, user, moderator, admin)

	tests := []struct {
		name   string
		guard  func(http.Handler) http.Handler
		method string
		as     *entity.User
		want   int
	}{
		{"admin-or-read: anonymous GET", AdminOrReadOnly, http.MethodGet, nil, http.StatusOK},
		{"admin-or-read: anonymous POST", AdminOrReadOnly, http.MethodPost, nil, http.StatusUnauthorized},
		{"admin-or-read: user POST", AdminOrReadOnly, http.MethodPost, user, http.StatusForbidden},
		{"admin-or-read: moderator DELETE", AdminOrReadOnly, http.MethodDelete, moderator, http.StatusForbidden},
		{"admin-or-read: admin POST", AdminOrReadOnly, http.MethodPost, admin, http.StatusOK},
		{"auth-or-read: anonymous GET", AuthenticatedOrReadOnly, http.MethodGet, nil, http.StatusOK},
		{"auth-or-read: anonymous POST", AuthenticatedOrReadOnly, http.MethodPost, nil, http.StatusUnauthorized},
		{"auth-or-read: user PATCH", AuthenticatedOrReadOnly, http.MethodPatch, user, http.StatusOK},
		{"admin-only: user GET", AdminOnly, http.MethodGet, user, http.StatusForbidden},
		{"require-auth: anonymous GET", RequireAuth, http.MethodGet, nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.as != nil {
				req.Header.Set("Authorization", "Bearer "+f.token(t, tt.as))
			}
			code, _ := f.serve(tt.guard, req)
			assert.Equal(t, tt.want, code)
		})
	}
}
