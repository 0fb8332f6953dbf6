package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID      uuid.UUID
	Username    string
	Role        string
	IsSuperuser bool
}

// IsAdmin reports admin role or superuser status.
func (p Principal) IsAdmin() bool {
	return p.Role == "admin" || p.IsSuperuser
}

// IsModerator reports the moderator role.
func (p Principal) IsModerator() bool {
	return p.Role == "moderator"
}

func SetPrincipalContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func GetPrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(Principal)
	return p, ok
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := GetPrincipalFromContext(ctx)
	if !ok || p.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return p.UserID, true
}
