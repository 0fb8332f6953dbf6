package usecase

import (
	"yamdb/pkg/utils"

	"github.com/google/uuid"
)

// canModify is the object-level rule for reviews and comments:
// the author, a moderator or an admin may change or delete.
func canModify(p utils.Principal, authorID uuid.UUID) bool {
	if p.UserID == uuid.Nil {
		return false
	}
	return p.UserID == authorID || p.IsModerator() || p.IsAdmin()
}

func requireAuth(p utils.Principal) error {
	if p.UserID == uuid.Nil {
		return ErrUnauthorized
	}
	return nil
}
