package repository

import (
	"context"
	"fmt"

	"yamdb/internal/data/entity"
	"yamdb/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ConfirmationCodeRepository interface {
	Create(ctx context.Context, code *entity.ConfirmationCode) error
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*entity.ConfirmationCode, error)
	MarkAsUsed(ctx context.Context, id uuid.UUID) error
	InvalidateForUser(ctx context.Context, userID uuid.UUID) error
}

type confirmationCodeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewConfirmationCodeRepository(db database.PgxIface, log *zap.Logger) ConfirmationCodeRepository {
	return &confirmationCodeRepository{
		db:  db,
		log: log.With(zap.String("repository", "confirmation_code")),
	}
}

func (r *confirmationCodeRepository) Create(ctx context.Context, code *entity.ConfirmationCode) error {
	query := `
		INSERT INTO confirmation_codes (id, user_id, code_hash, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		code.ID,
		code.UserID,
		code.CodeHash,
		code.ExpiresAt,
		code.IsUsed,
		code.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create confirmation code",
			zap.Error(err),
			zap.String("user_id", code.UserID.String()),
		)
		return fmt.Errorf("create confirmation code for %s: %w", code.UserID, err)
	}

	return nil
}

// FindActiveByUser returns unused, unexpired codes, newest first.
func (r *confirmationCodeRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*entity.ConfirmationCode, error) {
	query := `
		SELECT id, user_id, code_hash, expires_at, is_used, created_at
		FROM confirmation_codes
		WHERE user_id = $1
		  AND is_used = false
		  AND expires_at > NOW()
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to find active confirmation codes",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find active codes for %s: %w", userID, err)
	}
	defer rows.Close()

	var codes []*entity.ConfirmationCode
	for rows.Next() {
		var code entity.ConfirmationCode
		if err := rows.Scan(
			&code.ID,
			&code.UserID,
			&code.CodeHash,
			&code.ExpiresAt,
			&code.IsUsed,
			&code.CreatedAt,
		); err != nil {
			r.log.Error("Failed to scan confirmation code row", zap.Error(err))
			return nil, fmt.Errorf("scan confirmation code: %w", err)
		}
		codes = append(codes, &code)
	}

	return codes, rows.Err()
}

// MarkAsUsed consumes an active code. A code that is already used or expired
// matches no row and yields ErrNotFound, so concurrent exchanges cannot both win.
func (r *confirmationCodeRepository) MarkAsUsed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `
		UPDATE confirmation_codes SET is_used = true
		WHERE id = $1 AND is_used = false AND expires_at > NOW()
	`, id)
	if err != nil {
		r.log.Error("Failed to mark confirmation code as used",
			zap.Error(err),
			zap.String("code_id", id.String()),
		)
		return fmt.Errorf("mark code %s as used: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("active confirmation code %s: %w", id, ErrNotFound)
	}

	return nil
}

// InvalidateForUser burns every outstanding code for the user.
func (r *confirmationCodeRepository) InvalidateForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE confirmation_codes SET is_used = true WHERE user_id = $1 AND is_used = false`, userID)
	if err != nil {
		r.log.Error("Failed to invalidate confirmation codes",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return fmt.Errorf("invalidate codes for %s: %w", userID, err)
	}
	return nil
}
