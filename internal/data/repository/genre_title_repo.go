package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"yamdb/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// execer is the write surface shared by the pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ execer = (pgx.Tx)(nil)

// replaceTitleGenres rewrites the genre_titles bridge rows for titleID.
// Callers run it inside the transaction that writes the title itself.
func replaceTitleGenres(ctx context.Context, q execer, titleID uuid.UUID, genreIDs []uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM genre_titles WHERE title_id = $1`, titleID); err != nil {
		return fmt.Errorf("delete genre_titles for %s: %w", titleID, err)
	}
	return insertTitleGenres(ctx, q, titleID, genreIDs)
}

// genreTitleRows builds one bridge row per distinct genre.
func genreTitleRows(titleID uuid.UUID, genreIDs []uuid.UUID) []entity.GenreTitle {
	genreIDs = uniqueIDs(genreIDs)
	now := time.Now()
	rows := make([]entity.GenreTitle, 0, len(genreIDs))
	for _, genreID := range genreIDs {
		rows = append(rows, entity.GenreTitle{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			GenreID:    genreID,
			TitleID:    titleID,
		})
	}
	return rows
}

func insertTitleGenres(ctx context.Context, q execer, titleID uuid.UUID, genreIDs []uuid.UUID) error {
	rows := genreTitleRows(titleID, genreIDs)
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO genre_titles (id, genre_id, title_id, created_at) VALUES `)
	args := make([]any, 0, len(rows)*4)

	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", i*4+1, i*4+2, i*4+3, i*4+4)
		args = append(args, row.ID, row.GenreID, row.TitleID, row.CreatedAt)
	}

	if _, err := q.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert genre_titles for %s: %w", titleID, err)
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
