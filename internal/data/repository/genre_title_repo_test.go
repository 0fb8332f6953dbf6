package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	sql  []string
	args [][]any
}

func (e *recordingExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql = append(e.sql, sql)
	e.args = append(e.args, args)
	return pgconn.CommandTag{}, nil
}

func TestGenreTitleRowsDeduplicates(t *testing.T) {
	titleID := uuid.New()
	drama, comedy := uuid.New(), uuid.New()

	rows := genreTitleRows(titleID, []uuid.UUID{drama, comedy, drama})

	require.Len(t, rows, 2)
	assert.Equal(t, drama, rows[0].GenreID)
	assert.Equal(t, comedy, rows[1].GenreID)
	for _, row := range rows {
		assert.Equal(t, titleID, row.TitleID)
		assert.NotEqual(t, uuid.Nil, row.ID)
		assert.False(t, row.CreatedAt.IsZero())
	}
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
}

func TestInsertTitleGenres(t *testing.T) {
	titleID := uuid.New()
	drama, comedy := uuid.New(), uuid.New()

	t.Run("no genres skips the insert", func(t *testing.T) {
		e := &recordingExecer{}
		require.NoError(t, insertTitleGenres(context.Background(), e, titleID, nil))
		assert.Empty(t, e.sql)
	})

	t.Run("one tuple per distinct genre", func(t *testing.T) {
		e := &recordingExecer{}
		require.NoError(t, insertTitleGenres(context.Background(), e, titleID, []uuid.UUID{drama, comedy, comedy}))

		require.Len(t, e.sql, 1)
		assert.Contains(t, e.sql[0], "($1, $2, $3, $4), ($5, $6, $7, $8)")
		require.Len(t, e.args[0], 8)
		assert.Equal(t, drama, e.args[0][1])
		assert.Equal(t, titleID, e.args[0][2])
		assert.Equal(t, comedy, e.args[0][5])
		assert.Equal(t, titleID, e.args[0][6])
	})

	t.Run("replace deletes before inserting", func(t *testing.T) {
		e := &recordingExecer{}
		require.NoError(t, replaceTitleGenres(context.Background(), e, titleID, []uuid.UUID{drama}))

		require.Len(t, e.sql, 2)
		assert.Contains(t, e.sql[0], "DELETE FROM genre_titles")
		assert.Contains(t, e.sql[1], "INSERT INTO genre_titles")
	})
}
