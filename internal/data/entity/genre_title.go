package entity

import (
	"github.com/google/uuid"
)

type GenreTitle struct {
	BaseSimple
	GenreID uuid.UUID `db:"genre_id"`
	TitleID uuid.UUID `db:"title_id"`
}
