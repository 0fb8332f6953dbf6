package entity

import "github.com/google/uuid"

type Title struct {
	Base
	Name        string     `db:"name"`
	Year        *int       `db:"year"`
	Description string     `db:"description"`
	Rating      *float64   `db:"rating"` // average review score, nil without reviews
	CategoryID  *uuid.UUID `db:"category_id"`
}

// TitleFilter narrows title listings; zero values are ignored.
type TitleFilter struct {
	CategorySlug string
	GenreSlug    string
	Name         string
	Year         *int
}
