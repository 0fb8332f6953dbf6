package request

type TitleRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=256"`
	Year        *int     `json:"year,omitempty" validate:"omitempty,notfuture"`
	Description string   `json:"description" validate:"max=200"`
	Genre       []string `json:"genre" validate:"dive,slug"`
	Category    string   `json:"category,omitempty" validate:"omitempty,slug"`
}

// TitleUpdateRequest is a partial update. A nil Genre keeps the current
// genres, an empty one clears them.
type TitleUpdateRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=256"`
	Year        *int     `json:"year,omitempty" validate:"omitempty,notfuture"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=200"`
	Genre       []string `json:"genre,omitempty" validate:"omitempty,dive,slug"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=50"`
}

type TitleFilterRequest struct {
	Category string
	Genre    string
	Name     string
	Year     *int
}
