package response

import "yamdb/internal/data/entity"

// SlugResponse is the public shape of both genres and categories.
type SlugResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func GenreToResponse(genre *entity.Genre) SlugResponse {
	return SlugResponse{Name: genre.Name, Slug: genre.Slug}
}

func GenresToResponse(genres []*entity.Genre) []SlugResponse {
	out := make([]SlugResponse, 0, len(genres))
	for _, g := range genres {
		out = append(out, GenreToResponse(g))
	}
	return out
}

func CategoryToResponse(category *entity.Category) SlugResponse {
	return SlugResponse{Name: category.Name, Slug: category.Slug}
}

func CategoriesToResponse(categories []*entity.Category) []SlugResponse {
	out := make([]SlugResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryToResponse(c))
	}
	return out
}
