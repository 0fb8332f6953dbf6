package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yamdb/internal/data/entity"
	"yamdb/internal/data/repository"
	"yamdb/internal/dto/request"
	"yamdb/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TitleService interface {
	GetTitles(ctx context.Context, filter *request.TitleFilterRequest, req *request.PaginatedRequest) (*response.PaginatedResponse[response.TitleResponse], error)
	GetTitleByID(ctx context.Context, titleID string) (*response.TitleResponse, error)
	CreateTitle(ctx context.Context, req *request.TitleRequest) (*response.TitleResponse, error)
	UpdateTitle(ctx context.Context, titleID string, req *request.TitleUpdateRequest) (*response.TitleResponse, error)
	DeleteTitle(ctx context.Context, titleID string) error
}

type titleService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewTitleService(repo *repository.Repository, log *zap.Logger) TitleService {
	return &titleService{
		repo: repo,
		log:  log.With(zap.String("service", "title")),
	}
}

// parseID treats a malformed id like a missing row.
func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, raw)
	}
	return id, nil
}

func (s *titleService) GetTitles(ctx context.Context, filter *request.TitleFilterRequest, req *request.PaginatedRequest) (*response.PaginatedResponse[response.TitleResponse], error) {
	f := entity.TitleFilter{}
	if filter != nil {
		f = entity.TitleFilter{
			CategorySlug: filter.Category,
			GenreSlug:    filter.Genre,
			Name:         filter.Name,
			Year:         filter.Year,
		}
	}

	titles, err := s.repo.Title.FindAll(ctx, f, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get titles",
			zap.Error(err),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, fmt.Errorf("get titles: %w", err)
	}

	total, err := s.repo.Title.CountAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count titles: %w", err)
	}

	titleResponses, err := s.toResponses(ctx, titles)
	if err != nil {
		return nil, err
	}

	return response.NewPaginatedResponse(titleResponses, req.Page, req.Limit(), total), nil
}

// toResponses loads genres and categories for a page of titles in two queries.
func (s *titleService) toResponses(ctx context.Context, titles []*entity.Title) ([]response.TitleResponse, error) {
	titleIDs := make([]uuid.UUID, 0, len(titles))
	var categoryIDs []uuid.UUID
	for _, t := range titles {
		titleIDs = append(titleIDs, t.ID)
		if t.CategoryID != nil {
			categoryIDs = append(categoryIDs, *t.CategoryID)
		}
	}

	genres, err := s.repo.Genre.FindByTitleIDs(ctx, titleIDs)
	if err != nil {
		return nil, fmt.Errorf("load title genres: %w", err)
	}

	categories, err := s.repo.Category.FindByIDs(ctx, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("load title categories: %w", err)
	}

	out := make([]response.TitleResponse, 0, len(titles))
	for _, t := range titles {
		var category *entity.Category
		if t.CategoryID != nil {
			category = categories[*t.CategoryID]
		}
		out = append(out, response.TitleToResponse(t, genres[t.ID], category))
	}

	return out, nil
}

func (s *titleService) toResponse(ctx context.Context, title *entity.Title) (*response.TitleResponse, error) {
	resps, err := s.toResponses(ctx, []*entity.Title{title})
	if err != nil {
		return nil, err
	}
	return &resps[0], nil
}

func (s *titleService) findTitle(ctx context.Context, titleID string) (*entity.Title, error) {
	id, err := parseID("title", titleID)
	if err != nil {
		return nil, err
	}

	title, err := s.repo.Title.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find title: %w", err)
	}
	if title == nil {
		return nil, fmt.Errorf("%w: title %s", ErrNotFound, titleID)
	}
	return title, nil
}

func (s *titleService) GetTitleByID(ctx context.Context, titleID string) (*response.TitleResponse, error) {
	title, err := s.findTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, title)
}

// resolveGenres maps slugs to genre IDs; any unknown slug is a validation error.
func (s *titleService) resolveGenres(ctx context.Context, slugs []string) ([]uuid.UUID, error) {
	if len(slugs) == 0 {
		return []uuid.UUID{}, nil
	}

	genres, err := s.repo.Genre.FindBySlugs(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("find genres: %w", err)
	}

	bySlug := make(map[string]uuid.UUID, len(genres))
	for _, g := range genres {
		bySlug[g.Slug] = g.ID
	}

	ids := make([]uuid.UUID, 0, len(slugs))
	for _, slug := range slugs {
		id, ok := bySlug[slug]
		if !ok {
			return nil, fieldError("genre", fmt.Sprintf("Genre %q does not exist", slug))
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// resolveCategory returns nil for an empty slug.
func (s *titleService) resolveCategory(ctx context.Context, slug string) (*uuid.UUID, error) {
	if slug == "" {
		return nil, nil
	}

	category, err := s.repo.Category.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	if category == nil {
		return nil, fieldError("category", fmt.Sprintf("Category %q does not exist", slug))
	}

	return &category.ID, nil
}

func (s *titleService) CreateTitle(ctx context.Context, req *request.TitleRequest) (*response.TitleResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Create title validation failed", zap.Error(err))
		return nil, err
	}

	genreIDs, err := s.resolveGenres(ctx, req.Genre)
	if err != nil {
		return nil, err
	}

	categoryID, err := s.resolveCategory(ctx, req.Category)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	title := &entity.Title{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        req.Name,
		Year:        req.Year,
		Description: req.Description,
		CategoryID:  categoryID,
	}

	if err := s.repo.Title.Create(ctx, title, genreIDs); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: title %q", ErrConflict, req.Name)
		}
		s.log.Error("Failed to create title", zap.Error(err), zap.String("name", req.Name))
		return nil, fmt.Errorf("create title: %w", err)
	}

	s.log.Info("Title created",
		zap.String("title_id", title.ID.String()),
		zap.String("name", title.Name),
		zap.Int("genres", len(genreIDs)),
	)

	return s.toResponse(ctx, title)
}

func (s *titleService) UpdateTitle(ctx context.Context, titleID string, req *request.TitleUpdateRequest) (*response.TitleResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	title, err := s.findTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		title.Name = *req.Name
	}
	if req.Year != nil {
		title.Year = req.Year
	}
	if req.Description != nil {
		title.Description = *req.Description
	}
	if req.Category != nil {
		categoryID, err := s.resolveCategory(ctx, *req.Category)
		if err != nil {
			return nil, err
		}
		title.CategoryID = categoryID
	}

	var genreIDs []uuid.UUID
	if req.Genre != nil {
		if genreIDs, err = s.resolveGenres(ctx, req.Genre); err != nil {
			return nil, err
		}
	}

	title.UpdatedAt = time.Now()

	if err := s.repo.Title.Update(ctx, title, genreIDs); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, fmt.Errorf("%w: title %q", ErrConflict, title.Name)
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: title %s", ErrNotFound, titleID)
		}
		s.log.Error("Failed to update title", zap.Error(err), zap.String("title_id", titleID))
		return nil, fmt.Errorf("update title: %w", err)
	}

	s.log.Info("Title updated", zap.String("title_id", titleID))

	return s.toResponse(ctx, title)
}

func (s *titleService) DeleteTitle(ctx context.Context, titleID string) error {
	id, err := parseID("title", titleID)
	if err != nil {
		return err
	}

	if err := s.repo.Title.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: title %s", ErrNotFound, titleID)
		}
		return fmt.Errorf("delete title: %w", err)
	}

	return nil
}
