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
	"yamdb/pkg/metrics"
	"yamdb/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errDuplicateReview = fmt.Errorf("%w: you have already reviewed this title", ErrConflict)

type ReviewService interface {
	GetTitleReviews(ctx context.Context, titleID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
	GetReview(ctx context.Context, titleID, reviewID string) (*response.ReviewResponse, error)
	CreateReview(ctx context.Context, p utils.Principal, titleID string, req *request.ReviewRequest) (*response.ReviewResponse, error)
	UpdateReview(ctx context.Context, p utils.Principal, titleID, reviewID string, req *request.ReviewUpdateRequest) (*response.ReviewResponse, error)
	DeleteReview(ctx context.Context, p utils.Principal, titleID, reviewID string) error
}

type reviewService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewReviewService(repo *repository.Repository, log *zap.Logger) ReviewService {
	return &reviewService{
		repo: repo,
		log:  log.With(zap.String("service", "review")),
	}
}

func (s *reviewService) findTitle(ctx context.Context, titleID string) (*entity.Title, error) {
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

// findReview resolves a review under its title; a review of another title is not found.
func (s *reviewService) findReview(ctx context.Context, titleID, reviewID string) (*entity.Review, error) {
	title, err := s.findTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}

	id, err := parseID("review", reviewID)
	if err != nil {
		return nil, err
	}

	review, err := s.repo.Review.FindByID(ctx, title.ID, id)
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	if review == nil {
		return nil, fmt.Errorf("%w: review %s", ErrNotFound, reviewID)
	}
	return review, nil
}

func (s *reviewService) GetTitleReviews(ctx context.Context, titleID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	title, err := s.findTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}

	reviews, err := s.repo.Review.FindByTitleID(ctx, title.ID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get title reviews",
			zap.Error(err),
			zap.String("title_id", titleID),
			zap.Int("page", req.Page),
		)
		return nil, fmt.Errorf("get title reviews: %w", err)
	}

	total, err := s.repo.Review.CountByTitleID(ctx, title.ID)
	if err != nil {
		return nil, fmt.Errorf("count title reviews: %w", err)
	}

	return response.NewPaginatedResponse(response.ReviewsToResponse(reviews), req.Page, req.Limit(), total), nil
}

func (s *reviewService) GetReview(ctx context.Context, titleID, reviewID string) (*response.ReviewResponse, error) {
	review, err := s.findReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) CreateReview(ctx context.Context, p utils.Principal, titleID string, req *request.ReviewRequest) (*response.ReviewResponse, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}

	if err := validate(req); err != nil {
		s.log.Warn("Create review validation failed", zap.Error(err))
		return nil, err
	}

	title, err := s.findTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Review.FindByTitleAndAuthor(ctx, title.ID, p.UserID)
	if err != nil {
		s.log.Error("Failed to check existing review", zap.Error(err))
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if existing != nil {
		return nil, errDuplicateReview
	}

	review := &entity.Review{
		ID:             uuid.New(),
		TitleID:        title.ID,
		AuthorID:       p.UserID,
		Text:           req.Text,
		Score:          req.Score,
		PubDate:        time.Now(),
		AuthorUsername: p.Username,
	}

	if err := s.repo.Review.Create(ctx, review); err != nil {
		// lost a race with a concurrent create by the same author
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errDuplicateReview
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: title %s", ErrNotFound, titleID)
		}
		s.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("user_id", p.UserID.String()),
			zap.String("title_id", titleID),
		)
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.refreshRating(ctx, title.ID)
	metrics.ReviewsCreated.Inc()

	s.log.Info("Review created",
		zap.String("review_id", review.ID.String()),
		zap.String("user_id", p.UserID.String()),
		zap.String("title_id", titleID),
		zap.Int("score", req.Score),
	)

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) UpdateReview(ctx context.Context, p utils.Principal, titleID, reviewID string, req *request.ReviewUpdateRequest) (*response.ReviewResponse, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}

	if err := validate(req); err != nil {
		return nil, err
	}

	review, err := s.findReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	if !canModify(p, review.AuthorID) {
		s.log.Warn("Review update forbidden",
			zap.String("review_id", reviewID),
			zap.String("user_id", p.UserID.String()),
		)
		return nil, fmt.Errorf("%w: only the author, a moderator or an admin can edit this review", ErrForbidden)
	}

	if req.Text != nil {
		review.Text = *req.Text
	}
	scoreChanged := req.Score != nil && *req.Score != review.Score
	if req.Score != nil {
		review.Score = *req.Score
	}

	if err := s.repo.Review.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: review %s", ErrNotFound, reviewID)
		}
		return nil, fmt.Errorf("update review: %w", err)
	}

	if scoreChanged {
		s.refreshRating(ctx, review.TitleID)
	}

	s.log.Info("Review updated", zap.String("review_id", reviewID))

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, p utils.Principal, titleID, reviewID string) error {
	if err := requireAuth(p); err != nil {
		return err
	}

	review, err := s.findReview(ctx, titleID, reviewID)
	if err != nil {
		return err
	}

	if !canModify(p, review.AuthorID) {
		return fmt.Errorf("%w: only the author, a moderator or an admin can delete this review", ErrForbidden)
	}

	if err := s.repo.Review.Delete(ctx, review.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: review %s", ErrNotFound, reviewID)
		}
		return fmt.Errorf("delete review: %w", err)
	}

	s.refreshRating(ctx, review.TitleID)
	return nil
}

// refreshRating recomputes the stored title rating. Failures are logged;
// the review write has already succeeded.
func (s *reviewService) refreshRating(ctx context.Context, titleID uuid.UUID) {
	avg, err := s.repo.Review.AverageScore(ctx, titleID)
	if err != nil {
		s.log.Warn("Failed to compute title rating", zap.Error(err), zap.String("title_id", titleID.String()))
		return
	}

	if err := s.repo.Title.UpdateRating(ctx, titleID, avg); err != nil {
		s.log.Warn("Failed to update title rating", zap.Error(err), zap.String("title_id", titleID.String()))
	}
}
