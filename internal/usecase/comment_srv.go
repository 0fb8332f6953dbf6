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
	"yamdb/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CommentService interface {
	GetReviewComments(ctx context.Context, titleID, reviewID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.CommentResponse], error)
	GetComment(ctx context.Context, titleID, reviewID, commentID string) (*response.CommentResponse, error)
	CreateComment(ctx context.Context, p utils.Principal, titleID, reviewID string, req *request.CommentRequest) (*response.CommentResponse, error)
	UpdateComment(ctx context.Context, p utils.Principal, titleID, reviewID, commentID string, req *request.CommentRequest) (*response.CommentResponse, error)
	DeleteComment(ctx context.Context, p utils.Principal, titleID, reviewID, commentID string) error
}

type commentService struct {
	repo    *repository.Repository
	reviews *reviewService
	log     *zap.Logger
}

func NewCommentService(repo *repository.Repository, log *zap.Logger) CommentService {
	return &commentService{
		repo:    repo,
		reviews: &reviewService{repo: repo, log: log.With(zap.String("service", "review"))},
		log:     log.With(zap.String("service", "comment")),
	}
}

func (s *commentService) findComment(ctx context.Context, titleID, reviewID, commentID string) (*entity.Comment, error) {
	review, err := s.reviews.findReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	id, err := parseID("comment", commentID)
	if err != nil {
		return nil, err
	}

	comment, err := s.repo.Comment.FindByID(ctx, review.ID, id)
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	if comment == nil {
		return nil, fmt.Errorf("%w: comment %s", ErrNotFound, commentID)
	}
	return comment, nil
}

func (s *commentService) GetReviewComments(ctx context.Context, titleID, reviewID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.CommentResponse], error) {
	review, err := s.reviews.findReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	comments, err := s.repo.Comment.FindByReviewID(ctx, review.ID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get review comments", zap.Error(err), zap.String("review_id", reviewID))
		return nil, fmt.Errorf("get review comments: %w", err)
	}

	total, err := s.repo.Comment.CountByReviewID(ctx, review.ID)
	if err != nil {
		return nil, fmt.Errorf("count review comments: %w", err)
	}

	return response.NewPaginatedResponse(response.CommentsToResponse(comments), req.Page, req.Limit(), total), nil
}

func (s *commentService) GetComment(ctx context.Context, titleID, reviewID, commentID string) (*response.CommentResponse, error) {
	comment, err := s.findComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}

	resp := response.CommentToResponse(comment)
	return &resp, nil
}

func (s *commentService) CreateComment(ctx context.Context, p utils.Principal, titleID, reviewID string, req *request.CommentRequest) (*response.CommentResponse, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}

	if err := validate(req); err != nil {
		return nil, err
	}

	review, err := s.reviews.findReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		ID:             uuid.New(),
		ReviewID:       review.ID,
		AuthorID:       p.UserID,
		Text:           req.Text,
		PubDate:        time.Now(),
		AuthorUsername: p.Username,
	}

	if err := s.repo.Comment.Create(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: review %s", ErrNotFound, reviewID)
		}
		s.log.Error("Failed to create comment",
			zap.Error(err),
			zap.String("review_id", reviewID),
			zap.String("user_id", p.UserID.String()),
		)
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.log.Info("Comment created",
		zap.String("comment_id", comment.ID.String()),
		zap.String("review_id", reviewID),
	)

	resp := response.CommentToResponse(comment)
	return &resp, nil
}

func (s *commentService) UpdateComment(ctx context.Context, p utils.Principal, titleID, reviewID, commentID string, req *request.CommentRequest) (*response.CommentResponse, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}

	if err := validate(req); err != nil {
		return nil, err
	}

	comment, err := s.findComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}

	if !canModify(p, comment.AuthorID) {
		return nil, fmt.Errorf("%w: only the author, a moderator or an admin can edit this comment", ErrForbidden)
	}

	comment.Text = req.Text

	if err := s.repo.Comment.Update(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: comment %s", ErrNotFound, commentID)
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}

	resp := response.CommentToResponse(comment)
	return &resp, nil
}

func (s *commentService) DeleteComment(ctx context.Context, p utils.Principal, titleID, reviewID, commentID string) error {
	if err := requireAuth(p); err != nil {
		return err
	}

	comment, err := s.findComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}

	if !canModify(p, comment.AuthorID) {
		return fmt.Errorf("%w: only the author, a moderator or an admin can delete this comment", ErrForbidden)
	}

	if err := s.repo.Comment.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: comment %s", ErrNotFound, commentID)
		}
		return fmt.Errorf("delete comment: %w", err)
	}

	return nil
}
