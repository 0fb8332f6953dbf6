package adaptor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yamdb/internal/dto/request"
	"yamdb/internal/dto/response"
	"yamdb/internal/usecase"
	"yamdb/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Status     bool                     `json:"status"`
	Message    string                   `json:"message"`
	Data       json.RawMessage          `json:"data"`
	Errors     map[string]string        `json:"errors"`
	Pagination *response.PaginationMeta `json:"pagination"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type stubReviews struct {
	usecase.ReviewService
	err       error
	principal utils.Principal
	titleID   string
	req       *request.ReviewRequest
	page      *request.PaginatedRequest
}

func (s *stubReviews) CreateReview(_ context.Context, p utils.Principal, titleID string, req *request.ReviewRequest) (*response.ReviewResponse, error) {
	s.principal, s.titleID, s.req = p, titleID, req
	if s.err != nil {
		return nil, s.err
	}
	return &response.ReviewResponse{
		ID:      uuid.NewString(),
		Author:  p.Username,
		Text:    req.Text,
		Score:   req.Score,
		PubDate: time.Now(),
	}, nil
}

func (s *stubReviews) GetTitleReviews(_ context.Context, titleID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	s.titleID, s.page = titleID, req
	return response.NewPaginatedResponse([]response.ReviewResponse{{Text: "ok", Score: 7}}, req.Page, req.Limit(), 21), nil
}

func (s *stubReviews) DeleteReview(_ context.Context, _ utils.Principal, _, _ string) error {
	return s.err
}

func reviewRouter(svc *stubReviews, p *utils.Principal) http.Handler {
	h := NewReviewHandler(svc, zap.NewNop())
	r := chi.NewRouter()
	if p != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(utils.SetPrincipalContext(req.Context(), *p)))
			})
		})
	}
	r.Get("/titles/{titleID}/reviews", h.GetTitleReviews)
	r.Post("/titles/{titleID}/reviews", h.CreateReview)
	r.Delete("/titles/{titleID}/reviews/{reviewID}", h.DeleteReview)
	return r
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		fields map[string]string
	}{
		{"validation fields", &usecase.ValidationError{Fields: map[string]string{"score": "Must be at least 1"}}, http.StatusBadRequest, map[string]string{"score": "Must be at least 1"}},
		{"wrapped validation", fmt.Errorf("create: %w", &usecase.ValidationError{Fields: map[string]string{"text": "This field is required"}}), http.StatusBadRequest, map[string]string{"text": "This field is required"}},
		{"conflict", fmt.Errorf("%w: duplicate", usecase.ErrConflict), http.StatusBadRequest, nil},
		{"not found", fmt.Errorf("%w: title x", usecase.ErrNotFound), http.StatusNotFound, nil},
		{"unauthorized", usecase.ErrUnauthorized, http.StatusUnauthorized, nil},
		{"forbidden", fmt.Errorf("%w: not yours", usecase.ErrForbidden), http.StatusForbidden, nil},
		{"throttled", usecase.ErrThrottled, http.StatusTooManyRequests, nil},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, zap.NewNop(), tt.err, "test")

			assert.Equal(t, tt.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Status)
			assert.Equal(t, tt.fields, env.Errors)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, env.Message, "connection reset")
			}
		})
	}
}

func TestCreateReviewHandler(t *testing.T) {
	p := utils.Principal{UserID: uuid.New(), Username: "alice", Role: "user"}
	titleID := uuid.NewString()

	t.Run("created", func(t *testing.T) {
		svc := &stubReviews{}
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"text":"Great","score":9}`)
		reviewRouter(svc, &p).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/titles/"+titleID+"/reviews", body))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, p, svc.principal)
		assert.Equal(t, titleID, svc.titleID)
		assert.Equal(t, 9, svc.req.Score)

		var got response.ReviewResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
		assert.Equal(t, "alice", got.Author)
	})

	t.Run("duplicate is a bad request", func(t *testing.T) {
		svc := &stubReviews{err: fmt.Errorf("%w: you have already reviewed this title", usecase.ErrConflict)}
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"text":"Again","score":3}`)
		reviewRouter(svc, &p).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/titles/"+titleID+"/reviews", body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeEnvelope(t, rec).Message, "already reviewed")
	})

	t.Run("malformed body never reaches the service", func(t *testing.T) {
		svc := &stubReviews{}
		rec := httptest.NewRecorder()
		reviewRouter(svc, &p).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/titles/"+titleID+"/reviews", strings.NewReader("{")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, svc.req)
	})

	t.Run("anonymous principal is passed through", func(t *testing.T) {
		svc := &stubReviews{err: usecase.ErrUnauthorized}
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"text":"x","score":5}`)
		reviewRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/titles/"+titleID+"/reviews", body))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, uuid.Nil, svc.principal.UserID)
	})
}

func TestListReviewsPagination(t *testing.T) {
	svc := &stubReviews{}
	rec := httptest.NewRecorder()
	reviewRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/titles/abc/reviews?page=2&per_page=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.page.Page)
	assert.Equal(t, 5, svc.page.Limit())

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(21), env.Pagination.Total)
	assert.Equal(t, 5, env.Pagination.TotalPages)
}

func TestListReviewsHugePage(t *testing.T) {
	svc := &stubReviews{}
	rec := httptest.NewRecorder()
	reviewRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/titles/abc/reviews?page=9223372036854775807&per_page=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, svc.page.Offset(), 0)
}

func TestDeleteReviewNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	reviewRouter(&stubReviews{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/titles/a/reviews/b", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

type stubTitles struct {
	usecase.TitleService
	filter *request.TitleFilterRequest
}

func (s *stubTitles) GetTitles(_ context.Context, filter *request.TitleFilterRequest, req *request.PaginatedRequest) (*response.PaginatedResponse[response.TitleResponse], error) {
	s.filter = filter
	return response.NewPaginatedResponse([]response.TitleResponse{}, req.Page, req.Limit(), 0), nil
}

func TestGetTitlesFilters(t *testing.T) {
	svc := &stubTitles{}
	h := NewTitleHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.GetTitles(rec, httptest.NewRequest(http.MethodGet, "/titles?category=movies&genre=drama&name=god&year=1972", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "movies", svc.filter.Category)
	assert.Equal(t, "drama", svc.filter.Genre)
	assert.Equal(t, "god", svc.filter.Name)
	require.NotNil(t, svc.filter.Year)
	assert.Equal(t, 1972, *svc.filter.Year)

	svc.filter = nil
	rec = httptest.NewRecorder()
	h.GetTitles(rec, httptest.NewRequest(http.MethodGet, "/titles?year=recent", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Errors, "year")
	assert.Nil(t, svc.filter)
}

type stubUsers struct {
	usecase.UserService
	called bool
}

func (s *stubUsers) GetMe(_ context.Context, id uuid.UUID) (*response.UserResponse, error) {
	s.called = true
	return &response.UserResponse{Username: "me-" + id.String()[:4]}, nil
}

func TestGetMeRequiresPrincipal(t *testing.T) {
	svc := &stubUsers{}
	h := NewUserHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.GetMe(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, svc.called)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req = req.WithContext(utils.SetPrincipalContext(req.Context(), utils.Principal{UserID: uuid.New(), Username: "bob"}))
	rec = httptest.NewRecorder()
	h.GetMe(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.called)
}
