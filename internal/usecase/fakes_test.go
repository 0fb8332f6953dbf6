package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"yamdb/internal/data/entity"
	"yamdb/internal/data/repository"

	"github.com/google/uuid"
)

// memDB is an in-memory stand-in for the Postgres schema, including its
// cascade and SET NULL rules.
type memDB struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*entity.User
	codes       map[uuid.UUID]*entity.ConfirmationCode
	categories  map[uuid.UUID]*entity.Category
	genres      map[uuid.UUID]*entity.Genre
	titles      map[uuid.UUID]*entity.Title
	titleGenres map[uuid.UUID][]uuid.UUID
	reviews     map[uuid.UUID]*entity.Review
	comments    map[uuid.UUID]*entity.Comment
}

func newFakeRepository() (*repository.Repository, *memDB) {
	db := &memDB{
		users:       map[uuid.UUID]*entity.User{},
		codes:       map[uuid.UUID]*entity.ConfirmationCode{},
		categories:  map[uuid.UUID]*entity.Category{},
		genres:      map[uuid.UUID]*entity.Genre{},
		titles:      map[uuid.UUID]*entity.Title{},
		titleGenres: map[uuid.UUID][]uuid.UUID{},
		reviews:     map[uuid.UUID]*entity.Review{},
		comments:    map[uuid.UUID]*entity.Comment{},
	}
	return &repository.Repository{
		User:             &fakeUserRepo{db},
		ConfirmationCode: &fakeCodeRepo{db},
		Category:         &fakeCategoryRepo{db},
		Genre:            &fakeGenreRepo{db},
		Title:            &fakeTitleRepo{db},
		Review:           &fakeReviewRepo{db},
		Comment:          &fakeCommentRepo{db},
	}, db
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// ---- users ----

type fakeUserRepo struct{ db *memDB }

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.BeforeSave()
	cp := *user
	r.db.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) find(match func(*entity.User) bool) *entity.User {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id }), nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email }), nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Username == username }), nil
}

func (r *fakeUserRepo) filter(search string) []*entity.User {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.User
	for _, u := range r.db.users {
		if search == "" || strings.Contains(strings.ToLower(u.Username), strings.ToLower(search)) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (r *fakeUserRepo) FindAll(_ context.Context, search string, limit, offset int) ([]*entity.User, error) {
	return paginate(r.filter(search), limit, offset), nil
}

func (r *fakeUserRepo) CountAll(_ context.Context, search string) (int64, error) {
	return int64(len(r.filter(search))), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, u := range r.db.users {
		if u.ID != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.BeforeSave()
	cp := *user
	r.db.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.users, id)
	return nil
}

// ---- confirmation codes ----

type fakeCodeRepo struct{ db *memDB }

func (r *fakeCodeRepo) Create(_ context.Context, code *entity.ConfirmationCode) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *code
	r.db.codes[code.ID] = &cp
	return nil
}

func (r *fakeCodeRepo) FindActiveByUser(_ context.Context, userID uuid.UUID) ([]*entity.ConfirmationCode, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	var out []*entity.ConfirmationCode
	for _, c := range r.db.codes {
		if c.UserID == userID && !c.IsUsed && c.ExpiresAt.After(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCodeRepo) MarkAsUsed(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.codes[id]
	if !ok || c.IsUsed || !c.ExpiresAt.After(time.Now()) {
		return repository.ErrNotFound
	}
	c.IsUsed = true
	return nil
}

func (r *fakeCodeRepo) InvalidateForUser(_ context.Context, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.codes {
		if c.UserID == userID {
			c.IsUsed = true
		}
	}
	return nil
}

// ---- categories ----

type fakeCategoryRepo struct{ db *memDB }

func (r *fakeCategoryRepo) Create(_ context.Context, category *entity.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.categories {
		if c.Slug == category.Slug || c.Name == category.Name {
			return repository.ErrDuplicate
		}
	}
	cp := *category
	r.db.categories[category.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) FindBySlug(_ context.Context, slug string) (*entity.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCategoryRepo) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[uuid.UUID]*entity.Category{}
	for _, id := range ids {
		if c, ok := r.db.categories[id]; ok {
			cp := *c
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *fakeCategoryRepo) filter(search string) []*entity.Category {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Category
	for _, c := range r.db.categories {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func (r *fakeCategoryRepo) FindAll(_ context.Context, search string, limit, offset int) ([]*entity.Category, error) {
	return paginate(r.filter(search), limit, offset), nil
}

func (r *fakeCategoryRepo) CountAll(_ context.Context, search string) (int64, error) {
	return int64(len(r.filter(search))), nil
}

func (r *fakeCategoryRepo) DeleteBySlug(_ context.Context, slug string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, c := range r.db.categories {
		if c.Slug != slug {
			continue
		}
		delete(r.db.categories, id)
		for _, t := range r.db.titles {
			if t.CategoryID != nil && *t.CategoryID == id {
				t.CategoryID = nil
			}
		}
		return nil
	}
	return repository.ErrNotFound
}

// ---- genres ----

type fakeGenreRepo struct{ db *memDB }

func (r *fakeGenreRepo) Create(_ context.Context, genre *entity.Genre) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, g := range r.db.genres {
		if g.Slug == genre.Slug || g.Name == genre.Name {
			return repository.ErrDuplicate
		}
	}
	cp := *genre
	r.db.genres[genre.ID] = &cp
	return nil
}

func (r *fakeGenreRepo) FindBySlug(_ context.Context, slug string) (*entity.Genre, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, g := range r.db.genres {
		if g.Slug == slug {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeGenreRepo) FindBySlugs(_ context.Context, slugs []string) ([]*entity.Genre, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Genre
	for _, g := range r.db.genres {
		for _, s := range slugs {
			if g.Slug == s {
				cp := *g
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeGenreRepo) filter(search string) []*entity.Genre {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Genre
	for _, g := range r.db.genres {
		if search == "" || strings.Contains(strings.ToLower(g.Name), strings.ToLower(search)) {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func (r *fakeGenreRepo) FindAll(_ context.Context, search string, limit, offset int) ([]*entity.Genre, error) {
	return paginate(r.filter(search), limit, offset), nil
}

func (r *fakeGenreRepo) CountAll(_ context.Context, search string) (int64, error) {
	return int64(len(r.filter(search))), nil
}

func (r *fakeGenreRepo) DeleteBySlug(_ context.Context, slug string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, g := range r.db.genres {
		if g.Slug != slug {
			continue
		}
		delete(r.db.genres, id)
		for titleID, ids := range r.db.titleGenres {
			kept := ids[:0]
			for _, gid := range ids {
				if gid != id {
					kept = append(kept, gid)
				}
			}
			r.db.titleGenres[titleID] = kept
		}
		return nil
	}
	return repository.ErrNotFound
}

func (r *fakeGenreRepo) FindByTitleIDs(_ context.Context, titleIDs []uuid.UUID) (map[uuid.UUID][]*entity.Genre, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[uuid.UUID][]*entity.Genre{}
	for _, tid := range titleIDs {
		for _, gid := range r.db.titleGenres[tid] {
			if g, ok := r.db.genres[gid]; ok {
				cp := *g
				out[tid] = append(out[tid], &cp)
			}
		}
	}
	return out, nil
}

// ---- titles ----

type fakeTitleRepo struct{ db *memDB }

func (r *fakeTitleRepo) Create(_ context.Context, title *entity.Title, genreIDs []uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.titles {
		if t.Name == title.Name {
			return repository.ErrDuplicate
		}
	}
	cp := *title
	r.db.titles[title.ID] = &cp
	r.db.titleGenres[title.ID] = append([]uuid.UUID(nil), genreIDs...)
	return nil
}

func (r *fakeTitleRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Title, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.titles[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTitleRepo) filter(f entity.TitleFilter) []*entity.Title {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Title
	for _, t := range r.db.titles {
		if f.Name != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Year != nil && (t.Year == nil || *t.Year != *f.Year) {
			continue
		}
		if f.CategorySlug != "" {
			if t.CategoryID == nil || r.db.categories[*t.CategoryID] == nil ||
				r.db.categories[*t.CategoryID].Slug != f.CategorySlug {
				continue
			}
		}
		if f.GenreSlug != "" {
			found := false
			for _, gid := range r.db.titleGenres[t.ID] {
				if g := r.db.genres[gid]; g != nil && g.Slug == f.GenreSlug {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *fakeTitleRepo) FindAll(_ context.Context, f entity.TitleFilter, limit, offset int) ([]*entity.Title, error) {
	return paginate(r.filter(f), limit, offset), nil
}

func (r *fakeTitleRepo) CountAll(_ context.Context, f entity.TitleFilter) (int64, error) {
	return int64(len(r.filter(f))), nil
}

func (r *fakeTitleRepo) Update(_ context.Context, title *entity.Title, genreIDs []uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.titles[title.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, t := range r.db.titles {
		if t.ID != title.ID && t.Name == title.Name {
			return repository.ErrDuplicate
		}
	}
	cp := *title
	cp.Rating = existing.Rating
	r.db.titles[title.ID] = &cp
	if genreIDs != nil {
		r.db.titleGenres[title.ID] = append([]uuid.UUID(nil), genreIDs...)
	}
	return nil
}

func (r *fakeTitleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.titles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.titles, id)
	delete(r.db.titleGenres, id)
	for rid, rv := range r.db.reviews {
		if rv.TitleID == id {
			delete(r.db.reviews, rid)
			for cid, c := range r.db.comments {
				if c.ReviewID == rid {
					delete(r.db.comments, cid)
				}
			}
		}
	}
	return nil
}

func (r *fakeTitleRepo) UpdateRating(_ context.Context, id uuid.UUID, rating *float64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.titles[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Rating = rating
	return nil
}

// ---- reviews ----

type fakeReviewRepo struct{ db *memDB }

func (r *fakeReviewRepo) withAuthor(rv *entity.Review) *entity.Review {
	cp := *rv
	if u := r.db.users[rv.AuthorID]; u != nil {
		cp.AuthorUsername = u.Username
	}
	return &cp
}

func (r *fakeReviewRepo) Create(_ context.Context, review *entity.Review) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rv := range r.db.reviews {
		if rv.TitleID == review.TitleID && rv.AuthorID == review.AuthorID {
			return fmt.Errorf("create review: %w", repository.ErrDuplicate)
		}
	}
	cp := *review
	r.db.reviews[review.ID] = &cp
	return nil
}

func (r *fakeReviewRepo) FindByID(_ context.Context, titleID, id uuid.UUID) (*entity.Review, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rv, ok := r.db.reviews[id]
	if !ok || rv.TitleID != titleID {
		return nil, nil
	}
	return r.withAuthor(rv), nil
}

func (r *fakeReviewRepo) byTitle(titleID uuid.UUID) []*entity.Review {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Review
	for _, rv := range r.db.reviews {
		if rv.TitleID == titleID {
			out = append(out, r.withAuthor(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PubDate.After(out[j].PubDate) })
	return out
}

func (r *fakeReviewRepo) FindByTitleID(_ context.Context, titleID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	return paginate(r.byTitle(titleID), limit, offset), nil
}

func (r *fakeReviewRepo) FindByTitleAndAuthor(_ context.Context, titleID, authorID uuid.UUID) (*entity.Review, error) {
	for _, rv := range r.byTitle(titleID) {
		if rv.AuthorID == authorID {
			return rv, nil
		}
	}
	return nil, nil
}

func (r *fakeReviewRepo) CountByTitleID(_ context.Context, titleID uuid.UUID) (int64, error) {
	return int64(len(r.byTitle(titleID))), nil
}

func (r *fakeReviewRepo) Update(_ context.Context, review *entity.Review) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rv, ok := r.db.reviews[review.ID]
	if !ok {
		return repository.ErrNotFound
	}
	rv.Text = review.Text
	rv.Score = review.Score
	return nil
}

func (r *fakeReviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.reviews, id)
	for cid, c := range r.db.comments {
		if c.ReviewID == id {
			delete(r.db.comments, cid)
		}
	}
	return nil
}

func (r *fakeReviewRepo) AverageScore(_ context.Context, titleID uuid.UUID) (*float64, error) {
	reviews := r.byTitle(titleID)
	if len(reviews) == 0 {
		return nil, nil
	}
	sum := 0
	for _, rv := range reviews {
		sum += rv.Score
	}
	avg := float64(sum) / float64(len(reviews))
	return &avg, nil
}

// ---- comments ----

type fakeCommentRepo struct{ db *memDB }

func (r *fakeCommentRepo) Create(_ context.Context, comment *entity.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *comment
	r.db.comments[comment.ID] = &cp
	return nil
}

func (r *fakeCommentRepo) FindByID(_ context.Context, reviewID, id uuid.UUID) (*entity.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[id]
	if !ok || c.ReviewID != reviewID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCommentRepo) byReview(reviewID uuid.UUID) []*entity.Comment {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Comment
	for _, c := range r.db.comments {
		if c.ReviewID == reviewID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}

func (r *fakeCommentRepo) FindByReviewID(_ context.Context, reviewID uuid.UUID, limit, offset int) ([]*entity.Comment, error) {
	return paginate(r.byReview(reviewID), limit, offset), nil
}

func (r *fakeCommentRepo) CountByReviewID(_ context.Context, reviewID uuid.UUID) (int64, error) {
	return int64(len(r.byReview(reviewID))), nil
}

func (r *fakeCommentRepo) Update(_ context.Context, comment *entity.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[comment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Text = comment.Text
	return nil
}

func (r *fakeCommentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.comments, id)
	return nil
}

// ---- mailer ----

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

var codePattern = regexp.MustCompile(`\d{6}`)

func (m *fakeMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return codePattern.FindString(m.sent[len(m.sent)-1].Body)
}

// ---- fixtures ----

func (db *memDB) addUser(username string, role entity.UserRole) *entity.User {
	now := time.Now()
	u := &entity.User{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	u.BeforeSave()
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *u
	db.users[u.ID] = &cp
	return u
}

func (db *memDB) addTitle(name string, categoryID *uuid.UUID) *entity.Title {
	now := time.Now()
	t := &entity.Title{
		Base:       entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:       name,
		CategoryID: categoryID,
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *t
	db.titles[t.ID] = &cp
	return t
}

func (db *memDB) title(id uuid.UUID) *entity.Title {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *db.titles[id]
	return &cp
}

func (db *memDB) reviewCount(titleID uuid.UUID) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, rv := range db.reviews {
		if rv.TitleID == titleID {
			n++
		}
	}
	return n, nil
}
