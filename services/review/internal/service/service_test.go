package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sunil0336/MovieBuffs-sub000/pkg/errors"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/pagination"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/event"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository/memory"
	rediscache "github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository/redis"
)

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockPublisher) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockPublisher) PublishReviewDeleted(ctx context.Context, review *domain.Review, deletedBy string) error {
	return m.Called(ctx, review, deletedBy).Error(0)
}

func (m *mockPublisher) PublishRatingUpdated(ctx context.Context, rating domain.ItemRating) error {
	return m.Called(ctx, rating).Error(0)
}

func (m *mockPublisher) PublishReviewEngaged(ctx context.Context, data event.ReviewEngagedData) error {
	return m.Called(ctx, data).Error(0)
}

func (m *mockPublisher) allowAll(err error) {
	m.On("PublishReviewCreated", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishReviewUpdated", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishReviewDeleted", mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishRatingUpdated", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishReviewEngaged", mock.Anything, mock.Anything).Return(err).Maybe()
}

// --- Test Helpers ---

var (
	alice = Requester{UserID: "alice"}
	bob   = Requester{UserID: "bob"}
	admin = Requester{UserID: "root", IsAdmin: true}
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	engine    *Engine
	catalog   *memory.Catalog
	publisher *mockPublisher
}

func newFixture(t *testing.T, cache repository.ReviewCache) *fixture {
	t.Helper()
	catalog := memory.NewCatalog()
	catalog.Add(domain.ItemKindMovie, "m1")
	catalog.Add(domain.ItemKindMovie, "m2")
	store := memory.NewStore(catalog)

	pub := new(mockPublisher)
	pub.allowAll(nil)

	engine := NewEngine(domain.ItemKindMovie, Deps{
		Reviews:    store,
		Engagement: store,
		Cache:      cache,
		Publisher:  pub,
		Policy:     domain.DefaultReviewPolicy(),
		Logger:     newTestLogger(),
	})
	return &fixture{engine: engine, catalog: catalog, publisher: pub}
}

func input(itemID string, rating int) CreateReviewInput {
	return CreateReviewInput{
		ItemID: itemID,
		ReviewFields: domain.ReviewFields{
			Rating:  rating,
			Title:   fmt.Sprintf("Rated %d", rating),
			Content: "Long enough to count as a review.",
		},
	}
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code
}

func storedRating(t *testing.T, f *fixture, itemID string) float64 {
	t.Helper()
	r, ok := f.catalog.Rating(domain.ItemKindMovie, itemID)
	require.True(t, ok)
	return r.Average
}

// --- Review lifecycle ---

func TestScenarioA_AggregateFollowsReviewSet(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	reviews := f.engine.Reviews

	assert.Equal(t, 0.0, storedRating(t, f, "m1"))

	ra, rating, err := reviews.Create(ctx, alice, input("m1", 8))
	require.NoError(t, err)
	assert.Equal(t, 8.0, rating.Average)
	assert.Equal(t, 8.0, storedRating(t, f, "m1"))

	rb, rating, err := reviews.Create(ctx, bob, input("m1", 4))
	require.NoError(t, err)
	assert.Equal(t, 6.0, rating.Average)
	assert.Equal(t, 6.0, storedRating(t, f, "m1"))

	rating, err = reviews.Delete(ctx, alice, ra.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rating.Average)
	assert.Equal(t, 4.0, storedRating(t, f, "m1"))

	rating, err = reviews.Delete(ctx, bob, rb.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rating.Average)
	assert.EqualValues(t, 0, rating.Count)
	assert.Equal(t, 0.0, storedRating(t, f, "m1"))

	view, err := f.engine.Ratings.GetRating(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, &RatingView{ItemKind: "movie", ItemID: "m1"}, view)
}

func TestScenarioB_ReactionsStayDisjoint(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, _, err := f.engine.Reviews.Create(ctx, bob, input("m1", 7))
	require.NoError(t, err)

	eng, err := f.engine.Engagement.ToggleLike(ctx, alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Engagement{Likes: 1, UserLiked: true}, eng)

	eng, err = f.engine.Engagement.ToggleDislike(ctx, alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Engagement{Dislikes: 1, UserDisliked: true}, eng)

	eng, err = f.engine.Engagement.ToggleLike(ctx, alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Engagement{Likes: 1, UserLiked: true}, eng)

	got, err := f.engine.Reviews.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got.Likes)
	assert.Empty(t, got.Dislikes)

	// Liking twice returns to the state before the first like.
	eng, err = f.engine.Engagement.ToggleLike(ctx, alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Engagement{}, eng)
}

func TestCreate_Duplicate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, err := f.engine.Reviews.Create(ctx, alice, input("m1", 7))
	require.NoError(t, err)

	_, _, err = f.engine.Reviews.Create(ctx, alice, input("m1", 3))
	assert.Equal(t, domain.CodeDuplicateReview, errCode(t, err))
	assert.Equal(t, 7.0, storedRating(t, f, "m1"))

	// A different item is fine.
	_, _, err = f.engine.Reviews.Create(ctx, alice, input("m2", 3))
	assert.NoError(t, err)
}

func TestCreate_ParentNotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.engine.Reviews.Create(context.Background(), alice, input("missing", 7))
	assert.Equal(t, domain.CodeParentNotFound, errCode(t, err))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    CreateReviewInput
		field string
	}{
		{"rating too high", input("m1", 11), "rating"},
		{"rating too low", input("m1", 0), "rating"},
		{"blank title", CreateReviewInput{ItemID: "m1", ReviewFields: domain.ReviewFields{Rating: 5, Title: "   ", Content: "Long enough content"}}, "title"},
		{"short content", CreateReviewInput{ItemID: "m1", ReviewFields: domain.ReviewFields{Rating: 5, Title: "T", Content: " 123456789 "}}, "content"},
		{"missing item", input("", 5), "item_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.engine.Reviews.Create(ctx, alice, tt.in)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, domain.CodeValidation, appErr.Code)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
	f.publisher.AssertNotCalled(t, "PublishReviewCreated", mock.Anything, mock.Anything)
}

func TestCreate_RequiresIdentity(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.engine.Reviews.Create(context.Background(), Requester{}, input("m1", 5))
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, _, err := f.engine.Reviews.Create(ctx, alice, CreateReviewInput{
		ItemID:       "m1",
		ReviewFields: domain.ReviewFields{Rating: 7, Title: "T", Content: "1234567890"},
	})
	require.NoError(t, err)

	got, err := f.engine.Reviews.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 7, got.Rating)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "1234567890", got.Content)
	assert.False(t, got.ContainsSpoilers)
	assert.Equal(t, "alice", got.AuthorID)
	assert.Equal(t, "m1", got.ItemID)

	_, err = f.engine.Reviews.Delete(ctx, alice, created.ID)
	require.NoError(t, err)

	_, err = f.engine.Reviews.Get(ctx, created.ID)
	assert.Equal(t, domain.CodeReviewNotFound, errCode(t, err))
}

func TestUpdate_Authorization(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, _, err := f.engine.Reviews.Create(ctx, alice, input("m1", 6))
	require.NoError(t, err)
	edit := domain.ReviewFields{Rating: 9, Title: "Second look", Content: "Better on a rewatch.", ContainsSpoilers: true}

	_, _, err = f.engine.Reviews.Update(ctx, bob, r.ID, edit)
	assert.Equal(t, domain.CodeNotAuthorized, errCode(t, err))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, _, err = f.engine.Reviews.Update(ctx, Requester{}, r.ID, edit)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	updated, rating, err := f.engine.Reviews.Update(ctx, admin, r.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Rating)
	assert.True(t, updated.ContainsSpoilers)
	assert.Equal(t, "alice", updated.AuthorID)
	assert.Equal(t, 9.0, rating.Average)
	assert.Equal(t, 9.0, storedRating(t, f, "m1"))

	_, _, err = f.engine.Reviews.Update(ctx, alice, "nope", edit)
	assert.Equal(t, domain.CodeReviewNotFound, errCode(t, err))

	f.publisher.AssertCalled(t, "PublishReviewUpdated", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.Rating == 9
	}))
}

func TestDelete_Authorization(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, _, err := f.engine.Reviews.Create(ctx, alice, input("m1", 6))
	require.NoError(t, err)

	_, err = f.engine.Reviews.Delete(ctx, bob, r.ID)
	assert.Equal(t, domain.CodeNotAuthorized, errCode(t, err))
	assert.Equal(t, 6.0, storedRating(t, f, "m1"))

	_, err = f.engine.Reviews.Delete(ctx, admin, r.ID)
	require.NoError(t, err)
	f.publisher.AssertCalled(t, "PublishReviewDeleted", mock.Anything, mock.Anything, "root")
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	catalog := memory.NewCatalog()
	catalog.Add(domain.ItemKindMovie, "m1")
	store := memory.NewStore(catalog)
	pub := new(mockPublisher)
	pub.allowAll(errors.New("broker down"))

	engine := NewEngine(domain.ItemKindMovie, Deps{
		Reviews: store, Engagement: store, Publisher: pub,
		Policy: domain.DefaultReviewPolicy(), Logger: newTestLogger(),
	})

	r, _, err := engine.Reviews.Create(context.Background(), alice, input("m1", 5))
	require.NoError(t, err)
	_, err = engine.Engagement.ToggleLike(context.Background(), bob, r.ID)
	require.NoError(t, err)
	pub.AssertCalled(t, "PublishReviewCreated", mock.Anything, mock.Anything)
	pub.AssertCalled(t, "PublishRatingUpdated", mock.Anything, mock.Anything)
}

// --- Listing ---

func TestPagination(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, _, err := f.engine.Reviews.Create(ctx, Requester{UserID: fmt.Sprintf("user-%02d", i)}, input("m1", i%10+1))
		require.NoError(t, err)
	}

	page1, err := f.engine.Reviews.ListByParent(ctx, "m1", ListOptions{Page: pagination.Params{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, page1.Reviews, 10)
	assert.Equal(t, pagination.Info{Total: 25, Page: 1, Pages: 3}, page1.Pagination)

	page3, err := f.engine.Reviews.ListByParent(ctx, "m1", ListOptions{Page: pagination.Params{Page: 3, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, page3.Reviews, 5)

	page4, err := f.engine.Reviews.ListByParent(ctx, "m1", ListOptions{Page: pagination.Params{Page: 4, Limit: 10}})
	require.NoError(t, err)
	assert.Empty(t, page4.Reviews)
	assert.Equal(t, 25, page4.Pagination.Total)

	_, err = f.engine.Reviews.ListByParent(ctx, "m1", ListOptions{Page: pagination.Params{Page: 1, Limit: 101}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestListing_FiltersAndSorts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	low, _, err := f.engine.Reviews.Create(ctx, alice, input("m1", 3))
	require.NoError(t, err)
	high, _, err := f.engine.Reviews.Create(ctx, bob, input("m1", 9))
	require.NoError(t, err)
	other, _, err := f.engine.Reviews.Create(ctx, alice, input("m2", 6))
	require.NoError(t, err)

	_, err = f.engine.Engagement.ToggleLike(ctx, bob, other.ID)
	require.NoError(t, err)
	_, err = f.engine.Engagement.ToggleLike(ctx, admin, other.ID)
	require.NoError(t, err)
	_, err = f.engine.Engagement.ToggleLike(ctx, alice, low.ID)
	require.NoError(t, err)

	res, err := f.engine.Reviews.ListByParent(ctx, "m1", ListOptions{Sort: "highest"})
	require.NoError(t, err)
	require.Len(t, res.Reviews, 2)
	assert.Equal(t, high.ID, res.Reviews[0].ID)

	res, err = f.engine.Reviews.ListByParent(ctx, "m1", ListOptions{MinRating: 5})
	require.NoError(t, err)
	require.Len(t, res.Reviews, 1)
	assert.Equal(t, high.ID, res.Reviews[0].ID)

	res, err = f.engine.Reviews.ListByAuthor(ctx, "alice", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Reviews, 2)

	top, err := f.engine.Queries.ListTop(ctx, ListOptions{Page: pagination.Params{Page: 1, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, top.Reviews, 2)
	assert.Equal(t, other.ID, top.Reviews[0].ID)
	assert.Equal(t, 2, top.Reviews[0].LikeCount)
	assert.Equal(t, low.ID, top.Reviews[1].ID)
	assert.Equal(t, pagination.Info{Total: 3, Page: 1, Pages: 2}, top.Pagination)

	_, err = f.engine.Queries.List(ctx, ListOptions{Sort: "popular"})
	assert.Equal(t, domain.CodeValidation, errCode(t, err))

	_, err = f.engine.Queries.List(ctx, ListOptions{MinRating: 42})
	assert.Equal(t, domain.CodeValidation, errCode(t, err))
}

// --- Engagement ---

func TestComments(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, _, err := f.engine.Reviews.Create(ctx, alice, input("m1", 8))
	require.NoError(t, err)

	_, err = f.engine.Engagement.AddComment(ctx, bob, r.ID, "   ")
	assert.Equal(t, domain.CodeEmptyText, errCode(t, err))

	comments, err := f.engine.Engagement.AddComment(ctx, bob, r.ID, "  first  ")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "first", comments[0].Text)

	comments, err = f.engine.Engagement.AddComment(ctx, alice, r.ID, "second")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Text)
	bobComment := comments[1].ID

	_, err = f.engine.Engagement.DeleteComment(ctx, alice, r.ID, bobComment)
	assert.Equal(t, domain.CodeNotAuthorized, errCode(t, err))

	_, err = f.engine.Engagement.DeleteComment(ctx, bob, r.ID, "missing")
	assert.Equal(t, domain.CodeCommentNotFound, errCode(t, err))

	comments, err = f.engine.Engagement.DeleteComment(ctx, admin, r.ID, bobComment)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	listed, err := f.engine.Engagement.ListComments(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, comments, listed)

	_, err = f.engine.Engagement.AddComment(ctx, bob, "missing", "hello")
	assert.Equal(t, domain.CodeReviewNotFound, errCode(t, err))

	// Engagement never moves the aggregate.
	assert.Equal(t, 8.0, storedRating(t, f, "m1"))
}

func TestRecordVote(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, _, err := f.engine.Reviews.Create(ctx, alice, input("m1", 8))
	require.NoError(t, err)

	tally, err := f.engine.Engagement.RecordVote(ctx, r.ID, "helpful")
	require.NoError(t, err)
	tally, err = f.engine.Engagement.RecordVote(ctx, r.ID, "helpful")
	require.NoError(t, err)
	assert.Equal(t, domain.VoteTally{HelpfulCount: 2}, tally)

	tally, err = f.engine.Engagement.RecordVote(ctx, r.ID, "not-helpful")
	require.NoError(t, err)
	assert.Equal(t, domain.VoteTally{HelpfulCount: 2, NotHelpfulCount: 1}, tally)

	_, err = f.engine.Engagement.RecordVote(ctx, r.ID, "funny")
	assert.Equal(t, domain.CodeInvalidVoteType, errCode(t, err))

	got, err := f.engine.Reviews.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.HelpfulCount)
	assert.Equal(t, 0, got.LikeCount)
}

// --- Ratings and purge ---

func TestRecompute(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, err := f.engine.Reviews.Create(ctx, alice, input("m1", 8))
	require.NoError(t, err)
	_, _, err = f.engine.Reviews.Create(ctx, bob, input("m1", 5))
	require.NoError(t, err)

	_, err = f.engine.Ratings.Recompute(ctx, alice, "m1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	view, err := f.engine.Ratings.Recompute(ctx, admin, "m1")
	require.NoError(t, err)
	assert.Equal(t, &RatingView{ItemKind: "movie", ItemID: "m1", Rating: 6.5, ReviewCount: 2}, view)

	_, err = f.engine.Ratings.GetRating(ctx, "missing")
	assert.Equal(t, domain.CodeParentNotFound, errCode(t, err))
}

func TestPurgeItem(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, _, err := f.engine.Reviews.Create(ctx, alice, input("m1", 8))
	require.NoError(t, err)
	_, _, err = f.engine.Reviews.Create(ctx, bob, input("m1", 2))
	require.NoError(t, err)
	_, _, err = f.engine.Reviews.Create(ctx, bob, input("m2", 2))
	require.NoError(t, err)

	removed, err := f.engine.Reviews.PurgeItem(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0.0, storedRating(t, f, "m1"))
	assert.Equal(t, 2.0, storedRating(t, f, "m2"))

	_, err = f.engine.Reviews.Get(ctx, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Cache ---

func TestGet_ReadThroughCacheIsInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := newFixture(t, rediscache.NewReviewCache(client, time.Minute))
	ctx := context.Background()

	r, _, err := f.engine.Reviews.Create(ctx, alice, input("m1", 8))
	require.NoError(t, err)

	_, err = f.engine.Reviews.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("review:movie:"+r.ID))

	_, err = f.engine.Engagement.ToggleLike(ctx, bob, r.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists("review:movie:"+r.ID))

	got, err := f.engine.Reviews.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, got.Likes)

	_, _, err = f.engine.Reviews.Update(ctx, alice, r.ID, domain.ReviewFields{Rating: 4, Title: "Changed", Content: "Changed my mind after all."})
	require.NoError(t, err)

	got, err = f.engine.Reviews.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Title)

	// A broken cache degrades to the repository.
	mr.Close()
	got, err = f.engine.Reviews.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)
}

// stallingReads parks the first GetByID after it has loaded the row, so a
// write can land between the load and the cache fill.
type stallingReads struct {
	repository.ReviewRepository
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (s *stallingReads) GetByID(ctx context.Context, kind domain.ItemKind, id string) (*domain.Review, error) {
	r, err := s.ReviewRepository.GetByID(ctx, kind, id)
	s.once.Do(func() {
		close(s.loaded)
		<-s.release
	})
	return r, err
}

func TestGet_ConcurrentWriteIsNotOverwrittenByStaleFill(t *testing.T) {
	for _, tc := range []struct {
		name  string
		write func(ctx context.Context, e *Engine, id string) error
		check func(t *testing.T, e *Engine, id string)
	}{
		{
			name: "update",
			write: func(ctx context.Context, e *Engine, id string) error {
				_, _, err := e.Reviews.Update(ctx, alice, id, domain.ReviewFields{Rating: 9, Title: "Rewatched", Content: "Holds up far better the second time."})
				return err
			},
			check: func(t *testing.T, e *Engine, id string) {
				got, err := e.Reviews.Get(context.Background(), id)
				require.NoError(t, err)
				assert.Equal(t, 9, got.Rating)
			},
		},
		{
			name: "delete",
			write: func(ctx context.Context, e *Engine, id string) error {
				_, err := e.Reviews.Delete(ctx, alice, id)
				return err
			},
			check: func(t *testing.T, e *Engine, id string) {
				_, err := e.Reviews.Get(context.Background(), id)
				assert.ErrorIs(t, err, apperrors.ErrNotFound)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })

			catalog := memory.NewCatalog()
			catalog.Add(domain.ItemKindMovie, "m1")
			reads := &stallingReads{
				ReviewRepository: memory.NewStore(catalog),
				loaded:           make(chan struct{}),
				release:          make(chan struct{}),
			}
			engine := NewEngine(domain.ItemKindMovie, Deps{
				Reviews:    reads,
				Engagement: reads.ReviewRepository.(*memory.Store),
				Cache:      rediscache.NewReviewCache(client, time.Minute),
				Policy:     domain.DefaultReviewPolicy(),
				Logger:     newTestLogger(),
			})
			ctx := context.Background()

			r, _, err := engine.Reviews.Create(ctx, alice, input("m1", 3))
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() {
				got, err := engine.Reviews.Get(ctx, r.ID)
				if err == nil && got.Rating != 3 {
					err = fmt.Errorf("reader saw rating %d, want the pre-write 3", got.Rating)
				}
				done <- err
			}()

			<-reads.loaded
			require.NoError(t, tc.write(ctx, engine, r.ID))
			close(reads.release)
			require.NoError(t, <-done)

			assert.False(t, mr.Exists("review:movie:"+r.ID))
			tc.check(t, engine, r.ID)
		})
	}
}

func TestNewEngine_RejectsUnknownKind(t *testing.T) {
	assert.Panics(t, func() {
		NewEngine(domain.ItemKind("podcast"), Deps{Reviews: memory.NewStore(memory.NewCatalog())})
	})
}

func TestRequester_CanModify(t *testing.T) {
	review := &domain.Review{AuthorID: "alice"}
	comment := &domain.Comment{AuthorID: "bob"}

	assert.True(t, alice.canModify(review))
	assert.False(t, bob.canModify(review))
	assert.True(t, bob.canModify(comment))
	assert.False(t, alice.canModify(comment))
	assert.True(t, admin.canModify(review))
	assert.True(t, admin.canModify(comment))
	assert.False(t, Requester{}.canModify(&domain.Review{}))
}
