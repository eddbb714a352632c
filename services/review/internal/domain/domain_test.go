package domain

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sunil0336/MovieBuffs-sub000/pkg/errors"
)

// ============================================================================
// Rating aggregate
// ============================================================================

func TestItemRating_CreateUpdateDelete(t *testing.T) {
	var r ItemRating

	r = r.Apply(CreateDelta(8))
	assert.Equal(t, 8.0, r.Average)

	r = r.Apply(CreateDelta(4))
	assert.Equal(t, 6.0, r.Average)

	r = r.Apply(DeleteDelta(8))
	assert.Equal(t, 4.0, r.Average)
	assert.EqualValues(t, 1, r.Count)

	r = r.Apply(DeleteDelta(4))
	assert.Equal(t, ItemRating{}, r)
}

func TestItemRating_UpdateKeepsCount(t *testing.T) {
	r := ItemRating{}.Apply(CreateDelta(3)).Apply(CreateDelta(4))
	r = r.Apply(UpdateDelta(3, 9))

	assert.EqualValues(t, 13, r.Sum)
	assert.EqualValues(t, 2, r.Count)
	assert.Equal(t, 6.5, r.Average)
	assert.True(t, UpdateDelta(5, 5).IsZero())
}

func TestItemRating_FullPrecisionAndRounding(t *testing.T) {
	r := ItemRating{}.Apply(CreateDelta(7)).Apply(CreateDelta(8)).Apply(CreateDelta(8))

	assert.InDelta(t, 7.6666, r.Average, 0.001)
	assert.Equal(t, 7.7, r.Rounded())
}

func TestItemRating_NeverNegative(t *testing.T) {
	r := ItemRating{}.Apply(DeleteDelta(5))
	assert.Equal(t, ItemRating{}, r)
	assert.Equal(t, 0.0, MeanRating(10, 0))
}

// ============================================================================
// Reactions
// ============================================================================

func TestNextReaction_Table(t *testing.T) {
	tests := []struct {
		current, action, want Reaction
	}{
		{ReactionNone, ReactionLike, ReactionLike},
		{ReactionLike, ReactionLike, ReactionNone},
		{ReactionDislike, ReactionLike, ReactionLike},
		{ReactionNone, ReactionDislike, ReactionDislike},
		{ReactionDislike, ReactionDislike, ReactionNone},
		{ReactionLike, ReactionDislike, ReactionDislike},
	}
	for _, tt := range tests {
		got, err := NextReaction(tt.current, tt.action)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q + %q", tt.current, tt.action)
	}
}

func TestNextReaction_InvalidAction(t *testing.T) {
	_, err := NextReaction(ReactionNone, Reaction("love"))
	assert.Error(t, err)
}

func TestNextReaction_LikeSequence(t *testing.T) {
	state := ReactionNone
	var err error
	for _, step := range []struct {
		action Reaction
		want   Engagement
	}{
		{ReactionLike, Engagement{Likes: 1, UserLiked: true}},
		{ReactionDislike, Engagement{Dislikes: 1, UserDisliked: true}},
		{ReactionLike, Engagement{Likes: 1, UserLiked: true}},
	} {
		state, err = NextReaction(state, step.action)
		require.NoError(t, err)

		likes, dislikes := 0, 0
		switch state {
		case ReactionLike:
			likes = 1
		case ReactionDislike:
			dislikes = 1
		}
		assert.Equal(t, step.want, NewEngagement(likes, dislikes, state))
	}
}

// ============================================================================
// Sort orders
// ============================================================================

func TestParseSortOrder(t *testing.T) {
	got, err := ParseSortOrder("", SortMostLiked)
	require.NoError(t, err)
	assert.Equal(t, SortMostLiked, got)

	for _, o := range SortOrders {
		got, err := ParseSortOrder(string(o), SortNewest)
		require.NoError(t, err)
		assert.Equal(t, o, got)
		assert.True(t, o.Valid())
	}

	_, err = ParseSortOrder("popular", SortNewest)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Fields["sort"], "mostDisliked")
}

func TestSortOrder_Compare(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reviews := []*Review{
		{ID: "a", Rating: 5, HelpfulCount: 1, LikeCount: 3, DislikeCount: 0, CreatedAt: base},
		{ID: "b", Rating: 9, HelpfulCount: 4, LikeCount: 1, DislikeCount: 2, CreatedAt: base.Add(time.Hour)},
		{ID: "c", Rating: 5, HelpfulCount: 0, LikeCount: 0, DislikeCount: 5, CreatedAt: base.Add(2 * time.Hour)},
	}

	ids := func(o SortOrder) string {
		cp := append([]*Review(nil), reviews...)
		sort.SliceStable(cp, func(i, j int) bool { return o.Compare(cp[i], cp[j]) < 0 })
		out := make([]string, len(cp))
		for i, r := range cp {
			out[i] = r.ID
		}
		return strings.Join(out, "")
	}

	assert.Equal(t, "cba", ids(SortNewest))
	assert.Equal(t, "abc", ids(SortOldest))
	assert.Equal(t, "bca", ids(SortHighest))
	assert.Equal(t, "cab", ids(SortLowest))
	assert.Equal(t, "bac", ids(SortMostHelpful))
	assert.Equal(t, "abc", ids(SortMostLiked))
	assert.Equal(t, "cba", ids(SortMostDisliked))

	assert.False(t, SortOrder("popular").Valid())
	assert.Panics(t, func() { SortOrder("popular").Compare(reviews[0], reviews[1]) })
}

// ============================================================================
// Policy
// ============================================================================

func TestReviewPolicy_ValidateFields(t *testing.T) {
	p := DefaultReviewPolicy()

	tests := []struct {
		name       string
		fields     ReviewFields
		wantFields []string
	}{
		{name: "valid", fields: ReviewFields{Rating: 7, Title: "T", Content: "1234567890"}},
		{name: "rating low", fields: ReviewFields{Rating: 0, Title: "T", Content: "1234567890"}, wantFields: []string{"rating"}},
		{name: "rating high", fields: ReviewFields{Rating: 11, Title: "T", Content: "1234567890"}, wantFields: []string{"rating"}},
		{name: "missing title", fields: ReviewFields{Rating: 5, Content: "1234567890"}, wantFields: []string{"title"}},
		{name: "long title", fields: ReviewFields{Rating: 5, Title: strings.Repeat("x", 101), Content: "1234567890"}, wantFields: []string{"title"}},
		{name: "short content", fields: ReviewFields{Rating: 5, Title: "T", Content: "too short"}, wantFields: []string{"content"}},
		{name: "everything wrong", fields: ReviewFields{}, wantFields: []string{"rating", "title", "content"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateFields(tt.fields.Normalize())
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, CodeValidation, appErr.Code)
			for _, f := range tt.wantFields {
				assert.Contains(t, appErr.Fields, f)
			}
			assert.Len(t, appErr.Fields, len(tt.wantFields))
		})
	}
}

func TestReviewPolicy_TitleCountsRunes(t *testing.T) {
	p := DefaultReviewPolicy()
	title := strings.Repeat("é", 100)
	assert.NoError(t, p.ValidateFields(ReviewFields{Rating: 5, Title: title, Content: "ünïcödé tëxt"}))
}

func TestReviewPolicy_ValidateComment(t *testing.T) {
	p := DefaultReviewPolicy()

	text, err := p.ValidateComment("  nice review  ")
	require.NoError(t, err)
	assert.Equal(t, "nice review", text)

	_, err = p.ValidateComment("   ")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeEmptyText, appErr.Code)

	_, err = p.ValidateComment(strings.Repeat("x", 1001))
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeValidation, appErr.Code)
}

// ============================================================================
// Votes, kinds and errors
// ============================================================================

func TestParseVoteType(t *testing.T) {
	v, err := ParseVoteType("helpful")
	require.NoError(t, err)
	assert.Equal(t, VoteHelpful, v)

	v, err = ParseVoteType("not-helpful")
	require.NoError(t, err)
	assert.Equal(t, VoteNotHelpful, v)

	_, err = ParseVoteType("funny")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeInvalidVoteType, appErr.Code)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestParseItemKind(t *testing.T) {
	for in, want := range map[string]ItemKind{
		"movie": ItemKindMovie, "Movies": ItemKindMovie,
		"tv_show": ItemKindTVShow, "tv-shows": ItemKindTVShow,
	} {
		got, err := ParseItemKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
		assert.True(t, got.Valid())
	}

	_, err := ParseItemKind("podcast")
	assert.Error(t, err)
	assert.False(t, ItemKind("podcast").Valid())
}

func TestDomainErrors_MapToStatus(t *testing.T) {
	tests := []struct {
		err      *apperrors.AppError
		status   int
		code     string
		sentinel error
	}{
		{ReviewNotFound("r1"), http.StatusNotFound, CodeReviewNotFound, apperrors.ErrNotFound},
		{CommentNotFound("c1"), http.StatusNotFound, CodeCommentNotFound, apperrors.ErrNotFound},
		{ParentNotFound(ItemKindTVShow, "s1"), http.StatusNotFound, CodeParentNotFound, apperrors.ErrNotFound},
		{DuplicateReview(ItemKindMovie, "m1"), http.StatusConflict, CodeDuplicateReview, apperrors.ErrAlreadyExists},
		{NotAuthorized("delete this review"), http.StatusForbidden, CodeNotAuthorized, apperrors.ErrForbidden},
		{EmptyText(), http.StatusBadRequest, CodeEmptyText, apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.Status, tt.code)
		assert.Equal(t, tt.code, tt.err.Code)
		assert.ErrorIs(t, tt.err, tt.sentinel)
	}
	assert.Equal(t, "you have already reviewed this tv show", DuplicateReview(ItemKindTVShow, "x").Message)
}

func TestReview_IsOwnedBy(t *testing.T) {
	r := &Review{AuthorID: "u1"}
	assert.True(t, r.IsOwnedBy("u1"))
	assert.False(t, r.IsOwnedBy("u2"))
	assert.False(t, r.IsOwnedBy(""))

	c := &Comment{AuthorID: "u2"}
	assert.True(t, c.IsOwnedBy("u2"))
	assert.False(t, c.IsOwnedBy("u1"))
	assert.False(t, (&Comment{}).IsOwnedBy(""))
}
