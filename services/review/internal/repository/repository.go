package repository

import (
	"context"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/pagination"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
)

// ReviewFilter selects and orders a page of reviews. Empty ItemID and
// AuthorID match every item and author of the kind.
type ReviewFilter struct {
	Kind      domain.ItemKind
	ItemID    string
	AuthorID  string
	MinRating int
	Sort      domain.SortOrder
	Page      pagination.Params
}

// ReviewMutator runs under the review's lock before the change is written.
// Returning an error aborts the mutation.
type ReviewMutator func(current *domain.Review) error

// ReviewRepository persists reviews together with the rating aggregate of
// their catalog item. Create, Update and Delete each apply the review change
// and the aggregate change as one atomic unit, locking the review before the
// item.
type ReviewRepository interface {
	// Create inserts the review and adds its rating to the item aggregate.
	// It fails with ParentNotFound or DuplicateReview.
	Create(ctx context.Context, review *domain.Review) (domain.ItemRating, error)

	// GetByID loads a review with its reactions and comments.
	GetByID(ctx context.Context, kind domain.ItemKind, id string) (*domain.Review, error)

	// Update locks the review, lets mutate change it and writes it back,
	// adjusting the aggregate when the rating changed.
	Update(ctx context.Context, kind domain.ItemKind, id string, mutate ReviewMutator) (*domain.Review, domain.ItemRating, error)

	// Delete locks the review, lets authorize veto the deletion, removes the
	// review with its engagement and subtracts its rating from the aggregate.
	Delete(ctx context.Context, kind domain.ItemKind, id string, authorize ReviewMutator) (*domain.Review, domain.ItemRating, error)

	// List returns a page of reviews and the total number matching.
	List(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	// PurgeItem deletes every review of an item, resets its aggregate and
	// returns the ids of the removed reviews.
	PurgeItem(ctx context.Context, kind domain.ItemKind, itemID string) ([]string, error)

	// GetRating reads the stored aggregate of an item.
	GetRating(ctx context.Context, kind domain.ItemKind, itemID string) (domain.ItemRating, error)

	// RecomputeRating rebuilds the aggregate from the review set under the
	// item lock.
	RecomputeRating(ctx context.Context, kind domain.ItemKind, itemID string) (domain.ItemRating, error)
}

// CommentAuthorizer runs under the review's lock before a comment is removed.
type CommentAuthorizer func(comment *domain.Comment) error

// EngagementRepository mutates likes, dislikes, comments and votes. Every
// mutation is serialized per review.
type EngagementRepository interface {
	// React toggles a like or dislike for userID and returns the new counts.
	React(ctx context.Context, kind domain.ItemKind, reviewID, userID string, action domain.Reaction) (domain.Engagement, error)

	// AddComment stores the comment and returns the review's comments,
	// most recent first.
	AddComment(ctx context.Context, kind domain.ItemKind, comment *domain.Comment) ([]domain.Comment, error)

	// DeleteComment removes a comment once authorize allows it and returns
	// the remaining comments.
	DeleteComment(ctx context.Context, kind domain.ItemKind, reviewID, commentID string, authorize CommentAuthorizer) ([]domain.Comment, error)

	// ListComments returns a review's comments, most recent first.
	ListComments(ctx context.Context, kind domain.ItemKind, reviewID string) ([]domain.Comment, error)

	// RecordVote increments one of the helpfulness counters.
	RecordVote(ctx context.Context, kind domain.ItemKind, reviewID string, vote domain.VoteType) (domain.VoteTally, error)
}

// Catalog is the catalog item collaborator. The engine only checks that an
// item exists and writes its derived rating.
type Catalog interface {
	Exists(ctx context.Context, kind domain.ItemKind, itemID string) (bool, error)
	SetRating(ctx context.Context, rating domain.ItemRating) error
}

// ReviewCache is a read-through cache of single reviews. A miss returns a
// nil review and the entry's generation; Set stores only if no Invalidate
// has bumped that generation since, so a fill that raced a write is dropped.
type ReviewCache interface {
	Get(ctx context.Context, kind domain.ItemKind, id string) (review *domain.Review, gen int64, err error)
	Set(ctx context.Context, review *domain.Review, gen int64) error
	Invalidate(ctx context.Context, kind domain.ItemKind, ids ...string) error
}
