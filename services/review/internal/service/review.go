package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/event"
)

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	ItemID string
	domain.ReviewFields
}

// ReviewService owns the review lifecycle of one item kind.
type ReviewService struct {
	*base
	queries *QueryService
}

// Create validates and stores a new review by the requester. The item's
// aggregate rating is updated in the same atomic unit.
func (s *ReviewService) Create(ctx context.Context, req Requester, input CreateReviewInput) (review *domain.Review, rating domain.ItemRating, err error) {
	defer func() { s.record("create", err) }()

	if err := requireUser(req); err != nil {
		return nil, domain.ItemRating{}, err
	}
	itemID := strings.TrimSpace(input.ItemID)
	if itemID == "" {
		return nil, domain.ItemRating{}, domain.ValidationError("invalid review", map[string]string{"item_id": "is required"})
	}
	fields := input.ReviewFields.Normalize()
	if err := s.policy.ValidateFields(fields); err != nil {
		return nil, domain.ItemRating{}, err
	}

	now := time.Now().UTC()
	review = &domain.Review{
		ID:        uuid.New().String(),
		ItemKind:  s.kind,
		ItemID:    itemID,
		AuthorID:  req.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.Apply(review)

	rating, err = s.reviews.Create(ctx, review)
	if err != nil {
		return nil, domain.ItemRating{}, fmt.Errorf("create review: %w", err)
	}

	s.published(ctx, event.TopicReviewCreated, s.publisher.PublishReviewCreated(ctx, review))
	s.publishRating(ctx, rating)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("item_id", review.ItemID),
		slog.String("author_id", review.AuthorID),
		slog.Int("rating", review.Rating),
		slog.Float64("item_rating", rating.Average),
	)
	return review, rating, nil
}

// Get returns a review with its reactions and comments, reading through the cache.
func (s *ReviewService) Get(ctx context.Context, id string) (*domain.Review, error) {
	cached, gen, cacheErr := s.cache.Get(ctx, s.kind, id)
	if cacheErr != nil {
		s.logger.WarnContext(ctx, "review cache read failed",
			slog.String("review_id", id),
			slog.String("error", cacheErr.Error()),
		)
	} else if cached != nil {
		return cached, nil
	}

	review, err := s.reviews.GetByID(ctx, s.kind, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if cacheErr != nil {
		return review, nil
	}

	if err := s.cache.Set(ctx, review, gen); err != nil {
		s.logger.WarnContext(ctx, "review cache write failed",
			slog.String("review_id", id),
			slog.String("error", err.Error()),
		)
	}
	return review, nil
}

// Update replaces the editable fields of a review. Only the author or an
// administrator may update it.
func (s *ReviewService) Update(ctx context.Context, req Requester, id string, input domain.ReviewFields) (review *domain.Review, rating domain.ItemRating, err error) {
	defer func() { s.record("update", err) }()

	if err := requireUser(req); err != nil {
		return nil, domain.ItemRating{}, err
	}
	fields := input.Normalize()
	if err := s.policy.ValidateFields(fields); err != nil {
		return nil, domain.ItemRating{}, err
	}

	review, rating, err = s.reviews.Update(ctx, s.kind, id, func(current *domain.Review) error {
		if !req.canModify(current) {
			return domain.NotAuthorized("update this review")
		}
		fields.Apply(current)
		return nil
	})
	if err != nil {
		return nil, domain.ItemRating{}, fmt.Errorf("update review: %w", err)
	}
	s.invalidate(ctx, id)

	s.published(ctx, event.TopicReviewUpdated, s.publisher.PublishReviewUpdated(ctx, review))
	s.publishRating(ctx, rating)

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("item_id", review.ItemID),
		slog.String("updated_by", req.UserID),
		slog.Int("rating", review.Rating),
		slog.Float64("item_rating", rating.Average),
	)
	return review, rating, nil
}

// Delete removes a review with its engagement. Only the author or an
// administrator may delete it.
func (s *ReviewService) Delete(ctx context.Context, req Requester, id string) (rating domain.ItemRating, err error) {
	defer func() { s.record("delete", err) }()

	if err := requireUser(req); err != nil {
		return domain.ItemRating{}, err
	}

	review, rating, err := s.reviews.Delete(ctx, s.kind, id, func(current *domain.Review) error {
		if !req.canModify(current) {
			return domain.NotAuthorized("delete this review")
		}
		return nil
	})
	if err != nil {
		return domain.ItemRating{}, fmt.Errorf("delete review: %w", err)
	}
	s.invalidate(ctx, id)

	s.published(ctx, event.TopicReviewDeleted, s.publisher.PublishReviewDeleted(ctx, review, req.UserID))
	s.publishRating(ctx, rating)

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", review.ID),
		slog.String("item_id", review.ItemID),
		slog.String("deleted_by", req.UserID),
		slog.Int64("remaining_reviews", rating.Count),
	)
	return rating, nil
}

// ListByParent returns a page of the reviews of one item.
func (s *ReviewService) ListByParent(ctx context.Context, itemID string, opts ListOptions) (*ListResult, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, domain.ValidationError("invalid listing", map[string]string{"item_id": "is required"})
	}
	opts.ItemID = itemID
	return s.queries.List(ctx, opts)
}

// ListByAuthor returns a page of the reviews written by one user.
func (s *ReviewService) ListByAuthor(ctx context.Context, authorID string, opts ListOptions) (*ListResult, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, domain.ValidationError("invalid listing", map[string]string{"author_id": "is required"})
	}
	opts.AuthorID = authorID
	return s.queries.List(ctx, opts)
}

// PurgeItem removes every review of a catalog item deleted upstream and
// resets its aggregate. It returns the number of reviews removed.
func (s *ReviewService) PurgeItem(ctx context.Context, itemID string) (removed int, err error) {
	defer func() { s.record("purge", err) }()

	ids, err := s.reviews.PurgeItem(ctx, s.kind, itemID)
	if err != nil {
		return 0, fmt.Errorf("purge item reviews: %w", err)
	}
	s.invalidate(ctx, ids...)
	s.publishRating(ctx, domain.ItemRating{ItemKind: s.kind, ItemID: itemID})

	s.logger.InfoContext(ctx, "item reviews purged",
		slog.String("item_id", itemID),
		slog.Int("removed", len(ids)),
	)
	return len(ids), nil
}
