package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
)

// RatingView is the presented aggregate of one item. Average is rounded to
// one decimal; the stored value keeps full precision.
type RatingView struct {
	ItemKind    string  `json:"item_kind"`
	ItemID      string  `json:"item_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int64   `json:"review_count"`
}

// RatingService exposes the aggregate rating of items.
type RatingService struct {
	*base
}

// GetRating returns the current aggregate of an item.
func (s *RatingService) GetRating(ctx context.Context, itemID string) (*RatingView, error) {
	rating, err := s.reviews.GetRating(ctx, s.kind, itemID)
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return &RatingView{
		ItemKind:    s.kind.String(),
		ItemID:      itemID,
		Rating:      rating.Rounded(),
		ReviewCount: rating.Count,
	}, nil
}

// Recompute rebuilds an item's aggregate from its review set under the item
// lock. It repairs aggregates written outside the engine. Administrators only.
func (s *RatingService) Recompute(ctx context.Context, req Requester, itemID string) (view *RatingView, err error) {
	defer func() { s.record("recompute", err) }()

	if err := requireUser(req); err != nil {
		return nil, err
	}
	if !req.IsAdmin {
		return nil, domain.NotAuthorized("recompute ratings")
	}

	rating, err := s.reviews.RecomputeRating(ctx, s.kind, itemID)
	if err != nil {
		return nil, fmt.Errorf("recompute rating: %w", err)
	}
	s.publishRating(ctx, rating)

	s.logger.InfoContext(ctx, "rating recomputed",
		slog.String("item_id", itemID),
		slog.String("requested_by", req.UserID),
		slog.Int64("review_count", rating.Count),
		slog.Float64("rating", rating.Average),
	)
	return &RatingView{
		ItemKind:    s.kind.String(),
		ItemID:      itemID,
		Rating:      rating.Rounded(),
		ReviewCount: rating.Count,
	}, nil
}
