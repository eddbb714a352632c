package service

import (
	"context"
	"fmt"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/pagination"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
)

// ListOptions are the filter, sort and page of a listing. An empty Sort uses
// the listing's default order; a zero Page uses the default page.
type ListOptions struct {
	ItemID    string
	AuthorID  string
	MinRating int
	Sort      string
	Page      pagination.Params
}

// ListResult is one page of reviews.
type ListResult struct {
	Reviews    []domain.Review
	Pagination pagination.Info
}

// QueryService serves read-only listings. Like and dislike counts are
// computed at query time.
type QueryService struct {
	*base
}

// List returns a page of reviews of the engine's kind, newest first by default.
func (s *QueryService) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	return s.list(ctx, opts, domain.SortNewest)
}

// ListTop returns the top reviews across every item of the engine's kind,
// most liked first by default.
func (s *QueryService) ListTop(ctx context.Context, opts ListOptions) (*ListResult, error) {
	opts.ItemID = ""
	opts.AuthorID = ""
	return s.list(ctx, opts, domain.SortMostLiked)
}

func (s *QueryService) list(ctx context.Context, opts ListOptions, def domain.SortOrder) (*ListResult, error) {
	filter, err := s.filter(opts, def)
	if err != nil {
		return nil, err
	}

	reviews, total, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return &ListResult{
		Reviews:    reviews,
		Pagination: pagination.NewInfo(total, filter.Page),
	}, nil
}

func (s *QueryService) filter(opts ListOptions, def domain.SortOrder) (repository.ReviewFilter, error) {
	sort, err := domain.ParseSortOrder(opts.Sort, def)
	if err != nil {
		return repository.ReviewFilter{}, err
	}
	if opts.MinRating != 0 && (opts.MinRating < s.policy.RatingMin || opts.MinRating > s.policy.RatingMax) {
		return repository.ReviewFilter{}, domain.ValidationError("invalid listing", map[string]string{
			"min_rating": fmt.Sprintf("must be between %d and %d", s.policy.RatingMin, s.policy.RatingMax),
		})
	}
	page := opts.Page
	if page == (pagination.Params{}) {
		page = pagination.DefaultParams()
	}
	if err := page.Validate(); err != nil {
		return repository.ReviewFilter{}, err
	}

	return repository.ReviewFilter{
		Kind:      s.kind,
		ItemID:    opts.ItemID,
		AuthorID:  opts.AuthorID,
		MinRating: opts.MinRating,
		Sort:      sort,
		Page:      page,
	}, nil
}
