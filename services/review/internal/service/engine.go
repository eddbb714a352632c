package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/sunil0336/MovieBuffs-sub000/pkg/errors"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/event"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
)

var reviewMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "review_mutations_total",
	Help: "Review engine mutations by item kind, operation and outcome.",
}, []string{"kind", "operation", "outcome"})

// Requester is the identity of the caller as supplied by the identity
// collaborator. It is trusted without re-validation.
type Requester struct {
	UserID  string
	IsAdmin bool
}

// Anonymous reports whether no user is attached to the request.
func (r Requester) Anonymous() bool {
	return r.UserID == ""
}

// authored is anything with a single author.
type authored interface {
	IsOwnedBy(userID string) bool
}

// canModify reports whether the requester may change v: administrators may
// change anything, everyone else only what they wrote.
func (r Requester) canModify(v authored) bool {
	return r.IsAdmin || v.IsOwnedBy(r.UserID)
}

func requireUser(r Requester) error {
	if r.Anonymous() {
		return apperrors.Unauthorized("authentication required")
	}
	return nil
}

// Deps are the collaborators shared by the services of one engine.
type Deps struct {
	Reviews    repository.ReviewRepository
	Engagement repository.EngagementRepository
	Cache      repository.ReviewCache
	Publisher  event.Publisher
	Policy     domain.ReviewPolicy
	Logger     *slog.Logger
}

// Engine is the review and rating engine for one item kind.
type Engine struct {
	Kind       domain.ItemKind
	Reviews    *ReviewService
	Engagement *EngagementService
	Ratings    *RatingService
	Queries    *QueryService
}

// NewEngine builds the four services for kind. A nil Cache disables caching
// and a nil Publisher drops events.
func NewEngine(kind domain.ItemKind, deps Deps) *Engine {
	if !kind.Valid() {
		panic(fmt.Sprintf("review engine: unsupported item kind %q", kind))
	}
	if deps.Cache == nil {
		deps.Cache = noopCache{}
	}
	if deps.Publisher == nil {
		deps.Publisher = event.NoopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	b := &base{
		kind:      kind,
		reviews:   deps.Reviews,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		policy:    deps.Policy,
		logger:    deps.Logger.With(slog.String("item_kind", kind.String())),
	}

	queries := &QueryService{base: b}
	return &Engine{
		Kind:       kind,
		Reviews:    &ReviewService{base: b, queries: queries},
		Engagement: &EngagementService{base: b, repo: deps.Engagement},
		Ratings:    &RatingService{base: b},
		Queries:    queries,
	}
}

// base holds what every service of an engine shares.
type base struct {
	kind      domain.ItemKind
	reviews   repository.ReviewRepository
	cache     repository.ReviewCache
	publisher event.Publisher
	policy    domain.ReviewPolicy
	logger    *slog.Logger
}

// record counts a finished mutation.
func (b *base) record(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	reviewMutations.WithLabelValues(b.kind.String(), operation, outcome).Inc()
}

// invalidate drops cached reviews. A cache failure is logged only; entries
// expire on their own.
func (b *base) invalidate(ctx context.Context, ids ...string) {
	if err := b.cache.Invalidate(ctx, b.kind, ids...); err != nil {
		b.logger.WarnContext(ctx, "failed to invalidate review cache",
			slog.Any("review_ids", ids),
			slog.String("error", err.Error()),
		)
	}
}

// published logs a failed publish. Events never fail the request.
func (b *base) published(ctx context.Context, topic string, err error) {
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}

func (b *base) publishRating(ctx context.Context, rating domain.ItemRating) {
	b.published(ctx, event.TopicRatingUpdated, b.publisher.PublishRatingUpdated(ctx, rating))
}

type noopCache struct{}

func (noopCache) Get(context.Context, domain.ItemKind, string) (*domain.Review, int64, error) {
	return nil, 0, nil
}
func (noopCache) Set(context.Context, *domain.Review, int64) error { return nil }
func (noopCache) Invalidate(context.Context, domain.ItemKind, ...string) error { return nil }
