package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/sunil0336/MovieBuffs-sub000/pkg/kafka"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/logger"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
)

// Kafka topics produced by the review service.
var (
	TopicReviewCreated = pkgkafka.Topic("review", "created")
	TopicReviewUpdated = pkgkafka.Topic("review", "updated")
	TopicReviewDeleted = pkgkafka.Topic("review", "deleted")
	TopicReviewEngaged = pkgkafka.Topic("review", "engaged")
	TopicRatingUpdated = pkgkafka.Topic("rating", "updated")
)

// Aggregate type constants.
const (
	AggregateTypeReview = "review"
	AggregateTypeRating = "item_rating"
)

// SourceReviewService identifies events originating from the review service.
const SourceReviewService = "review-service"

// Engagement actions carried by review.engaged events.
const (
	ActionLike           = "like"
	ActionDislike        = "dislike"
	ActionCommentAdded   = "comment_added"
	ActionCommentDeleted = "comment_deleted"
	ActionVote           = "vote"
)

// ReviewData is the payload for review.created and review.updated events.
type ReviewData struct {
	ID               string `json:"id"`
	ItemKind         string `json:"item_kind"`
	ItemID           string `json:"item_id"`
	AuthorID         string `json:"author_id"`
	Rating           int    `json:"rating"`
	Title            string `json:"title"`
	ContainsSpoilers bool   `json:"contains_spoilers"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ID        string `json:"id"`
	ItemKind  string `json:"item_kind"`
	ItemID    string `json:"item_id"`
	AuthorID  string `json:"author_id"`
	DeletedBy string `json:"deleted_by"`
}

// RatingUpdatedData is the payload for a rating.updated event.
type RatingUpdatedData struct {
	ItemKind    string  `json:"item_kind"`
	ItemID      string  `json:"item_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int64   `json:"review_count"`
}

// ReviewEngagedData is the payload for a review.engaged event.
type ReviewEngagedData struct {
	ReviewID string `json:"review_id"`
	ItemKind string `json:"item_kind"`
	UserID   string `json:"user_id,omitempty"`
	Action   string `json:"action"`
	Detail   string `json:"detail,omitempty"`
}

// Publisher emits review domain events. Failures are reported to the caller,
// which logs them without failing the request.
type Publisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishReviewUpdated(ctx context.Context, review *domain.Review) error
	PublishReviewDeleted(ctx context.Context, review *domain.Review, deletedBy string) error
	PublishRatingUpdated(ctx context.Context, rating domain.ItemRating) error
	PublishReviewEngaged(ctx context.Context, data ReviewEngagedData) error
}

type eventBus interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	bus    eventBus
	logger *slog.Logger
}

var _ Publisher = (*Producer)(nil)

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		bus:    kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.bus.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

func reviewData(r *domain.Review) ReviewData {
	return ReviewData{
		ID:               r.ID,
		ItemKind:         r.ItemKind.String(),
		ItemID:           r.ItemID,
		AuthorID:         r.AuthorID,
		Rating:           r.Rating,
		Title:            r.Title,
		ContainsSpoilers: r.ContainsSpoilers,
	}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, review.ID, AggregateTypeReview, reviewData(review))
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, review.ID, AggregateTypeReview, reviewData(review))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review, deletedBy string) error {
	data := ReviewDeletedData{
		ID:        review.ID,
		ItemKind:  review.ItemKind.String(),
		ItemID:    review.ItemID,
		AuthorID:  review.AuthorID,
		DeletedBy: deletedBy,
	}
	return p.publish(ctx, TopicReviewDeleted, review.ID, AggregateTypeReview, data)
}

// PublishRatingUpdated publishes a rating.updated event keyed by item so
// consumers see an item's ratings in order.
func (p *Producer) PublishRatingUpdated(ctx context.Context, rating domain.ItemRating) error {
	data := RatingUpdatedData{
		ItemKind:    rating.ItemKind.String(),
		ItemID:      rating.ItemID,
		Rating:      rating.Average,
		ReviewCount: rating.Count,
	}
	return p.publish(ctx, TopicRatingUpdated, rating.ItemKind.String()+":"+rating.ItemID, AggregateTypeRating, data)
}

// PublishReviewEngaged publishes a review.engaged event.
func (p *Producer) PublishReviewEngaged(ctx context.Context, data ReviewEngagedData) error {
	return p.publish(ctx, TopicReviewEngaged, data.ReviewID, AggregateTypeReview, data)
}

// NoopPublisher discards every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) PublishReviewCreated(context.Context, *domain.Review) error { return nil }
func (NoopPublisher) PublishReviewUpdated(context.Context, *domain.Review) error { return nil }
func (NoopPublisher) PublishReviewDeleted(context.Context, *domain.Review, string) error {
	return nil
}
func (NoopPublisher) PublishRatingUpdated(context.Context, domain.ItemRating) error { return nil }
func (NoopPublisher) PublishReviewEngaged(context.Context, ReviewEngagedData) error  { return nil }
