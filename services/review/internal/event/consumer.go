package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/sunil0336/MovieBuffs-sub000/pkg/kafka"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
)

// TopicCatalogItemDeleted is emitted by the catalog when a movie or TV show
// is removed.
var TopicCatalogItemDeleted = pkgkafka.Topic("catalog", "item_deleted")

// ItemPurger removes every review of a deleted catalog item.
type ItemPurger interface {
	PurgeItem(ctx context.Context, itemID string) (int, error)
}

// CatalogItemDeletedData is the expected payload of a catalog.item_deleted event.
type CatalogItemDeletedData struct {
	ItemID   string `json:"item_id"`
	ItemKind string `json:"item_kind"`
}

// Consumer processes incoming Kafka events for the review service.
type Consumer struct {
	logger  *slog.Logger
	purgers map[domain.ItemKind]ItemPurger
}

// NewConsumer creates a new event consumer with one purger per item kind.
func NewConsumer(purgers map[domain.ItemKind]ItemPurger, logger *slog.Logger) *Consumer {
	return &Consumer{
		purgers: purgers,
		logger:  logger,
	}
}

// HandleCatalogItemDeleted purges the reviews of a deleted catalog item.
func (c *Consumer) HandleCatalogItemDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data CatalogItemDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	if data.ItemID == "" {
		return fmt.Errorf("catalog.item_deleted event %s has no item_id", event.EventID)
	}

	kind, err := domain.ParseItemKind(data.ItemKind)
	if err != nil {
		return fmt.Errorf("catalog.item_deleted event %s: %w", event.EventID, err)
	}
	purger, ok := c.purgers[kind]
	if !ok {
		return fmt.Errorf("no review engine for item kind %q", kind)
	}

	c.logger.InfoContext(ctx, "processing catalog.item_deleted event",
		slog.String("item_kind", kind.String()),
		slog.String("item_id", data.ItemID),
	)

	removed, err := purger.PurgeItem(ctx, data.ItemID)
	if err != nil {
		return fmt.Errorf("purge reviews of %s %s: %w", kind, data.ItemID, err)
	}

	c.logger.InfoContext(ctx, "reviews purged for deleted item",
		slog.String("item_kind", kind.String()),
		slog.String("item_id", data.ItemID),
		slog.Int("removed", removed),
	)
	return nil
}
