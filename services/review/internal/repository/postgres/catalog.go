package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/database"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
)

// catalogTables maps each kind to the catalog table holding its aggregate.
var catalogTables = map[domain.ItemKind]string{
	domain.ItemKindMovie:  "movies",
	domain.ItemKindTVShow: "tv_shows",
}

func catalogTable(kind domain.ItemKind) (string, error) {
	table, ok := catalogTables[kind]
	if !ok {
		return "", fmt.Errorf("unsupported item kind %q", kind)
	}
	return table, nil
}

// CatalogRepository reads and writes the rating columns of catalog rows.
type CatalogRepository struct {
	db database.DBTX
}

var _ repository.Catalog = (*CatalogRepository)(nil)

// NewCatalogRepository creates a catalog collaborator over db.
func NewCatalogRepository(db database.DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Exists reports whether the catalog item exists.
func (c *CatalogRepository) Exists(ctx context.Context, kind domain.ItemKind, itemID string) (ok bool, err error) {
	table, err := catalogTable(kind)
	if err != nil {
		return false, err
	}
	query := `SELECT EXISTS(SELECT 1 FROM ` + table + ` WHERE id = $1)`

	ctx, end := database.TraceQuery(ctx, "CatalogExists", query)
	defer func() { end(err) }()

	if err = c.db.QueryRow(ctx, query, itemID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check %s exists: %w", kind, err)
	}
	return ok, nil
}

// SetRating overwrites the stored aggregate of an item.
func (c *CatalogRepository) SetRating(ctx context.Context, rating domain.ItemRating) (err error) {
	table, err := catalogTable(rating.ItemKind)
	if err != nil {
		return err
	}
	query := `UPDATE ` + table + ` SET rating_sum = $2, rating_count = $3, rating = $4 WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "CatalogSetRating", query)
	defer func() { end(err) }()

	tag, err := c.db.Exec(ctx, query, rating.ItemID, rating.Sum, rating.Count, rating.Average)
	if err != nil {
		return fmt.Errorf("set %s rating: %w", rating.ItemKind, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ParentNotFound(rating.ItemKind, rating.ItemID)
	}
	return nil
}

// GetRating reads the stored aggregate of an item.
func (c *CatalogRepository) GetRating(ctx context.Context, kind domain.ItemKind, itemID string) (domain.ItemRating, error) {
	return readRating(ctx, c.db, kind, itemID, false)
}

// readRating loads an item's aggregate, optionally locking the row.
func readRating(ctx context.Context, q database.DBTX, kind domain.ItemKind, itemID string, lock bool) (domain.ItemRating, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return domain.ItemRating{}, err
	}
	query := `SELECT rating_sum, rating_count, rating FROM ` + table + ` WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	r := domain.ItemRating{ItemKind: kind, ItemID: itemID}
	if err := q.QueryRow(ctx, query, itemID).Scan(&r.Sum, &r.Count, &r.Average); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ItemRating{}, domain.ParentNotFound(kind, itemID)
		}
		return domain.ItemRating{}, fmt.Errorf("read %s rating: %w", kind, err)
	}
	return r, nil
}

// applyRatingDelta atomically adds d to an item's running aggregate and
// returns the result. The UPDATE takes the item row lock until commit.
func applyRatingDelta(ctx context.Context, q database.DBTX, kind domain.ItemKind, itemID string, d domain.RatingDelta) (domain.ItemRating, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return domain.ItemRating{}, err
	}
	query := `
		UPDATE ` + table + `
		SET rating_sum   = GREATEST(rating_sum + $2, 0),
		    rating_count = GREATEST(rating_count + $3, 0),
		    rating       = CASE WHEN rating_count + $3 > 0
		                        THEN (rating_sum + $2)::float8 / (rating_count + $3)
		                        ELSE 0 END
		WHERE id = $1
		RETURNING rating_sum, rating_count, rating`

	r := domain.ItemRating{ItemKind: kind, ItemID: itemID}
	if err := q.QueryRow(ctx, query, itemID, d.Sum, d.Count).Scan(&r.Sum, &r.Count, &r.Average); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ItemRating{}, domain.ParentNotFound(kind, itemID)
		}
		return domain.ItemRating{}, fmt.Errorf("apply %s rating delta: %w", kind, err)
	}
	return r, nil
}
