package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/database"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
)

const uniqueReviewConstraint = "reviews_item_author_key"

const reviewColumns = `r.id, r.item_kind, r.item_id, r.author_id, r.rating, r.title, r.content,
		r.contains_spoilers, r.helpful_count, r.not_helpful_count, r.created_at, r.updated_at`

// engagementJoins adds like, dislike and comment counts computed at query time.
const engagementJoins = `
		LEFT JOIN LATERAL (
			SELECT count(*) FILTER (WHERE reaction = 'like')    AS likes,
			       count(*) FILTER (WHERE reaction = 'dislike') AS dislikes
			FROM review_reactions WHERE review_id = r.id
		) rc ON TRUE
		LEFT JOIN LATERAL (
			SELECT count(*) AS comments FROM review_comments WHERE review_id = r.id
		) cc ON TRUE`

const engagementColumns = `COALESCE(rc.likes, 0), COALESCE(rc.dislikes, 0), COALESCE(cc.comments, 0)`

// sortClauses is the SQL side of domain.SortOrder.Compare.
var sortClauses = map[domain.SortOrder]string{
	domain.SortNewest:       "r.created_at DESC, r.id",
	domain.SortOldest:       "r.created_at ASC, r.id",
	domain.SortHighest:      "r.rating DESC, r.created_at DESC, r.id",
	domain.SortLowest:       "r.rating ASC, r.created_at DESC, r.id",
	domain.SortMostHelpful:  "r.helpful_count DESC, r.created_at DESC, r.id",
	domain.SortMostLiked:    "likes DESC, r.created_at DESC, r.id",
	domain.SortMostDisliked: "dislikes DESC, r.created_at DESC, r.id",
}

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
// The running aggregate lives on the catalog row and is changed in the same
// transaction as the review.
type ReviewRepository struct {
	pool database.TxBeginner
	now  func() time.Time
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.TxBeginner) *ReviewRepository {
	return &ReviewRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

func scanReview(row pgx.Row, r *domain.Review, extra ...any) error {
	var kind string
	dest := []any{
		&r.ID, &kind, &r.ItemID, &r.AuthorID, &r.Rating, &r.Title, &r.Content,
		&r.ContainsSpoilers, &r.HelpfulCount, &r.NotHelpfulCount, &r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	r.ItemKind = domain.ItemKind(kind)
	return nil
}

// lockReview loads a review and holds its row lock until the transaction ends.
func lockReview(ctx context.Context, tx pgx.Tx, kind domain.ItemKind, id string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews r WHERE r.id = $1 AND r.item_kind = $2 FOR UPDATE`

	var r domain.Review
	if err := scanReview(tx.QueryRow(ctx, query, id, string(kind)), &r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ReviewNotFound(id)
		}
		return nil, fmt.Errorf("lock review: %w", err)
	}
	return &r, nil
}

// Create implements repository.ReviewRepository. The insert takes the review
// scope (row plus the unique author key) before the aggregate update locks
// the item row, matching the order of Update and Delete.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (rating domain.ItemRating, err error) {
	query := `
		INSERT INTO reviews (id, item_kind, item_id, author_id, rating, title, content,
		                     contains_spoilers, helpful_count, not_helpful_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9, $10)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		_, txErr := tx.Exec(ctx, query,
			review.ID,
			string(review.ItemKind),
			review.ItemID,
			review.AuthorID,
			review.Rating,
			review.Title,
			review.Content,
			review.ContainsSpoilers,
			review.CreatedAt,
			review.UpdatedAt,
		)
		if txErr != nil {
			if database.IsUniqueViolation(txErr, uniqueReviewConstraint) {
				return domain.DuplicateReview(review.ItemKind, review.ItemID)
			}
			return fmt.Errorf("insert review: %w", txErr)
		}

		// A missing catalog row rolls the insert back as ParentNotFound.
		rating, txErr = applyRatingDelta(ctx, tx, review.ItemKind, review.ItemID, domain.CreateDelta(review.Rating))
		return txErr
	})
	if err != nil {
		return domain.ItemRating{}, err
	}
	return rating, nil
}

// GetByID implements repository.ReviewRepository.
func (r *ReviewRepository) GetByID(ctx context.Context, kind domain.ItemKind, id string) (review *domain.Review, err error) {
	query := `SELECT ` + reviewColumns + `, ` + engagementColumns + `
		FROM reviews r` + engagementJoins + `
		WHERE r.id = $1 AND r.item_kind = $2`

	ctx, end := database.TraceQuery(ctx, "GetReview", query)
	defer func() { end(err) }()

	var rv domain.Review
	err = scanReview(r.pool.QueryRow(ctx, query, id, string(kind)), &rv, &rv.LikeCount, &rv.DislikeCount, &rv.CommentCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ReviewNotFound(id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	if rv.Likes, rv.Dislikes, err = listReactions(ctx, r.pool, id); err != nil {
		return nil, err
	}
	if rv.Comments, err = listComments(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return &rv, nil
}

// engagementCounts reads the derived counts for one review.
func engagementCounts(ctx context.Context, q database.DBTX, rv *domain.Review) error {
	query := `
		SELECT (SELECT count(*) FROM review_reactions WHERE review_id = $1 AND reaction = 'like'),
		       (SELECT count(*) FROM review_reactions WHERE review_id = $1 AND reaction = 'dislike'),
		       (SELECT count(*) FROM review_comments WHERE review_id = $1)`

	if err := q.QueryRow(ctx, query, rv.ID).Scan(&rv.LikeCount, &rv.DislikeCount, &rv.CommentCount); err != nil {
		return fmt.Errorf("count engagement: %w", err)
	}
	return nil
}

// Update implements repository.ReviewRepository.
func (r *ReviewRepository) Update(ctx context.Context, kind domain.ItemKind, id string, mutate repository.ReviewMutator) (review *domain.Review, rating domain.ItemRating, err error) {
	query := `
		UPDATE reviews
		SET rating = $3, title = $4, content = $5, contains_spoilers = $6, updated_at = $7
		WHERE id = $1 AND item_kind = $2`

	ctx, end := database.TraceQuery(ctx, "UpdateReview", query)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		current, txErr := lockReview(ctx, tx, kind, id)
		if txErr != nil {
			return txErr
		}
		previousRating := current.Rating
		updated := *current
		if txErr = mutate(&updated); txErr != nil {
			return txErr
		}
		current.Rating = updated.Rating
		current.Title = updated.Title
		current.Content = updated.Content
		current.ContainsSpoilers = updated.ContainsSpoilers
		current.UpdatedAt = r.now()

		if _, txErr = tx.Exec(ctx, query, id, string(kind),
			current.Rating, current.Title, current.Content, current.ContainsSpoilers, current.UpdatedAt,
		); txErr != nil {
			return fmt.Errorf("update review: %w", txErr)
		}

		if delta := domain.UpdateDelta(previousRating, current.Rating); delta.IsZero() {
			rating, txErr = readRating(ctx, tx, kind, current.ItemID, false)
		} else {
			rating, txErr = applyRatingDelta(ctx, tx, kind, current.ItemID, delta)
		}
		if rating, txErr = orphanRating(kind, current.ItemID, rating, txErr); txErr != nil {
			return txErr
		}
		if txErr = engagementCounts(ctx, tx, current); txErr != nil {
			return txErr
		}
		review = current
		return nil
	})
	if err != nil {
		return nil, domain.ItemRating{}, err
	}
	return review, rating, nil
}

// orphanRating lets Update and Delete succeed on a review whose catalog item
// was removed upstream and whose purge is still pending. The aggregate of a
// missing item is reported as zero.
func orphanRating(kind domain.ItemKind, itemID string, rating domain.ItemRating, err error) (domain.ItemRating, error) {
	if isNotFound(err) {
		return domain.ItemRating{ItemKind: kind, ItemID: itemID}, nil
	}
	return rating, err
}

// Delete implements repository.ReviewRepository. Reactions and comments go
// with the review through ON DELETE CASCADE.
func (r *ReviewRepository) Delete(ctx context.Context, kind domain.ItemKind, id string, authorize repository.ReviewMutator) (review *domain.Review, rating domain.ItemRating, err error) {
	query := `DELETE FROM reviews WHERE id = $1 AND item_kind = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteReview", query)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		current, txErr := lockReview(ctx, tx, kind, id)
		if txErr != nil {
			return txErr
		}
		check := *current
		if txErr = authorize(&check); txErr != nil {
			return txErr
		}

		if _, txErr = tx.Exec(ctx, query, id, string(kind)); txErr != nil {
			return fmt.Errorf("delete review: %w", txErr)
		}

		rating, txErr = applyRatingDelta(ctx, tx, kind, current.ItemID, domain.DeleteDelta(current.Rating))
		if rating, txErr = orphanRating(kind, current.ItemID, rating, txErr); txErr != nil {
			return txErr
		}
		review = current
		return nil
	})
	if err != nil {
		return nil, domain.ItemRating{}, err
	}
	return review, rating, nil
}

// buildWhere renders the filter as a WHERE clause and its arguments.
func buildWhere(f repository.ReviewFilter) (string, []any) {
	conds := []string{"r.item_kind = $1"}
	args := []any{string(f.Kind)}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.ItemID != "" {
		add("r.item_id = ?", f.ItemID)
	}
	if f.AuthorID != "" {
		add("r.author_id = ?", f.AuthorID)
	}
	if f.MinRating > 0 {
		add("r.rating >= ?", f.MinRating)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List implements repository.ReviewRepository. The total is counted
// separately so a page past the end still reports it.
func (r *ReviewRepository) List(ctx context.Context, f repository.ReviewFilter) (reviews []domain.Review, total int, err error) {
	orderBy, ok := sortClauses[f.Sort]
	if !ok {
		return nil, 0, domain.ValidationError("invalid sort order", map[string]string{"sort": "unsupported value"})
	}
	where, args := buildWhere(f)

	countQuery := `SELECT count(*) FROM reviews r` + where
	query := `SELECT ` + reviewColumns + `, ` + engagementColumns + `
		FROM reviews r` + engagementJoins + where + `
		ORDER BY ` + orderBy + `
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	reviews = []domain.Review{}
	if total == 0 || f.Page.Offset() >= total {
		return reviews, total, nil
	}

	rows, err := r.pool.Query(ctx, query, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rv domain.Review
		if err = scanReview(rows, &rv, &rv.LikeCount, &rv.DislikeCount, &rv.CommentCount); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, total, nil
}

// PurgeItem implements repository.ReviewRepository. Review rows are locked
// by the DELETE before the catalog row, matching the mutation lock order.
func (r *ReviewRepository) PurgeItem(ctx context.Context, kind domain.ItemKind, itemID string) (ids []string, err error) {
	query := `DELETE FROM reviews WHERE item_kind = $1 AND item_id = $2 RETURNING id`

	ctx, end := database.TraceQuery(ctx, "PurgeItemReviews", query)
	defer func() { end(err) }()

	ids = []string{}
	err = database.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		rows, txErr := tx.Query(ctx, query, string(kind), itemID)
		if txErr != nil {
			return fmt.Errorf("purge reviews: %w", txErr)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if txErr = rows.Scan(&id); txErr != nil {
				return fmt.Errorf("scan purged id: %w", txErr)
			}
			ids = append(ids, id)
		}
		if txErr = rows.Err(); txErr != nil {
			return fmt.Errorf("iterate purged ids: %w", txErr)
		}
		rows.Close()

		// The catalog row is usually gone already; a missing row is fine.
		txErr = NewCatalogRepository(tx).SetRating(ctx, domain.ItemRating{ItemKind: kind, ItemID: itemID})
		if txErr != nil && !isNotFound(txErr) {
			return txErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetRating implements repository.ReviewRepository.
func (r *ReviewRepository) GetRating(ctx context.Context, kind domain.ItemKind, itemID string) (domain.ItemRating, error) {
	return readRating(ctx, r.pool, kind, itemID, false)
}

// RecomputeRating implements repository.ReviewRepository. It rebuilds the
// aggregate from the review set while holding the catalog row lock.
func (r *ReviewRepository) RecomputeRating(ctx context.Context, kind domain.ItemKind, itemID string) (rating domain.ItemRating, err error) {
	query := `SELECT COALESCE(SUM(rating), 0), count(*) FROM reviews WHERE item_kind = $1 AND item_id = $2`

	ctx, end := database.TraceQuery(ctx, "RecomputeRating", query)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, txErr := readRating(ctx, tx, kind, itemID, true); txErr != nil {
			return txErr
		}
		fresh := domain.ItemRating{ItemKind: kind, ItemID: itemID}
		if txErr := tx.QueryRow(ctx, query, string(kind), itemID).Scan(&fresh.Sum, &fresh.Count); txErr != nil {
			return fmt.Errorf("sum ratings: %w", txErr)
		}
		fresh.Average = domain.MeanRating(fresh.Sum, fresh.Count)
		if txErr := NewCatalogRepository(tx).SetRating(ctx, fresh); txErr != nil {
			return txErr
		}
		rating = fresh
		return nil
	})
	if err != nil {
		return domain.ItemRating{}, err
	}
	return rating, nil
}
