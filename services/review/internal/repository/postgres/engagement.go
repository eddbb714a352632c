package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/database"
	apperrors "github.com/sunil0336/MovieBuffs-sub000/pkg/errors"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
)

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, apperrors.ErrNotFound)
}

// EngagementRepository implements repository.EngagementRepository using
// PostgreSQL. Each mutation locks the review row first.
type EngagementRepository struct {
	pool database.TxBeginner
}

var _ repository.EngagementRepository = (*EngagementRepository)(nil)

// NewEngagementRepository creates a new PostgreSQL-backed engagement repository.
func NewEngagementRepository(pool database.TxBeginner) *EngagementRepository {
	return &EngagementRepository{pool: pool}
}

// lockReviewID takes the review row lock without loading the review.
func lockReviewID(ctx context.Context, tx pgx.Tx, kind domain.ItemKind, id string) error {
	var locked string
	err := tx.QueryRow(ctx, `SELECT id FROM reviews WHERE id = $1 AND item_kind = $2 FOR UPDATE`, id, string(kind)).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ReviewNotFound(id)
		}
		return fmt.Errorf("lock review: %w", err)
	}
	return nil
}

func listReactions(ctx context.Context, q database.DBTX, reviewID string) (likes, dislikes []string, err error) {
	rows, err := q.Query(ctx, `
		SELECT user_id, reaction FROM review_reactions
		WHERE review_id = $1
		ORDER BY created_at, user_id`, reviewID)
	if err != nil {
		return nil, nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, reaction string
		if err := rows.Scan(&userID, &reaction); err != nil {
			return nil, nil, fmt.Errorf("scan reaction row: %w", err)
		}
		if domain.Reaction(reaction) == domain.ReactionLike {
			likes = append(likes, userID)
		} else {
			dislikes = append(dislikes, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate reaction rows: %w", err)
	}
	return likes, dislikes, nil
}

func listComments(ctx context.Context, q database.DBTX, reviewID string) ([]domain.Comment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, review_id, author_id, text, created_at FROM review_comments
		WHERE review_id = $1
		ORDER BY created_at DESC, id DESC`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment rows: %w", err)
	}
	return comments, nil
}

// React implements repository.EngagementRepository. A reaction row holds a
// single value per (review, user), so likes and dislikes cannot overlap.
func (e *EngagementRepository) React(ctx context.Context, kind domain.ItemKind, reviewID, userID string, action domain.Reaction) (eng domain.Engagement, err error) {
	ctx, end := database.TraceQuery(ctx, "ReactToReview", "review_reactions toggle")
	defer func() { end(err) }()

	err = database.WithTx(ctx, e.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if txErr := lockReviewID(ctx, tx, kind, reviewID); txErr != nil {
			return txErr
		}

		var current string
		txErr := tx.QueryRow(ctx,
			`SELECT reaction FROM review_reactions WHERE review_id = $1 AND user_id = $2`,
			reviewID, userID,
		).Scan(&current)
		if txErr != nil && !errors.Is(txErr, pgx.ErrNoRows) {
			return fmt.Errorf("read reaction: %w", txErr)
		}

		next, txErr := domain.NextReaction(domain.Reaction(current), action)
		if txErr != nil {
			return apperrors.InvalidInput(txErr.Error())
		}

		if next == domain.ReactionNone {
			_, txErr = tx.Exec(ctx, `DELETE FROM review_reactions WHERE review_id = $1 AND user_id = $2`, reviewID, userID)
		} else {
			_, txErr = tx.Exec(ctx, `
				INSERT INTO review_reactions (review_id, user_id, reaction, created_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (review_id, user_id) DO UPDATE
				SET reaction = EXCLUDED.reaction, created_at = EXCLUDED.created_at`,
				reviewID, userID, string(next))
		}
		if txErr != nil {
			return fmt.Errorf("write reaction: %w", txErr)
		}

		var likes, dislikes int
		txErr = tx.QueryRow(ctx, `
			SELECT count(*) FILTER (WHERE reaction = 'like'),
			       count(*) FILTER (WHERE reaction = 'dislike')
			FROM review_reactions WHERE review_id = $1`, reviewID).Scan(&likes, &dislikes)
		if txErr != nil {
			return fmt.Errorf("count reactions: %w", txErr)
		}
		eng = domain.NewEngagement(likes, dislikes, next)
		return nil
	})
	if err != nil {
		return domain.Engagement{}, err
	}
	return eng, nil
}

// AddComment implements repository.EngagementRepository.
func (e *EngagementRepository) AddComment(ctx context.Context, kind domain.ItemKind, c *domain.Comment) (comments []domain.Comment, err error) {
	query := `INSERT INTO review_comments (id, review_id, author_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`

	ctx, end := database.TraceQuery(ctx, "AddComment", query)
	defer func() { end(err) }()

	err = database.WithTx(ctx, e.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if txErr := lockReviewID(ctx, tx, kind, c.ReviewID); txErr != nil {
			return txErr
		}
		if _, txErr := tx.Exec(ctx, query, c.ID, c.ReviewID, c.AuthorID, c.Text, c.CreatedAt); txErr != nil {
			return fmt.Errorf("insert comment: %w", txErr)
		}
		var txErr error
		comments, txErr = listComments(ctx, tx, c.ReviewID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteComment implements repository.EngagementRepository.
func (e *EngagementRepository) DeleteComment(ctx context.Context, kind domain.ItemKind, reviewID, commentID string, authorize repository.CommentAuthorizer) (comments []domain.Comment, err error) {
	query := `DELETE FROM review_comments WHERE id = $1 AND review_id = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteComment", query)
	defer func() { end(err) }()

	err = database.WithTx(ctx, e.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if txErr := lockReviewID(ctx, tx, kind, reviewID); txErr != nil {
			return txErr
		}

		var c domain.Comment
		txErr := tx.QueryRow(ctx,
			`SELECT id, review_id, author_id, text, created_at FROM review_comments WHERE id = $1 AND review_id = $2`,
			commentID, reviewID,
		).Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Text, &c.CreatedAt)
		if txErr != nil {
			if errors.Is(txErr, pgx.ErrNoRows) {
				return domain.CommentNotFound(commentID)
			}
			return fmt.Errorf("get comment: %w", txErr)
		}
		if txErr = authorize(&c); txErr != nil {
			return txErr
		}

		if _, txErr = tx.Exec(ctx, query, commentID, reviewID); txErr != nil {
			return fmt.Errorf("delete comment: %w", txErr)
		}
		comments, txErr = listComments(ctx, tx, reviewID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// ListComments implements repository.EngagementRepository.
func (e *EngagementRepository) ListComments(ctx context.Context, kind domain.ItemKind, reviewID string) (comments []domain.Comment, err error) {
	ctx, end := database.TraceQuery(ctx, "ListComments", "SELECT review_comments")
	defer func() { end(err) }()

	var exists bool
	err = e.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE id = $1 AND item_kind = $2)`,
		reviewID, string(kind),
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check review exists: %w", err)
	}
	if !exists {
		return nil, domain.ReviewNotFound(reviewID)
	}
	return listComments(ctx, e.pool, reviewID)
}

var voteQueries = map[domain.VoteType]string{
	domain.VoteHelpful: `
		UPDATE reviews SET helpful_count = helpful_count + 1
		WHERE id = $1 AND item_kind = $2
		RETURNING helpful_count, not_helpful_count`,
	domain.VoteNotHelpful: `
		UPDATE reviews SET not_helpful_count = not_helpful_count + 1
		WHERE id = $1 AND item_kind = $2
		RETURNING helpful_count, not_helpful_count`,
}

// RecordVote implements repository.EngagementRepository with a single atomic
// increment.
func (e *EngagementRepository) RecordVote(ctx context.Context, kind domain.ItemKind, reviewID string, vote domain.VoteType) (tally domain.VoteTally, err error) {
	query, ok := voteQueries[vote]
	if !ok {
		return domain.VoteTally{}, domain.InvalidVoteType(string(vote))
	}

	ctx, end := database.TraceQuery(ctx, "RecordVote", query)
	defer func() { end(err) }()

	err = e.pool.QueryRow(ctx, query, reviewID, string(kind)).Scan(&tally.HelpfulCount, &tally.NotHelpfulCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.VoteTally{}, domain.ReviewNotFound(reviewID)
		}
		return domain.VoteTally{}, fmt.Errorf("record vote: %w", err)
	}
	return tally, nil
}
