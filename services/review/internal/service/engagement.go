package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/event"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
)

// EngagementService manages likes, dislikes, comments and helpfulness votes.
// None of these touch the aggregate rating.
type EngagementService struct {
	*base
	repo repository.EngagementRepository
}

// ToggleLike flips the requester's like, clearing any prior dislike.
func (s *EngagementService) ToggleLike(ctx context.Context, req Requester, reviewID string) (domain.Engagement, error) {
	return s.react(ctx, req, reviewID, domain.ReactionLike)
}

// ToggleDislike flips the requester's dislike, clearing any prior like.
func (s *EngagementService) ToggleDislike(ctx context.Context, req Requester, reviewID string) (domain.Engagement, error) {
	return s.react(ctx, req, reviewID, domain.ReactionDislike)
}

func (s *EngagementService) react(ctx context.Context, req Requester, reviewID string, action domain.Reaction) (eng domain.Engagement, err error) {
	defer func() { s.record(string(action), err) }()

	if err := requireUser(req); err != nil {
		return domain.Engagement{}, err
	}

	eng, err = s.repo.React(ctx, s.kind, reviewID, req.UserID, action)
	if err != nil {
		return domain.Engagement{}, fmt.Errorf("toggle %s: %w", action, err)
	}
	s.invalidate(ctx, reviewID)

	s.published(ctx, event.TopicReviewEngaged, s.publisher.PublishReviewEngaged(ctx, event.ReviewEngagedData{
		ReviewID: reviewID,
		ItemKind: s.kind.String(),
		UserID:   req.UserID,
		Action:   string(action),
		Detail:   engagementDetail(eng),
	}))

	s.logger.InfoContext(ctx, "review reaction toggled",
		slog.String("review_id", reviewID),
		slog.String("user_id", req.UserID),
		slog.String("action", string(action)),
		slog.Int("likes", eng.Likes),
		slog.Int("dislikes", eng.Dislikes),
	)
	return eng, nil
}

func engagementDetail(e domain.Engagement) string {
	switch {
	case e.UserLiked:
		return "liked"
	case e.UserDisliked:
		return "disliked"
	default:
		return "cleared"
	}
}

// AddComment prepends a comment by the requester and returns the review's
// comments, most recent first.
func (s *EngagementService) AddComment(ctx context.Context, req Requester, reviewID, text string) (comments []domain.Comment, err error) {
	defer func() { s.record("add_comment", err) }()

	if err := requireUser(req); err != nil {
		return nil, err
	}
	text, err = s.policy.ValidateComment(text)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:        uuid.New().String(),
		ReviewID:  reviewID,
		AuthorID:  req.UserID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	comments, err = s.repo.AddComment(ctx, s.kind, comment)
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	s.invalidate(ctx, reviewID)

	s.published(ctx, event.TopicReviewEngaged, s.publisher.PublishReviewEngaged(ctx, event.ReviewEngagedData{
		ReviewID: reviewID,
		ItemKind: s.kind.String(),
		UserID:   req.UserID,
		Action:   event.ActionCommentAdded,
		Detail:   comment.ID,
	}))

	s.logger.InfoContext(ctx, "comment added",
		slog.String("review_id", reviewID),
		slog.String("comment_id", comment.ID),
		slog.String("author_id", req.UserID),
	)
	return comments, nil
}

// DeleteComment removes a comment. Only its author or an administrator may
// delete it.
func (s *EngagementService) DeleteComment(ctx context.Context, req Requester, reviewID, commentID string) (comments []domain.Comment, err error) {
	defer func() { s.record("delete_comment", err) }()

	if err := requireUser(req); err != nil {
		return nil, err
	}

	comments, err = s.repo.DeleteComment(ctx, s.kind, reviewID, commentID, func(c *domain.Comment) error {
		if !req.canModify(c) {
			return domain.NotAuthorized("delete this comment")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete comment: %w", err)
	}
	s.invalidate(ctx, reviewID)

	s.published(ctx, event.TopicReviewEngaged, s.publisher.PublishReviewEngaged(ctx, event.ReviewEngagedData{
		ReviewID: reviewID,
		ItemKind: s.kind.String(),
		UserID:   req.UserID,
		Action:   event.ActionCommentDeleted,
		Detail:   commentID,
	}))

	s.logger.InfoContext(ctx, "comment deleted",
		slog.String("review_id", reviewID),
		slog.String("comment_id", commentID),
		slog.String("deleted_by", req.UserID),
	)
	return comments, nil
}

// ListComments returns a review's comments, most recent first.
func (s *EngagementService) ListComments(ctx context.Context, reviewID string) ([]domain.Comment, error) {
	comments, err := s.repo.ListComments(ctx, s.kind, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// RecordVote counts an anonymous helpful or not-helpful vote. Votes are not
// deduplicated per user.
func (s *EngagementService) RecordVote(ctx context.Context, reviewID, voteType string) (tally domain.VoteTally, err error) {
	defer func() { s.record("vote", err) }()

	vote, err := domain.ParseVoteType(voteType)
	if err != nil {
		return domain.VoteTally{}, err
	}

	tally, err = s.repo.RecordVote(ctx, s.kind, reviewID, vote)
	if err != nil {
		return domain.VoteTally{}, fmt.Errorf("record vote: %w", err)
	}
	s.invalidate(ctx, reviewID)

	s.published(ctx, event.TopicReviewEngaged, s.publisher.PublishReviewEngaged(ctx, event.ReviewEngagedData{
		ReviewID: reviewID,
		ItemKind: s.kind.String(),
		Action:   event.ActionVote,
		Detail:   string(vote),
	}))

	s.logger.InfoContext(ctx, "review vote recorded",
		slog.String("review_id", reviewID),
		slog.String("vote", string(vote)),
		slog.Int("helpful_count", tally.HelpfulCount),
		slog.Int("not_helpful_count", tally.NotHelpfulCount),
	)
	return tally, nil
}
