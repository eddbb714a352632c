package memory

import (
	"context"
	"slices"

	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
)

// React implements repository.EngagementRepository.
func (s *Store) React(_ context.Context, kind domain.ItemKind, reviewID, userID string, action domain.Reaction) (domain.Engagement, error) {
	unlock := s.reviewLocks.Lock(reviewID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(kind, reviewID)
	if err != nil {
		return domain.Engagement{}, err
	}
	next, err := domain.NextReaction(rec.reaction(userID), action)
	if err != nil {
		return domain.Engagement{}, err
	}

	rec.likes = slices.DeleteFunc(rec.likes, func(u string) bool { return u == userID })
	rec.dislikes = slices.DeleteFunc(rec.dislikes, func(u string) bool { return u == userID })
	switch next {
	case domain.ReactionLike:
		rec.likes = append(rec.likes, userID)
	case domain.ReactionDislike:
		rec.dislikes = append(rec.dislikes, userID)
	}
	return domain.NewEngagement(len(rec.likes), len(rec.dislikes), next), nil
}

// AddComment implements repository.EngagementRepository.
func (s *Store) AddComment(_ context.Context, kind domain.ItemKind, comment *domain.Comment) ([]domain.Comment, error) {
	unlock := s.reviewLocks.Lock(comment.ReviewID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(kind, comment.ReviewID)
	if err != nil {
		return nil, err
	}
	rec.comments = slices.Insert(rec.comments, 0, *comment)
	return slices.Clone(rec.comments), nil
}

// DeleteComment implements repository.EngagementRepository.
func (s *Store) DeleteComment(_ context.Context, kind domain.ItemKind, reviewID, commentID string, authorize repository.CommentAuthorizer) ([]domain.Comment, error) {
	unlock := s.reviewLocks.Lock(reviewID)
	defer unlock()

	s.mu.RLock()
	rec, err := s.lookup(kind, reviewID)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	idx := slices.IndexFunc(rec.comments, func(c domain.Comment) bool { return c.ID == commentID })
	if idx < 0 {
		s.mu.RUnlock()
		return nil, domain.CommentNotFound(commentID)
	}
	target := rec.comments[idx]
	s.mu.RUnlock()

	if err := authorize(&target); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec.comments = slices.DeleteFunc(rec.comments, func(c domain.Comment) bool { return c.ID == commentID })
	return slices.Clone(rec.comments), nil
}

// ListComments implements repository.EngagementRepository.
func (s *Store) ListComments(_ context.Context, kind domain.ItemKind, reviewID string) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(kind, reviewID)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(rec.comments)
	if out == nil {
		out = []domain.Comment{}
	}
	return out, nil
}

// RecordVote implements repository.EngagementRepository.
func (s *Store) RecordVote(_ context.Context, kind domain.ItemKind, reviewID string, vote domain.VoteType) (domain.VoteTally, error) {
	unlock := s.reviewLocks.Lock(reviewID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(kind, reviewID)
	if err != nil {
		return domain.VoteTally{}, err
	}
	switch vote {
	case domain.VoteHelpful:
		rec.review.HelpfulCount++
	case domain.VoteNotHelpful:
		rec.review.NotHelpfulCount++
	default:
		return domain.VoteTally{}, domain.InvalidVoteType(string(vote))
	}
	return domain.VoteTally{
		HelpfulCount:    rec.review.HelpfulCount,
		NotHelpfulCount: rec.review.NotHelpfulCount,
	}, nil
}
