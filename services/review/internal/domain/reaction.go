package domain

import "fmt"

// Reaction is a user's current stance on a review.
type Reaction string

const (
	ReactionNone    Reaction = ""
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

// NextReaction returns the state after the user toggles action. Toggling
// the current reaction clears it; toggling the opposite one switches over,
// so a user is never both a liker and a disliker.
func NextReaction(current, action Reaction) (Reaction, error) {
	if action != ReactionLike && action != ReactionDislike {
		return current, fmt.Errorf("invalid reaction action %q", action)
	}
	if current == action {
		return ReactionNone, nil
	}
	return action, nil
}

// Engagement is returned by like/dislike toggles.
type Engagement struct {
	Likes        int  `json:"likes"`
	Dislikes     int  `json:"dislikes"`
	UserLiked    bool `json:"user_liked"`
	UserDisliked bool `json:"user_disliked"`
}

// NewEngagement builds the response for a user whose reaction is now r.
func NewEngagement(likes, dislikes int, r Reaction) Engagement {
	return Engagement{
		Likes:        likes,
		Dislikes:     dislikes,
		UserLiked:    r == ReactionLike,
		UserDisliked: r == ReactionDislike,
	}
}
