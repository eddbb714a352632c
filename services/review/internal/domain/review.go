package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Review is one user's review of one catalog item.
type Review struct {
	ID               string    `json:"id"`
	ItemKind         ItemKind  `json:"item_kind"`
	ItemID           string    `json:"item_id"`
	AuthorID         string    `json:"author_id"`
	Rating           int       `json:"rating"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	ContainsSpoilers bool      `json:"contains_spoilers"`
	LikeCount        int       `json:"like_count"`
	DislikeCount     int       `json:"dislike_count"`
	CommentCount     int       `json:"comment_count"`
	HelpfulCount     int       `json:"helpful_count"`
	NotHelpfulCount  int       `json:"not_helpful_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Likes, Dislikes and Comments are only populated when a single review
	// is loaded by id.
	Likes    []string  `json:"likes,omitempty"`
	Dislikes []string  `json:"dislikes,omitempty"`
	Comments []Comment `json:"comments,omitempty"`
}

// IsOwnedBy reports whether userID wrote the review.
func (r *Review) IsOwnedBy(userID string) bool {
	return userID != "" && r.AuthorID == userID
}

// Comment is a reply attached to a review.
type Comment struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOwnedBy reports whether userID wrote the comment.
func (c *Comment) IsOwnedBy(userID string) bool {
	return userID != "" && c.AuthorID == userID
}

// ReviewFields are the author-editable parts of a review.
type ReviewFields struct {
	Rating           int
	Title            string
	Content          string
	ContainsSpoilers bool
}

// Normalize trims surrounding whitespace from the text fields.
func (f ReviewFields) Normalize() ReviewFields {
	f.Title = strings.TrimSpace(f.Title)
	f.Content = strings.TrimSpace(f.Content)
	return f
}

// Apply copies the fields onto r.
func (f ReviewFields) Apply(r *Review) {
	r.Rating = f.Rating
	r.Title = f.Title
	r.Content = f.Content
	r.ContainsSpoilers = f.ContainsSpoilers
}

// ReviewPolicy holds the validation bounds for reviews and comments.
type ReviewPolicy struct {
	RatingMin  int
	RatingMax  int
	TitleMax   int
	ContentMin int
	CommentMax int
}

// DefaultReviewPolicy is the canonical 1..10 scale.
func DefaultReviewPolicy() ReviewPolicy {
	return ReviewPolicy{
		RatingMin:  1,
		RatingMax:  10,
		TitleMax:   100,
		ContentMin: 10,
		CommentMax: 1000,
	}
}

// ValidateFields checks a normalized set of review fields.
func (p ReviewPolicy) ValidateFields(f ReviewFields) error {
	fields := map[string]string{}
	if f.Rating < p.RatingMin || f.Rating > p.RatingMax {
		fields["rating"] = fmt.Sprintf("must be between %d and %d", p.RatingMin, p.RatingMax)
	}
	switch n := utf8.RuneCountInString(f.Title); {
	case n == 0:
		fields["title"] = "is required"
	case n > p.TitleMax:
		fields["title"] = fmt.Sprintf("must be at most %d characters", p.TitleMax)
	}
	if utf8.RuneCountInString(f.Content) < p.ContentMin {
		fields["content"] = fmt.Sprintf("must be at least %d characters", p.ContentMin)
	}
	if len(fields) > 0 {
		return ValidationError("invalid review", fields)
	}
	return nil
}

// ValidateComment trims text and checks it against the comment bounds.
func (p ReviewPolicy) ValidateComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", EmptyText()
	}
	if utf8.RuneCountInString(text) > p.CommentMax {
		return "", ValidationError("invalid comment", map[string]string{
			"text": fmt.Sprintf("must be at most %d characters", p.CommentMax),
		})
	}
	return text, nil
}
