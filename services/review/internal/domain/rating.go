package domain

import "math"

// ItemRating is the running aggregate stored on a catalog item. Average is
// kept at full precision; rounding happens only when presenting it.
type ItemRating struct {
	ItemKind ItemKind `json:"item_kind"`
	ItemID   string   `json:"item_id"`
	Sum      int64    `json:"rating_sum"`
	Count    int64    `json:"rating_count"`
	Average  float64  `json:"rating"`
}

// RatingDelta is the change a single review mutation makes to an aggregate.
type RatingDelta struct {
	Sum   int64
	Count int64
}

// IsZero reports whether applying d would leave the aggregate unchanged.
func (d RatingDelta) IsZero() bool {
	return d.Sum == 0 && d.Count == 0
}

// CreateDelta adds one rating.
func CreateDelta(rating int) RatingDelta {
	return RatingDelta{Sum: int64(rating), Count: 1}
}

// UpdateDelta replaces one rating with another.
func UpdateDelta(oldRating, newRating int) RatingDelta {
	return RatingDelta{Sum: int64(newRating - oldRating)}
}

// DeleteDelta removes one rating.
func DeleteDelta(rating int) RatingDelta {
	return RatingDelta{Sum: -int64(rating), Count: -1}
}

// Apply returns the aggregate after d. An aggregate with no ratings left is
// reset to zero.
func (r ItemRating) Apply(d RatingDelta) ItemRating {
	r.Sum += d.Sum
	r.Count += d.Count
	if r.Count <= 0 {
		r.Sum, r.Count = 0, 0
	}
	r.Average = MeanRating(r.Sum, r.Count)
	return r
}

// MeanRating is sum/count, or 0 when there are no ratings.
func MeanRating(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// Rounded returns the average rounded to one decimal place for display.
func (r ItemRating) Rounded() float64 {
	return math.Round(r.Average*10) / 10
}
