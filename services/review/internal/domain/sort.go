package domain

import (
	"fmt"
	"strings"
)

// SortOrder is the closed set of listing orders.
type SortOrder string

const (
	SortNewest       SortOrder = "newest"
	SortOldest       SortOrder = "oldest"
	SortHighest      SortOrder = "highest"
	SortLowest       SortOrder = "lowest"
	SortMostHelpful  SortOrder = "mostHelpful"
	SortMostLiked    SortOrder = "mostLiked"
	SortMostDisliked SortOrder = "mostDisliked"
)

// reviewCmp orders two reviews; ties fall through to the next comparator.
type reviewCmp func(a, b *Review) int

func byCreated(a, b *Review) int {
	switch {
	case a.CreatedAt.After(b.CreatedAt):
		return -1
	case a.CreatedAt.Before(b.CreatedAt):
		return 1
	}
	return 0
}

func desc(key func(*Review) int) reviewCmp {
	return func(a, b *Review) int { return key(b) - key(a) }
}

func asc(key func(*Review) int) reviewCmp {
	return func(a, b *Review) int { return key(a) - key(b) }
}

// sortTable maps each order to its comparator chain. Every chain ends with
// newest-first and then id so results are deterministic.
var sortTable = map[SortOrder][]reviewCmp{
	SortNewest:       {byCreated},
	SortOldest:       {func(a, b *Review) int { return byCreated(b, a) }},
	SortHighest:      {desc(func(r *Review) int { return r.Rating }), byCreated},
	SortLowest:       {asc(func(r *Review) int { return r.Rating }), byCreated},
	SortMostHelpful:  {desc(func(r *Review) int { return r.HelpfulCount }), byCreated},
	SortMostLiked:    {desc(func(r *Review) int { return r.LikeCount }), byCreated},
	SortMostDisliked: {desc(func(r *Review) int { return r.DislikeCount }), byCreated},
}

// SortOrders lists every accepted value, in documentation order.
var SortOrders = []SortOrder{
	SortNewest, SortOldest, SortHighest, SortLowest, SortMostHelpful, SortMostLiked, SortMostDisliked,
}

// ParseSortOrder resolves s, or returns def when s is empty. Unknown values
// are a validation error.
func ParseSortOrder(s string, def SortOrder) (SortOrder, error) {
	if s == "" {
		return def, nil
	}
	order := SortOrder(s)
	if !order.Valid() {
		names := make([]string, len(SortOrders))
		for i, o := range SortOrders {
			names[i] = string(o)
		}
		return "", ValidationError("invalid sort order", map[string]string{
			"sort": "must be one of " + strings.Join(names, ", "),
		})
	}
	return order, nil
}

// Valid reports whether o is a known order.
func (o SortOrder) Valid() bool {
	_, ok := sortTable[o]
	return ok
}

// Compare orders a before b (negative), after b (positive) or equal (zero)
// under o. o must come from ParseSortOrder; an unknown order panics.
func (o SortOrder) Compare(a, b *Review) int {
	chain, ok := sortTable[o]
	if !ok {
		panic(fmt.Sprintf("unknown sort order %q", o))
	}
	for _, cmp := range chain {
		if c := cmp(a, b); c != 0 {
			return c
		}
	}
	return strings.Compare(a.ID, b.ID)
}
