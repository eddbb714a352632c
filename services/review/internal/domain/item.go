package domain

import (
	"fmt"
	"strings"
)

// ItemKind identifies the type of catalog item a review belongs to.
type ItemKind string

const (
	ItemKindMovie  ItemKind = "movie"
	ItemKindTVShow ItemKind = "tv_show"
)

// ItemKinds lists every supported kind.
var ItemKinds = []ItemKind{ItemKindMovie, ItemKindTVShow}

// ParseItemKind accepts the canonical names plus the URL-style "tv-show".
func ParseItemKind(s string) (ItemKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return ItemKindMovie, nil
	case "tv_show", "tv-show", "tv_shows", "tv-shows":
		return ItemKindTVShow, nil
	default:
		return "", fmt.Errorf("unknown item kind %q", s)
	}
}

func (k ItemKind) String() string { return string(k) }

// Valid reports whether k is a supported kind.
func (k ItemKind) Valid() bool {
	return k == ItemKindMovie || k == ItemKindTVShow
}

// Label is the human-readable name used in error messages.
func (k ItemKind) Label() string {
	if k == ItemKindTVShow {
		return "tv show"
	}
	return string(k)
}
