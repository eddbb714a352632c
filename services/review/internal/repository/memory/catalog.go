package memory

import (
	"context"
	"sync"

	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
)

// Catalog is an in-process catalog item collaborator. Items must be added
// before they can be reviewed.
type Catalog struct {
	mu      sync.RWMutex
	ratings map[string]domain.ItemRating

	// FailSetRating, when set, is returned by SetRating.
	FailSetRating error
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{ratings: make(map[string]domain.ItemRating)}
}

func itemKey(kind domain.ItemKind, itemID string) string {
	return string(kind) + ":" + itemID
}

// Add registers an item with a zero rating.
func (c *Catalog) Add(kind domain.ItemKind, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ratings[itemKey(kind, itemID)]; !ok {
		c.ratings[itemKey(kind, itemID)] = domain.ItemRating{ItemKind: kind, ItemID: itemID}
	}
}

// Remove drops an item.
func (c *Catalog) Remove(kind domain.ItemKind, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ratings, itemKey(kind, itemID))
}

// Exists implements repository.Catalog.
func (c *Catalog) Exists(_ context.Context, kind domain.ItemKind, itemID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ratings[itemKey(kind, itemID)]
	return ok, nil
}

// SetRating implements repository.Catalog. Ratings for unknown items are
// ignored.
func (c *Catalog) SetRating(_ context.Context, rating domain.ItemRating) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailSetRating != nil {
		return c.FailSetRating
	}
	key := itemKey(rating.ItemKind, rating.ItemID)
	if _, ok := c.ratings[key]; ok {
		c.ratings[key] = rating
	}
	return nil
}

// Rating returns the stored rating of an item.
func (c *Catalog) Rating(kind domain.ItemKind, itemID string) (domain.ItemRating, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.ratings[itemKey(kind, itemID)]
	return r, ok
}
