package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
)

type record struct {
	review   domain.Review
	likes    []string
	dislikes []string
	comments []domain.Comment // most recent first
}

func (rec *record) reaction(userID string) domain.Reaction {
	switch {
	case slices.Contains(rec.likes, userID):
		return domain.ReactionLike
	case slices.Contains(rec.dislikes, userID):
		return domain.ReactionDislike
	}
	return domain.ReactionNone
}

// view returns a detached copy with derived counts. Member lists and
// comments are only included when full is set.
func (rec *record) view(full bool) domain.Review {
	r := rec.review
	r.LikeCount = len(rec.likes)
	r.DislikeCount = len(rec.dislikes)
	r.CommentCount = len(rec.comments)
	r.Likes, r.Dislikes, r.Comments = nil, nil, nil
	if full {
		r.Likes = slices.Clone(rec.likes)
		r.Dislikes = slices.Clone(rec.dislikes)
		r.Comments = slices.Clone(rec.comments)
	}
	return r
}

// Store is an in-process implementation of the review and engagement
// repositories. Mutations lock the review first and the catalog item second;
// the aggregate is pushed to the catalog inside the item lock and the review
// change is reverted when that fails.
type Store struct {
	catalog repository.Catalog
	now     func() time.Time

	mu       sync.RWMutex
	reviews  map[string]*record
	byAuthor map[string]string
	ratings  map[string]domain.ItemRating

	reviewLocks *keyedMutex
	itemLocks   *keyedMutex
}

var (
	_ repository.ReviewRepository     = (*Store)(nil)
	_ repository.EngagementRepository = (*Store)(nil)
)

// NewStore creates an empty store backed by catalog.
func NewStore(catalog repository.Catalog) *Store {
	return &Store{
		catalog:     catalog,
		now:         func() time.Time { return time.Now().UTC() },
		reviews:     make(map[string]*record),
		byAuthor:    make(map[string]string),
		ratings:     make(map[string]domain.ItemRating),
		reviewLocks: newKeyedMutex(),
		itemLocks:   newKeyedMutex(),
	}
}

func authorKey(kind domain.ItemKind, itemID, authorID string) string {
	return itemKey(kind, itemID) + ":" + authorID
}

// lookup returns the record for id if it belongs to kind. Caller holds mu.
func (s *Store) lookup(kind domain.ItemKind, id string) (*record, error) {
	rec, ok := s.reviews[id]
	if !ok || rec.review.ItemKind != kind {
		return nil, domain.ReviewNotFound(id)
	}
	return rec, nil
}

func (s *Store) rating(kind domain.ItemKind, itemID string) domain.ItemRating {
	r, ok := s.ratings[itemKey(kind, itemID)]
	if !ok {
		r = domain.ItemRating{ItemKind: kind, ItemID: itemID}
	}
	return r
}

func (s *Store) pushRating(ctx context.Context, r domain.ItemRating) error {
	if err := s.catalog.SetRating(ctx, r); err != nil {
		return fmt.Errorf("set catalog rating: %w", err)
	}
	return nil
}

// Create implements repository.ReviewRepository.
func (s *Store) Create(ctx context.Context, review *domain.Review) (domain.ItemRating, error) {
	unlock := s.itemLocks.Lock(itemKey(review.ItemKind, review.ItemID))
	defer unlock()

	ok, err := s.catalog.Exists(ctx, review.ItemKind, review.ItemID)
	if err != nil {
		return domain.ItemRating{}, fmt.Errorf("check catalog item: %w", err)
	}
	if !ok {
		return domain.ItemRating{}, domain.ParentNotFound(review.ItemKind, review.ItemID)
	}

	akey := authorKey(review.ItemKind, review.ItemID, review.AuthorID)
	ikey := itemKey(review.ItemKind, review.ItemID)

	s.mu.Lock()
	if _, dup := s.byAuthor[akey]; dup {
		s.mu.Unlock()
		return domain.ItemRating{}, domain.DuplicateReview(review.ItemKind, review.ItemID)
	}
	rec := &record{review: *review}
	rec.review.Likes, rec.review.Dislikes, rec.review.Comments = nil, nil, nil
	s.reviews[review.ID] = rec
	s.byAuthor[akey] = review.ID
	before := s.rating(review.ItemKind, review.ItemID)
	after := before.Apply(domain.CreateDelta(review.Rating))
	s.ratings[ikey] = after
	s.mu.Unlock()

	if err := s.pushRating(ctx, after); err != nil {
		s.mu.Lock()
		delete(s.reviews, review.ID)
		delete(s.byAuthor, akey)
		s.ratings[ikey] = before
		s.mu.Unlock()
		return domain.ItemRating{}, err
	}
	return after, nil
}

// GetByID implements repository.ReviewRepository.
func (s *Store) GetByID(_ context.Context, kind domain.ItemKind, id string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(kind, id)
	if err != nil {
		return nil, err
	}
	r := rec.view(true)
	return &r, nil
}

// snapshot copies the current review under the read lock.
func (s *Store) snapshot(kind domain.ItemKind, id string) (*record, domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.lookup(kind, id)
	if err != nil {
		return nil, domain.Review{}, err
	}
	return rec, rec.view(false), nil
}

// Update implements repository.ReviewRepository.
func (s *Store) Update(ctx context.Context, kind domain.ItemKind, id string, mutate repository.ReviewMutator) (*domain.Review, domain.ItemRating, error) {
	unlockReview := s.reviewLocks.Lock(id)
	defer unlockReview()

	rec, current, err := s.snapshot(kind, id)
	if err != nil {
		return nil, domain.ItemRating{}, err
	}
	updated := current
	if err := mutate(&updated); err != nil {
		return nil, domain.ItemRating{}, err
	}
	updated.UpdatedAt = s.now()

	unlockItem := s.itemLocks.Lock(itemKey(kind, current.ItemID))
	defer unlockItem()

	s.mu.Lock()
	if s.reviews[id] != rec {
		s.mu.Unlock()
		return nil, domain.ItemRating{}, domain.ReviewNotFound(id)
	}
	previous := rec.review
	rec.review.Rating = updated.Rating
	rec.review.Title = updated.Title
	rec.review.Content = updated.Content
	rec.review.ContainsSpoilers = updated.ContainsSpoilers
	rec.review.UpdatedAt = updated.UpdatedAt
	delta := domain.UpdateDelta(previous.Rating, updated.Rating)
	before := s.rating(kind, current.ItemID)
	after := before.Apply(delta)
	s.ratings[itemKey(kind, current.ItemID)] = after
	s.mu.Unlock()

	if !delta.IsZero() {
		if err := s.pushRating(ctx, after); err != nil {
			s.mu.Lock()
			rec.review = previous
			s.ratings[itemKey(kind, current.ItemID)] = before
			s.mu.Unlock()
			return nil, domain.ItemRating{}, err
		}
	}

	s.mu.RLock()
	out := rec.view(false)
	s.mu.RUnlock()
	return &out, after, nil
}

// Delete implements repository.ReviewRepository.
func (s *Store) Delete(ctx context.Context, kind domain.ItemKind, id string, authorize repository.ReviewMutator) (*domain.Review, domain.ItemRating, error) {
	unlockReview := s.reviewLocks.Lock(id)
	defer unlockReview()

	rec, current, err := s.snapshot(kind, id)
	if err != nil {
		return nil, domain.ItemRating{}, err
	}
	check := current
	if err := authorize(&check); err != nil {
		return nil, domain.ItemRating{}, err
	}

	unlockItem := s.itemLocks.Lock(itemKey(kind, current.ItemID))
	defer unlockItem()

	akey := authorKey(kind, current.ItemID, current.AuthorID)
	ikey := itemKey(kind, current.ItemID)

	s.mu.Lock()
	if s.reviews[id] != rec {
		s.mu.Unlock()
		return nil, domain.ItemRating{}, domain.ReviewNotFound(id)
	}
	delete(s.reviews, id)
	delete(s.byAuthor, akey)
	before := s.rating(kind, current.ItemID)
	after := before.Apply(domain.DeleteDelta(rec.review.Rating))
	s.ratings[ikey] = after
	s.mu.Unlock()

	if err := s.pushRating(ctx, after); err != nil {
		s.mu.Lock()
		s.reviews[id] = rec
		s.byAuthor[akey] = id
		s.ratings[ikey] = before
		s.mu.Unlock()
		return nil, domain.ItemRating{}, err
	}
	return &current, after, nil
}

// List implements repository.ReviewRepository.
func (s *Store) List(_ context.Context, f repository.ReviewFilter) ([]domain.Review, int, error) {
	s.mu.RLock()
	matched := make([]domain.Review, 0)
	for _, rec := range s.reviews {
		r := &rec.review
		if r.ItemKind != f.Kind ||
			(f.ItemID != "" && r.ItemID != f.ItemID) ||
			(f.AuthorID != "" && r.AuthorID != f.AuthorID) ||
			r.Rating < f.MinRating {
			continue
		}
		matched = append(matched, rec.view(false))
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Review) int { return f.Sort.Compare(&a, &b) })

	total := len(matched)
	start := f.Page.Offset()
	if start >= total {
		return []domain.Review{}, total, nil
	}
	end := min(start+f.Page.Limit, total)
	return matched[start:end], total, nil
}

// PurgeItem implements repository.ReviewRepository.
func (s *Store) PurgeItem(ctx context.Context, kind domain.ItemKind, itemID string) ([]string, error) {
	unlock := s.itemLocks.Lock(itemKey(kind, itemID))
	defer unlock()

	ikey := itemKey(kind, itemID)
	removed := map[string]*record{}

	s.mu.Lock()
	for id, rec := range s.reviews {
		if rec.review.ItemKind == kind && rec.review.ItemID == itemID {
			removed[id] = rec
			delete(s.reviews, id)
			delete(s.byAuthor, authorKey(kind, itemID, rec.review.AuthorID))
		}
	}
	before := s.rating(kind, itemID)
	after := domain.ItemRating{ItemKind: kind, ItemID: itemID}
	s.ratings[ikey] = after
	s.mu.Unlock()

	if err := s.pushRating(ctx, after); err != nil {
		s.mu.Lock()
		for id, rec := range removed {
			s.reviews[id] = rec
			s.byAuthor[authorKey(kind, itemID, rec.review.AuthorID)] = id
		}
		s.ratings[ikey] = before
		s.mu.Unlock()
		return nil, err
	}

	ids := make([]string, 0, len(removed))
	for id := range removed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// GetRating implements repository.ReviewRepository.
func (s *Store) GetRating(ctx context.Context, kind domain.ItemKind, itemID string) (domain.ItemRating, error) {
	ok, err := s.catalog.Exists(ctx, kind, itemID)
	if err != nil {
		return domain.ItemRating{}, fmt.Errorf("check catalog item: %w", err)
	}
	if !ok {
		return domain.ItemRating{}, domain.ParentNotFound(kind, itemID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rating(kind, itemID), nil
}

// RecomputeRating implements repository.ReviewRepository.
func (s *Store) RecomputeRating(ctx context.Context, kind domain.ItemKind, itemID string) (domain.ItemRating, error) {
	unlock := s.itemLocks.Lock(itemKey(kind, itemID))
	defer unlock()

	ok, err := s.catalog.Exists(ctx, kind, itemID)
	if err != nil {
		return domain.ItemRating{}, fmt.Errorf("check catalog item: %w", err)
	}
	if !ok {
		return domain.ItemRating{}, domain.ParentNotFound(kind, itemID)
	}

	s.mu.Lock()
	fresh := domain.ItemRating{ItemKind: kind, ItemID: itemID}
	for _, rec := range s.reviews {
		if rec.review.ItemKind == kind && rec.review.ItemID == itemID {
			fresh = fresh.Apply(domain.CreateDelta(rec.review.Rating))
		}
	}
	before := s.rating(kind, itemID)
	s.ratings[itemKey(kind, itemID)] = fresh
	s.mu.Unlock()

	if err := s.pushRating(ctx, fresh); err != nil {
		s.mu.Lock()
		s.ratings[itemKey(kind, itemID)] = before
		s.mu.Unlock()
		return domain.ItemRating{}, err
	}
	return fresh, nil
}
