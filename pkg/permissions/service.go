package permissions

import (
	"context"
	"fmt"
)

// Service is the admin surface over the matrix: listing and updates, with
// cache invalidation stitched in.
type Service struct {
	store Store
	cache *Cache
}

// NewService creates the permission admin service.
func NewService(store Store, cache *Cache) *Service {
	return &Service{store: store, cache: cache}
}

// Matrix returns every entry for the admin UI.
func (s *Service) Matrix(ctx context.Context) ([]Entry, error) {
	return s.store.LoadAll(ctx)
}

// Update writes one entry plus its audit row, then invalidates the cache so
// the change is live on the next check.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Entry, error) {
	if !req.AccessLevel.Valid() {
		return nil, fmt.Errorf("unknown access level %q", req.AccessLevel)
	}
	if req.Resource == "" || req.Action == "" {
		return nil, fmt.Errorf("resource and action are required")
	}

	entry, err := s.store.Update(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate()
	return entry, nil
}
