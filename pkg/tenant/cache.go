package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/orgs"
)

const (
	orgCacheSize = 512
	orgCacheTTL  = 30 * time.Second
)

// OrgCache fronts organization lookups with an expirable LRU keyed by id
// and by slug. Suspending a tenant takes effect within the TTL.
type OrgCache struct {
	service orgs.Service
	byID    *expirable.LRU[int64, *orgs.Organization]
	bySlug  *expirable.LRU[string, *orgs.Organization]
}

// NewOrgCache creates the lookup cache over the organization service.
func NewOrgCache(service orgs.Service) *OrgCache {
	return &OrgCache{
		service: service,
		byID:    expirable.NewLRU[int64, *orgs.Organization](orgCacheSize, nil, orgCacheTTL),
		bySlug:  expirable.NewLRU[string, *orgs.Organization](orgCacheSize, nil, orgCacheTTL),
	}
}

// GetByID returns the organization, serving from cache when fresh.
func (c *OrgCache) GetByID(ctx context.Context, id int64) (*orgs.Organization, error) {
	if org, ok := c.byID.Get(id); ok {
		return org, nil
	}

	org, err := c.service.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.byID.Add(org.ID, org)
	c.bySlug.Add(org.Slug, org)
	return org, nil
}

// GetBySlug returns the organization, serving from cache when fresh.
func (c *OrgCache) GetBySlug(ctx context.Context, slug string) (*orgs.Organization, error) {
	if org, ok := c.bySlug.Get(slug); ok {
		return org, nil
	}

	org, err := c.service.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	c.byID.Add(org.ID, org)
	c.bySlug.Add(org.Slug, org)
	return org, nil
}

// Invalidate drops a tenant from the cache so an admin mutation (suspend,
// plan change) is observed immediately instead of at TTL expiry.
func (c *OrgCache) Invalidate(org *orgs.Organization) {
	c.byID.Remove(org.ID)
	c.bySlug.Remove(org.Slug)
}

// OrgStatus implements auth.OrgChecker so the Gate shares these lookups.
// A missing organization reads as deactivated rather than erroring: its
// users are locked out either way.
func (c *OrgCache) OrgStatus(ctx context.Context, orgID int64) (auth.OrgStatus, error) {
	org, err := c.GetByID(ctx, orgID)
	if errors.Is(err, orgs.ErrNotFound) {
		return auth.OrgStatus{Active: false}, nil
	}
	if err != nil {
		return auth.OrgStatus{}, fmt.Errorf("looking up organization %d: %w", orgID, err)
	}
	return auth.OrgStatus{Active: org.IsActive, Suspended: org.IsSuspended}, nil
}
