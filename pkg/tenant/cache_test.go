package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relatoapp/relato/pkg/orgs"
)

type fakeOrgService struct {
	orgs    map[int64]*orgs.Organization
	lookups int
}

func (f *fakeOrgService) GetByID(_ context.Context, id int64) (*orgs.Organization, error) {
	f.lookups++
	if org, ok := f.orgs[id]; ok {
		return org, nil
	}
	return nil, orgs.ErrNotFound
}

func (f *fakeOrgService) GetBySlug(_ context.Context, slug string) (*orgs.Organization, error) {
	f.lookups++
	for _, org := range f.orgs {
		if org.Slug == slug {
			return org, nil
		}
	}
	return nil, orgs.ErrNotFound
}

func (f *fakeOrgService) Create(_ context.Context, org *orgs.Organization) error { return nil }
func (f *fakeOrgService) List(context.Context) ([]*orgs.Organization, error)     { return nil, nil }
func (f *fakeOrgService) Update(context.Context, *orgs.Organization) error       { return nil }
func (f *fakeOrgService) SetSuspended(context.Context, int64, bool) error        { return nil }
func (f *fakeOrgService) SetActive(context.Context, int64, bool) error           { return nil }
func (f *fakeOrgService) CheckUserLimit(context.Context, int64) error            { return nil }
func (f *fakeOrgService) CheckEquipmentLimit(context.Context, int64) error       { return nil }
func (f *fakeOrgService) CheckMonthlyReportLimit(context.Context, int64, time.Time) error {
	return nil
}

func activeOrg(id int64, slug string) *orgs.Organization {
	return &orgs.Organization{
		ID:       id,
		Name:     "Indústria Exemplo",
		Slug:     slug,
		Plan:     orgs.PlanBasico,
		Limits:   orgs.DefaultLimits(orgs.PlanBasico),
		IsActive: true,
	}
}

func TestOrgCache_ServesFromCache(t *testing.T) {
	svc := &fakeOrgService{orgs: map[int64]*orgs.Organization{
		3: activeOrg(3, "industria-exemplo"),
	}}
	cache := NewOrgCache(svc)

	for i := 0; i < 5; i++ {
		org, err := cache.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), org.ID)
	}

	assert.Equal(t, 1, svc.lookups, "repeated reads should hit the cache")
}

func TestOrgCache_SlugLookupPrimesIDKey(t *testing.T) {
	svc := &fakeOrgService{orgs: map[int64]*orgs.Organization{
		3: activeOrg(3, "industria-exemplo"),
	}}
	cache := NewOrgCache(svc)

	_, err := cache.GetBySlug(context.Background(), "industria-exemplo")
	require.NoError(t, err)

	_, err = cache.GetByID(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.lookups)
}

func TestOrgCache_InvalidateForcesReload(t *testing.T) {
	org := activeOrg(3, "industria-exemplo")
	svc := &fakeOrgService{orgs: map[int64]*orgs.Organization{3: org}}
	cache := NewOrgCache(svc)

	_, err := cache.GetByID(context.Background(), 3)
	require.NoError(t, err)

	// suspend and invalidate; next read must observe the new state
	suspended := *org
	suspended.IsSuspended = true
	svc.orgs[3] = &suspended
	cache.Invalidate(org)

	got, err := cache.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, got.IsSuspended)
	assert.Equal(t, 2, svc.lookups)
}

func TestOrgCache_OrgStatus(t *testing.T) {
	org := activeOrg(3, "industria-exemplo")
	org.IsSuspended = true
	svc := &fakeOrgService{orgs: map[int64]*orgs.Organization{3: org}}
	cache := NewOrgCache(svc)

	status, err := cache.OrgStatus(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.True(t, status.Suspended)

	// unknown org reads as deactivated, not an error
	status, err = cache.OrgStatus(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, status.Active)
}
