package tenant

import (
	"context"

	"github.com/relatoapp/relato/pkg/contextkeys"
)

// Scope identifies the tenant a request is allowed to touch. Stores take it
// as a required parameter; the zero Scope is invalid and rejected by
// FromContext callers via Valid.
type Scope struct {
	orgID int64
}

// NewScope constructs a scope. Production code gets scopes from the
// Resolver; constructing one directly is for tests and trusted internal
// jobs (the sweeper).
func NewScope(orgID int64) Scope {
	return Scope{orgID: orgID}
}

// OrgID returns the tenant's organization id.
func (s Scope) OrgID() int64 {
	return s.orgID
}

// Valid reports whether the scope identifies a tenant.
func (s Scope) Valid() bool {
	return s.orgID > 0
}

// FromContext returns the scope placed by the Resolver, and whether one is
// present.
func FromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(contextkeys.TenantKey).(Scope)
	return scope, ok && scope.Valid()
}
