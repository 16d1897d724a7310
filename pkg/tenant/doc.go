// Package tenant resolves which organization a request operates on and
// makes that choice impossible to skip further down the stack.
//
// # Resolution order
//
// The Resolver middleware runs after the Auth Gate and tries, in order:
//
//  1. the authenticated identity's organization
//  2. the X-Organization-ID header
//  3. the first label of the Host header matched against organization slugs
//
// Regular users always land on their own organization; the header and
// subdomain paths exist for super admins operating across tenants. The
// resolved organization must be active and not suspended.
//
// # Scope
//
// The result is a Scope: an opaque value only this package constructs.
// Tenant-scoped store methods take a Scope parameter, so a query that
// forgets the tenant predicate does not compile. Handlers read it with
// tenant.FromContext.
//
// Organization lookups go through an expirable LRU so hot tenants do not
// hammer the organizations table; suspension takes effect within the cache
// TTL (30s).
package tenant
