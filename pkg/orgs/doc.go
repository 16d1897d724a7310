// Package orgs manages organizations: the tenants of the system.
//
// An organization carries a plan tier with numeric limits (active users,
// reports per calendar month, equipment). Limit checks return a
// *LimitExceededError that the HTTP layer maps to 409 Conflict, so a tenant
// bumping into its plan is distinguishable from a validation problem.
//
// Suspension and deactivation are separate flags: a suspended organization
// is temporarily blocked (billing), a deactivated one is retired. Both make
// every request from its users fail at the Auth Gate and the Tenant
// Resolver.
package orgs
