// Package equipment holds the asset catalog of a tenant: sectors,
// locations, the equipment registry, and the per-machine records (motors,
// analyzers, generator inspections). Every store method takes a
// tenant.Scope so an unscoped query does not compile; lookups outside the
// caller's tenant come back as ErrNotFound, indistinguishable from rows
// that never existed.
package equipment
