// Package permissions implements the access-control matrix and its
// in-process cache.
//
// # Model
//
// Permissions are rows of (access_level, resource, action) → allowed. The
// matrix is tiny (four levels, ten resources, four actions) and read on
// every request, so the whole thing is cached in memory and rebuilt at most
// once per TTL (5 minutes by default).
//
// # Semantics
//
//   - super_admin bypasses the matrix entirely and is allowed even when the
//     backing store is down (fail-open for the operator role).
//   - Absent entries deny. A cache that has never been built denies
//     everything except super_admin (fail-closed).
//   - When a rebuild fails and a previous snapshot exists, the stale
//     snapshot keeps serving; availability wins over freshness.
//   - Updating an entry writes the change and a permission_audit row in one
//     transaction, then invalidates the cache, so the new rule is observed
//     on the next check without a restart.
//
// Concurrent rebuilds are coalesced through singleflight: a burst of
// requests hitting an expired cache issues one backing query.
package permissions
