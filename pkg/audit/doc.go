// Package audit records who changed what.
//
// Audit events are append-only rows in audit_logs: actor, organization,
// action, the resource touched, and JSON before/after snapshots. Permission
// updates and tenant-scoped mutations write events; a read-only admin
// endpoint consumes them.
//
// Logging an audit event must never fail the request that triggered it:
// callers use Record, which logs write failures and moves on.
package audit
