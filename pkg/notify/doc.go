// Package notify persists user notifications and pushes them over a live
// connection when the recipient is online. Delivery state lives in two
// places: the notifications table (the durable record) and the in-process
// Registry (user id -> connection id, at most one connection per user).
//
// The generic primitives (Create, NotifyMany, MarkRead) carry the
// mechanism; the domain policies (who gets told about a new report, a
// status change, an inspection) are plain helper methods that compute a
// recipient set and hand it to the primitives. Revising a policy never
// touches the fan-out path.
package notify
