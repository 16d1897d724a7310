// Package realtime is the WebSocket transport behind live notification
// pushes. The handshake authenticates with a session token, each accepted
// connection gets a UUID connection id and is bound in the notification
// registry, and Emit writes one JSON event frame to one connection. The
// hub never decides who to notify; that stays with the notification
// service.
package realtime
