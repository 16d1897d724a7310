package notify

import "sync"

// Registry tracks which users have a live connection. At most one
// connection per user: binding a user who is already connected replaces
// the old entry (last connection wins).
type Registry struct {
	mu     sync.Mutex
	byUser map[int64]string
	byConn map[string]int64
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int64]string),
		byConn: make(map[string]int64),
	}
}

// Bind associates a user with a connection id, replacing any previous
// connection for the same user.
func (r *Registry) Bind(userID int64, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok {
		delete(r.byConn, old)
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
}

// Unbind removes a connection. Keyed by connection id so a disconnect
// arriving after the same user reconnected does not evict the newer
// connection.
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
}

// ConnID returns the live connection id for a user, if any.
func (r *Registry) ConnID(userID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID, ok := r.byUser[userID]
	return connID, ok
}

// Online reports whether the user has a live connection.
func (r *Registry) Online(userID int64) bool {
	_, ok := r.ConnID(userID)
	return ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}
