package permissions

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/observability"
)

// DefaultTTL is how long a built snapshot serves before a rebuild.
const DefaultTTL = 5 * time.Minute

// Cache is the in-process permission matrix snapshot.
type Cache struct {
	store   Store
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	perms   map[auth.AccessLevel]map[string]bool
	builtAt time.Time
	built   bool

	rebuilds singleflight.Group

	// now is replaceable in tests
	now func() time.Time
}

// NewCache creates the cache. It builds lazily on first check.
func NewCache(store Store, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Allowed answers one permission check.
//
// super_admin is allowed unconditionally, even when the store is down.
// For everyone else the stored boolean decides; absent entries deny. When
// the snapshot is expired it is rebuilt (coalesced); when the rebuild fails
// a previous snapshot keeps serving, and with no snapshot at all the check
// denies.
func (c *Cache) Allowed(ctx context.Context, level auth.AccessLevel, resource Resource, action Action) bool {
	if level == auth.LevelSuperAdmin {
		return true
	}

	c.mu.RLock()
	fresh := c.built && c.now().Sub(c.builtAt) < c.ttl
	if fresh {
		allowed := c.perms[level][permKey(resource, action)]
		c.mu.RUnlock()
		if c.metrics != nil {
			c.metrics.PermCacheHitsTotal.Inc()
		}
		return allowed
	}
	c.mu.RUnlock()

	if c.metrics != nil {
		c.metrics.PermCacheMissesTotal.Inc()
	}

	if err := c.rebuild(ctx); err != nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if !c.built {
			// never built: deny everything we cannot verify
			c.logger.WithError(err).Error("permission cache unavailable, denying")
			return false
		}
		c.logger.WithError(err).Warn("permission refresh failed, serving stale")
		if c.metrics != nil {
			c.metrics.PermCacheStaleServes.Inc()
		}
		return c.perms[level][permKey(resource, action)]
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.perms[level][permKey(resource, action)]
}

// Invalidate expires the snapshot so the next check rebuilds. Called after
// every matrix update.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.builtAt = time.Time{}
	c.mu.Unlock()
}

// rebuild loads the matrix once even under concurrent callers.
func (c *Cache) rebuild(ctx context.Context) error {
	_, err, _ := c.rebuilds.Do("rebuild", func() (interface{}, error) {
		entries, err := c.store.LoadAll(ctx)
		if err != nil {
			if c.metrics != nil {
				c.metrics.PermCacheRebuildsTotal.WithLabelValues("error").Inc()
			}
			return nil, err
		}

		perms := make(map[auth.AccessLevel]map[string]bool)
		for _, e := range entries {
			byLevel, ok := perms[e.AccessLevel]
			if !ok {
				byLevel = make(map[string]bool)
				perms[e.AccessLevel] = byLevel
			}
			byLevel[permKey(e.Resource, e.Action)] = e.Allowed
		}

		c.mu.Lock()
		c.perms = perms
		c.builtAt = c.now()
		c.built = true
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.PermCacheRebuildsTotal.WithLabelValues("ok").Inc()
		}
		return nil, nil
	})
	return err
}
