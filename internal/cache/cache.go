// Package cache implements the tenant-isolated caching layer.
//
// Every key is namespaced by tenant and resource, values are JSON-serialized
// with a server-enforced TTL, and per-tenant counters track hits, misses,
// sets, deletes and errors.
//
// The cache is best-effort by contract: backend failures are logged and
// absorbed, operations return their zero result (false, nil, 0) instead of
// an error, and upstream code treats the layer as "always available,
// sometimes stale or empty". A cache outage degrades performance, never
// correctness.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/helixdesk/tenantstore/internal/logging"
	"github.com/helixdesk/tenantstore/internal/redis"
)

// Validation errors. These indicate caller misuse, not backend trouble.
var (
	ErrMissingTenant   = errors.New("cache: tenant id is required")
	ErrMissingResource = errors.New("cache: resource is required")
)

// store is the consumer interface over the Redis backend.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Scan(ctx context.Context, pattern string, count int) ([]string, error)
	Ping(ctx context.Context) error
	Close()
}

// Options tunes a TenantCache.
type Options struct {
	// DefaultTTL applies when a set operation does not pass one.
	// Default: 1 hour.
	DefaultTTL time.Duration

	// ScanCount is the COUNT hint for SCAN-based invalidation.
	// Default: 100.
	ScanCount int
}

// TenantCache provides namespaced, TTL-bound key-value storage with
// per-tenant observability. A single instance is shared by all tenants and
// is safe for concurrent use.
type TenantCache struct {
	store     store
	logger    *logging.Logger
	ttl       time.Duration
	scanCount int
	stats     *statsRegistry
}

// New creates a TenantCache on top of a key-value store.
func New(s store, logger *logging.Logger, opts Options) *TenantCache {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	if opts.ScanCount <= 0 {
		opts.ScanCount = 100
	}
	return &TenantCache{
		store:     s,
		logger:    logger.Named("cache"),
		ttl:       opts.DefaultTTL,
		scanCount: opts.ScanCount,
		stats:     newStatsRegistry(),
	}
}

// Set serializes value and stores it under key with the given TTL (default
// TTL when omitted). Returns false on any failure.
func (c *TenantCache) Set(ctx context.Context, key Key, value any, ttl ...time.Duration) bool {
	if err := key.Validate(); err != nil {
		c.logger.Warn(ctx, "rejecting invalid cache key", zap.Error(err))
		return false
	}
	return c.setRaw(ctx, key.TenantID, key.String(), value, ttl...)
}

// Get deserializes the value under key into dest. Returns false on a miss,
// malformed data, or backend failure; dest is untouched in those cases.
func (c *TenantCache) Get(ctx context.Context, key Key, dest any) bool {
	if err := key.Validate(); err != nil {
		c.logger.Warn(ctx, "rejecting invalid cache key", zap.Error(err))
		return false
	}
	return c.getRaw(ctx, key.TenantID, key.String(), dest)
}

// GetAs retrieves and deserializes a cached value with type safety.
func GetAs[T any](ctx context.Context, c *TenantCache, key Key) (T, bool) {
	var v T
	ok := c.Get(ctx, key, &v)
	return v, ok
}

// SetHierarchy caches a tenant's hierarchy payload.
func (c *TenantCache) SetHierarchy(ctx context.Context, tenantID string, value any, ttl ...time.Duration) bool {
	if tenantID == "" {
		c.logger.Warn(ctx, "rejecting hierarchy set without tenant")
		return false
	}
	return c.setRaw(ctx, tenantID, hierarchyKey(tenantID), value, ttl...)
}

// Hierarchy retrieves a tenant's cached hierarchy payload.
func (c *TenantCache) Hierarchy(ctx context.Context, tenantID string, dest any) bool {
	if tenantID == "" {
		return false
	}
	return c.getRaw(ctx, tenantID, hierarchyKey(tenantID), dest)
}

// SetUserPermissions caches a user's permissions within a tenant.
func (c *TenantCache) SetUserPermissions(ctx context.Context, userID, tenantID string, value any, ttl ...time.Duration) bool {
	if userID == "" || tenantID == "" {
		c.logger.Warn(ctx, "rejecting permissions set without user or tenant")
		return false
	}
	return c.setRaw(ctx, tenantID, permissionsKey(userID, tenantID), value, ttl...)
}

// UserPermissions retrieves a user's cached permissions within a tenant.
func (c *TenantCache) UserPermissions(ctx context.Context, userID, tenantID string, dest any) bool {
	if userID == "" || tenantID == "" {
		return false
	}
	return c.getRaw(ctx, tenantID, permissionsKey(userID, tenantID), dest)
}

// SetQueryResult caches a query result under a digest of its parameters.
func (c *TenantCache) SetQueryResult(ctx context.Context, tenantID string, params any, value any, ttl ...time.Duration) bool {
	if tenantID == "" {
		c.logger.Warn(ctx, "rejecting query-result set without tenant")
		return false
	}
	hash, err := QueryHash(params)
	if err != nil {
		c.fail(ctx, tenantID, "set", "hash query params", err)
		return false
	}
	return c.setRaw(ctx, tenantID, queryKey(tenantID, hash), value, ttl...)
}

// QueryResult retrieves a cached query result by its parameter digest.
func (c *TenantCache) QueryResult(ctx context.Context, tenantID string, params any, dest any) bool {
	if tenantID == "" {
		return false
	}
	hash, err := QueryHash(params)
	if err != nil {
		c.fail(ctx, tenantID, "get", "hash query params", err)
		return false
	}
	return c.getRaw(ctx, tenantID, queryKey(tenantID, hash), dest)
}

// Invalidate removes every key in a tenant's namespace, optionally narrowed
// to one resource. Returns the number of keys deleted; 0 deleted keys is not
// an error.
//
// Enumeration uses a cursor-based SCAN followed by DEL. The two phases are
// not atomic: a key written between them survives the invalidation. That
// window is acceptable for a best-effort cache.
func (c *TenantCache) Invalidate(ctx context.Context, tenantID string, resource ...string) int {
	if tenantID == "" {
		return 0
	}
	res := ""
	if len(resource) > 0 {
		res = resource[0]
	}
	return c.invalidatePattern(ctx, tenantID, tenantPattern(tenantID, res))
}

// InvalidateHierarchy removes a tenant's cached hierarchy.
func (c *TenantCache) InvalidateHierarchy(ctx context.Context, tenantID string) bool {
	if tenantID == "" {
		return false
	}
	n, err := c.store.Del(ctx, hierarchyKey(tenantID))
	if err != nil {
		c.fail(ctx, tenantID, "delete", "hierarchy invalidation failed", err)
		return false
	}
	c.stats.deletes(tenantID, uint64(n))
	operationsTotal.WithLabelValues("delete", "ok").Inc()
	return true
}

// InvalidateUserPermissions removes a user's cached permissions, across all
// tenants when tenantID is omitted. Returns the number of keys deleted.
func (c *TenantCache) InvalidateUserPermissions(ctx context.Context, userID string, tenantID ...string) int {
	if userID == "" {
		return 0
	}
	tid := ""
	if len(tenantID) > 0 {
		tid = tenantID[0]
	}
	return c.invalidatePattern(ctx, tid, permissionsPattern(userID, tid))
}

// InvalidateQueryCache removes all cached query results for a tenant.
func (c *TenantCache) InvalidateQueryCache(ctx context.Context, tenantID string) int {
	if tenantID == "" {
		return 0
	}
	return c.invalidatePattern(ctx, tenantID, queryPattern(tenantID))
}

// ClearTenant removes every cache entry belonging to a tenant across all
// namespaces. Used for tenant offboarding. Returns the number of keys
// deleted.
func (c *TenantCache) ClearTenant(ctx context.Context, tenantID string) int {
	if tenantID == "" {
		return 0
	}

	total := c.invalidatePattern(ctx, tenantID, tenantPattern(tenantID, ""))
	total += c.invalidatePattern(ctx, tenantID, queryPattern(tenantID))
	total += c.invalidatePattern(ctx, tenantID, "permissions:*:"+escapeSegment(tenantID))

	if n, err := c.store.Del(ctx, hierarchyKey(tenantID)); err != nil {
		c.fail(ctx, tenantID, "delete", "hierarchy delete failed", err)
	} else {
		c.stats.deletes(tenantID, uint64(n))
		total += int(n)
	}

	c.logger.Info(ctx, "cleared tenant cache",
		zap.String("tenant_id", tenantID),
		zap.Int("keys_deleted", total),
	)
	return total
}

// Stats returns a snapshot of one tenant's counters.
func (c *TenantCache) Stats(tenantID string) Stats {
	return c.stats.snapshot(tenantID)
}

// AllStats returns a snapshot of every tenant's counters.
func (c *TenantCache) AllStats() map[string]Stats {
	return c.stats.snapshotAll()
}

// ResetStats clears counters for one tenant, or all tenants when omitted.
func (c *TenantCache) ResetStats(tenantID ...string) {
	tid := ""
	if len(tenantID) > 0 {
		tid = tenantID[0]
	}
	c.stats.reset(tid)
}

// Connected reports whether the backend answers a liveness probe.
func (c *TenantCache) Connected(ctx context.Context) bool {
	return c.store.Ping(ctx) == nil
}

// Close releases the underlying connection.
func (c *TenantCache) Close() {
	c.store.Close()
}

// setRaw stores a pre-built key.
func (c *TenantCache) setRaw(ctx context.Context, tenantID, key string, value any, ttl ...time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		c.fail(ctx, tenantID, "set", "marshal cache value", err)
		return false
	}

	expiry := c.ttl
	if len(ttl) > 0 && ttl[0] > 0 {
		expiry = ttl[0]
	}

	if err := c.store.SetWithTTL(ctx, key, data, expiry); err != nil {
		c.fail(ctx, tenantID, "set", "cache set failed", err, zap.String("key", key))
		return false
	}

	c.stats.set(tenantID)
	operationsTotal.WithLabelValues("set", "ok").Inc()
	return true
}

// getRaw loads and deserializes a pre-built key.
func (c *TenantCache) getRaw(ctx context.Context, tenantID, key string, dest any) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			c.stats.miss(tenantID)
			operationsTotal.WithLabelValues("get", "miss").Inc()
			return false
		}
		c.fail(ctx, tenantID, "get", "cache get failed", err, zap.String("key", key))
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.fail(ctx, tenantID, "get", "malformed cache value", err, zap.String("key", key))
		return false
	}

	c.stats.hit(tenantID)
	operationsTotal.WithLabelValues("get", "hit").Inc()
	return true
}

// invalidatePattern enumerates keys matching pattern, then deletes them.
// tenantID may be empty when the pattern spans tenants; stats are only
// attributed when it is known.
func (c *TenantCache) invalidatePattern(ctx context.Context, tenantID, pattern string) int {
	keys, err := c.store.Scan(ctx, pattern, c.scanCount)
	if err != nil {
		c.fail(ctx, tenantID, "invalidate", "cache scan failed", err, zap.String("pattern", pattern))
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	n, err := c.store.Del(ctx, keys...)
	if err != nil {
		c.fail(ctx, tenantID, "invalidate", "cache delete failed", err, zap.String("pattern", pattern))
		return 0
	}

	if tenantID != "" {
		c.stats.deletes(tenantID, uint64(n))
	}
	operationsTotal.WithLabelValues("invalidate", "ok").Inc()
	invalidatedKeysTotal.Add(float64(n))
	return int(n)
}

// isNotFound reports whether err is the backend's key-absent sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, redis.ErrKeyNotFound)
}

// fail records a backend or serialization failure without surfacing it.
func (c *TenantCache) fail(ctx context.Context, tenantID, op, msg string, err error, fields ...zap.Field) {
	if tenantID != "" {
		c.stats.err(tenantID)
	}
	operationsTotal.WithLabelValues(op, "error").Inc()
	c.logger.Error(ctx, msg, append(fields, zap.String("tenant_id", tenantID), zap.Error(err))...)
}
