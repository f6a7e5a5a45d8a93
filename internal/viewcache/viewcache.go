package viewcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/redis"
	"github.com/google/uuid"
)

const refreshLockTTL = 30 * time.Second

// Well-known view names. Mutating order flows invalidate these.
const (
	ViewOrderCandidates = "order_candidates"
	ViewPendingInbound  = "pending_inbound"
	ViewOrderList       = "orders"
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ViewKey(tenantID, view string) string
}

// Loader produces the current value of a view from the database.
type Loader func(ctx context.Context) (json.RawMessage, error)

// Cache is a stale-while-revalidate cache for read-heavy list views, keyed by
// (tenant, view). A fresh hit is returned as-is; a stale hit inside the stale
// window is returned immediately while one background refresh repopulates the
// key; anything older falls through to a synchronous load.
type Cache struct {
	store       store
	ttl         time.Duration
	staleWindow time.Duration
	log         *logger.Logger
}

type envelope struct {
	Payload     json.RawMessage `json:"payload"`
	RefreshedAt time.Time       `json:"refreshed_at"`
}

// New builds the view cache. ttl is the freshness horizon, staleWindow how long
// past it a stale value may still be served.
func New(client *redis.Client, ttl, staleWindow time.Duration, log *logger.Logger) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if staleWindow < 0 {
		staleWindow = 0
	}
	return &Cache{store: client, ttl: ttl, staleWindow: staleWindow, log: log}, nil
}

// GetOrRefresh returns the cached view, refreshing it according to staleness.
func (c *Cache) GetOrRefresh(ctx context.Context, tenantID uuid.UUID, view string, load Loader) (json.RawMessage, error) {
	if load == nil {
		return nil, fmt.Errorf("loader required")
	}
	key := c.store.ViewKey(tenantID.String(), view)
	now := time.Now().UTC()

	raw, err := c.store.Get(ctx, key)
	if err != nil && !redis.IsNil(err) {
		// Cache trouble must not break reads; fall through to the loader.
		c.log.Warn(ctx, fmt.Sprintf("view cache read failed for %s: %v", view, err))
	}
	if err == nil {
		var entry envelope
		if jsonErr := json.Unmarshal([]byte(raw), &entry); jsonErr == nil {
			age := now.Sub(entry.RefreshedAt)
			if age <= c.ttl {
				return entry.Payload, nil
			}
			if age <= c.ttl+c.staleWindow {
				c.refreshInBackground(ctx, key, view, load)
				return entry.Payload, nil
			}
		}
	}

	payload, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, view, payload, now)
	return payload, nil
}

// Invalidate synchronously drops the given views for a tenant. Mutating order
// transitions call this before returning so the next read rebuilds.
func (c *Cache) Invalidate(ctx context.Context, tenantID uuid.UUID, views ...string) error {
	if len(views) == 0 {
		return nil
	}
	keys := make([]string, 0, len(views))
	for _, view := range views {
		keys = append(keys, c.store.ViewKey(tenantID.String(), view))
	}
	return c.store.Del(ctx, keys...)
}

func (c *Cache) refreshInBackground(ctx context.Context, key, view string, load Loader) {
	lockKey := key + ":refresh"
	ok, err := c.store.SetNX(ctx, lockKey, "1", refreshLockTTL)
	if err != nil || !ok {
		return
	}

	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshLockTTL)
	go func() {
		defer cancel()
		defer func() { _ = c.store.Del(bgCtx, lockKey) }()

		payload, err := load(bgCtx)
		if err != nil {
			c.log.Warn(bgCtx, fmt.Sprintf("background refresh failed for %s: %v", view, err))
			return
		}
		c.put(bgCtx, key, view, payload, time.Now().UTC())
	}()
}

func (c *Cache) put(ctx context.Context, key, view string, payload json.RawMessage, refreshedAt time.Time) {
	entry, err := json.Marshal(envelope{Payload: payload, RefreshedAt: refreshedAt})
	if err != nil {
		c.log.Warn(ctx, fmt.Sprintf("view cache marshal failed for %s: %v", view, err))
		return
	}
	if err := c.store.Set(ctx, key, string(entry), c.ttl+c.staleWindow); err != nil {
		c.log.Warn(ctx, fmt.Sprintf("view cache write failed for %s: %v", view, err))
	}
}
