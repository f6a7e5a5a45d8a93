package webhooks

import (
	"context"
	"fmt"
	"time"
)

const replayTTL = 24 * time.Hour

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// ReplayGuard marks processed callback identities in Redis so the supplier
// platform can redeliver without the order being reconciled twice.
type ReplayGuard struct {
	store idempotencyStore
	ttl   time.Duration
}

// NewReplayGuard builds the guard on top of the shared Redis client.
func NewReplayGuard(store idempotencyStore) (*ReplayGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	return &ReplayGuard{store: store, ttl: replayTTL}, nil
}

// CheckAndMark returns true when the identity was already processed; otherwise
// it marks the identity and returns false.
func (g *ReplayGuard) CheckAndMark(ctx context.Context, scope, id string) (bool, error) {
	ok, err := g.store.SetNX(ctx, g.store.IdempotencyKey(scope, id), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark callback: %w", err)
	}
	return !ok, nil
}

// Release drops the mark so a failed callback can be redelivered.
func (g *ReplayGuard) Release(ctx context.Context, scope, id string) error {
	return g.store.Del(ctx, g.store.IdempotencyKey(scope, id))
}
