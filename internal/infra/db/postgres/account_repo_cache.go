package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
	"telegram-login-relay/internal/infra/metrics"
	red "telegram-login-relay/internal/infra/redis"
)

var _ repository.AccountRepository = (*accountRepoCacheDecorator)(nil)

const defaultAccountCacheTTL = 10 * time.Minute

// accountSnapshotTTL caps how long a full account is cached. Balance and plan
// are written by the dashboard, so only the immutable id lives for the full ttl.
const accountSnapshotTTL = 30 * time.Second

type accountRepoCacheDecorator struct {
	inner       repository.AccountRepository
	cache       red.RedisClient
	ttl         time.Duration
	snapshotTTL time.Duration
}

// NewAccountRepoCacheDecorator caches reads made outside a transaction.
// Reads inside a tx always hit the database so they see uncommitted writes.
func NewAccountRepoCacheDecorator(inner repository.AccountRepository, cache red.RedisClient, ttl time.Duration) repository.AccountRepository {
	if ttl <= 0 {
		ttl = defaultAccountCacheTTL
	}
	return &accountRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, snapshotTTL: min(ttl, accountSnapshotTTL)}
}

func accountKey(tgID int64) string   { return fmt.Sprintf("account:tgid:%d", tgID) }
func accountIDKey(tgID int64) string { return fmt.Sprintf("account:id:tgid:%d", tgID) }

func (d *accountRepoCacheDecorator) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Account, error) {
	if tx != nil {
		metrics.IncCacheRequest("account", "bypass")
		return d.inner.FindByTelegramID(ctx, tx, tgID)
	}
	key := accountKey(tgID)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var a model.Account
		if json.Unmarshal([]byte(val), &a) == nil {
			metrics.IncCacheRequest("account", "hit")
			return &a, nil
		}
	}

	metrics.IncCacheRequest("account", "miss")
	a, err := d.inner.FindByTelegramID(ctx, tx, tgID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(a); err == nil {
		_ = d.cache.Set(ctx, key, b, d.snapshotTTL)
	}
	return a, nil
}

// LookupAccountID caches positive answers only; ErrNotFound must not outlive the first login.
func (d *accountRepoCacheDecorator) LookupAccountID(ctx context.Context, tx repository.Tx, tgID int64) (string, error) {
	if tx != nil {
		metrics.IncCacheRequest("account_id", "bypass")
		return d.inner.LookupAccountID(ctx, tx, tgID)
	}
	key := accountIDKey(tgID)
	if id, err := d.cache.Get(ctx, key); err == nil && id != "" {
		metrics.IncCacheRequest("account_id", "hit")
		return id, nil
	}

	metrics.IncCacheRequest("account_id", "miss")
	id, err := d.inner.LookupAccountID(ctx, tx, tgID)
	if err != nil {
		return "", err
	}
	_ = d.cache.Set(ctx, accountIDKey(tgID), id, d.ttl)
	return id, nil
}

func (d *accountRepoCacheDecorator) Ensure(ctx context.Context, tx repository.Tx, tgID int64) (string, bool, error) {
	_ = d.cache.Del(ctx, accountKey(tgID), accountIDKey(tgID))
	return d.inner.Ensure(ctx, tx, tgID)
}
