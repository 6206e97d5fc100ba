//go:build !integration

package postgres

import (
	"context"
	"time"

	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
	red "telegram-login-relay/internal/infra/redis"
)

// mockInnerAccountRepo mocks the database repository the account decorator wraps.
type mockInnerAccountRepo struct {
	FindByTelegramIDFunc func(ctx context.Context, tx repository.Tx, tgID int64) (*model.Account, error)
	LookupAccountIDFunc  func(ctx context.Context, tx repository.Tx, tgID int64) (string, error)
	EnsureFunc           func(ctx context.Context, tx repository.Tx, tgID int64) (string, bool, error)
}

func (m *mockInnerAccountRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Account, error) {
	return m.FindByTelegramIDFunc(ctx, tx, tgID)
}
func (m *mockInnerAccountRepo) LookupAccountID(ctx context.Context, tx repository.Tx, tgID int64) (string, error) {
	return m.LookupAccountIDFunc(ctx, tx, tgID)
}
func (m *mockInnerAccountRepo) Ensure(ctx context.Context, tx repository.Tx, tgID int64) (string, bool, error) {
	return m.EnsureFunc(ctx, tx, tgID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	GetDelFunc func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) GetDel(ctx context.Context, key string) (string, error) {
	return m.GetDelFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error                      { return nil }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) FlushDB(ctx context.Context) error { return nil }
func (m *mockRedisClient) Close() error                      { return nil }
