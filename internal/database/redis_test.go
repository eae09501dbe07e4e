package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRedis struct {
	mock.Mock
}

func (m *mockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func (m *mockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *mockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}

func (m *mockRedis) Close() error {
	return m.Called().Error(0)
}

func TestRedisStore_Get(t *testing.T) {
	client := &mockRedis{}
	store := NewRedis(client)
	ctx := context.Background()

	client.On("Get", ctx, "token").Return(redis.NewStringResult("abc", nil)).Once()
	client.On("Get", ctx, "missing").Return(redis.NewStringResult("", redis.Nil)).Once()

	val, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", val)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	client.AssertExpectations(t)
}

func TestRedisStore_SetWithoutExpiry(t *testing.T) {
	client := &mockRedis{}
	store := NewRedis(client)
	ctx := context.Background()

	client.On("Set", ctx, "token", "abc", time.Duration(0)).Return(redis.NewStatusResult("OK", nil)).Once()

	require.NoError(t, store.Set(ctx, "token", "abc"))
	client.AssertExpectations(t)
}

func TestRedisStore_Delete(t *testing.T) {
	client := &mockRedis{}
	store := NewRedis(client)
	ctx := context.Background()

	client.On("Del", ctx, []string{"a", "b"}).Return(redis.NewIntResult(1, nil)).Once()

	require.NoError(t, store.Delete(ctx, "a", "b"))
	require.NoError(t, store.Delete(ctx))
	client.AssertExpectations(t)
}

func TestRedisStore_PropagatesErrors(t *testing.T) {
	client := &mockRedis{}
	store := NewRedis(client)
	ctx := context.Background()
	boom := errors.New("connection refused")

	client.On("Get", ctx, "token").Return(redis.NewStringResult("", boom)).Once()

	_, err := store.Get(ctx, "token")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestDoWithTries(t *testing.T) {
	calls := 0
	err := doWithTries(func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = doWithTries(func() error {
		calls++
		return errors.New("down")
	}, 2, time.Millisecond)
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
}
