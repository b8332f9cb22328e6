package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrigoferraz/autovendas-backend/pkg/config"
)

type fakeCmdable struct {
	counts  map[string]int64
	expires map[string]time.Duration
	setKeys map[string]any
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{
		counts:  map[string]int64{},
		expires: map[string]time.Duration{},
		setKeys: map[string]any{},
	}
}

func (f *fakeCmdable) Ping(ctx context.Context) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(ctx)
	cmd.SetErr(goredis.Nil)
	return cmd
}

func (f *fakeCmdable) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *goredis.BoolCmd {
	cmd := goredis.NewBoolCmd(ctx)
	if _, exists := f.setKeys[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	f.setKeys[key] = value
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Incr(ctx context.Context, key string) *goredis.IntCmd {
	f.counts[key]++
	cmd := goredis.NewIntCmd(ctx)
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeCmdable) Expire(ctx context.Context, key string, ttl time.Duration) *goredis.BoolCmd {
	f.expires[key] = ttl
	cmd := goredis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	for _, key := range keys {
		delete(f.setKeys, key)
	}
	cmd := goredis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

func TestOptionsFromConfigAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", PoolSize: 5})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 5, opts.PoolSize)
}

func TestIncrWithTTLSetsExpiryOnFirstHit(t *testing.T) {
	fake := newFakeCmdable()
	client := &Client{store: fake}

	count, err := client.IncrWithTTL(context.Background(), "rl:ip:create:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, fake.expires["rl:ip:create:1.2.3.4"])

	count, err = client.IncrWithTTL(context.Background(), "rl:ip:create:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSetNXAndDel(t *testing.T) {
	fake := newFakeCmdable()
	client := &Client{store: fake}

	ok, err := client.SetNX(context.Background(), "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(context.Background(), "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Del(context.Background(), "lock"))
	ok, err = client.SetNX(context.Background(), "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
