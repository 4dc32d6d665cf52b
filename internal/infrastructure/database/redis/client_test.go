package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph/internal/config"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/MolGraph/pkg/errors"
)

func TestNewClient_ConnectionFailed(t *testing.T) {
	cfg := config.RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	}

	client, err := NewClient(cfg, logging.NewNopLogger())
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeServiceUnavailable))
}

func TestApplyDefaults(t *testing.T) {
	cfg := config.RedisConfig{Addr: "localhost:6379", ReadTimeout: time.Second}
	applyDefaults(&cfg)

	assert.Greater(t, cfg.PoolSize, 0)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
}

func TestClient_Operations(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	ctx := context.Background()

	mock.ExpectSet("foo", "bar", 0).SetVal("OK")
	mock.ExpectGet("foo").SetVal("bar")
	mock.ExpectExists("foo").SetVal(1)
	mock.ExpectDel("foo").SetVal(1)
	mock.ExpectPing().SetVal("PONG")

	require.NoError(t, client.Set(ctx, "foo", "bar", 0).Err())
	val, err := client.Get(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, "bar", val)
	n, err := client.Exists(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, client.Del(ctx, "foo").Err())
	require.NoError(t, client.Ping(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_Close(t *testing.T) {
	db, _ := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	ctx := context.Background()

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	assert.Equal(t, ErrClientClosed, client.Ping(ctx))
	assert.ErrorIs(t, client.Get(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Del(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Exists(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Scan(ctx, 0, "*", 10).Err(), ErrClientClosed)
}
