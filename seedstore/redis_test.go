package seedstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/types"
)

// =============================================================================
// 🧪 RedisStore 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := RedisConfig{Addr: mr.Addr(), Key: "voiceloop:seed"}
	store, err := NewRedisStore(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return mr, store
}

func TestRedisStore_WriteAndConsume(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "Ask about Go experience"))

	payload, ok, err := store.ReadAndConsume(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ask about Go experience", payload)

	// GETDEL 语义：读取后键被清除
	_, ok, err = store.ReadAndConsume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_EmptyPayloadRejected(t *testing.T) {
	mr, store := setupTestRedis(t)

	err := store.Write(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingPayload, types.GetErrorCode(err))
	assert.False(t, mr.Exists("voiceloop:seed"))
}

func TestRedisStore_LastWriteWins(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "first"))
	require.NoError(t, store.Write(ctx, "second"))
	require.NoError(t, store.Write(ctx, "third"))

	payload, ok, err := store.ReadAndConsume(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "third", payload)
}

func TestNewRedisStore_ConnectFailure(t *testing.T) {
	cfg := RedisConfig{Addr: "127.0.0.1:1"}
	_, err := NewRedisStore(cfg, zap.NewNop())
	assert.Error(t, err)
}
