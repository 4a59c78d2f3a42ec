package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/configs"
)

func newTestMemory(t *testing.T) (*MemoryKV, *time.Time) {
	t.Helper()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	m := NewMemoryKV()
	m.now = func() time.Time { return now }

	return m, &now
}

func TestMemoryKVGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t)

	_, err := m.Get(ctx, "ledger.cases.1")
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, m.Set(ctx, "ledger.cases.1", []byte("[]"), 0))

	got, err := m.Get(ctx, "ledger.cases.1")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), got)

	// 返回值是副本
	got[0] = 'x'
	again, _ := m.Get(ctx, "ledger.cases.1")
	assert.Equal(t, []byte("[]"), again)

	require.NoError(t, m.Delete(ctx, "ledger.cases.1"))

	ok, err := m.Exists(ctx, "ledger.cases.1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryKVTTL(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(t)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	ok, _ := m.Exists(ctx, "k")
	assert.True(t, ok)

	*now = now.Add(time.Minute)

	ok, _ = m.Exists(ctx, "k")
	assert.False(t, ok)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryKVKeysPattern(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t)

	for _, k := range []string{"ledger.cases.1", "ledger.cases.2", "ledger.incidents.7"} {
		require.NoError(t, m.Set(ctx, k, []byte("x"), 0))
	}

	keys, err := m.Keys(ctx, "ledger.cases.*")
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger.cases.1", "ledger.cases.2"}, keys)

	all, err := m.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNewKVClientMemory(t *testing.T) {
	ctx := context.Background()

	c, err := NewKVClient(ctx, &configs.KVConfig{Type: "memory"})
	require.NoError(t, err)
	assert.Equal(t, KVTypeMemory, c.Type())
	require.NoError(t, c.HealthCheck(ctx))

	_, err = NewKVClient(ctx, &configs.KVConfig{Type: "etcd"})
	assert.Error(t, err)
}

func TestExpiryHeader(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, []byte("payload"), withExpiry([]byte("payload"), 0, now))

	enc := withExpiry([]byte("payload"), time.Hour, now)
	assert.Len(t, enc, expiryHeaderLen+len("payload"))

	val, expired := stripExpiry(enc, now.Add(59*time.Minute))
	assert.False(t, expired)
	assert.Equal(t, []byte("payload"), val)

	_, expired = stripExpiry(enc, now.Add(time.Hour))
	assert.True(t, expired)

	plain, expired := stripExpiry([]byte("ledger"), now)
	assert.False(t, expired)
	assert.Equal(t, []byte("ledger"), plain)
}
