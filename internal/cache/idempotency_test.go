package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotencyStoreTest(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewIdempotencyStore(client, time.Hour), mr
}

func TestIdempotencyLookupMiss(t *testing.T) {
	store, _ := newIdempotencyStoreTest(t)

	rec, err := store.Lookup(context.Background(), "u1", "key-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestIdempotencyReserveSaveReplay(t *testing.T) {
	store, mr := newIdempotencyStoreTest(t)
	ctx := context.Background()

	token, ok, err := store.Reserve(ctx, "u1", "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = store.Reserve(ctx, "u1", "key-1")
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must wait for the first")

	body := json.RawMessage(`{"success":true}`)
	require.NoError(t, store.Save(ctx, "u1", "key-1", token, Record{Status: http.StatusOK, Body: body}))

	rec, err := store.Lookup(ctx, "u1", "key-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, http.StatusOK, rec.Status)
	assert.JSONEq(t, string(body), string(rec.Body))

	_, ok, err = store.Reserve(ctx, "u1", "key-1")
	require.NoError(t, err)
	assert.True(t, ok, "lock is released after save")

	mr.FastForward(2 * time.Hour)
	rec, err = store.Lookup(ctx, "u1", "key-1")
	require.NoError(t, err)
	assert.Nil(t, rec, "records expire")
}

func TestIdempotencyKeysAreUserScoped(t *testing.T) {
	store, _ := newIdempotencyStoreTest(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", "same", "", Record{Status: http.StatusOK, Body: json.RawMessage(`{}`)}))

	rec, err := store.Lookup(ctx, "u2", "same")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestIdempotencyRelease(t *testing.T) {
	store, _ := newIdempotencyStoreTest(t)
	ctx := context.Background()

	token, ok, err := store.Reserve(ctx, "u1", "k")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "u1", "k", token))

	_, ok, err = store.Reserve(ctx, "u1", "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyExpiredHolderKeepsNewerLock(t *testing.T) {
	store, mr := newIdempotencyStoreTest(t)
	ctx := context.Background()

	stale, ok, err := store.Reserve(ctx, "u1", "k")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	fresh, ok, err := store.Reserve(ctx, "u1", "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, stale, fresh)

	require.NoError(t, store.Release(ctx, "u1", "k", stale))
	_, ok, err = store.Reserve(ctx, "u1", "k")
	require.NoError(t, err)
	assert.False(t, ok, "late release must not drop the newer lock")

	require.NoError(t, store.Save(ctx, "u1", "k", stale, Record{Status: http.StatusOK, Body: json.RawMessage(`{}`)}))
	_, ok, err = store.Reserve(ctx, "u1", "k")
	require.NoError(t, err)
	assert.False(t, ok, "late save must not drop the newer lock")

	require.NoError(t, store.Release(ctx, "u1", "k", fresh))
	_, ok, err = store.Reserve(ctx, "u1", "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
