package tokenstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "anonboard"), mr
}

func TestStoresRoundTrip(t *testing.T) {
	redisStore, _ := newTestRedisStore(t)
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(afero.NewMemMapFs(), "/home/anon/.anonboard/session.json"),
		"redis":  redisStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, Key)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, Key, "t1"))
			require.NoError(t, store.Set(ctx, Key, "t2"))
			got, err := store.Get(ctx, Key)
			require.NoError(t, err)
			assert.Equal(t, "t2", got)

			require.NoError(t, store.Delete(ctx, Key))
			_, err = store.Get(ctx, Key)
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting again is a no-op
			require.NoError(t, store.Delete(ctx, Key))
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/home/anon/.anonboard/session.json"
	ctx := context.Background()

	require.NoError(t, NewFileStore(fsys, path).Set(ctx, Key, "persisted"))

	info, err := fsys.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	got, err := NewFileStore(fsys, path).Get(ctx, Key)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)

	require.NoError(t, NewFileStore(fsys, path).Delete(ctx, Key))
	exists, err := afero.Exists(fsys, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/t.json", []byte("{oops"), 0o600))

	_, err := NewFileStore(fsys, "/t.json").Get(context.Background(), Key)
	assert.Error(t, err)
}

func TestRedisStoreNamespacesKeys(t *testing.T) {
	store, mr := newTestRedisStore(t)
	require.NoError(t, store.Set(context.Background(), Key, "t1"))

	got, err := mr.Get("anonboard:token")
	require.NoError(t, err)
	assert.Equal(t, "t1", got)
}
