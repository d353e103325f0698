package credentials_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-spendora-client/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s credentials.Store) {
	t.Helper()

	_, ok := s.Get(credentials.AccessTokenKey)
	require.False(t, ok)

	require.NoError(t, s.Set(credentials.AccessTokenKey, "access-1"))
	require.NoError(t, s.Set(credentials.RefreshTokenKey, "refresh-1"))

	v, ok := s.Get(credentials.AccessTokenKey)
	require.True(t, ok)
	require.Equal(t, "access-1", v)

	require.NoError(t, s.Set(credentials.AccessTokenKey, "access-2"))
	v, _ = s.Get(credentials.AccessTokenKey)
	require.Equal(t, "access-2", v)

	require.NoError(t, s.Remove(credentials.AccessTokenKey))
	_, ok = s.Get(credentials.AccessTokenKey)
	require.False(t, ok)

	// removing twice is fine
	require.NoError(t, s.Remove(credentials.AccessTokenKey))

	v, ok = s.Get(credentials.RefreshTokenKey)
	require.True(t, ok)
	require.Equal(t, "refresh-1", v)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, credentials.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, credentials.NewFileStore(filepath.Join(t.TempDir(), "creds.json")))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "creds.json")

	first := credentials.NewFileStore(path)
	require.NoError(t, first.Set(credentials.AccessTokenKey, "persisted"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second := credentials.NewFileStore(path)
	v, ok := second.Get(credentials.AccessTokenKey)
	require.True(t, ok)
	require.Equal(t, "persisted", v)
}

func TestFileStore_CorruptFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := credentials.NewFileStore(path)
	_, ok := s.Get(credentials.AccessTokenKey)
	require.False(t, ok)

	require.NoError(t, s.Set(credentials.AccessTokenKey, "fresh"))
	v, ok := s.Get(credentials.AccessTokenKey)
	require.True(t, ok)
	require.Equal(t, "fresh", v)
}

func TestFileStore_Encrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")

	s := credentials.NewFileStore(path, credentials.WithPassphrase("hunter2"))
	exerciseStore(t, s)
	require.NoError(t, s.Set(credentials.AccessTokenKey, "secret-access"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret-access")
	require.NotContains(t, string(raw), "refresh-1")

	reopened := credentials.NewFileStore(path, credentials.WithPassphrase("hunter2"))
	v, ok := reopened.Get(credentials.AccessTokenKey)
	require.True(t, ok)
	require.Equal(t, "secret-access", v)

	wrong := credentials.NewFileStore(path, credentials.WithPassphrase("letmein"))
	_, ok = wrong.Get(credentials.AccessTokenKey)
	require.False(t, ok)

	plain := credentials.NewFileStore(path)
	_, ok = plain.Get(credentials.AccessTokenKey)
	require.False(t, ok)
}

func newRedisStore(t *testing.T, ttl time.Duration) (*credentials.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return credentials.NewRedisStore(rdb, "test", ttl), mr
}

func TestRedisStore(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	exerciseStore(t, s)

	v, err := mr.Get("test:" + credentials.RefreshTokenKey)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", v)
}

func TestRedisStore_TTL(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	require.NoError(t, s.Set(credentials.AccessTokenKey, "short-lived"))

	mr.FastForward(2 * time.Minute)

	_, ok := s.Get(credentials.AccessTokenKey)
	require.False(t, ok)
}

func TestRedisStore_UnavailableReadsAsEmpty(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	require.NoError(t, s.Set(credentials.AccessTokenKey, "value"))

	mr.Close()

	_, ok := s.Get(credentials.AccessTokenKey)
	require.False(t, ok)
	require.Error(t, s.Set(credentials.AccessTokenKey, "other"))
}
