package tokenstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "token.db"), "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"memory": NewMemory(), "sqlite": sq}
}

func TestStoreSlot(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := s.Read()
			require.False(t, ok)

			s.Write("a")
			s.Write("b")
			tok, ok := s.Read()
			require.True(t, ok)
			require.Equal(t, "b", tok)

			s.Clear()
			_, ok = s.Read()
			require.False(t, ok)
			s.Clear()
			_, ok = s.Read()
			require.False(t, ok)
		})
	}
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token.db")

	s, err := OpenSQLite(ctx, path, "session", nil)
	require.NoError(t, err)
	s.Write("persisted")
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path, "session", nil)
	require.NoError(t, err)
	tok, ok := s.Read()
	require.True(t, ok)
	require.Equal(t, "persisted", tok)

	other, err := OpenSQLite(ctx, path, "other", nil)
	require.NoError(t, err)
	_, ok = other.Read()
	require.False(t, ok, "slots are keyed")
	require.NoError(t, other.Close())

	s.Clear()
	require.NoError(t, s.Close())
	s, err = OpenSQLite(ctx, path, "session", nil)
	require.NoError(t, err)
	defer s.Close()
	_, ok = s.Read()
	require.False(t, ok)
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	c, err := Inspect(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", c.Subject)
	require.True(t, c.ExpiresAt.Equal(exp))
	require.False(t, c.Expired(time.Now()))
	require.True(t, c.Expired(exp.Add(time.Second)))

	_, err = Inspect("not-a-jwt")
	require.Error(t, err)
}
