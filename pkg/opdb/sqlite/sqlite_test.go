package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/osvswitch/pkg/opdb"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "opdb", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Put(ctx, opdb.NamespaceRouterInterfaces, "vlan:10", []byte(`{"a":1}`)))
	require.NoError(t, s.Put(ctx, opdb.NamespaceRouterInterfaces, "port:3", []byte(`{"a":2}`)))
	require.NoError(t, s.Put(ctx, opdb.NamespaceRouterInterfaces, "vlan:10", []byte(`{"a":3}`)))
	require.NoError(t, s.Put(ctx, "other", "vlan:10", []byte(`x`)))

	got := map[string]string{}
	err := s.Load(ctx, opdb.NamespaceRouterInterfaces, func(key string, value []byte) error {
		got[key] = string(value)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"vlan:10": `{"a":3}`, "port:3": `{"a":2}`}, got)

	require.NoError(t, s.Delete(ctx, opdb.NamespaceRouterInterfaces, "port:3"))
	n, err := s.Count(ctx, opdb.NamespaceRouterInterfaces)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestClearOnlyTouchesNamespace(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Put(ctx, opdb.NamespaceRouterInterfaces, "vlan:10", []byte(`1`)))
	require.NoError(t, s.Put(ctx, "other", "k", []byte(`2`)))
	require.NoError(t, s.Clear(ctx, opdb.NamespaceRouterInterfaces))

	n, err := s.Count(ctx, opdb.NamespaceRouterInterfaces)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.Count(ctx, "other")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
