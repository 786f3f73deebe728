package hwstore

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/opdb"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/memory"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

type fakeDB struct {
	mu        sync.Mutex
	data      map[string]map[string][]byte
	deleteErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{data: make(map[string]map[string][]byte)}
}

func (f *fakeDB) Put(_ context.Context, ns, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[ns] == nil {
		f.data[ns] = make(map[string][]byte)
	}
	f.data[ns][key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeDB) Delete(_ context.Context, ns, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.data[ns], key)
	return nil
}

func (f *fakeDB) Load(_ context.Context, ns string, fn opdb.LoadFunc) error {
	f.mu.Lock()
	keys := make([]string, 0, len(f.data[ns]))
	for k := range f.data[ns] {
		keys = append(keys, k)
	}
	values := make(map[string][]byte, len(keys))
	for _, k := range keys {
		values[k] = f.data[ns][k]
	}
	f.mu.Unlock()

	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeDB) Clear(_ context.Context, ns string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, ns)
	return nil
}

func (f *fakeDB) Close() error { return nil }

func (f *fakeDB) keys(ns string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.data[ns] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func vlanAttrs(vlan state.VlanID, router state.RouterID) southbound.RouterInterfaceAttributes {
	mac, _ := net.ParseMAC("02:00:00:00:00:01")
	return southbound.RouterInterfaceAttributes{
		Type:     state.InterfaceTypeVLAN,
		RouterID: router,
		VlanID:   vlan,
		MAC:      mac,
		MTU:      1500,
		Enabled:  true,
	}
}

func TestHostKey(t *testing.T) {
	tests := []struct {
		attrs southbound.RouterInterfaceAttributes
		want  string
	}{
		{southbound.RouterInterfaceAttributes{Type: state.InterfaceTypeVLAN, VlanID: 10, RouterID: 5}, "vlan:10"},
		{southbound.RouterInterfaceAttributes{Type: state.InterfaceTypePort, PortID: 3}, "port:3"},
		{southbound.RouterInterfaceAttributes{Type: state.InterfaceTypeSystemPort, SystemPortID: 107}, "sysport:107"},
	}
	for _, tt := range tests {
		if got := HostKey(tt.attrs); got != tt.want {
			t.Fatalf("HostKey(%+v) = %q, want %q", tt.attrs, got, tt.want)
		}
	}
}

func TestSetSharesObjectsByHostKey(t *testing.T) {
	dp := memory.New(memory.Config{})
	s := New(dp)

	a, err := s.Set(vlanAttrs(10, 0))
	require.NoError(t, err)
	b, err := s.Set(vlanAttrs(10, 0))
	require.NoError(t, err)

	require.Same(t, a, b)
	require.Equal(t, 2, a.Refs())
	require.Equal(t, 1, dp.RouterInterfaceCount())

	require.NoError(t, a.Release())
	require.Equal(t, 1, dp.RouterInterfaceCount())
	require.NoError(t, b.Release())
	require.Equal(t, 0, dp.RouterInterfaceCount())
	require.Zero(t, s.Len())
}

func TestSetUpdatesExistingObjectInPlace(t *testing.T) {
	dp := memory.New(memory.Config{})
	s := New(dp)

	obj, err := s.Set(vlanAttrs(10, 0))
	require.NoError(t, err)

	moved := vlanAttrs(10, 7)
	again, err := s.Set(moved)
	require.NoError(t, err)
	require.Same(t, obj, again)

	got, ok := dp.RouterInterface(obj.AdapterKey())
	require.True(t, ok)
	require.Equal(t, state.RouterID(7), got.RouterID)

	_, updates, _ := dp.Ops()
	require.Equal(t, 1, updates)
}

func TestSetAttributes(t *testing.T) {
	dp := memory.New(memory.Config{})
	s := New(dp)

	obj, err := s.Set(vlanAttrs(10, 0))
	require.NoError(t, err)
	key := obj.AdapterKey()

	updated := vlanAttrs(10, 0)
	updated.MTU = 9000
	require.NoError(t, obj.SetAttributes(updated))
	require.Equal(t, key, obj.AdapterKey())
	require.Equal(t, uint32(9000), obj.Attributes().MTU)

	// No-op update does not reach the dataplane.
	require.NoError(t, obj.SetAttributes(updated))
	_, updates, _ := dp.Ops()
	require.Equal(t, 1, updates)

	err = obj.SetAttributes(vlanAttrs(11, 0))
	require.ErrorIs(t, err, ErrHostKeyMismatch)
	require.Equal(t, state.VlanID(10), obj.Attributes().VlanID)
}

func TestSetPropagatesTableFull(t *testing.T) {
	dp := memory.New(memory.Config{MaxRouterInterfaces: 1})
	s := New(dp)

	_, err := s.Set(vlanAttrs(10, 0))
	require.NoError(t, err)

	_, err = s.Set(vlanAttrs(11, 0))
	require.True(t, errors.Is(err, southbound.ErrTableFull), "got %v", err)
	require.Equal(t, 1, s.Len())
}

func TestReleaseTwiceFails(t *testing.T) {
	s := New(memory.New(memory.Config{}))

	obj, err := s.Set(vlanAttrs(10, 0))
	require.NoError(t, err)
	require.NoError(t, obj.Release())
	require.Error(t, obj.Release())
}

func TestCheckpointsFollowObjects(t *testing.T) {
	db := newFakeDB()
	s := New(memory.New(memory.Config{}), WithOpDB(db))

	obj, err := s.Set(vlanAttrs(10, 0))
	require.NoError(t, err)
	require.Equal(t, []string{"vlan:10"}, db.keys(opdb.NamespaceRouterInterfaces))

	require.NoError(t, obj.Release())
	require.Empty(t, db.keys(opdb.NamespaceRouterInterfaces))
}

func TestWarmBootAdoptsAndReleasesUnclaimed(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()

	// First run programs two objects and "crashes".
	dp := memory.New(memory.Config{})
	first := New(dp, WithOpDB(db))
	kept, err := first.Set(vlanAttrs(10, 0))
	require.NoError(t, err)
	_, err = first.Set(vlanAttrs(20, 0))
	require.NoError(t, err)

	second := New(dp, WithOpDB(db))
	require.NoError(t, second.Restore(ctx, db))
	require.Equal(t, 2, second.Unclaimed())

	updated := vlanAttrs(10, 0)
	updated.MTU = 9000
	adopted, err := second.Set(updated)
	require.NoError(t, err)
	require.Equal(t, kept.AdapterKey(), adopted.AdapterKey())

	creates, _, _ := dp.Ops()
	require.Equal(t, 2, creates)

	got, ok := dp.RouterInterface(adopted.AdapterKey())
	require.True(t, ok)
	require.Equal(t, uint32(9000), got.MTU)

	require.NoError(t, second.ReleaseUnclaimed(ctx))
	require.Zero(t, second.Unclaimed())
	require.Equal(t, 1, dp.RouterInterfaceCount())
	require.Equal(t, []string{"vlan:10"}, db.keys(opdb.NamespaceRouterInterfaces))
}

func TestRestoreDropsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	require.NoError(t, db.Put(ctx, opdb.NamespaceRouterInterfaces, "vlan:10", []byte("not json")))

	s := New(memory.New(memory.Config{}), WithOpDB(db))
	require.NoError(t, s.Restore(ctx, db))
	require.Zero(t, s.Unclaimed())
	require.Empty(t, db.keys(opdb.NamespaceRouterInterfaces))
}

func TestRestoreLogsFailedCorruptDelete(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	ctx := context.Background()
	db := newFakeDB()
	require.NoError(t, db.Put(ctx, opdb.NamespaceRouterInterfaces, "vlan:10", []byte("not json")))
	db.deleteErr = errors.New("database is locked")

	s := New(memory.New(memory.Config{}), WithOpDB(db))
	require.NoError(t, s.Restore(ctx, db))
	require.Zero(t, s.Unclaimed())
	require.Equal(t, []string{"vlan:10"}, db.keys(opdb.NamespaceRouterInterfaces))
	require.Contains(t, buf.String(), "Failed to delete corrupt router interface from opdb")
	require.Contains(t, buf.String(), "database is locked")
}
