package statedelta

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/asic"
	"github.com/veesix-networks/osvswitch/pkg/hwstore"
	"github.com/veesix-networks/osvswitch/pkg/rifmgr"
	"github.com/veesix-networks/osvswitch/pkg/routemgr"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/memory"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

type fakeRIFs struct {
	calls  []string
	failOn string
	next   southbound.AdapterKey
}

func (f *fakeRIFs) record(call string) error {
	f.calls = append(f.calls, call)
	if call == f.failOn {
		return errors.New("injected failure")
	}
	return nil
}

func (f *fakeRIFs) AddLocalRouterInterface(iface *state.Interface) (southbound.AdapterKey, error) {
	f.next++
	return f.next, f.record(fmt.Sprintf("add-local %d", iface.ID))
}

func (f *fakeRIFs) RemoveLocalRouterInterface(iface *state.Interface) error {
	return f.record(fmt.Sprintf("remove-local %d", iface.ID))
}

func (f *fakeRIFs) ChangeLocalRouterInterface(o, n *state.Interface) error {
	return f.record(fmt.Sprintf("change-local %d", n.ID))
}

func (f *fakeRIFs) AddRemoteRouterInterface(iface *state.Interface) (southbound.AdapterKey, error) {
	f.next++
	return f.next, f.record(fmt.Sprintf("add-remote %d", iface.ID))
}

func (f *fakeRIFs) RemoveRemoteRouterInterface(iface *state.Interface) error {
	return f.record(fmt.Sprintf("remove-remote %d", iface.ID))
}

func (f *fakeRIFs) ChangeRemoteRouterInterface(o, n *state.Interface) error {
	return f.record(fmt.Sprintf("change-remote %d", n.ID))
}

func iface(id state.InterfaceID, t state.InterfaceType, addrs ...string) *state.Interface {
	i := &state.Interface{ID: id, Type: t, MTU: 1500, Enabled: true}
	switch t {
	case state.InterfaceTypeVLAN:
		i.VlanID = state.NewVlanID(state.VlanID(id))
	case state.InterfaceTypePort:
		i.PortID = state.PortID(id)
	case state.InterfaceTypeSystemPort:
		i.SystemPortID = state.SystemPortID(id)
	}
	for _, a := range addrs {
		i.Addresses = append(i.Addresses, netaddr.MustParseIPPrefix(a))
	}
	return i
}

func ids(ifaces []*state.Interface) []state.InterfaceID {
	var out []state.InterfaceID
	for _, i := range ifaces {
		out = append(out, i.ID)
	}
	return out
}

func TestCompute(t *testing.T) {
	old := state.NewInterfaceMap(
		iface(1, state.InterfaceTypeVLAN, "10.0.0.1/24"),
		iface(2, state.InterfaceTypeVLAN),
		iface(3, state.InterfaceTypeVLAN),
	)
	changed := iface(2, state.InterfaceTypeVLAN, "10.0.2.1/24")
	new := state.NewInterfaceMap(
		iface(1, state.InterfaceTypeVLAN, "10.0.0.1/24"),
		changed,
		iface(5, state.InterfaceTypeVLAN),
		iface(4, state.InterfaceTypeVLAN),
	)

	d := Compute(old, new)
	if diff := cmp.Diff([]state.InterfaceID{4, 5}, ids(d.Added)); diff != "" {
		t.Fatalf("added mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]state.InterfaceID{3}, ids(d.Removed)); diff != "" {
		t.Fatalf("removed mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, d.Changed, 1)
	require.Same(t, changed, d.Changed[0].New)
}

func TestComputeNilMaps(t *testing.T) {
	d := Compute(nil, state.NewInterfaceMap(iface(1, state.InterfaceTypeVLAN)))
	require.Equal(t, []state.InterfaceID{1}, ids(d.Added))

	d = Compute(state.NewInterfaceMap(iface(1, state.InterfaceTypeVLAN)), nil)
	require.Equal(t, []state.InterfaceID{1}, ids(d.Removed))

	require.True(t, Compute(nil, nil).Empty())
}

func TestApplyOrdering(t *testing.T) {
	old := state.NewSwitchState()
	old.Interfaces = state.NewInterfaceMap(
		iface(1, state.InterfaceTypeVLAN),
		iface(2, state.InterfaceTypeVLAN),
		iface(3, state.InterfaceTypeVLAN),
	)
	old.RemoteInterfaces = state.NewInterfaceMap(iface(100, state.InterfaceTypeSystemPort))

	new := state.NewSwitchState()
	new.Interfaces = state.NewInterfaceMap(
		iface(2, state.InterfaceTypeVLAN, "10.0.2.1/24"),
		iface(3, state.InterfaceTypePort),
		iface(4, state.InterfaceTypeVLAN),
	)
	new.RemoteInterfaces = state.NewInterfaceMap(
		iface(100, state.InterfaceTypeSystemPort, "2001:db8::1/64"),
		iface(101, state.InterfaceTypeSystemPort),
	)

	rifs := &fakeRIFs{}
	results, err := NewApplier(rifs).Apply(old, new)
	require.NoError(t, err)

	want := []string{
		"remove-local 1",
		"remove-local 3",
		"change-remote 100",
		"change-local 2",
		"add-remote 101",
		"add-local 3",
		"add-local 4",
	}
	if diff := cmp.Diff(want, rifs.calls); diff != "" {
		t.Fatalf("call order mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, results, len(want))
	require.Equal(t, Result{Op: OpAdd, InterfaceID: 101, Local: false, AdapterKey: 1}, results[4])
}

func TestApplyStopsAtFirstError(t *testing.T) {
	old := state.NewSwitchState()
	new := state.NewSwitchState()
	new.Interfaces = state.NewInterfaceMap(
		iface(1, state.InterfaceTypeVLAN),
		iface(2, state.InterfaceTypeVLAN),
		iface(3, state.InterfaceTypeVLAN),
	)

	rifs := &fakeRIFs{failOn: "add-local 2"}
	results, err := NewApplier(rifs).Apply(old, new)
	require.Error(t, err)
	require.Len(t, results, 1)
	require.Equal(t, []string{"add-local 1", "add-local 2"}, rifs.calls)
}

func TestApplyDrivesManager(t *testing.T) {
	dp := memory.New(memory.Config{})
	caps := asic.NewStatic(asic.FeaturePortRouterInterface, asic.FeatureSystemPortRouterInterface)
	m := rifmgr.New(hwstore.New(dp), routemgr.New(dp), caps)
	a := NewApplier(m)

	s1 := state.NewSwitchState()
	s1.Interfaces = state.NewInterfaceMap(iface(1, state.InterfaceTypeVLAN, "10.0.0.1/24"))
	s1.RemoteInterfaces = state.NewInterfaceMap(iface(100, state.InterfaceTypeSystemPort, "2001:db8::1/64"))

	_, err := a.Apply(nil, s1)
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	remote, ok := m.RouterInterface(100)
	require.True(t, ok)
	require.False(t, remote.Local)

	// Kind change becomes remove + add.
	s2 := s1.Clone()
	require.NoError(t, s2.Interfaces.Update(iface(1, state.InterfaceTypePort, "10.0.0.1/24")))
	_, err = a.Apply(s1, s2)
	require.NoError(t, err)

	local, ok := m.RouterInterface(1)
	require.True(t, ok)
	require.Equal(t, state.InterfaceTypePort, local.Type)
	require.True(t, local.Local)

	_, err = a.Apply(s2, state.NewSwitchState())
	require.NoError(t, err)
	require.Zero(t, m.Len())
	require.Zero(t, dp.RouterInterfaceCount())
	require.Zero(t, dp.RouteCount())
}

func TestRevertUndoesAppliedOperations(t *testing.T) {
	old := state.NewSwitchState()
	old.Interfaces = state.NewInterfaceMap(
		iface(1, state.InterfaceTypeVLAN),
		iface(2, state.InterfaceTypeVLAN),
	)

	new := state.NewSwitchState()
	new.Interfaces = state.NewInterfaceMap(
		iface(2, state.InterfaceTypeVLAN, "10.0.2.1/24"),
		iface(3, state.InterfaceTypeVLAN),
		iface(4, state.InterfaceTypeVLAN),
	)

	rifs := &fakeRIFs{failOn: "add-local 4"}
	a := NewApplier(rifs)
	results, err := a.Apply(old, new)
	require.Error(t, err)
	require.Len(t, results, 3)

	rifs.calls = nil
	rifs.failOn = ""
	require.NoError(t, a.Revert(old, new, results))
	require.Equal(t, []string{
		"remove-local 3",
		"change-local 2",
		"add-local 1",
	}, rifs.calls)
}
