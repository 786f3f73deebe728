package state

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"inet.af/netaddr"
)

func testIface(id InterfaceID, addrs ...string) *Interface {
	i := &Interface{
		ID:      id,
		Type:    InterfaceTypeVLAN,
		VlanID:  NewVlanID(VlanID(id)),
		MAC:     net.HardwareAddr{0x02, 0, 0, 0, 0, byte(id)},
		MTU:     DefaultMTU,
		Enabled: true,
	}
	for _, a := range addrs {
		i.Addresses = append(i.Addresses, netaddr.MustParseIPPrefix(a))
	}
	return i
}

func TestInterfaceEqualIgnoresAddressOrder(t *testing.T) {
	a := testIface(1, "10.0.0.1/24", "2001:db8::1/64")
	b := testIface(1, "2001:db8::1/64", "10.0.0.1/24")
	assert.True(t, a.Equal(b))

	b.MTU = 9000
	assert.False(t, a.Equal(b))

	c := testIface(1, "10.0.0.1/24")
	assert.False(t, a.Equal(c))

	var nilIface *Interface
	assert.True(t, nilIface.Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestInterfaceEqualNeighbors(t *testing.T) {
	idx := uint64(7)
	a := testIface(1)
	a.Neighbors = []NeighborEntry{{IP: netaddr.MustParseIP("10.0.0.2"), State: NeighborReachable, EncapIndex: &idx}}

	b := a.Clone()
	assert.True(t, a.Equal(b))

	other := uint64(8)
	b.Neighbors[0].EncapIndex = &other
	assert.False(t, a.Equal(b))
}

func TestSubnetsDedupedAndSorted(t *testing.T) {
	i := testIface(1, "2001:db8::1/64", "10.0.1.1/24", "10.0.0.1/24", "10.0.1.1/24")
	assert.Equal(t, []netaddr.IPPrefix{
		netaddr.MustParseIPPrefix("10.0.0.1/24"),
		netaddr.MustParseIPPrefix("10.0.1.1/24"),
		netaddr.MustParseIPPrefix("2001:db8::1/64"),
	}, i.Subnets())
}

func TestCloneIsDeep(t *testing.T) {
	a := testIface(1, "10.0.0.1/24")
	b := a.Clone()

	*b.VlanID = 99
	b.MAC[5] = 0xff
	b.Addresses[0] = netaddr.MustParseIPPrefix("10.9.9.1/24")

	assert.Equal(t, VlanID(1), a.Vlan())
	assert.Equal(t, byte(1), a.MAC[5])
	assert.Equal(t, "10.0.0.1/24", a.Addresses[0].String())
}

func TestInterfaceMap(t *testing.T) {
	m := NewInterfaceMap(testIface(3), testIface(1))
	require.NoError(t, m.Add(testIface(2)))
	require.Error(t, m.Add(testIface(2)))
	assert.Equal(t, []InterfaceID{1, 2, 3}, m.IDs())

	require.Error(t, m.Update(testIface(9)))
	updated := testIface(2, "10.0.2.1/24")
	require.NoError(t, m.Update(updated))
	got, ok := m.Get(2)
	require.True(t, ok)
	assert.Same(t, updated, got)

	assert.True(t, m.Remove(3))
	assert.False(t, m.Remove(3))
	assert.Equal(t, 2, m.Len())

	var nilMap *InterfaceMap
	assert.Zero(t, nilMap.Len())
	assert.Nil(t, nilMap.IDs())
	_, ok = nilMap.Get(1)
	assert.False(t, ok)
}

func TestSwitchStateClone(t *testing.T) {
	s := NewSwitchState()
	require.NoError(t, s.Interfaces.Add(testIface(1)))
	s.RemoteSystemPorts[100] = &SystemPort{ID: 100, Name: "fabric4:eth/100/1"}

	c := s.Clone()
	c.RemoteSystemPorts[100].Name = "changed"
	c.Interfaces.Remove(1)

	assert.Equal(t, "fabric4:eth/100/1", s.RemoteSystemPorts[100].Name)
	assert.Equal(t, 1, s.Interfaces.Len())

	var nilState *SwitchState
	assert.NotNil(t, nilState.Clone().Interfaces)
}

func TestParseInterfaceType(t *testing.T) {
	for in, want := range map[string]InterfaceType{
		"vlan":        InterfaceTypeVLAN,
		"PORT":        InterfaceTypePort,
		"system-port": InterfaceTypeSystemPort,
		"sysport":     InterfaceTypeSystemPort,
	} {
		got, err := ParseInterfaceType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseInterfaceType("tunnel")
	require.Error(t, err)
	assert.Equal(t, "unknown(9)", InterfaceType(9).String())
}
