package state

import (
	"bytes"
	"net"
	"sort"

	"inet.af/netaddr"
)

const DefaultMTU = 1500

// Interface is the software definition of a router interface.
//
// VlanID is meaningful for VLAN interfaces, PortID for port interfaces and
// SystemPortID for system-port (fabric) interfaces. Addresses hold the
// interface address with its subnet mask, e.g. 10.0.0.1/24.
type Interface struct {
	ID           InterfaceID
	RouterID     RouterID
	Type         InterfaceType
	VlanID       *VlanID
	PortID       PortID
	SystemPortID SystemPortID
	Name         string
	MAC          net.HardwareAddr
	MTU          uint32
	Enabled      bool
	Addresses    []netaddr.IPPrefix
	Neighbors    []NeighborEntry
	Scope        Scope
}

func (i *Interface) Clone() *Interface {
	if i == nil {
		return nil
	}
	out := *i
	if i.VlanID != nil {
		v := *i.VlanID
		out.VlanID = &v
	}
	if i.MAC != nil {
		out.MAC = append(net.HardwareAddr(nil), i.MAC...)
	}
	out.Addresses = append([]netaddr.IPPrefix(nil), i.Addresses...)
	out.Neighbors = append([]NeighborEntry(nil), i.Neighbors...)
	return &out
}

// Subnets returns the deduplicated address set in a stable order.
func (i *Interface) Subnets() []netaddr.IPPrefix {
	seen := make(map[netaddr.IPPrefix]struct{}, len(i.Addresses))
	out := make([]netaddr.IPPrefix, 0, len(i.Addresses))
	for _, p := range i.Addresses {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	SortPrefixes(out)
	return out
}

func (i *Interface) Vlan() VlanID {
	if i.VlanID == nil {
		return 0
	}
	return *i.VlanID
}

func (i *Interface) Equal(o *Interface) bool {
	if i == nil || o == nil {
		return i == o
	}
	if i.ID != o.ID || i.RouterID != o.RouterID || i.Type != o.Type {
		return false
	}
	if (i.VlanID == nil) != (o.VlanID == nil) || i.Vlan() != o.Vlan() {
		return false
	}
	if i.PortID != o.PortID || i.SystemPortID != o.SystemPortID {
		return false
	}
	if i.Name != o.Name || !bytes.Equal(i.MAC, o.MAC) || i.MTU != o.MTU || i.Enabled != o.Enabled {
		return false
	}
	if i.Scope != o.Scope {
		return false
	}
	if !equalPrefixSets(i.Addresses, o.Addresses) {
		return false
	}
	if len(i.Neighbors) != len(o.Neighbors) {
		return false
	}
	for idx := range i.Neighbors {
		if !i.Neighbors[idx].Equal(o.Neighbors[idx]) {
			return false
		}
	}
	return true
}

func equalPrefixSets(a, b []netaddr.IPPrefix) bool {
	set := make(map[netaddr.IPPrefix]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	other := make(map[netaddr.IPPrefix]struct{}, len(b))
	for _, p := range b {
		if _, ok := set[p]; !ok {
			return false
		}
		other[p] = struct{}{}
	}
	return len(set) == len(other)
}

// SortPrefixes orders prefixes by address family, address, then length.
func SortPrefixes(prefixes []netaddr.IPPrefix) {
	sort.Slice(prefixes, func(a, b int) bool {
		pa, pb := prefixes[a], prefixes[b]
		if c := pa.IP().Compare(pb.IP()); c != 0 {
			return c < 0
		}
		return pa.Bits() < pb.Bits()
	})
}

// NewVlanID is a convenience for filling Interface.VlanID.
func NewVlanID(v VlanID) *VlanID {
	return &v
}
