package state

import (
	"bytes"
	"net"

	"inet.af/netaddr"
)

type NeighborState uint8

const (
	NeighborPending NeighborState = iota
	NeighborReachable
)

func (s NeighborState) String() string {
	if s == NeighborReachable {
		return "reachable"
	}
	return "pending"
}

// NeighborEntry is an ARP or NDP entry resolved on an interface.
type NeighborEntry struct {
	IP           netaddr.IP
	MAC          net.HardwareAddr
	SystemPortID SystemPortID
	InterfaceID  InterfaceID
	State        NeighborState
	EncapIndex   *uint64
	IsLocal      bool
}

func (n NeighborEntry) Equal(o NeighborEntry) bool {
	if n.IP != o.IP || !bytes.Equal(n.MAC, o.MAC) {
		return false
	}
	if n.SystemPortID != o.SystemPortID || n.InterfaceID != o.InterfaceID {
		return false
	}
	if n.State != o.State || n.IsLocal != o.IsLocal {
		return false
	}
	if (n.EncapIndex == nil) != (o.EncapIndex == nil) {
		return false
	}
	return n.EncapIndex == nil || *n.EncapIndex == *o.EncapIndex
}
