package southbound

import (
	"bytes"
	"fmt"
	"net"

	"github.com/veesix-networks/osvswitch/pkg/state"
)

// AdapterKey is the dataplane identifier of a router interface. For VPP it is
// the sw_if_index.
type AdapterKey uint32

func (k AdapterKey) String() string {
	return fmt.Sprintf("rif-%d", uint32(k))
}

// RouterInterfaceAttributes is the attribute set a router interface object is
// created with. Only the field matching Type identifies the forwarding
// context: VlanID for VLAN, PortID for port and SystemPortID for system-port
// router interfaces.
type RouterInterfaceAttributes struct {
	Type         state.InterfaceType
	RouterID     state.RouterID
	VlanID       state.VlanID
	PortID       state.PortID
	SystemPortID state.SystemPortID
	MAC          net.HardwareAddr
	MTU          uint32
	Enabled      bool
}

func (a RouterInterfaceAttributes) Equal(o RouterInterfaceAttributes) bool {
	return a.Type == o.Type &&
		a.RouterID == o.RouterID &&
		a.VlanID == o.VlanID &&
		a.PortID == o.PortID &&
		a.SystemPortID == o.SystemPortID &&
		bytes.Equal(a.MAC, o.MAC) &&
		a.MTU == o.MTU &&
		a.Enabled == o.Enabled
}

type RouterInterfaces interface {
	CreateRouterInterface(attrs RouterInterfaceAttributes) (AdapterKey, error)
	UpdateRouterInterface(key AdapterKey, old, new RouterInterfaceAttributes) error
	DeleteRouterInterface(key AdapterKey, attrs RouterInterfaceAttributes) error
}
