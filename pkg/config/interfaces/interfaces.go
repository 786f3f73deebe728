package interfaces

import (
	"fmt"
	"net"

	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/state"
)

type InterfaceConfig struct {
	ID       uint32         `json:"id" yaml:"id"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type     string         `json:"type" yaml:"type"`
	RouterID uint32         `json:"router_id,omitempty" yaml:"router_id,omitempty"`
	VLANID   int            `json:"vlan_id,omitempty" yaml:"vlan_id,omitempty"`
	PortID   uint32         `json:"port_id,omitempty" yaml:"port_id,omitempty"`
	MAC      string         `json:"mac,omitempty" yaml:"mac,omitempty"`
	MTU      uint32         `json:"mtu,omitempty" yaml:"mtu,omitempty"`
	Enabled  bool           `json:"enabled" yaml:"enabled"`
	Address  *AddressConfig `json:"address,omitempty" yaml:"address,omitempty"`
}

type AddressConfig struct {
	IPv4 []string `json:"ipv4,omitempty" yaml:"ipv4,omitempty"`
	IPv6 []string `json:"ipv6,omitempty" yaml:"ipv6,omitempty"`
}

// ToState converts the configuration into a local interface.
func (c *InterfaceConfig) ToState() (*state.Interface, error) {
	t, err := state.ParseInterfaceType(c.Type)
	if err != nil {
		return nil, err
	}

	iface := &state.Interface{
		ID:       state.InterfaceID(c.ID),
		RouterID: state.RouterID(c.RouterID),
		Type:     t,
		Name:     c.Name,
		MTU:      c.MTU,
		Enabled:  c.Enabled,
		Scope:    state.ScopeLocal,
	}

	switch t {
	case state.InterfaceTypeVLAN:
		if c.VLANID < 1 || c.VLANID > 4094 {
			return nil, fmt.Errorf("vlan_id %d out of range 1-4094", c.VLANID)
		}
		iface.VlanID = state.NewVlanID(state.VlanID(c.VLANID))
	case state.InterfaceTypePort:
		if c.PortID == 0 {
			return nil, fmt.Errorf("port_id is required for port interfaces")
		}
		iface.PortID = state.PortID(c.PortID)
	case state.InterfaceTypeSystemPort:
		return nil, fmt.Errorf("system-port interfaces are learned from the fabric, not configured")
	}

	if c.MAC != "" {
		mac, err := net.ParseMAC(c.MAC)
		if err != nil {
			return nil, fmt.Errorf("mac: %w", err)
		}
		iface.MAC = mac
	}

	if c.Address != nil {
		for _, a := range c.Address.IPv4 {
			p, err := netaddr.ParseIPPrefix(a)
			if err != nil || !p.IP().Is4() {
				return nil, fmt.Errorf("invalid ipv4 address %q", a)
			}
			iface.Addresses = append(iface.Addresses, p)
		}
		for _, a := range c.Address.IPv6 {
			p, err := netaddr.ParseIPPrefix(a)
			if err != nil || !p.IP().Is6() {
				return nil, fmt.Errorf("invalid ipv6 address %q", a)
			}
			iface.Addresses = append(iface.Addresses, p)
		}
	}

	return iface, nil
}
