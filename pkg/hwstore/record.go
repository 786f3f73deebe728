package hwstore

import (
	"net"

	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

// record is the opdb checkpoint of an object.
type record struct {
	AdapterKey   southbound.AdapterKey `json:"adapter_key"`
	Type         state.InterfaceType   `json:"type"`
	RouterID     state.RouterID        `json:"router_id"`
	VlanID       state.VlanID          `json:"vlan_id,omitempty"`
	PortID       state.PortID          `json:"port_id,omitempty"`
	SystemPortID state.SystemPortID    `json:"system_port_id,omitempty"`
	MAC          string                `json:"mac,omitempty"`
	MTU          uint32                `json:"mtu"`
	Enabled      bool                  `json:"enabled"`
}

func newRecord(key southbound.AdapterKey, attrs southbound.RouterInterfaceAttributes) record {
	rec := record{
		AdapterKey:   key,
		Type:         attrs.Type,
		RouterID:     attrs.RouterID,
		VlanID:       attrs.VlanID,
		PortID:       attrs.PortID,
		SystemPortID: attrs.SystemPortID,
		MTU:          attrs.MTU,
		Enabled:      attrs.Enabled,
	}
	if len(attrs.MAC) > 0 {
		rec.MAC = attrs.MAC.String()
	}
	return rec
}

func (r record) attributes() southbound.RouterInterfaceAttributes {
	attrs := southbound.RouterInterfaceAttributes{
		Type:         r.Type,
		RouterID:     r.RouterID,
		VlanID:       r.VlanID,
		PortID:       r.PortID,
		SystemPortID: r.SystemPortID,
		MTU:          r.MTU,
		Enabled:      r.Enabled,
	}
	if mac, err := net.ParseMAC(r.MAC); err == nil {
		attrs.MAC = mac
	}
	return attrs
}
