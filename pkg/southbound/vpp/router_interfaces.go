package vpp

import (
	"bytes"
	"fmt"

	"go.fd.io/govpp/api"
	"go.fd.io/govpp/binapi/ethernet_types"
	interfaces "go.fd.io/govpp/binapi/interface"
	"go.fd.io/govpp/binapi/interface_types"
	"go.fd.io/govpp/binapi/ip"

	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

// CreateRouterInterface builds the VPP interface backing a router interface:
// a dot1q sub-interface of the trunk for VLAN, the port itself for port and
// a loopback for system-port (remote) router interfaces.
func (v *VPP) CreateRouterInterface(attrs southbound.RouterInterfaceAttributes) (southbound.AdapterKey, error) {
	ch, err := v.channel()
	if err != nil {
		return 0, err
	}
	defer ch.Close()

	var swIfIndex interface_types.InterfaceIndex
	switch attrs.Type {
	case state.InterfaceTypeVLAN:
		if !v.hasTrunk {
			return 0, fmt.Errorf("create vlan %d router interface: no trunk interface configured", attrs.VlanID)
		}
		req := &interfaces.CreateVlanSubif{
			SwIfIndex: v.trunkIndex,
			VlanID:    uint32(attrs.VlanID),
		}
		reply := &interfaces.CreateVlanSubifReply{}
		if err := ch.SendRequest(req).ReceiveReply(reply); err != nil {
			return 0, fmt.Errorf("create vlan sub-interface %s.%d: %w", v.trunkName, attrs.VlanID, err)
		}
		swIfIndex = reply.SwIfIndex

	case state.InterfaceTypePort:
		swIfIndex = interface_types.InterfaceIndex(attrs.PortID)

	case state.InterfaceTypeSystemPort:
		req := &interfaces.CreateLoopback{
			MacAddress: toMacAddress(attrs.MAC),
		}
		reply := &interfaces.CreateLoopbackReply{}
		if err := ch.SendRequest(req).ReceiveReply(reply); err != nil {
			return 0, fmt.Errorf("create loopback for system port %d: %w", attrs.SystemPortID, err)
		}
		swIfIndex = reply.SwIfIndex

	default:
		return 0, fmt.Errorf("unsupported router interface type %s", attrs.Type)
	}

	if err := v.applyAttributes(ch, swIfIndex, southbound.RouterInterfaceAttributes{}, attrs, true); err != nil {
		if attrs.Type != state.InterfaceTypePort {
			if delErr := v.deleteInterface(ch, swIfIndex, attrs.Type); delErr != nil {
				v.logger.Warn("Failed to clean up partially created router interface", "sw_if_index", swIfIndex, "error", delErr)
			}
		}
		return 0, err
	}

	v.logger.Debug("Created router interface", "type", attrs.Type, "sw_if_index", swIfIndex, "vrf", attrs.RouterID)
	return southbound.AdapterKey(swIfIndex), nil
}

func (v *VPP) UpdateRouterInterface(key southbound.AdapterKey, old, new southbound.RouterInterfaceAttributes) error {
	ch, err := v.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := v.applyAttributes(ch, interface_types.InterfaceIndex(key), old, new, false); err != nil {
		return err
	}

	v.logger.Debug("Updated router interface", "sw_if_index", uint32(key))
	return nil
}

func (v *VPP) DeleteRouterInterface(key southbound.AdapterKey, attrs southbound.RouterInterfaceAttributes) error {
	ch, err := v.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	swIfIndex := interface_types.InterfaceIndex(key)
	if attrs.Type == state.InterfaceTypePort {
		// The port outlives its router interface: detach it instead.
		if err := v.setFlags(ch, swIfIndex, false); err != nil {
			return err
		}
		if err := v.setTable(ch, swIfIndex, 0); err != nil {
			return err
		}
		v.logger.Debug("Detached port router interface", "sw_if_index", swIfIndex)
		return nil
	}

	if err := v.deleteInterface(ch, swIfIndex, attrs.Type); err != nil {
		return err
	}

	v.logger.Debug("Deleted router interface", "type", attrs.Type, "sw_if_index", swIfIndex)
	return nil
}

func (v *VPP) deleteInterface(ch api.Channel, swIfIndex interface_types.InterfaceIndex, t state.InterfaceType) error {
	switch t {
	case state.InterfaceTypeVLAN:
		req := &interfaces.DeleteSubif{SwIfIndex: swIfIndex}
		reply := &interfaces.DeleteSubifReply{}
		if err := ch.SendRequest(req).ReceiveReply(reply); err != nil {
			return fmt.Errorf("delete sub-interface %d: %w", swIfIndex, err)
		}
	case state.InterfaceTypeSystemPort:
		req := &interfaces.DeleteLoopback{SwIfIndex: swIfIndex}
		reply := &interfaces.DeleteLoopbackReply{}
		if err := ch.SendRequest(req).ReceiveReply(reply); err != nil {
			return fmt.Errorf("delete loopback %d: %w", swIfIndex, err)
		}
	default:
		return fmt.Errorf("cannot delete router interface of type %s", t)
	}
	return nil
}

// applyAttributes pushes the attributes that differ between old and new. With
// full set every attribute is pushed.
func (v *VPP) applyAttributes(ch api.Channel, swIfIndex interface_types.InterfaceIndex, old, new southbound.RouterInterfaceAttributes, full bool) error {
	if full || old.RouterID != new.RouterID {
		if err := v.setTable(ch, swIfIndex, new.RouterID); err != nil {
			return err
		}
	}

	if len(new.MAC) > 0 && (full || !bytes.Equal(old.MAC, new.MAC)) {
		req := &interfaces.SwInterfaceSetMacAddress{
			SwIfIndex:  swIfIndex,
			MacAddress: toMacAddress(new.MAC),
		}
		reply := &interfaces.SwInterfaceSetMacAddressReply{}
		if err := ch.SendRequest(req).ReceiveReply(reply); err != nil {
			return fmt.Errorf("set mac address on %d: %w", swIfIndex, err)
		}
	}

	if new.MTU != 0 && (full || old.MTU != new.MTU) {
		req := &interfaces.SwInterfaceSetMtu{
			SwIfIndex: swIfIndex,
			Mtu:       []uint32{new.MTU, 0, 0, 0},
		}
		reply := &interfaces.SwInterfaceSetMtuReply{}
		if err := ch.SendRequest(req).ReceiveReply(reply); err != nil {
			return fmt.Errorf("set mtu %d on %d: %w", new.MTU, swIfIndex, err)
		}
	}

	if full || old.Enabled != new.Enabled {
		if err := v.setFlags(ch, swIfIndex, new.Enabled); err != nil {
			return err
		}
	}

	return nil
}

func (v *VPP) setFlags(ch api.Channel, swIfIndex interface_types.InterfaceIndex, up bool) error {
	var flags interface_types.IfStatusFlags
	if up {
		flags = interface_types.IF_STATUS_API_FLAG_ADMIN_UP
	}
	req := &interfaces.SwInterfaceSetFlags{
		SwIfIndex: swIfIndex,
		Flags:     flags,
	}
	reply := &interfaces.SwInterfaceSetFlagsReply{}
	if err := ch.SendRequest(req).ReceiveReply(reply); err != nil {
		return fmt.Errorf("set admin state on %d: %w", swIfIndex, err)
	}
	return nil
}

// setTable binds the interface to the v4 and v6 FIBs of routerID, creating the
// tables on first use.
func (v *VPP) setTable(ch api.Channel, swIfIndex interface_types.InterfaceIndex, routerID state.RouterID) error {
	for _, isIPv6 := range []bool{false, true} {
		if err := v.ensureTable(ch, routerID, isIPv6); err != nil {
			return err
		}
		req := &interfaces.SwInterfaceSetTable{
			SwIfIndex: swIfIndex,
			IsIPv6:    isIPv6,
			VrfID:     uint32(routerID),
		}
		reply := &interfaces.SwInterfaceSetTableReply{}
		if err := ch.SendRequest(req).ReceiveReply(reply); err != nil {
			return fmt.Errorf("set table %d (ipv6=%v) on %d: %w", routerID, isIPv6, swIfIndex, err)
		}
	}
	return nil
}

func (v *VPP) ensureTable(ch api.Channel, routerID state.RouterID, isIPv6 bool) error {
	if routerID == 0 {
		return nil
	}

	v.tablesMu.Lock()
	defer v.tablesMu.Unlock()

	k := tableKey{id: routerID, isIPv6: isIPv6}
	if _, ok := v.tables[k]; ok {
		return nil
	}

	req := &ip.IPTableAddDel{
		IsAdd: true,
		Table: ip.IPTable{
			TableID: uint32(routerID),
			IsIP6:   isIPv6,
			Name:    fmt.Sprintf("router-%d", routerID),
		},
	}
	reply := &ip.IPTableAddDelReply{}
	if err := ch.SendRequest(req).ReceiveReply(reply); err != nil {
		return fmt.Errorf("add IP table %d (ipv6=%v): %w", routerID, isIPv6, err)
	}

	v.tables[k] = struct{}{}
	return nil
}

func toMacAddress(mac []byte) ethernet_types.MacAddress {
	var out ethernet_types.MacAddress
	copy(out[:], mac)
	return out
}
