package vpp

import (
	"fmt"

	"inet.af/netaddr"

	"go.fd.io/govpp/binapi/fib_types"
	"go.fd.io/govpp/binapi/ip"

	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

func (v *VPP) AddToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif southbound.AdapterKey) error {
	if err := v.toMeRouteAddDel(true, routerID, prefix, rif); err != nil {
		return fmt.Errorf("add to-me route %s: %w", prefix, err)
	}
	v.logger.Debug("Added to-me route", "prefix", prefix, "vrf", routerID, "sw_if_index", uint32(rif))
	return nil
}

func (v *VPP) DelToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif southbound.AdapterKey) error {
	if err := v.toMeRouteAddDel(false, routerID, prefix, rif); err != nil {
		return fmt.Errorf("delete to-me route %s: %w", prefix, err)
	}
	v.logger.Debug("Deleted to-me route", "prefix", prefix, "vrf", routerID, "sw_if_index", uint32(rif))
	return nil
}

func (v *VPP) toMeRouteAddDel(isAdd bool, routerID state.RouterID, prefix netaddr.IPPrefix, rif southbound.AdapterKey) error {
	ch, err := v.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	req := &ip.IPRouteAddDel{
		IsAdd: isAdd,
		Route: ip.IPRoute{
			TableID: uint32(routerID),
			Prefix:  toPrefix(prefix),
			NPaths:  1,
			Paths: []fib_types.FibPath{
				{
					SwIfIndex: uint32(rif),
					Type:      fib_types.FIB_API_PATH_TYPE_LOCAL,
					Proto:     pathProto(prefix.IP()),
				},
			},
		},
	}

	reply := &ip.IPRouteAddDelReply{}
	return ch.SendRequest(req).ReceiveReply(reply)
}
