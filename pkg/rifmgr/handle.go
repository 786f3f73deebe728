package rifmgr

import (
	"fmt"
	"sort"
	"sync/atomic"

	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/hwstore"
	"github.com/veesix-networks/osvswitch/pkg/routemgr"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

// Backing is the hardware object behind a handle. It is one of
// *VlanRouterInterface, *PortRouterInterface or *SystemPortRouterInterface.
type Backing interface {
	object() *hwstore.Object
}

type VlanRouterInterface struct {
	VlanID state.VlanID
	Object *hwstore.Object
}

type PortRouterInterface struct {
	PortID state.PortID
	Object *hwstore.Object
}

// SystemPortRouterInterface backs interfaces of remote switches in the
// fabric, anchored on their system port.
type SystemPortRouterInterface struct {
	SystemPortID state.SystemPortID
	Object       *hwstore.Object
}

func (b *VlanRouterInterface) object() *hwstore.Object       { return b.Object }
func (b *PortRouterInterface) object() *hwstore.Object       { return b.Object }
func (b *SystemPortRouterInterface) object() *hwstore.Object { return b.Object }

func newBacking(t state.InterfaceType, attrs southbound.RouterInterfaceAttributes, obj *hwstore.Object) Backing {
	switch t {
	case state.InterfaceTypeVLAN:
		return &VlanRouterInterface{VlanID: attrs.VlanID, Object: obj}
	case state.InterfaceTypePort:
		return &PortRouterInterface{PortID: attrs.PortID, Object: obj}
	default:
		return &SystemPortRouterInterface{SystemPortID: attrs.SystemPortID, Object: obj}
	}
}

// Handle is the manager's record of a programmed router interface.
//
// A Handle is mutated by the manager in place. Reading its methods is safe
// only while no Add, Remove or Change is in flight; concurrent readers should
// take a snapshot with Manager.RouterInterface instead.
type Handle struct {
	Backing Backing

	id       state.InterfaceID
	routerID state.RouterID
	local    atomic.Bool
	routes   map[netaddr.IPPrefix]*routemgr.ToMeRoute
	// router interface each route reference was taken through
	routeVia map[netaddr.IPPrefix]southbound.AdapterKey
}

func newHandle(id state.InterfaceID, routerID state.RouterID, b Backing, local bool) *Handle {
	h := &Handle{
		Backing:  b,
		id:       id,
		routerID: routerID,
		routes:   make(map[netaddr.IPPrefix]*routemgr.ToMeRoute),
		routeVia: make(map[netaddr.IPPrefix]southbound.AdapterKey),
	}
	h.local.Store(local)
	return h
}

func (h *Handle) InterfaceID() state.InterfaceID {
	return h.id
}

func (h *Handle) RouterID() state.RouterID {
	return h.routerID
}

// Type is derived from the backing variant.
func (h *Handle) Type() state.InterfaceType {
	switch b := h.Backing.(type) {
	case *VlanRouterInterface:
		return state.InterfaceTypeVLAN
	case *PortRouterInterface:
		return state.InterfaceTypePort
	case *SystemPortRouterInterface:
		return state.InterfaceTypeSystemPort
	default:
		panic(fmt.Sprintf("unhandled router interface backing %T", b))
	}
}

func (h *Handle) AdapterKey() southbound.AdapterKey {
	return h.Backing.object().AdapterKey()
}

func (h *Handle) IsLocal() bool {
	return h.local.Load()
}

func (h *Handle) SetLocal(local bool) {
	h.local.Store(local)
}

// Subnets returns the subnets the handle owns a to-me route for, sorted.
func (h *Handle) Subnets() []netaddr.IPPrefix {
	out := make([]netaddr.IPPrefix, 0, len(h.routes))
	for p := range h.routes {
		out = append(out, p)
	}
	state.SortPrefixes(out)
	return out
}

// ToMeRoutes returns the owned to-me routes ordered by subnet.
func (h *Handle) ToMeRoutes() []*routemgr.ToMeRoute {
	subnets := h.Subnets()
	out := make([]*routemgr.ToMeRoute, 0, len(subnets))
	for _, p := range subnets {
		out = append(out, h.routes[p])
	}
	return out
}

// ToMeRoute returns the route owned for subnet.
func (h *Handle) ToMeRoute(subnet netaddr.IPPrefix) (*routemgr.ToMeRoute, bool) {
	r, ok := h.routes[subnet]
	return r, ok
}

// HandleInfo is a read-only snapshot of a handle.
type HandleInfo struct {
	InterfaceID state.InterfaceID
	Type        state.InterfaceType
	AdapterKey  southbound.AdapterKey
	RouterID    state.RouterID
	Local       bool
	Subnets     []netaddr.IPPrefix
	ToMeRoutes  []netaddr.IPPrefix
}

func (h *Handle) info() HandleInfo {
	info := HandleInfo{
		InterfaceID: h.id,
		Type:        h.Type(),
		AdapterKey:  h.AdapterKey(),
		RouterID:    h.routerID,
		Local:       h.IsLocal(),
		Subnets:     h.Subnets(),
	}
	for _, r := range h.ToMeRoutes() {
		info.ToMeRoutes = append(info.ToMeRoutes, r.Prefix())
	}
	return info
}

func sortInfos(infos []HandleInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].InterfaceID < infos[j].InterfaceID })
}
