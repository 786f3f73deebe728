package southbound

import (
	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/state"
)

// Routes programs to-me routes: host routes for addresses owned by a router
// interface, terminated locally.
type Routes interface {
	AddToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif AdapterKey) error
	DelToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif AdapterKey) error
}
