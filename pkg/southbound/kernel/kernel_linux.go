//go:build linux

package kernel

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

var _ southbound.Routes = (*Mirror)(nil)

// Mirror installs to-me routes as local routes in the kernel so that the
// host stack (in the given namespace) accepts traffic for interface
// addresses.
type Mirror struct {
	mu      sync.Mutex
	handle  *netlink.Handle
	nsName  string
	loIndex int
	logger  *slog.Logger
}

// NewMirror opens a netlink handle in the named namespace. An empty name
// uses the current namespace.
func NewMirror(nsName string) (*Mirror, error) {
	var (
		h   *netlink.Handle
		err error
	)
	if nsName == "" {
		h, err = netlink.NewHandle()
	} else {
		ns, nsErr := netns.GetFromName(nsName)
		if nsErr != nil {
			return nil, fmt.Errorf("get netns %q: %w", nsName, nsErr)
		}
		h, err = netlink.NewHandleAt(ns)
		ns.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("create netlink handle for netns %q: %w", nsName, err)
	}

	lo, err := h.LinkByName("lo")
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("find loopback in netns %q: %w", nsName, err)
	}
	if err := h.LinkSetUp(lo); err != nil {
		h.Close()
		return nil, fmt.Errorf("bring up loopback in netns %q: %w", nsName, err)
	}

	m := &Mirror{
		handle:  h,
		nsName:  nsName,
		loIndex: lo.Attrs().Index,
		logger:  logger.Get(logger.Kernel),
	}
	m.logger.Info("Kernel to-me route mirror ready", "netns", nsName)
	return m, nil
}

func (m *Mirror) AddToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif southbound.AdapterKey) error {
	r := toNetlinkRoute(routerID, prefix, m.loIndex)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.handle.RouteReplace(&r); err != nil {
		return fmt.Errorf("kernel route replace %s: %w", prefix, err)
	}
	m.logger.Debug("Mirrored to-me route", "prefix", prefix, "table", r.Table)
	return nil
}

func (m *Mirror) DelToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif southbound.AdapterKey) error {
	r := toNetlinkRoute(routerID, prefix, m.loIndex)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.handle.RouteDel(&r); err != nil {
		if errors.Is(err, syscall.ESRCH) || errors.Is(err, syscall.ENOENT) {
			return nil
		}
		return fmt.Errorf("kernel route delete %s: %w", prefix, err)
	}
	m.logger.Debug("Withdrew mirrored to-me route", "prefix", prefix, "table", r.Table)
	return nil
}

func (m *Mirror) Close() error {
	m.handle.Close()
	return nil
}

// toNetlinkRoute maps a to-me route onto a local route. Router 0 goes to the
// kernel local table, other routers to the table with their id.
func toNetlinkRoute(routerID state.RouterID, prefix netaddr.IPPrefix, loIndex int) netlink.Route {
	table := unix.RT_TABLE_LOCAL
	if routerID != 0 {
		table = int(routerID)
	}
	return netlink.Route{
		Dst:       toIPNet(prefix),
		LinkIndex: loIndex,
		Table:     table,
		Type:      unix.RTN_LOCAL,
		Scope:     netlink.SCOPE_HOST,
		Protocol:  unix.RTPROT_STATIC,
	}
}

func toIPNet(p netaddr.IPPrefix) *net.IPNet {
	bits := 32
	if p.IP().Is6() {
		bits = 128
	}
	return &net.IPNet{
		IP:   p.IP().IPAddr().IP,
		Mask: net.CIDRMask(int(p.Bits()), bits),
	}
}
