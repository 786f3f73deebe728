// Package routemgr programs to-me routes: the host routes that steer traffic
// addressed to a router interface's own addresses to the local stack.
package routemgr

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

type routeKey struct {
	routerID state.RouterID
	prefix   netaddr.IPPrefix
}

// ToMeRoute is a programmed to-me route. Requests for the same router and
// host prefix share one object, which stays programmed until its last
// reference is removed. The route is programmed through one of the router
// interfaces holding a reference; when that interface lets go, the route is
// moved to another one.
type ToMeRoute struct {
	routerID state.RouterID
	prefix   netaddr.IPPrefix
	subnet   netaddr.IPPrefix
	rif      southbound.AdapterKey
	owners   map[southbound.AdapterKey]int
	refs     int
}

func (r *ToMeRoute) RouterID() state.RouterID {
	return r.routerID
}

// Prefix is the host prefix (/32 or /128) that is programmed.
func (r *ToMeRoute) Prefix() netaddr.IPPrefix {
	return r.prefix
}

// Subnet is the interface subnet the route was derived from.
func (r *ToMeRoute) Subnet() netaddr.IPPrefix {
	return r.subnet
}

// AdapterKey is the router interface the route is currently programmed
// through.
func (r *ToMeRoute) AdapterKey() southbound.AdapterKey {
	return r.rif
}

func (r *ToMeRoute) String() string {
	return fmt.Sprintf("%s vrf %d via %s", r.prefix, r.routerID, r.rif)
}

type Manager struct {
	mu          sync.Mutex
	programmers []southbound.Routes
	routes      map[routeKey]*ToMeRoute
	logger      *slog.Logger
}

// New returns a manager that programs every route into each programmer in
// order. The first programmer is expected to be the hardware.
func New(programmers ...southbound.Routes) *Manager {
	return &Manager{
		programmers: programmers,
		routes:      make(map[routeKey]*ToMeRoute),
		logger:      logger.Get(logger.Routes),
	}
}

// HostPrefix returns the full-length prefix of the address of subnet.
func HostPrefix(subnet netaddr.IPPrefix) netaddr.IPPrefix {
	return netaddr.IPPrefixFrom(subnet.IP(), subnet.IP().BitLen())
}

// AddToMeRoute programs the to-me route for the address of subnet in routerID,
// pointing at rif.
func (m *Manager) AddToMeRoute(routerID state.RouterID, subnet netaddr.IPPrefix, rif southbound.AdapterKey) (*ToMeRoute, error) {
	if !subnet.IsValid() {
		return nil, fmt.Errorf("invalid subnet %s", subnet)
	}

	k := routeKey{routerID: routerID, prefix: HostPrefix(subnet)}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.routes[k]; ok {
		r.owners[rif]++
		r.refs++
		return r, nil
	}

	for i, p := range m.programmers {
		if err := p.AddToMeRoute(routerID, k.prefix, rif); err != nil {
			for j := i - 1; j >= 0; j-- {
				if delErr := m.programmers[j].DelToMeRoute(routerID, k.prefix, rif); delErr != nil {
					m.logger.Warn("Failed to roll back to-me route", "prefix", k.prefix, "vrf", routerID, "error", delErr)
				}
			}
			return nil, fmt.Errorf("program to-me route %s in vrf %d: %w", k.prefix, routerID, err)
		}
	}

	r := &ToMeRoute{
		routerID: routerID,
		prefix:   k.prefix,
		subnet:   subnet,
		rif:      rif,
		owners:   map[southbound.AdapterKey]int{rif: 1},
		refs:     1,
	}
	m.routes[k] = r
	m.logger.Debug("Added to-me route", "prefix", k.prefix, "vrf", routerID, "adapter_key", rif)
	return r, nil
}

// RemoveToMeRoute drops the reference rif holds on r and withdraws the route
// with the last one. If rif is the interface the route is programmed through
// and other interfaces still hold references, the route is moved to one of
// them first. On failure the reference is kept so the removal can be
// retried.
func (m *Manager) RemoveToMeRoute(r *ToMeRoute, rif southbound.AdapterKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := routeKey{routerID: r.routerID, prefix: r.prefix}
	if cur, ok := m.routes[k]; !ok || cur != r {
		return fmt.Errorf("to-me route %s is not programmed", r)
	}
	if r.owners[rif] == 0 {
		return fmt.Errorf("to-me route %s holds no reference for %s", r, rif)
	}

	if r.refs > 1 {
		if rif == r.rif && r.owners[rif] == 1 {
			if err := m.repoint(r, r.nextOwner(rif)); err != nil {
				return err
			}
		}
		r.release(rif)
		return nil
	}

	for i := len(m.programmers) - 1; i >= 0; i-- {
		if err := m.programmers[i].DelToMeRoute(r.routerID, r.prefix, r.rif); err != nil {
			return fmt.Errorf("withdraw to-me route %s in vrf %d: %w", r.prefix, r.routerID, err)
		}
	}

	r.release(rif)
	delete(m.routes, k)
	m.logger.Debug("Removed to-me route", "prefix", r.prefix, "vrf", r.routerID, "adapter_key", r.rif)
	return nil
}

func (r *ToMeRoute) release(rif southbound.AdapterKey) {
	r.refs--
	r.owners[rif]--
	if r.owners[rif] == 0 {
		delete(r.owners, rif)
	}
}

// nextOwner picks the lowest adapter key other than rif that holds a
// reference.
func (r *ToMeRoute) nextOwner(rif southbound.AdapterKey) southbound.AdapterKey {
	var next southbound.AdapterKey
	found := false
	for k := range r.owners {
		if k == rif {
			continue
		}
		if !found || k < next {
			next, found = k, true
		}
	}
	return next
}

// repoint reprograms r through rif in every programmer. A programmer that
// fails is put back on the previous interface, as are the ones before it.
func (m *Manager) repoint(r *ToMeRoute, rif southbound.AdapterKey) error {
	from := r.rif
	for i, p := range m.programmers {
		if err := m.move(p, r, from, rif); err != nil {
			for j := i - 1; j >= 0; j-- {
				if backErr := m.move(m.programmers[j], r, rif, from); backErr != nil {
					m.logger.Warn("Failed to restore to-me route", "prefix", r.prefix, "vrf", r.routerID, "error", backErr)
				}
			}
			return fmt.Errorf("move to-me route %s in vrf %d to %s: %w", r.prefix, r.routerID, rif, err)
		}
	}

	r.rif = rif
	m.logger.Debug("Moved to-me route", "prefix", r.prefix, "vrf", r.routerID, "from", from, "to", rif)
	return nil
}

func (m *Manager) move(p southbound.Routes, r *ToMeRoute, from, to southbound.AdapterKey) error {
	if err := p.DelToMeRoute(r.routerID, r.prefix, from); err != nil {
		return err
	}
	if err := p.AddToMeRoute(r.routerID, r.prefix, to); err != nil {
		if backErr := p.AddToMeRoute(r.routerID, r.prefix, from); backErr != nil {
			m.logger.Warn("Failed to restore to-me route", "prefix", r.prefix, "vrf", r.routerID, "error", backErr)
		}
		return err
	}
	return nil
}

// Refs returns the number of references held on r.
func (m *Manager) Refs(r *ToMeRoute) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return r.refs
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.routes)
}

// Routes returns the programmed routes ordered by router then prefix.
func (m *Manager) Routes() []*ToMeRoute {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ToMeRoute, 0, len(m.routes))
	for _, r := range m.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].routerID != out[j].routerID {
			return out[i].routerID < out[j].routerID
		}
		return out[i].prefix.IP().Less(out[j].prefix.IP())
	})
	return out
}
