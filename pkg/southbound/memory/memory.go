package memory

import (
	"fmt"
	"sync"

	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

var _ southbound.Southbound = (*Dataplane)(nil)

type routeKey struct {
	routerID state.RouterID
	prefix   netaddr.IPPrefix
}

type Config struct {
	// FirstAdapterKey is the key handed to the first router interface.
	// Zero means 1.
	FirstAdapterKey     southbound.AdapterKey
	MaxRouterInterfaces int
	MaxRoutes           int
}

// Dataplane keeps router interfaces and to-me routes in memory. It backs the
// "memory" dataplane mode and the tests of the layers above it.
type Dataplane struct {
	mu      sync.RWMutex
	cfg     Config
	nextKey southbound.AdapterKey
	rifs    map[southbound.AdapterKey]southbound.RouterInterfaceAttributes
	routes  map[routeKey]southbound.AdapterKey

	creates int
	updates int
	deletes int
}

func New(cfg Config) *Dataplane {
	next := cfg.FirstAdapterKey
	if next == 0 {
		next = 1
	}
	return &Dataplane{
		cfg:     cfg,
		nextKey: next,
		rifs:    make(map[southbound.AdapterKey]southbound.RouterInterfaceAttributes),
		routes:  make(map[routeKey]southbound.AdapterKey),
	}
}

func (d *Dataplane) CreateRouterInterface(attrs southbound.RouterInterfaceAttributes) (southbound.AdapterKey, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg.MaxRouterInterfaces > 0 && len(d.rifs) >= d.cfg.MaxRouterInterfaces {
		return 0, fmt.Errorf("create router interface: %w", southbound.ErrTableFull)
	}

	key := d.nextKey
	d.nextKey++
	d.rifs[key] = attrs
	d.creates++
	return key, nil
}

func (d *Dataplane) UpdateRouterInterface(key southbound.AdapterKey, old, new southbound.RouterInterfaceAttributes) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rifs[key]; !ok {
		return fmt.Errorf("router interface %s not found", key)
	}
	d.rifs[key] = new
	d.updates++
	return nil
}

func (d *Dataplane) DeleteRouterInterface(key southbound.AdapterKey, attrs southbound.RouterInterfaceAttributes) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rifs[key]; !ok {
		return fmt.Errorf("router interface %s not found", key)
	}
	delete(d.rifs, key)
	d.deletes++
	return nil
}

func (d *Dataplane) AddToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif southbound.AdapterKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := routeKey{routerID: routerID, prefix: prefix}
	if _, ok := d.routes[k]; !ok && d.cfg.MaxRoutes > 0 && len(d.routes) >= d.cfg.MaxRoutes {
		return fmt.Errorf("add to-me route %s: %w", prefix, southbound.ErrTableFull)
	}
	d.routes[k] = rif
	return nil
}

func (d *Dataplane) DelToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif southbound.AdapterKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.routes, routeKey{routerID: routerID, prefix: prefix})
	return nil
}

// Preload installs a router interface under a fixed key, as if it had
// survived an agent restart.
func (d *Dataplane) Preload(key southbound.AdapterKey, attrs southbound.RouterInterfaceAttributes) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.rifs[key] = attrs
	if key >= d.nextKey {
		d.nextKey = key + 1
	}
}

func (d *Dataplane) RouterInterface(key southbound.AdapterKey) (southbound.RouterInterfaceAttributes, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	attrs, ok := d.rifs[key]
	return attrs, ok
}

func (d *Dataplane) RouterInterfaceCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rifs)
}

func (d *Dataplane) HasRoute(routerID state.RouterID, prefix netaddr.IPPrefix) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.routes[routeKey{routerID: routerID, prefix: prefix}]
	return ok
}

// RouteAdapterKey returns the router interface a to-me route points at.
func (d *Dataplane) RouteAdapterKey(routerID state.RouterID, prefix netaddr.IPPrefix) (southbound.AdapterKey, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rif, ok := d.routes[routeKey{routerID: routerID, prefix: prefix}]
	return rif, ok
}

func (d *Dataplane) RouteCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.routes)
}

// Ops returns how many router interface creates, updates and deletes were
// applied.
func (d *Dataplane) Ops() (creates, updates, deletes int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.creates, d.updates, d.deletes
}
