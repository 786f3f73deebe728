// Package rifmgr keeps router interface hardware objects and their to-me
// routes in sync with the software interface model.
package rifmgr

import (
	"fmt"
	"log/slog"
	"sync"

	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/asic"
	"github.com/veesix-networks/osvswitch/pkg/hwstore"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/routemgr"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

// ObjectStore materializes router interface objects. *hwstore.Store
// satisfies it.
type ObjectStore interface {
	Set(attrs southbound.RouterInterfaceAttributes) (*hwstore.Object, error)
}

// RouteDelegate programs to-me routes. *routemgr.Manager satisfies it.
type RouteDelegate interface {
	AddToMeRoute(routerID state.RouterID, subnet netaddr.IPPrefix, rif southbound.AdapterKey) (*routemgr.ToMeRoute, error)
	RemoveToMeRoute(r *routemgr.ToMeRoute, rif southbound.AdapterKey) error
}

// Manager owns the InterfaceID to Handle table.
//
// Add, Remove and Change calls must be serialized by the caller; lookups may
// run concurrently with them.
type Manager struct {
	mu      sync.RWMutex
	handles map[state.InterfaceID]*Handle

	store  ObjectStore
	routes RouteDelegate
	caps   asic.Capabilities
	fatal  FatalReporter
	logger *slog.Logger
}

type Option func(*Manager)

func WithFatalReporter(r FatalReporter) Option {
	return func(m *Manager) {
		m.fatal = r
	}
}

func New(store ObjectStore, routes RouteDelegate, caps asic.Capabilities, opts ...Option) *Manager {
	m := &Manager{
		handles: make(map[state.InterfaceID]*Handle),
		store:   store,
		routes:  routes,
		caps:    caps,
		logger:  logger.Get(logger.RIF),
	}
	m.fatal = exitReporter(m.logger)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) AddLocalRouterInterface(iface *state.Interface) (southbound.AdapterKey, error) {
	return m.addRouterInterface(iface, true)
}

func (m *Manager) RemoveLocalRouterInterface(iface *state.Interface) error {
	return m.removeRouterInterface(iface)
}

func (m *Manager) ChangeLocalRouterInterface(oldIface, newIface *state.Interface) error {
	return m.changeRouterInterface(oldIface, newIface, true)
}

func (m *Manager) AddRemoteRouterInterface(iface *state.Interface) (southbound.AdapterKey, error) {
	return m.addRouterInterface(iface, false)
}

func (m *Manager) RemoveRemoteRouterInterface(iface *state.Interface) error {
	return m.removeRouterInterface(iface)
}

func (m *Manager) ChangeRemoteRouterInterface(oldIface, newIface *state.Interface) error {
	return m.changeRouterInterface(oldIface, newIface, false)
}

// GetRouterInterfaceHandle returns the live handle for id.
func (m *Manager) GetRouterInterfaceHandle(id state.InterfaceID) (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.handles[id]
	return h, ok
}

// RouterInterface returns a snapshot of the handle for id.
func (m *Manager) RouterInterface(id state.InterfaceID) (HandleInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.handles[id]
	if !ok {
		return HandleInfo{}, false
	}
	return h.info(), true
}

// List returns snapshots of every handle ordered by interface id.
func (m *Manager) List() []HandleInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]HandleInfo, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, h.info())
	}
	sortInfos(out)
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

func (m *Manager) attributes(iface *state.Interface) (southbound.RouterInterfaceAttributes, error) {
	if !asic.SupportsInterfaceType(m.caps, iface.Type) {
		return southbound.RouterInterfaceAttributes{}, fmt.Errorf("interface %d: %w: %s", iface.ID, ErrUnsupportedInterfaceType, iface.Type)
	}

	attrs := southbound.RouterInterfaceAttributes{
		Type:     iface.Type,
		RouterID: iface.RouterID,
		MAC:      iface.MAC,
		MTU:      iface.MTU,
		Enabled:  iface.Enabled,
	}
	if attrs.MTU == 0 {
		attrs.MTU = state.DefaultMTU
	}

	switch iface.Type {
	case state.InterfaceTypeVLAN:
		if iface.VlanID == nil {
			return attrs, fmt.Errorf("interface %d: vlan router interface without vlan id", iface.ID)
		}
		attrs.VlanID = *iface.VlanID
	case state.InterfaceTypePort:
		attrs.PortID = iface.PortID
	case state.InterfaceTypeSystemPort:
		attrs.SystemPortID = iface.SystemPortID
	}
	return attrs, nil
}

func (m *Manager) addRouterInterface(iface *state.Interface, local bool) (southbound.AdapterKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.handles[iface.ID]; ok {
		return 0, m.violation("interface %d added twice", iface.ID)
	}

	attrs, err := m.attributes(iface)
	if err != nil {
		return 0, err
	}

	obj, err := m.store.Set(attrs)
	if err != nil {
		return 0, fmt.Errorf("add router interface %d: %w", iface.ID, err)
	}

	h := newHandle(iface.ID, iface.RouterID, newBacking(iface.Type, attrs, obj), local)

	if err := m.addRoutes(h, iface.Subnets()); err != nil {
		m.cleanupRoutes(h, h.Subnets())
		if relErr := obj.Release(); relErr != nil {
			m.logger.Warn("Failed to release router interface after route failure", "interface_id", iface.ID, "error", relErr)
		}
		return 0, fmt.Errorf("add router interface %d: %w", iface.ID, err)
	}

	m.handles[iface.ID] = h

	m.handleLogger(h).Info("Added router interface",
		"vrf", iface.RouterID,
		"to_me_routes", len(h.routes))
	return obj.AdapterKey(), nil
}

func (m *Manager) removeRouterInterface(iface *state.Interface) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles[iface.ID]
	if !ok {
		return m.violation("remove of unknown interface %d", iface.ID)
	}

	if err := m.removeRoutes(h, h.Subnets()); err != nil {
		return fmt.Errorf("remove router interface %d: %w", iface.ID, err)
	}

	if err := h.Backing.object().Release(); err != nil {
		return fmt.Errorf("remove router interface %d: %w", iface.ID, err)
	}

	delete(m.handles, iface.ID)

	m.handleLogger(h).Info("Removed router interface")
	return nil
}

func (m *Manager) changeRouterInterface(oldIface, newIface *state.Interface, local bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldIface.ID != newIface.ID {
		return m.violation("change from interface %d to interface %d", oldIface.ID, newIface.ID)
	}

	h, ok := m.handles[newIface.ID]
	if !ok {
		return m.violation("change of unknown interface %d", newIface.ID)
	}
	if oldIface.Type != newIface.Type || h.Type() != newIface.Type {
		return m.violation("interface %d changes type from %s to %s", newIface.ID, h.Type(), newIface.Type)
	}

	attrs, err := m.attributes(newIface)
	if err != nil {
		return err
	}

	obj := h.Backing.object()
	prevAttrs := obj.Attributes()

	if hwstore.HostKey(attrs) != obj.HostKey() {
		return m.moveRouterInterface(h, newIface, attrs, local)
	}

	if err := obj.SetAttributes(attrs); err != nil {
		return fmt.Errorf("change router interface %d: %w", newIface.ID, err)
	}

	if h.routerID != newIface.RouterID {
		if err := m.rebindRoutes(h, newIface.RouterID, obj.AdapterKey(), obj.AdapterKey(), newIface.Subnets()); err != nil {
			m.revertAttributes(obj, prevAttrs)
			return fmt.Errorf("change router interface %d: %w", newIface.ID, err)
		}
	} else {
		diff := DiffSubnets(h.Subnets(), newIface.Subnets())
		if err := m.addRoutes(h, diff.ToAdd); err != nil {
			m.cleanupRoutes(h, diff.ToAdd)
			m.revertAttributes(obj, prevAttrs)
			return fmt.Errorf("change router interface %d: %w", newIface.ID, err)
		}
		if err := m.removeRoutes(h, diff.ToDel); err != nil {
			return fmt.Errorf("change router interface %d: %w", newIface.ID, err)
		}
	}

	h.SetLocal(local)

	m.handleLogger(h).Debug("Changed router interface",
		"vrf", newIface.RouterID,
		"to_me_routes", len(h.routes))
	return nil
}

// moveRouterInterface handles a change of forwarding context (VLAN, port or
// system port): the handle moves to another object and its routes follow.
func (m *Manager) moveRouterInterface(h *Handle, newIface *state.Interface, attrs southbound.RouterInterfaceAttributes, local bool) error {
	oldObj := h.Backing.object()

	newObj, err := m.store.Set(attrs)
	if err != nil {
		return fmt.Errorf("move router interface %d: %w", newIface.ID, err)
	}

	oldBacking := h.Backing
	h.Backing = newBacking(newIface.Type, attrs, newObj)

	if err := m.rebindRoutes(h, newIface.RouterID, newObj.AdapterKey(), oldObj.AdapterKey(), newIface.Subnets()); err != nil {
		h.Backing = oldBacking
		if relErr := newObj.Release(); relErr != nil {
			m.logger.Warn("Failed to release router interface after move failure", "interface_id", newIface.ID, "error", relErr)
		}
		return fmt.Errorf("move router interface %d: %w", newIface.ID, err)
	}

	if err := oldObj.Release(); err != nil {
		m.logger.Warn("Failed to release previous router interface object", "interface_id", newIface.ID, "host_key", oldObj.HostKey(), "error", err)
	}
	h.SetLocal(local)

	m.handleLogger(h).Info("Moved router interface",
		"from", oldObj.HostKey(),
		"to", newObj.HostKey())
	return nil
}

// rebindRoutes withdraws every route of h and programs subnets in routerID
// through rif. On failure the previous routes are restored through prevRIF.
func (m *Manager) rebindRoutes(h *Handle, routerID state.RouterID, rif, prevRIF southbound.AdapterKey, subnets []netaddr.IPPrefix) error {
	prevRouter := h.routerID
	prevSubnets := h.Subnets()

	if err := m.removeRoutes(h, prevSubnets); err != nil {
		return err
	}

	h.routerID = routerID
	if err := m.addRoutesVia(h, rif, subnets); err != nil {
		m.cleanupRoutes(h, h.Subnets())
		h.routerID = prevRouter
		if restoreErr := m.addRoutesVia(h, prevRIF, prevSubnets); restoreErr != nil {
			m.logger.Error("Failed to restore to-me routes", "interface_id", h.id, "error", restoreErr)
		}
		return err
	}
	return nil
}

func (m *Manager) addRoutes(h *Handle, subnets []netaddr.IPPrefix) error {
	return m.addRoutesVia(h, h.AdapterKey(), subnets)
}

func (m *Manager) addRoutesVia(h *Handle, rif southbound.AdapterKey, subnets []netaddr.IPPrefix) error {
	for _, subnet := range subnets {
		if _, ok := h.routes[subnet]; ok {
			continue
		}
		r, err := m.routes.AddToMeRoute(h.routerID, subnet, rif)
		if err != nil {
			return err
		}
		h.routes[subnet] = r
		h.routeVia[subnet] = rif
	}
	return nil
}

// removeRoutes stops at the first failure; routes not yet removed stay on the
// handle.
func (m *Manager) removeRoutes(h *Handle, subnets []netaddr.IPPrefix) error {
	for _, subnet := range subnets {
		r, ok := h.routes[subnet]
		if !ok {
			continue
		}
		if err := m.routes.RemoveToMeRoute(r, h.routeVia[subnet]); err != nil {
			return err
		}
		delete(h.routes, subnet)
		delete(h.routeVia, subnet)
	}
	return nil
}

// cleanupRoutes withdraws routes on a failure path. A route it cannot
// withdraw stays on the handle.
func (m *Manager) cleanupRoutes(h *Handle, subnets []netaddr.IPPrefix) {
	if err := m.removeRoutes(h, subnets); err != nil {
		m.logger.Warn("Failed to withdraw to-me routes during rollback",
			"interface_id", h.id,
			"vrf", h.routerID,
			"remaining", len(h.routes),
			"error", err)
	}
}

func (m *Manager) handleLogger(h *Handle) *slog.Logger {
	return logger.WithInterface(m.logger, logger.InterfaceAttrs{
		InterfaceID: uint32(h.id),
		Type:        h.Type().String(),
		Local:       h.IsLocal(),
		AdapterKey:  uint32(h.AdapterKey()),
	})
}

func (m *Manager) revertAttributes(obj *hwstore.Object, attrs southbound.RouterInterfaceAttributes) {
	if err := obj.SetAttributes(attrs); err != nil {
		m.logger.Error("Failed to revert router interface attributes", "host_key", obj.HostKey(), "error", err)
	}
}
