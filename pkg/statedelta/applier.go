package statedelta

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

// RouterInterfaceManager is the subset of *rifmgr.Manager the applier drives.
type RouterInterfaceManager interface {
	AddLocalRouterInterface(iface *state.Interface) (southbound.AdapterKey, error)
	RemoveLocalRouterInterface(iface *state.Interface) error
	ChangeLocalRouterInterface(oldIface, newIface *state.Interface) error
	AddRemoteRouterInterface(iface *state.Interface) (southbound.AdapterKey, error)
	RemoveRemoteRouterInterface(iface *state.Interface) error
	ChangeRemoteRouterInterface(oldIface, newIface *state.Interface) error
}

type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpChange Op = "change"
)

// Result records one applied operation.
type Result struct {
	Op          Op
	InterfaceID state.InterfaceID
	Local       bool
	AdapterKey  southbound.AdapterKey
}

// OpError is returned by Apply for the operation that failed.
type OpError struct {
	Op          Op
	InterfaceID state.InterfaceID
	Local       bool
	Err         error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s interface %d: %v", e.Op, locality(e.Local), e.InterfaceID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

type Applier struct {
	rifs   RouterInterfaceManager
	logger *slog.Logger
}

func NewApplier(rifs RouterInterfaceManager) *Applier {
	return &Applier{
		rifs:   rifs,
		logger: logger.Get(logger.StateDelta),
	}
}

type plan struct {
	local   bool
	removes []*state.Interface
	changes []InterfaceChange
	adds    []*state.Interface
}

func newPlan(d Delta, local bool) plan {
	p := plan{
		local:   local,
		removes: append([]*state.Interface(nil), d.Removed...),
		adds:    append([]*state.Interface(nil), d.Added...),
	}
	for _, c := range d.Changed {
		if c.Old.Type != c.New.Type {
			p.removes = append(p.removes, c.Old)
			p.adds = append(p.adds, c.New)
			continue
		}
		p.changes = append(p.changes, c)
	}
	sortByID(p.removes)
	sortByID(p.adds)
	return p
}

func sortByID(ifaces []*state.Interface) {
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].ID < ifaces[j].ID })
}

// Apply reconciles the router interfaces of old into new. All removals run
// first, then changes, then additions, each for remote interfaces before
// local ones. Apply stops at the first error and returns the operations
// that completed.
func (a *Applier) Apply(old, new *state.SwitchState) ([]Result, error) {
	if old == nil {
		old = state.NewSwitchState()
	}
	if new == nil {
		new = state.NewSwitchState()
	}

	plans := []plan{
		newPlan(Compute(old.RemoteInterfaces, new.RemoteInterfaces), false),
		newPlan(Compute(old.Interfaces, new.Interfaces), true),
	}

	var results []Result

	for _, p := range plans {
		for _, iface := range p.removes {
			if err := a.remove(iface, p.local); err != nil {
				return results, err
			}
			results = append(results, Result{Op: OpRemove, InterfaceID: iface.ID, Local: p.local})
		}
	}

	for _, p := range plans {
		for _, c := range p.changes {
			if err := a.change(c, p.local); err != nil {
				return results, err
			}
			results = append(results, Result{Op: OpChange, InterfaceID: c.New.ID, Local: p.local})
		}
	}

	for _, p := range plans {
		for _, iface := range p.adds {
			key, err := a.add(iface, p.local)
			if err != nil {
				return results, err
			}
			results = append(results, Result{Op: OpAdd, InterfaceID: iface.ID, Local: p.local, AdapterKey: key})
		}
	}

	if len(results) > 0 {
		a.logger.Info("Applied router interface delta", "operations", len(results))
	}
	return results, nil
}

// Revert undoes results, as returned by a failed Apply(old, new), in reverse
// order. It keeps going past errors and returns them joined.
func (a *Applier) Revert(old, new *state.SwitchState, results []Result) error {
	if old == nil {
		old = state.NewSwitchState()
	}
	if new == nil {
		new = state.NewSwitchState()
	}

	var errs []error
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		oldMap, newMap := old.RemoteInterfaces, new.RemoteInterfaces
		if r.Local {
			oldMap, newMap = old.Interfaces, new.Interfaces
		}
		oldIface, _ := oldMap.Get(r.InterfaceID)
		newIface, _ := newMap.Get(r.InterfaceID)

		var err error
		switch r.Op {
		case OpAdd:
			err = a.remove(newIface, r.Local)
		case OpRemove:
			_, err = a.add(oldIface, r.Local)
		case OpChange:
			err = a.change(InterfaceChange{Old: newIface, New: oldIface}, r.Local)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		a.logger.Error("Failed to revert router interface delta", "operations", len(results), "failures", len(errs))
	} else if len(results) > 0 {
		a.logger.Warn("Reverted router interface delta", "operations", len(results))
	}
	return errors.Join(errs...)
}

func (a *Applier) add(iface *state.Interface, local bool) (southbound.AdapterKey, error) {
	var (
		key southbound.AdapterKey
		err error
	)
	if local {
		key, err = a.rifs.AddLocalRouterInterface(iface)
	} else {
		key, err = a.rifs.AddRemoteRouterInterface(iface)
	}
	if err != nil {
		return 0, &OpError{Op: OpAdd, InterfaceID: iface.ID, Local: local, Err: err}
	}
	return key, nil
}

func (a *Applier) remove(iface *state.Interface, local bool) error {
	var err error
	if local {
		err = a.rifs.RemoveLocalRouterInterface(iface)
	} else {
		err = a.rifs.RemoveRemoteRouterInterface(iface)
	}
	if err != nil {
		return &OpError{Op: OpRemove, InterfaceID: iface.ID, Local: local, Err: err}
	}
	return nil
}

func (a *Applier) change(c InterfaceChange, local bool) error {
	var err error
	if local {
		err = a.rifs.ChangeLocalRouterInterface(c.Old, c.New)
	} else {
		err = a.rifs.ChangeRemoteRouterInterface(c.Old, c.New)
	}
	if err != nil {
		return &OpError{Op: OpChange, InterfaceID: c.New.ID, Local: local, Err: err}
	}
	return nil
}

func locality(local bool) string {
	if local {
		return "local"
	}
	return "remote"
}
