package rif

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/events"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/metrics"
	"github.com/veesix-networks/osvswitch/pkg/statedelta"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

const Name = "rif"

var ErrStopped = errors.New("router interface component stopped")

func init() {
	component.Register(Name, 10, New)
}

// UpdateFunc edits a copy of the current state into the desired one.
type UpdateFunc func(s *state.SwitchState) error

type request struct {
	name string
	fn   UpdateFunc
	done chan error
}

type Component struct {
	*component.Base

	logger  *slog.Logger
	applier *statedelta.Applier
	bus     events.Bus
	ops     *metrics.Operations
	initial *state.SwitchState

	requests chan *request

	mu      sync.RWMutex
	current *state.SwitchState
}

func New(deps component.Dependencies) (component.Component, error) {
	if deps.RIF == nil {
		return nil, fmt.Errorf("router interface manager is required")
	}

	ops := metrics.NewOperations()
	if deps.Registry != nil {
		if err := deps.Registry.Register(ops); err != nil {
			return nil, fmt.Errorf("register operation metrics: %w", err)
		}
	}

	return &Component{
		Base:     component.NewBase(Name),
		logger:   logger.Get(logger.RIF),
		applier:  statedelta.NewApplier(deps.RIF),
		bus:      deps.EventBus,
		ops:      ops,
		initial:  deps.InitialState,
		requests: make(chan *request),
		current:  state.NewSwitchState(),
	}, nil
}

// Start applies the initial state before the update loop accepts requests,
// so a switch that cannot program its configuration fails to start.
func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)

	if c.initial != nil {
		initial := c.initial.Clone()
		if err := c.transition("initial", func(s *state.SwitchState) error {
			*s = *initial
			return nil
		}); err != nil {
			c.StopContext()
			return fmt.Errorf("apply initial state: %w", err)
		}
		c.logger.Info("Applied initial state",
			"local_interfaces", initial.Interfaces.Len(),
			"remote_interfaces", initial.RemoteInterfaces.Len())
	}

	c.Go(c.run)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping router interface component")
	c.StopContext()
	return nil
}

// Update queues a state transition and waits until it has been applied or
// rejected. The state is only committed when every operation succeeded.
func (c *Component) Update(ctx context.Context, name string, fn UpdateFunc) error {
	if c.Ctx == nil {
		return ErrStopped
	}

	req := &request{name: name, fn: fn, done: make(chan error, 1)}

	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.Ctx.Done():
		return ErrStopped
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload replaces the whole desired state with next. Interfaces missing from
// next are removed, new ones added and the rest changed in place.
func (c *Component) Reload(ctx context.Context, next *state.SwitchState) error {
	desired := next.Clone()
	return c.Update(ctx, "reload", func(s *state.SwitchState) error {
		*s = *desired
		return nil
	})
}

// State returns a copy of the last committed state.
func (c *Component) State() *state.SwitchState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

func (c *Component) run() {
	for {
		select {
		case <-c.Ctx.Done():
			return
		case req := <-c.requests:
			req.done <- c.transition(req.name, req.fn)
		}
	}
}

func (c *Component) transition(name string, fn UpdateFunc) error {
	c.mu.RLock()
	old := c.current
	c.mu.RUnlock()

	next := old.Clone()
	if err := fn(next); err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}

	results, err := c.applier.Apply(old, next)
	c.record(results)
	if err != nil {
		var opErr *statedelta.OpError
		if errors.As(err, &opErr) {
			c.ops.Observe(string(opErr.Op), opErr.Local, err)
		}
		c.logger.Error("Failed to apply state update", "update", name, "applied", len(results), "error", err)
		if revertErr := c.applier.Revert(old, next, results); revertErr != nil {
			return errors.Join(fmt.Errorf("update %s: %w", name, err), fmt.Errorf("revert %s: %w", name, revertErr))
		}
		return fmt.Errorf("update %s: %w", name, err)
	}

	c.mu.Lock()
	c.current = next
	c.mu.Unlock()

	c.publish(results)
	c.logger.Debug("Committed state update", "update", name, "operations", len(results))
	return nil
}

func (c *Component) record(results []statedelta.Result) {
	for _, r := range results {
		c.ops.Observe(string(r.Op), r.Local, nil)
	}
}

func (c *Component) publish(results []statedelta.Result) {
	if c.bus == nil {
		return
	}
	for _, r := range results {
		c.bus.Publish(events.TopicRouterInterface, events.Event{
			Source: Name,
			Data: events.RouterInterfaceEvent{
				Op:          eventOp(r.Op),
				InterfaceID: r.InterfaceID,
				AdapterKey:  r.AdapterKey,
				Local:       r.Local,
			},
		})
	}
}

func eventOp(op statedelta.Op) events.RouterInterfaceOp {
	switch op {
	case statedelta.OpAdd:
		return events.RouterInterfaceAdded
	case statedelta.OpRemove:
		return events.RouterInterfaceRemoved
	default:
		return events.RouterInterfaceChanged
	}
}
