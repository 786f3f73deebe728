package component

import "context"

// Component is a long-running part of the daemon. Start must return once the
// component is serving; Stop must release everything Start acquired.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
