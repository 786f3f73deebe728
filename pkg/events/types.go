package events

import (
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

type RouterInterfaceOp string

const (
	RouterInterfaceAdded   RouterInterfaceOp = "added"
	RouterInterfaceRemoved RouterInterfaceOp = "removed"
	RouterInterfaceChanged RouterInterfaceOp = "changed"
)

// RouterInterfaceEvent is published on TopicRouterInterface for every
// applied router interface operation.
type RouterInterfaceEvent struct {
	Op          RouterInterfaceOp     `json:"op"`
	InterfaceID state.InterfaceID     `json:"interface_id"`
	AdapterKey  southbound.AdapterKey `json:"adapter_key"`
	Local       bool                  `json:"local"`
}
