//go:build !linux

package kernel

import (
	"fmt"

	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

// Mirror is not supported on non-Linux platforms.
type Mirror struct{}

func NewMirror(nsName string) (*Mirror, error) {
	return nil, fmt.Errorf("kernel route mirror is supported only on linux")
}

func (m *Mirror) AddToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif southbound.AdapterKey) error {
	return fmt.Errorf("kernel route mirror is supported only on linux")
}

func (m *Mirror) DelToMeRoute(routerID state.RouterID, prefix netaddr.IPPrefix, rif southbound.AdapterKey) error {
	return fmt.Errorf("kernel route mirror is supported only on linux")
}

func (m *Mirror) Close() error {
	return nil
}
