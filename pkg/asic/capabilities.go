package asic

import (
	"github.com/veesix-networks/osvswitch/pkg/state"
)

type Feature int

const (
	FeaturePortRouterInterface Feature = iota + 1
	FeatureSystemPortRouterInterface
	FeatureReservedEncapIndexRange
)

func (f Feature) String() string {
	switch f {
	case FeaturePortRouterInterface:
		return "port_router_interface"
	case FeatureSystemPortRouterInterface:
		return "system_port_router_interface"
	case FeatureReservedEncapIndexRange:
		return "reserved_encap_index_range"
	default:
		return "unknown"
	}
}

// Capabilities answers whether the running hardware generation supports a
// feature.
type Capabilities interface {
	IsSupported(f Feature) bool
}

// Static is a fixed capability set.
type Static map[Feature]bool

func NewStatic(features ...Feature) Static {
	s := make(Static, len(features))
	for _, f := range features {
		s[f] = true
	}
	return s
}

func (s Static) IsSupported(f Feature) bool {
	return s[f]
}

// SupportsInterfaceType reports whether a router interface of type t can be
// built. VLAN router interfaces are always available.
func SupportsInterfaceType(caps Capabilities, t state.InterfaceType) bool {
	switch t {
	case state.InterfaceTypeVLAN:
		return true
	case state.InterfaceTypePort:
		return caps.IsSupported(FeaturePortRouterInterface)
	case state.InterfaceTypeSystemPort:
		return caps.IsSupported(FeatureSystemPortRouterInterface)
	default:
		return false
	}
}
