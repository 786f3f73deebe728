package system

const (
	DataplaneModeVPP    = "vpp"
	DataplaneModeMemory = "memory"

	DefaultVPPAPISocket = "/run/osvswitch/dataplane_api.sock"
)

type DataplaneConfig struct {
	Mode           string `json:"mode,omitempty" yaml:"mode,omitempty"`
	VPPAPISocket   string `json:"vpp_api_socket,omitempty" yaml:"vpp_api_socket,omitempty"`
	TrunkInterface string `json:"trunk_interface,omitempty" yaml:"trunk_interface,omitempty"`
	// LCPNetNS is the namespace to mirror to-me routes into. Empty disables
	// the kernel mirror.
	LCPNetNS string `json:"lcp_netns,omitempty" yaml:"lcp_netns,omitempty"`

	// Capacity of the memory dataplane. Zero is unlimited.
	MaxRouterInterfaces int `json:"max_router_interfaces,omitempty" yaml:"max_router_interfaces,omitempty"`
	MaxRoutes           int `json:"max_routes,omitempty" yaml:"max_routes,omitempty"`
}
