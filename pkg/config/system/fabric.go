package system

type SwitchConfig struct {
	SwitchID       uint32             `json:"switch_id" yaml:"switch_id"`
	LocalSwitchIDs []uint32           `json:"local_switch_ids,omitempty" yaml:"local_switch_ids,omitempty"`
	Capabilities   CapabilitiesConfig `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

type CapabilitiesConfig struct {
	PortRouterInterface       bool `json:"port_router_interface,omitempty" yaml:"port_router_interface,omitempty"`
	SystemPortRouterInterface bool `json:"system_port_router_interface,omitempty" yaml:"system_port_router_interface,omitempty"`
	ReservedEncapIndexRange   bool `json:"reserved_encap_index_range,omitempty" yaml:"reserved_encap_index_range,omitempty"`
}

type DSFConfig struct {
	UseEncapIndex bool            `json:"use_encap_index,omitempty" yaml:"use_encap_index,omitempty"`
	Nodes         []DSFNodeConfig `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

type DSFNodeConfig struct {
	SwitchID         uint32                  `json:"switch_id" yaml:"switch_id"`
	Name             string                  `json:"name,omitempty" yaml:"name,omitempty"`
	SystemPortRanges []SystemPortRangeConfig `json:"system_port_ranges" yaml:"system_port_ranges"`
}

type SystemPortRangeConfig struct {
	Minimum uint32 `json:"minimum" yaml:"minimum"`
	Maximum uint32 `json:"maximum" yaml:"maximum"`
}
