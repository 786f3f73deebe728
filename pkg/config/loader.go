package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veesix-networks/osvswitch/pkg/asic"
	"github.com/veesix-networks/osvswitch/pkg/config/system"
	"github.com/veesix-networks/osvswitch/pkg/dsf"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Dataplane.Mode == "" {
		c.Dataplane.Mode = system.DataplaneModeVPP
	}
	if c.Dataplane.Mode == system.DataplaneModeVPP && c.Dataplane.VPPAPISocket == "" {
		c.Dataplane.VPPAPISocket = system.DefaultVPPAPISocket
	}
	if len(c.Switch.LocalSwitchIDs) == 0 {
		c.Switch.LocalSwitchIDs = []uint32{c.Switch.SwitchID}
	}
	for _, iface := range c.Interfaces {
		if iface != nil && iface.MTU == 0 {
			iface.MTU = state.DefaultMTU
		}
	}
}

func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}

	switch c.Dataplane.Mode {
	case system.DataplaneModeVPP, system.DataplaneModeMemory:
	default:
		return fmt.Errorf("dataplane.mode: unknown mode %q", c.Dataplane.Mode)
	}
	if c.Dataplane.MaxRouterInterfaces < 0 || c.Dataplane.MaxRoutes < 0 {
		return fmt.Errorf("dataplane: capacities must not be negative")
	}

	caps := c.Capabilities()
	ids := make(map[uint32]bool, len(c.Interfaces))
	vlans := make(map[int]uint32)
	ports := make(map[uint32]uint32)

	for i, iface := range c.Interfaces {
		if iface == nil {
			return fmt.Errorf("interfaces[%d]: empty entry", i)
		}
		if ids[iface.ID] {
			return fmt.Errorf("interfaces[%d]: duplicate interface id %d", i, iface.ID)
		}
		ids[iface.ID] = true

		s, err := iface.ToState()
		if err != nil {
			return fmt.Errorf("interfaces[%d] (id %d): %w", i, iface.ID, err)
		}
		if !asic.SupportsInterfaceType(caps, s.Type) {
			return fmt.Errorf("interfaces[%d] (id %d): %s router interfaces are not supported by this switch", i, iface.ID, s.Type)
		}

		switch s.Type {
		case state.InterfaceTypeVLAN:
			if other, ok := vlans[iface.VLANID]; ok {
				return fmt.Errorf("interfaces[%d] (id %d): vlan %d already used by interface %d", i, iface.ID, iface.VLANID, other)
			}
			vlans[iface.VLANID] = iface.ID
		case state.InterfaceTypePort:
			if other, ok := ports[iface.PortID]; ok {
				return fmt.Errorf("interfaces[%d] (id %d): port %d already used by interface %d", i, iface.ID, iface.PortID, other)
			}
			ports[iface.PortID] = iface.ID
		}
	}

	nodes := make(map[uint32]bool, len(c.DSF.Nodes))
	for i, node := range c.DSF.Nodes {
		if nodes[node.SwitchID] {
			return fmt.Errorf("dsf.nodes[%d]: duplicate switch id %d", i, node.SwitchID)
		}
		nodes[node.SwitchID] = true
		if len(node.SystemPortRanges) == 0 {
			return fmt.Errorf("dsf.nodes[%d]: system_port_ranges is required", i)
		}
		for j, r := range node.SystemPortRanges {
			if err := (dsf.Range{Minimum: r.Minimum, Maximum: r.Maximum}).Validate(); err != nil {
				return fmt.Errorf("dsf.nodes[%d].system_port_ranges[%d]: %w", i, j, err)
			}
		}
	}
	if len(c.DSF.Nodes) > 0 && !caps.IsSupported(asic.FeatureSystemPortRouterInterface) {
		return fmt.Errorf("dsf: nodes configured but switch.capabilities.system_port_router_interface is disabled")
	}
	if c.DSF.UseEncapIndex && !caps.IsSupported(asic.FeatureReservedEncapIndexRange) {
		return fmt.Errorf("dsf.use_encap_index requires switch.capabilities.reserved_encap_index_range")
	}

	if strings.TrimSpace(c.Dataplane.TrunkInterface) != c.Dataplane.TrunkInterface {
		return fmt.Errorf("dataplane.trunk_interface: surrounding whitespace")
	}

	return nil
}

// Capabilities returns the configured capability set.
func (c *Config) Capabilities() asic.Static {
	var features []asic.Feature
	if c.Switch.Capabilities.PortRouterInterface {
		features = append(features, asic.FeaturePortRouterInterface)
	}
	if c.Switch.Capabilities.SystemPortRouterInterface {
		features = append(features, asic.FeatureSystemPortRouterInterface)
	}
	if c.Switch.Capabilities.ReservedEncapIndexRange {
		features = append(features, asic.FeatureReservedEncapIndexRange)
	}
	return asic.NewStatic(features...)
}

// LocalInterfaces converts the configured interfaces.
func (c *Config) LocalInterfaces() (*state.InterfaceMap, error) {
	m := state.NewInterfaceMap()
	for _, iface := range c.Interfaces {
		s, err := iface.ToState()
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", iface.ID, err)
		}
		if err := m.Add(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (c *Config) DSFConfig() dsf.Config {
	out := dsf.Config{UseEncapIndex: c.DSF.UseEncapIndex}
	for _, id := range c.Switch.LocalSwitchIDs {
		out.LocalSwitchIDs = append(out.LocalSwitchIDs, state.SwitchID(id))
	}
	for _, node := range c.DSF.Nodes {
		n := dsf.Node{SwitchID: state.SwitchID(node.SwitchID), Name: node.Name}
		for _, r := range node.SystemPortRanges {
			n.SystemPortRanges = append(n.SystemPortRanges, dsf.Range{Minimum: r.Minimum, Maximum: r.Maximum})
		}
		out.Nodes = append(out.Nodes, n)
	}
	return out
}

// InitialState is the switch state described by the configuration: the
// configured local interfaces plus the synthesized remote fabric state.
func (c *Config) InitialState() (*state.SwitchState, error) {
	s := state.NewSwitchState()

	local, err := c.LocalInterfaces()
	if err != nil {
		return nil, err
	}
	s.Interfaces = local

	if len(c.DSF.Nodes) > 0 {
		remote, err := dsf.RemoteState(c.DSFConfig())
		if err != nil {
			return nil, err
		}
		for _, id := range remote.Interfaces.IDs() {
			if _, ok := local.Get(id); ok {
				return nil, fmt.Errorf("interface %d collides with a remote fabric interface", id)
			}
		}
		remote.Into(s)
	}

	return s, nil
}
