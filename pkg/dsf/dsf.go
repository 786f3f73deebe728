// Package dsf synthesizes the remote system ports and router interfaces of the
// other switches in a distributed switch fabric.
package dsf

import (
	"fmt"
	"net"
	"sort"

	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

const (
	// System ports below this offset in a range are CPU, recycle, eventor
	// and management ports.
	RemoteSysPortOffset = 7
	NumPortsPerCore     = 10
	NumVoqs             = 8
	NumRdswSysPorts     = 44
	NumEdswSysPorts     = 26

	speed100G = 100000
	speed400G = 400000
	speed800G = 800000

	encapIndexBase = 0x200001
	remoteMTU      = 9000
)

var (
	remoteMAC   = net.HardwareAddr{0xc6, 0xca, 0x2b, 0x2a, 0xb1, 0xb6}
	neighborMAC = net.HardwareAddr{0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
)

type Range struct {
	Minimum uint32
	Maximum uint32
}

func (r Range) Size() int {
	return int(r.Maximum) - int(r.Minimum) + 1
}

// Validate checks that r is ordered and covers a whole RDSW or EDSW.
func (r Range) Validate() error {
	if r.Maximum < r.Minimum {
		return fmt.Errorf("system port range %d-%d is reversed", r.Minimum, r.Maximum)
	}
	if n := r.Size(); n != NumRdswSysPorts && n != NumEdswSysPorts {
		return fmt.Errorf("system port range %d-%d has %d ports, want %d or %d", r.Minimum, r.Maximum, n, NumRdswSysPorts, NumEdswSysPorts)
	}
	return nil
}

type Node struct {
	SwitchID         state.SwitchID
	Name             string
	SystemPortRanges []Range
}

type Config struct {
	// LocalSwitchIDs are the switches of this box; their nodes are skipped.
	LocalSwitchIDs []state.SwitchID
	Nodes          []Node
	UseEncapIndex  bool
}

// Remote is the synthesized state of the remote switches.
type Remote struct {
	Interfaces  *state.InterfaceMap
	SystemPorts map[state.SystemPortID]*state.SystemPort
}

// Into replaces the remote sections of s.
func (r *Remote) Into(s *state.SwitchState) {
	s.RemoteInterfaces = r.Interfaces
	s.RemoteSystemPorts = r.SystemPorts
}

// RemoteState builds, for every remote node and every front panel system port
// of its ranges, a remote system port and a system-port router interface with
// one reachable neighbor.
func RemoteState(cfg Config) (*Remote, error) {
	local := make(map[state.SwitchID]bool, len(cfg.LocalSwitchIDs))
	for _, id := range cfg.LocalSwitchIDs {
		local[id] = true
	}

	nodes := append([]Node(nil), cfg.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].SwitchID < nodes[j].SwitchID })

	out := &Remote{
		Interfaces:  state.NewInterfaceMap(),
		SystemPorts: make(map[state.SystemPortID]*state.SystemPort),
	}

	for _, node := range nodes {
		if local[node.SwitchID] {
			continue
		}
		if len(node.SystemPortRanges) == 0 {
			return nil, fmt.Errorf("dsf node %d has no system port ranges", node.SwitchID)
		}
		if node.SwitchID/256 > 155 {
			return nil, fmt.Errorf("dsf node %d: switch id out of addressable range", node.SwitchID)
		}

		for _, r := range node.SystemPortRanges {
			if err := r.Validate(); err != nil {
				return nil, fmt.Errorf("dsf node %d: %w", node.SwitchID, err)
			}
			for i := r.Minimum + RemoteSysPortOffset; i <= r.Maximum; i++ {
				sysPort := systemPort(node.SwitchID, r, i)
				if _, dup := out.SystemPorts[sysPort.ID]; dup {
					return nil, fmt.Errorf("dsf node %d: system port %d already used", node.SwitchID, i)
				}
				out.SystemPorts[sysPort.ID] = sysPort

				if err := out.Interfaces.Add(remoteInterface(node.SwitchID, r, i, cfg.UseEncapIndex)); err != nil {
					return nil, fmt.Errorf("dsf node %d: %w", node.SwitchID, err)
				}
			}
		}
	}

	logger.Get(logger.DSF).Info("Synthesized remote fabric state",
		"system_ports", len(out.SystemPorts),
		"interfaces", out.Interfaces.Len())
	return out, nil
}

func systemPort(sw state.SwitchID, r Range, i uint32) *state.SystemPort {
	speed := int64(speed800G)
	switch {
	case i == r.Minimum+RemoteSysPortOffset:
		speed = speed100G
	case r.Size() == NumRdswSysPorts:
		speed = speed400G
	}

	return &state.SystemPort{
		ID:            state.SystemPortID(i),
		Name:          fmt.Sprintf("fabric%d:eth/%d/1", sw, i),
		SwitchID:      sw,
		CoreIndex:     int(i-r.Minimum-RemoteSysPortOffset) / NumPortsPerCore,
		CorePortIndex: int(i-r.Minimum) % NumPortsPerCore,
		SpeedMbps:     speed,
		NumVoqs:       NumVoqs,
		Scope:         state.ScopeGlobal,
	}
}

// remoteInterface addresses port i of switch sw as
// <100+sw/256>:<sw%256>:<i-min>::1/64 and <100+sw/256>.<sw%256>.<i-min>.1/24.
func remoteInterface(sw state.SwitchID, r Range, i uint32, useEncapIndex bool) *state.Interface {
	first := 100 + uint32(sw)/256
	second := uint32(sw) % 256
	third := i - r.Minimum

	v6 := netaddr.MustParseIPPrefix(fmt.Sprintf("%d:%d:%d::1/64", first, second, third))
	v4 := netaddr.MustParseIPPrefix(fmt.Sprintf("%d.%d.%d.1/24", first, second, third))
	neighborIP := netaddr.MustParseIP(fmt.Sprintf("%d:%d:%d::2", first, second, third))

	neighbor := state.NeighborEntry{
		IP:           neighborIP,
		MAC:          neighborMAC,
		SystemPortID: state.SystemPortID(i),
		InterfaceID:  state.InterfaceID(i),
		State:        state.NeighborReachable,
		IsLocal:      false,
	}
	if useEncapIndex {
		idx := uint64(encapIndexBase) + uint64(i)
		neighbor.EncapIndex = &idx
	}

	return &state.Interface{
		ID:           state.InterfaceID(i),
		RouterID:     0,
		Type:         state.InterfaceTypeSystemPort,
		SystemPortID: state.SystemPortID(i),
		Name:         fmt.Sprintf("remote%d/%d", sw, i),
		MAC:          remoteMAC,
		MTU:          remoteMTU,
		Enabled:      true,
		Addresses:    []netaddr.IPPrefix{v6, v4},
		Neighbors:    []state.NeighborEntry{neighbor},
		Scope:        state.ScopeGlobal,
	}
}
