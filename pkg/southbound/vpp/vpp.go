package vpp

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	interfaces "go.fd.io/govpp/binapi/interface"
	"go.fd.io/govpp/binapi/interface_types"
	"go.fd.io/govpp/api"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

var _ southbound.Southbound = (*VPP)(nil)

// Connection is satisfied by *core.Connection.
type Connection interface {
	NewAPIChannel() (api.Channel, error)
}

type VPP struct {
	conn       Connection
	logger     *slog.Logger
	trunkName  string
	trunkIndex interface_types.InterfaceIndex
	hasTrunk   bool

	tablesMu sync.Mutex
	tables   map[tableKey]struct{}
}

type tableKey struct {
	id     state.RouterID
	isIPv6 bool
}

type VPPConfig struct {
	Connection Connection
	// TrunkInterface is the parent of VLAN router interfaces. Without it only
	// port and system-port router interfaces can be created.
	TrunkInterface string
}

func NewVPP(cfg VPPConfig) (*VPP, error) {
	if cfg.Connection == nil {
		return nil, fmt.Errorf("VPP connection is required")
	}

	v := &VPP{
		conn:      cfg.Connection,
		logger:    logger.Get(logger.Southbound),
		trunkName: cfg.TrunkInterface,
		tables:    make(map[tableKey]struct{}),
	}

	if cfg.TrunkInterface != "" {
		idx, err := v.lookupInterfaceIndex(cfg.TrunkInterface)
		if err != nil {
			return nil, fmt.Errorf("resolve trunk interface %s: %w", cfg.TrunkInterface, err)
		}
		v.trunkIndex = idx
		v.hasTrunk = true
		v.logger.Info("Resolved trunk interface", "interface", cfg.TrunkInterface, "sw_if_index", idx)
	}

	return v, nil
}

func (v *VPP) channel() (api.Channel, error) {
	ch, err := v.conn.NewAPIChannel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", southbound.ErrUnavailable, err)
	}
	return ch, nil
}

func (v *VPP) lookupInterfaceIndex(name string) (interface_types.InterfaceIndex, error) {
	ch, err := v.channel()
	if err != nil {
		return 0, err
	}
	defer ch.Close()

	req := &interfaces.SwInterfaceDump{
		SwIfIndex:       ^interface_types.InterfaceIndex(0),
		NameFilterValid: true,
		NameFilter:      name,
	}

	stream := ch.SendMultiRequest(req)
	for {
		reply := &interfaces.SwInterfaceDetails{}
		stop, err := stream.ReceiveReply(reply)
		if stop {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("dump interface: %w", err)
		}

		ifaceName := strings.TrimRight(reply.InterfaceName, "\x00")
		if ifaceName == name || ifaceName == "host-"+name {
			return reply.SwIfIndex, nil
		}
	}

	return 0, fmt.Errorf("interface %s not found", name)
}
