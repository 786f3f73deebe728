package component

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veesix-networks/osvswitch/pkg/config"
	"github.com/veesix-networks/osvswitch/pkg/events"
	"github.com/veesix-networks/osvswitch/pkg/rifmgr"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

type Dependencies struct {
	Config   *config.Config
	EventBus events.Bus
	RIF      *rifmgr.Manager
	Registry *prometheus.Registry

	// InitialState is applied by the router interface component on start.
	InitialState *state.SwitchState
}
