package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/internal/rif"
	"github.com/veesix-networks/osvswitch/pkg/asic"
	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/config"
	"github.com/veesix-networks/osvswitch/pkg/events"
	"github.com/veesix-networks/osvswitch/pkg/events/local"
	"github.com/veesix-networks/osvswitch/pkg/hwstore"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/rifmgr"
	"github.com/veesix-networks/osvswitch/pkg/routemgr"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/memory"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

const oneVlan = `
dataplane:
  mode: memory
interfaces:
  - id: 1
    type: vlan
    vlan_id: 10
    mac: "02:00:00:00:00:01"
    enabled: true
    address:
      ipv4: ["10.0.0.1/24"]
`

const twoVlans = oneVlan + `
  - id: 2
    type: vlan
    vlan_id: 20
    mac: "02:00:00:00:00:01"
    enabled: true
    address:
      ipv4: ["10.0.1.1/24"]
`

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func startRIF(t *testing.T, path string) (*rif.Component, *rifmgr.Manager, *memory.Dataplane) {
	t.Helper()

	cfg, err := config.Load(path)
	require.NoError(t, err)
	initial, err := cfg.InitialState()
	require.NoError(t, err)

	dp := memory.New(memory.Config{})
	rifs := rifmgr.New(hwstore.New(dp), routemgr.New(dp), asic.NewStatic())
	comp, err := rif.New(component.Dependencies{Config: cfg, RIF: rifs, InitialState: initial})
	require.NoError(t, err)

	c := comp.(*rif.Component)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { c.Stop(context.Background()) })
	return c, rifs, dp
}

func TestReloadAppliesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osvswitch.yaml")
	writeConfig(t, path, oneVlan)
	comp, rifs, dp := startRIF(t, path)
	require.Equal(t, 1, rifs.Len())

	writeConfig(t, path, twoVlans)
	require.NoError(t, reload(context.Background(), path, comp))
	assert.Equal(t, 2, rifs.Len())
	assert.True(t, dp.HasRoute(0, netaddr.MustParseIPPrefix("10.0.1.1/32")))

	writeConfig(t, path, oneVlan)
	require.NoError(t, reload(context.Background(), path, comp))
	assert.Equal(t, 1, rifs.Len())
	assert.False(t, dp.HasRoute(0, netaddr.MustParseIPPrefix("10.0.1.1/32")))
}

func TestReloadKeepsStateOnBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osvswitch.yaml")
	writeConfig(t, path, twoVlans)
	comp, rifs, _ := startRIF(t, path)

	writeConfig(t, path, "dataplane:\n  mode: fpga\n")
	require.Error(t, reload(context.Background(), path, comp))
	assert.Equal(t, 2, rifs.Len())
	assert.Equal(t, 2, comp.State().Interfaces.Len())
}

func TestLogEvents(t *testing.T) {
	var buf bytes.Buffer
	logger.Configure("text", logger.LogLevelDebug, nil)
	logger.SetOutput(&buf)
	t.Cleanup(func() {
		logger.Configure("text", logger.LogLevelInfo, nil)
		logger.SetOutput(os.Stdout)
	})

	bus := local.NewBus()
	sub := logEvents(bus, logger.Get(logger.Events))
	defer sub.Unsubscribe()

	bus.Publish(events.TopicRouterInterface, events.Event{
		Source: rif.Name,
		Data: events.RouterInterfaceEvent{
			Op:          events.RouterInterfaceAdded,
			InterfaceID: state.InterfaceID(3),
			AdapterKey:  southbound.AdapterKey(7),
			Local:       true,
		},
	})
	bus.Publish(events.TopicRouterInterface, events.Event{Source: "test", Data: "garbage"})
	require.NoError(t, bus.Close())

	out := buf.String()
	assert.Contains(t, out, "[events] DEBUG Router interface event op=added interface_id=3 adapter_key=rif-7 local=true source=rif")
	assert.Contains(t, out, "Unexpected router interface event payload")
}
