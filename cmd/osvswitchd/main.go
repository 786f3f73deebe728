package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.fd.io/govpp"

	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/config"
	"github.com/veesix-networks/osvswitch/pkg/config/system"
	"github.com/veesix-networks/osvswitch/pkg/events/local"
	"github.com/veesix-networks/osvswitch/pkg/hwstore"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/opdb"
	"github.com/veesix-networks/osvswitch/pkg/opdb/sqlite"
	"github.com/veesix-networks/osvswitch/pkg/rifmgr"
	"github.com/veesix-networks/osvswitch/pkg/routemgr"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/kernel"
	"github.com/veesix-networks/osvswitch/pkg/southbound/memory"
	"github.com/veesix-networks/osvswitch/pkg/southbound/vpp"
	"github.com/veesix-networks/osvswitch/pkg/version"

	"github.com/veesix-networks/osvswitch/internal/rif"

	_ "github.com/veesix-networks/osvswitch/internal/exporter"
)

func main() {
	configPath := flag.String("config", "/etc/osvswitch/osvswitch.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Configure(cfg.Logging.Format, logger.LogLevel(cfg.Logging.Level), cfg.Logging.ComponentLevels())

	mainLog := logger.Get(logger.Main)
	mainLog.Info("Starting osvswitch", "version", version.Version, "switch_id", cfg.Switch.SwitchID, "dataplane", cfg.Dataplane.Mode)

	dataplane, closeDataplane, err := newDataplane(cfg)
	if err != nil {
		log.Fatalf("Failed to set up dataplane: %v", err)
	}
	defer closeDataplane()

	programmers := []southbound.Routes{dataplane}
	if cfg.Dataplane.LCPNetNS != "" {
		mirror, err := kernel.NewMirror(cfg.Dataplane.LCPNetNS)
		if err != nil {
			log.Fatalf("Failed to set up kernel route mirror: %v", err)
		}
		defer mirror.Close()
		programmers = append(programmers, mirror)
		mainLog.Info("Mirroring to-me routes into namespace", "netns", cfg.Dataplane.LCPNetNS)
	}

	ctx := context.Background()

	var storeOpts []hwstore.Option
	var db *sqlite.Store
	if cfg.OpDB.Path != "" {
		db, err = sqlite.Open(cfg.OpDB.Path)
		if err != nil {
			log.Fatalf("Failed to open opdb: %v", err)
		}
		defer db.Close()
		storeOpts = append(storeOpts, hwstore.WithOpDB(db))
	}

	store := hwstore.New(dataplane, storeOpts...)

	if db != nil {
		providers := opdb.NewProviderRegistry()
		providers.Register(store)
		if err := providers.RestoreAll(ctx, db); err != nil {
			mainLog.Warn("Failed to restore warm boot state, starting cold", "error", err)
		} else if n := store.Unclaimed(); n > 0 {
			mainLog.Info("Restored warm boot router interfaces", "count", n)
		}
	}

	rifs := rifmgr.New(store, routemgr.New(programmers...), cfg.Capabilities())

	initial, err := cfg.InitialState()
	if err != nil {
		log.Fatalf("Failed to build initial state: %v", err)
	}

	eventBus := local.NewBus()
	defer eventBus.Close()
	eventSub := logEvents(eventBus, logger.Get(logger.Events))
	defer eventSub.Unsubscribe()

	deps := component.Dependencies{
		Config:       cfg,
		EventBus:     eventBus,
		RIF:          rifs,
		Registry:     prometheus.NewRegistry(),
		InitialState: initial,
	}

	comps, err := component.LoadAll(deps)
	if err != nil {
		log.Fatalf("Failed to load components: %v", err)
	}

	var rifComp *rif.Component
	orch := component.NewOrchestrator()
	for _, comp := range comps {
		mainLog.Info("Loaded component", "name", comp.Name())
		orch.Register(comp)
		if c, ok := comp.(*rif.Component); ok {
			rifComp = c
		}
	}
	if rifComp == nil {
		log.Fatalf("Component %q is not registered", rif.Name)
	}

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start components: %v", err)
	}

	if err := store.ReleaseUnclaimed(ctx); err != nil {
		mainLog.Warn("Failed to release stale warm boot router interfaces", "error", err)
	}

	mainLog.Info("osvswitch started successfully", "router_interfaces", rifs.Len())

	sigHup := make(chan os.Signal, 1)
	sigTerm := make(chan os.Signal, 1)
	signal.Notify(sigHup, syscall.SIGHUP)
	signal.Notify(sigTerm, syscall.SIGINT, syscall.SIGTERM)

wait:
	for {
		select {
		case <-sigHup:
			mainLog.Info("Reloading configuration", "path", *configPath)
			if err := reload(ctx, *configPath, rifComp); err != nil {
				mainLog.Error("Failed to reload configuration, keeping previous state", "error", err)
				continue
			}
			mainLog.Info("Reloaded configuration", "router_interfaces", rifs.Len())
		case <-sigTerm:
			break wait
		}
	}

	mainLog.Info("Shutting down osvswitch...")

	if err := orch.Stop(ctx); err != nil {
		mainLog.Error("Error stopping components", "error", err)
	}

	mainLog.Info("osvswitch stopped")
}

func newDataplane(cfg *config.Config) (southbound.Southbound, func(), error) {
	switch cfg.Dataplane.Mode {
	case system.DataplaneModeMemory:
		dp := memory.New(memory.Config{
			MaxRouterInterfaces: cfg.Dataplane.MaxRouterInterfaces,
			MaxRoutes:           cfg.Dataplane.MaxRoutes,
		})
		return dp, func() {}, nil
	default:
		conn, err := govpp.Connect(cfg.Dataplane.VPPAPISocket)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to VPP at %s: %w", cfg.Dataplane.VPPAPISocket, err)
		}

		dp, err := vpp.NewVPP(vpp.VPPConfig{
			Connection:     conn,
			TrunkInterface: cfg.Dataplane.TrunkInterface,
		})
		if err != nil {
			conn.Disconnect()
			return nil, nil, err
		}
		return dp, conn.Disconnect, nil
	}
}
