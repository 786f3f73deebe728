package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/metrics"
)

const Name = "exporter.prometheus"

func init() {
	component.Register(Name, 20, New)
}

type Component struct {
	*component.Base
	logger   *slog.Logger
	addr     string
	registry *prometheus.Registry

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
}

// New returns nil when no listen address is configured.
func New(deps component.Dependencies) (component.Component, error) {
	if deps.Config == nil || deps.Config.Monitoring.ListenAddress == "" {
		return nil, nil
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("prometheus registry is required")
	}

	if deps.RIF != nil {
		if err := deps.Registry.Register(metrics.NewCollector(deps.RIF)); err != nil {
			return nil, fmt.Errorf("register router interface collector: %w", err)
		}
	}

	return &Component{
		Base:     component.NewBase(Name),
		logger:   logger.Get(logger.Exporter),
		addr:     deps.Config.Monitoring.ListenAddress,
		registry: deps.Registry,
	}, nil
}

// Addr is the bound address once started.
func (c *Component) Addr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return c.addr
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting Prometheus exporter", "addr", c.addr)

	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		c.StopContext()
		return fmt.Errorf("listen on %s: %w", c.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	c.mu.Lock()
	c.server = server
	c.listener = ln
	c.mu.Unlock()

	c.Go(func() {
		c.logger.Info("Prometheus HTTP server listening", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Prometheus HTTP server error", "error", err)
		}
	})

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping Prometheus exporter")

	c.mu.RLock()
	server := c.server
	c.mu.RUnlock()

	var err error
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}

	c.StopContext()
	return err
}
