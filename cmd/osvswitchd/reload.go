package main

import (
	"context"
	"fmt"

	"github.com/veesix-networks/osvswitch/internal/rif"
	"github.com/veesix-networks/osvswitch/pkg/config"
)

// reload rereads the configuration file and reconciles the router
// interfaces against it. Logging, dataplane and switch identity settings
// only take effect on restart.
func reload(ctx context.Context, path string, comp *rif.Component) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	next, err := cfg.InitialState()
	if err != nil {
		return fmt.Errorf("build desired state: %w", err)
	}

	return comp.Reload(ctx, next)
}
