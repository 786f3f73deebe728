package main

import (
	"log/slog"

	"github.com/veesix-networks/osvswitch/pkg/events"
)

func logEvents(bus events.Bus, log *slog.Logger) events.Subscription {
	return bus.Subscribe(events.TopicRouterInterface, func(ev events.Event) {
		rev, ok := ev.RouterInterface()
		if !ok {
			log.Warn("Unexpected router interface event payload", "id", ev.ID, "source", ev.Source)
			return
		}
		log.Debug("Router interface event",
			"op", rev.Op,
			"interface_id", rev.InterfaceID,
			"adapter_key", rev.AdapterKey,
			"local", rev.Local,
			"source", ev.Source)
	})
}
