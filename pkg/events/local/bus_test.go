package local

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/osvswitch/pkg/events"
)

func TestPublishOrderAndDefaults(t *testing.T) {
	b := NewBus()

	var (
		mu  sync.Mutex
		got []events.Event
	)
	b.Subscribe(events.TopicRouterInterface, func(e events.Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		b.Publish(events.TopicRouterInterface, events.Event{Data: events.RouterInterfaceEvent{InterfaceID: 1, Op: events.RouterInterfaceAdded}, Source: "test"})
	}
	b.Publish("other", events.Event{})
	require.NoError(t, b.Close())

	require.Len(t, got, 10)
	for _, e := range got {
		require.NotEmpty(t, e.ID)
		require.False(t, e.Timestamp.IsZero())
		require.Equal(t, events.TopicRouterInterface, e.Type)
	}

	stats := b.Stats()
	require.Equal(t, uint64(11), stats.Published)
	require.Zero(t, stats.Dropped)
}

func TestSubscribeAllAndUnsubscribe(t *testing.T) {
	b := NewBus()

	var all, topic int
	s := b.SubscribeAll(func(events.Event) { all++ })
	b.Subscribe(events.TopicRouterInterface, func(events.Event) { topic++ })

	b.Publish(events.TopicRouterInterface, events.Event{})
	b.Publish("other", events.Event{})

	require.NoError(t, b.Close())
	require.Equal(t, 2, all)
	require.Equal(t, 1, topic)

	s.Unsubscribe()
	require.Len(t, b.Stats().Topics, 1)
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	b := NewBus()
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	b.Publish(events.TopicRouterInterface, events.Event{})
	require.Equal(t, uint64(1), b.Stats().Dropped)
}

func TestHandlerPanicDoesNotStopBus(t *testing.T) {
	b := NewBus(WithCapacity(4))

	var delivered int
	b.Subscribe("t", func(events.Event) { panic("boom") })
	b.Subscribe("t", func(events.Event) { delivered++ })

	b.Publish("t", events.Event{})
	b.Publish("t", events.Event{})
	require.NoError(t, b.Close())
	require.Equal(t, 2, delivered)
}
