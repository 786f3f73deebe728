package local

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/veesix-networks/osvswitch/pkg/events"
	"github.com/veesix-networks/osvswitch/pkg/logger"
)

const defaultCapacity = 1024

type publishRequest struct {
	topic string
	event events.Event
}

type subscription struct {
	id      uint64
	handler events.Handler
}

type sub struct {
	bus   *Bus
	topic string
	id    uint64
}

func (s *sub) Unsubscribe() {
	s.bus.removeSub(s.topic, s.id)
}

type globalSub struct {
	bus *Bus
	id  uint64
}

func (s *globalSub) Unsubscribe() {
	s.bus.removeGlobalSub(s.id)
}

// Bus is an in-process events.Bus. A single goroutine dispatches events, so
// every handler sees them in publish order; a full queue drops new events.
type Bus struct {
	subs       map[string]map[uint64]*subscription
	globalSubs map[uint64]*subscription
	mu         sync.RWMutex
	nextID     atomic.Uint64
	publishCh  chan publishRequest
	done       chan struct{}
	closeMu    sync.RWMutex
	closed     bool
	logger     *slog.Logger
	published  atomic.Uint64
	dropped    atomic.Uint64
}

type Option func(*Bus)

func WithCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.publishCh = make(chan publishRequest, n)
		}
	}
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:       make(map[string]map[uint64]*subscription),
		globalSubs: make(map[uint64]*subscription),
		publishCh:  make(chan publishRequest, defaultCapacity),
		done:       make(chan struct{}),
		logger:     logger.Get(logger.Events),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.publishLoop()

	return b
}

func (b *Bus) Publish(topic string, event events.Event) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	if b.closed {
		b.dropped.Add(1)
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Type == "" {
		event.Type = topic
	}

	select {
	case b.publishCh <- publishRequest{topic: topic, event: event}:
		b.published.Add(1)
	default:
		b.dropped.Add(1)
		b.logger.Warn("Publish channel full, dropping event", "topic", topic)
	}
}

func (b *Bus) publishLoop() {
	defer close(b.done)

	for req := range b.publishCh {
		for _, h := range b.handlers(req.topic) {
			b.dispatch(h, req)
		}
	}
}

func (b *Bus) handlers(topic string) []events.Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]*subscription, 0, len(b.subs[topic])+len(b.globalSubs))
	for _, s := range b.subs[topic] {
		ids = append(ids, s)
	}
	for _, s := range b.globalSubs {
		ids = append(ids, s)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].id < ids[j].id })

	out := make([]events.Handler, len(ids))
	for i, s := range ids {
		out[i] = s.handler
	}
	return out
}

func (b *Bus) dispatch(h events.Handler, req publishRequest) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked", "topic", req.topic, "event_id", req.event.ID, "panic", r)
		}
	}()
	h(req.event)
}

func (b *Bus) Subscribe(topic string, handler events.Handler) events.Subscription {
	id := b.nextID.Add(1)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*subscription)
	}
	b.subs[topic][id] = &subscription{id: id, handler: handler}
	handlerCount := len(b.subs[topic])
	b.mu.Unlock()

	b.logger.Debug("Subscribed to topic", "topic", topic, "handler_count", handlerCount)

	return &sub{bus: b, topic: topic, id: id}
}

func (b *Bus) SubscribeAll(handler events.Handler) events.Subscription {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.globalSubs[id] = &subscription{id: id, handler: handler}
	count := len(b.globalSubs)
	b.mu.Unlock()

	b.logger.Debug("Subscribed to all topics", "global_subscriber_count", count)

	return &globalSub{bus: b, id: id}
}

func (b *Bus) removeSub(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if topicSubs, ok := b.subs[topic]; ok {
		delete(topicSubs, id)
		if len(topicSubs) == 0 {
			delete(b.subs, topic)
		}
	}
}

func (b *Bus) removeGlobalSub(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.globalSubs, id)
}

func (b *Bus) Stats() events.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make([]events.TopicStats, 0, len(b.subs))
	for topic, subs := range b.subs {
		topics = append(topics, events.TopicStats{
			Topic:       topic,
			Subscribers: len(subs),
		})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Topic < topics[j].Topic })

	return events.Stats{
		Topics:       topics,
		PublishChLen: len(b.publishCh),
		PublishChCap: cap(b.publishCh),
		Published:    b.published.Load(),
		Dropped:      b.dropped.Load(),
	}
}

// Close stops accepting events and waits until the queued ones are
// delivered.
func (b *Bus) Close() error {
	b.closeMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.publishCh)
	}
	b.closeMu.Unlock()

	<-b.done
	return nil
}
