package events

import "time"

// Event is the envelope delivered to handlers. Buses fill in ID, Timestamp
// and Type (the topic) when the publisher leaves them empty.
type Event struct {
	ID        string
	Type      string
	Timestamp time.Time
	Source    string
	Data      any
}

// RouterInterface returns the payload of an event published on
// TopicRouterInterface.
func (e Event) RouterInterface() (RouterInterfaceEvent, bool) {
	ev, ok := e.Data.(RouterInterfaceEvent)
	return ev, ok
}
