// Package progressbus implements the per-conversation progress fan-out
// described in spec.md §4.6: a multiplexer that lets clients join a
// conversation id and receive lifecycle events published to it, best-effort
// and at-most-once per subscriber.
package progressbus

import (
	"encoding/json"
	"sync"
	"time"

	"agentmesh/internal/logger"
)

// EventType enumerates the closed set of event types the bus carries, per
// spec.md §4.6.
type EventType string

const (
	EventAgentSpawned  EventType = "agent:spawned"
	EventAgentStatus   EventType = "agent:status"
	EventAgentMessage  EventType = "agent:message"
	EventTaskCreated   EventType = "task:created"
	EventTaskUpdated   EventType = "task:updated"
	EventQueryProgress EventType = "query:progress"
	EventQueryComplete EventType = "query:completed"
	EventError         EventType = "error"
)

// Event is one item on the bus, per spec.md §4.6.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	QueryID        string    `json:"queryId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Data           any       `json:"data"`
}

// MarshalJSON renders Timestamp as ISO-8601, per spec.md §4.6.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(struct {
		alias
		Timestamp string `json:"timestamp"`
	}{alias(e), e.Timestamp.UTC().Format(time.RFC3339Nano)})
}

// subscriber is one joined client's delivery channel. Sends are
// non-blocking: a slow subscriber drops events rather than stalling the
// publisher (best-effort, at-most-once per spec.md §4.6).
type subscriber struct {
	ch chan Event
}

const subscriberBuffer = 64

// Bus is a per-conversation multiplexer. The zero value is not usable; use
// New.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
	sink Sink
}

// Sink is an optional best-effort fan-out target for every published
// event, independent of live subscribers — e.g. a Kafka topic for
// downstream analytics. A nil Sink means pure in-memory fan-out.
type Sink interface {
	Publish(event Event)
}

// New returns a Bus with no subscribers. sink may be nil.
func New(sink Sink) *Bus {
	return &Bus{
		subs: make(map[string]map[*subscriber]struct{}),
		sink: sink,
	}
}

// Join registers for events on conversationID. The returned channel is
// closed by the returned leave func, which unsubscribes and releases
// resources; callers must range over it until closed.
func (b *Bus) Join(conversationID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	b.mu.Lock()
	set, ok := b.subs[conversationID]
	if !ok {
		set = make(map[*subscriber]struct{})
		b.subs[conversationID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	leave := func() {
		b.mu.Lock()
		if set, ok := b.subs[conversationID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subs, conversationID)
			}
		}
		close(sub.ch)
		b.mu.Unlock()
	}
	return sub.ch, leave
}

// Publish delivers event to every current subscriber of its
// ConversationID, in the order Publish is called for that conversation
// (spec.md §5 per-conversation ordering). A subscriber whose buffer is
// full drops the event rather than blocking the publisher. The send loop
// runs under the same lock the leave func closes channels under, so a subscriber
// can never be sent to after (or while) it is torn down.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	for s := range b.subs[event.ConversationID] {
		select {
		case s.ch <- event:
		default:
			logger.WithComponent("progressbus").Warn("dropping event for slow subscriber",
				"conversationId", event.ConversationID, "type", event.Type)
		}
	}
	b.mu.RUnlock()

	if b.sink != nil {
		b.sink.Publish(event)
	}
}
