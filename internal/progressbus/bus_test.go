package progressbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinReceivesPublishedEventsForItsConversation(t *testing.T) {
	bus := New(nil)
	events, leave := bus.Join("conv-1")
	defer leave()

	bus.Publish(Event{Type: EventTaskCreated, ConversationID: "conv-1", Data: map[string]any{"taskId": "t1"}})

	select {
	case e := <-events:
		assert.Equal(t, EventTaskCreated, e.Type)
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}
}

func TestJoinDoesNotReceiveOtherConversationsEvents(t *testing.T) {
	bus := New(nil)
	events, leave := bus.Join("conv-1")
	defer leave()

	bus.Publish(Event{Type: EventTaskCreated, ConversationID: "conv-2"})

	select {
	case e := <-events:
		t.Fatalf("unexpected event for wrong conversation: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLeaveClosesChannel(t *testing.T) {
	bus := New(nil)
	events, leave := bus.Join("conv-1")
	leave()

	_, ok := <-events
	assert.False(t, ok, "channel should be closed after leaving")
}

func TestPublishDropsEventsForSlowSubscriberWithoutBlocking(t *testing.T) {
	bus := New(nil)
	_, leave := bus.Join("conv-1")
	defer leave()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			bus.Publish(Event{Type: EventTaskUpdated, ConversationID: "conv-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
}

type fakeSink struct {
	events []Event
}

func (f *fakeSink) Publish(event Event) {
	f.events = append(f.events, event)
}

func TestPublishForwardsToSink(t *testing.T) {
	sink := &fakeSink{}
	bus := New(sink)
	bus.Publish(Event{Type: EventError, ConversationID: "conv-1"})
	require.Len(t, sink.events, 1)
	assert.Equal(t, EventError, sink.events[0].Type)
}

func TestEventMarshalJSONRendersRFC3339Timestamp(t *testing.T) {
	e := Event{Type: EventAgentSpawned, ConversationID: "conv-1", Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	b, err := e.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), "2026-01-02T03:04:05")
}
