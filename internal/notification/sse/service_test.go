package sse

import (
	"context"
	"testing"
	"time"

	"agenda_backend/internal/events"

	"github.com/google/uuid"
)

func TestBroadcastReachesAllClients(t *testing.T) {
	s := New(nil)
	a := &client{id: uuid.New(), events: make(chan Event, 1)}
	b := &client{id: uuid.New(), events: make(chan Event, 1)}
	s.addClient(a)
	s.addClient(b)

	s.Broadcast(Event{Type: EventConfirmationChanged, MeetingID: 42})

	for _, c := range []*client{a, b} {
		select {
		case ev := <-c.events:
			if ev.MeetingID != 42 {
				t.Fatalf("unexpected event %+v", ev)
			}
		default:
			t.Fatal("expected event to be delivered")
		}
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	s := New(nil)
	c := &client{id: uuid.New(), events: make(chan Event, 1)}
	s.addClient(c)

	s.Broadcast(Event{Type: EventReplyReceived, MeetingID: 1})
	s.Broadcast(Event{Type: EventReplyReceived, MeetingID: 2})

	if got := (<-c.events).MeetingID; got != 1 {
		t.Fatalf("expected first event to be kept, got %d", got)
	}
	select {
	case ev := <-c.events:
		t.Fatalf("expected second event to be dropped, got %+v", ev)
	default:
	}
}

func TestRegisterHandlersForwardsBusEvents(t *testing.T) {
	s := New(nil)
	c := &client{id: uuid.New(), events: make(chan Event, 4)}
	s.addClient(c)

	bus := events.NewInMemoryBus(nil)
	s.RegisterHandlers(bus)
	bus.Publish(context.Background(), events.MeetingConfirmationChanged{
		BaseEvent: events.NewBaseEvent(),
		MeetingID: 9,
		Status:    "confirmed",
	})

	select {
	case ev := <-c.events:
		if ev.Type != EventConfirmationChanged || ev.MeetingID != 9 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}
}

func TestRemoveClientIsIdempotent(t *testing.T) {
	s := New(nil)
	c := &client{id: uuid.New(), events: make(chan Event, 1)}
	s.addClient(c)
	s.removeClient(c)
	s.removeClient(c)
	if s.ClientCount() != 0 {
		t.Fatal("expected no clients")
	}
}
