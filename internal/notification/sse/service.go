// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"agenda_backend/internal/events"
	"agenda_backend/platform/httpkit"
	"agenda_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventConfirmationChanged EventType = "confirmation_changed"
	EventReplyReceived       EventType = "reply_received"
	EventRequestSent         EventType = "confirmation_request_sent"
)

const (
	clientBuffer      = 32
	keepAliveInterval = 25 * time.Second
)

// Event represents an SSE event payload
type Event struct {
	Type      EventType `json:"type"`
	MeetingID int64     `json:"meetingId"`
	Data      any       `json:"data,omitempty"`
}

type client struct {
	id      uuid.UUID
	subject string
	events  chan Event
}

// Service manages SSE connections and broadcasts to every connected operator.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		clients: make(map[uuid.UUID]*client),
		log:     log,
	}
}

// RegisterHandlers subscribes the service to confirmation events.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.MeetingConfirmationChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		ev := e.(events.MeetingConfirmationChanged)
		s.Broadcast(Event{Type: EventConfirmationChanged, MeetingID: ev.MeetingID, Data: ev})
		return nil
	}))
	bus.Subscribe(events.ClientReplyRecorded{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		ev := e.(events.ClientReplyRecorded)
		s.Broadcast(Event{Type: EventReplyReceived, MeetingID: ev.MeetingID, Data: ev})
		return nil
	}))
	bus.Subscribe(events.ConfirmationRequestSent{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		ev := e.(events.ConfirmationRequestSent)
		s.Broadcast(Event{Type: EventRequestSent, MeetingID: ev.MeetingID, Data: ev})
		return nil
	}))
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.id]; !ok {
		return
	}
	delete(s.clients, c.id)
	close(c.events)
}

// ClientCount returns the number of connected clients.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends event to all clients. A client with a full buffer misses it.
func (s *Service) Broadcast(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full, event dropped", "client", c.id, "subject", c.subject, "type", event.Type)
		}
	}
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.GetIdentity(c)
		if !identity.IsAuthenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			id:      uuid.New(),
			subject: identity.Subject(),
			events:  make(chan Event, clientBuffer),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"clientId": cl.id})
		c.Writer.Flush()
		s.log.Debug("sse client connected", "client", cl.id, "subject", cl.subject)

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", "client", cl.id)
				return
			case <-keepAlive.C:
				c.SSEvent("ping", time.Now().Unix())
				c.Writer.Flush()
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects all clients.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.clients {
		close(c.events)
		delete(s.clients, id)
	}
}
