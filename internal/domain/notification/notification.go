package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names the real-time events emitted by the engine. Slot
// events broadcast to every connected participant (anyone may be
// browsing the marketplace); swap events target only the named
// parties.
type EventType string

const (
	EventSlotCreated       EventType = "slot-created"
	EventSlotUpdated       EventType = "slot-updated"
	EventSlotDeleted       EventType = "slot-deleted"
	EventSlotStatusChanged EventType = "slot-status-changed"
	EventSwapProposed      EventType = "swap-proposed"
	EventSwapUpdated       EventType = "swap-updated"
)

// Event is a domain event ready for fanout. DedupeKey is a stable
// identity (entity id + action) so any consumer can treat repeated
// delivery of the same logical event as a no-op; the fanout layer may
// exceed-deliver but never under-delivers.
type Event struct {
	Type      EventType       `json:"type"`
	DedupeKey string          `json:"dedupeKey"`
	Payload   json.RawMessage `json:"payload"`
	Targets   []uuid.UUID     `json:"-"`
}

// NewBroadcast builds an event delivered to every connection.
func NewBroadcast(t EventType, dedupeKey string, payload interface{}) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: t, DedupeKey: dedupeKey, Payload: data}
}

// NewTargeted builds an event delivered only to the given participants.
func NewTargeted(t EventType, dedupeKey string, payload interface{}, targets ...uuid.UUID) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: t, DedupeKey: dedupeKey, Payload: data, Targets: targets}
}

// DedupeKeyFor derives the stable event identity from an entity id and
// the action applied to it.
func DedupeKeyFor(entityID uuid.UUID, action string) string {
	return fmt.Sprintf("%s:%s", entityID, action)
}

// Fanout delivers domain events to connected participants. The state
// machine emits through this interface; the SSE-backed implementation
// is constructed at startup and passed in by handle, never reached
// through global state.
type Fanout interface {
	Publish(event Event)
}

// Hub is the connection registry the fanout delivers through.
type Hub interface {
	BroadcastToAll(message *SSEMessage)
	BroadcastToUser(userID uuid.UUID, message *SSEMessage)
}

// SSEClient represents one active SSE connection. A participant may
// hold zero or many at once.
type SSEClient struct {
	ClientID    string
	UserID      uuid.UUID
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a client with a buffered delivery channel.
func NewSSEClient(clientID string, userID uuid.UUID) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel.
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage is the wire form of an event. ID carries the dedupe key.
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage wraps an event payload for delivery.
func NewSSEMessage(id string, event string, data json.RawMessage) *SSEMessage {
	return &SSEMessage{
		ID:        id,
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
