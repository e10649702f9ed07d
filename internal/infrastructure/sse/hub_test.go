package sse

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/notification"
)

func msg(id string) *notification.SSEMessage {
	return notification.NewSSEMessage(id, "slot-status-changed", json.RawMessage(`{}`))
}

func TestBroadcastToAll(t *testing.T) {
	h := NewHub()
	a := notification.NewSSEClient("c1", uuid.New())
	b := notification.NewSSEClient("c2", uuid.New())
	h.Register(a)
	h.Register(b)

	h.BroadcastToAll(msg("m1"))

	for _, c := range []*notification.SSEClient{a, b} {
		select {
		case got := <-c.MessageChan:
			if got.ID != "m1" {
				t.Fatalf("unexpected message id %s", got.ID)
			}
		default:
			t.Fatalf("client %s received nothing", c.ClientID)
		}
	}
}

func TestBroadcastToUserTargetsAllConnectionsOfUser(t *testing.T) {
	h := NewHub()
	alice := uuid.New()
	bob := uuid.New()
	a1 := notification.NewSSEClient("a1", alice)
	a2 := notification.NewSSEClient("a2", alice)
	b1 := notification.NewSSEClient("b1", bob)
	h.Register(a1)
	h.Register(a2)
	h.Register(b1)

	h.BroadcastToUser(alice, msg("m2"))

	for _, c := range []*notification.SSEClient{a1, a2} {
		select {
		case <-c.MessageChan:
		default:
			t.Fatalf("alice connection %s received nothing", c.ClientID)
		}
	}
	select {
	case <-b1.MessageChan:
		t.Fatal("bob should not receive a targeted message for alice")
	default:
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	h := NewHub()
	c := notification.NewSSEClient("c1", uuid.New())
	h.Register(c)
	if h.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", h.ClientCount())
	}

	h.Unregister("c1")
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", h.ClientCount())
	}
	if _, open := <-c.MessageChan; open {
		t.Fatal("expected closed channel after unregister")
	}
}

func TestFullBufferDoesNotBlockPublisher(t *testing.T) {
	h := NewHub()
	c := notification.NewSSEClient("c1", uuid.New())
	h.Register(c)

	for i := 0; i < 200; i++ {
		h.BroadcastToAll(msg("m"))
	}
	// Channel buffer is 100; the rest were dropped without blocking.
	if len(c.MessageChan) != 100 {
		t.Fatalf("expected full buffer of 100, got %d", len(c.MessageChan))
	}
}
