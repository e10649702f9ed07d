package notification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	domain "github.com/prakhar-shukla17/SlotSwapper/internal/domain/notification"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/notification/mocks"
)

func TestPublishBroadcastsUntargetedEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	hub := mocks.NewMockHub(ctrl)
	svc := NewService(hub, zerolog.Nop())

	slotID := uuid.New()
	event := domain.NewBroadcast(domain.EventSlotCreated, domain.DedupeKeyFor(slotID, "created"), map[string]string{"hello": "world"})

	hub.EXPECT().BroadcastToAll(gomock.Any()).Do(func(message *domain.SSEMessage) {
		assert.Equal(t, event.DedupeKey, message.ID)
		assert.Equal(t, string(domain.EventSlotCreated), message.Event)
		assert.JSONEq(t, `{"hello":"world"}`, string(message.Data))
	})

	svc.Publish(event)
}

func TestPublishRoutesTargetedEventsPerParticipant(t *testing.T) {
	ctrl := gomock.NewController(t)
	hub := mocks.NewMockHub(ctrl)
	svc := NewService(hub, zerolog.Nop())

	alice, bob := uuid.New(), uuid.New()
	requestID := uuid.New()
	event := domain.NewTargeted(domain.EventSwapUpdated, domain.DedupeKeyFor(requestID, "accepted"), map[string]string{"status": "accepted"}, alice, bob)

	hub.EXPECT().BroadcastToUser(alice, gomock.Any())
	hub.EXPECT().BroadcastToUser(bob, gomock.Any())

	svc.Publish(event)
}
