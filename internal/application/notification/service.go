package notification

import (
	"github.com/rs/zerolog"

	domain "github.com/prakhar-shukla17/SlotSwapper/internal/domain/notification"
)

// Service translates domain events into SSE messages and routes them
// through the hub: events without targets broadcast to every
// connection, targeted events reach only the named participants'
// connections.
type Service struct {
	hub    domain.Hub
	logger zerolog.Logger
}

// NewService creates a notification service on top of hub.
func NewService(hub domain.Hub, logger zerolog.Logger) *Service {
	return &Service{
		hub:    hub,
		logger: logger.With().Str("service", "notification").Logger(),
	}
}

// Publish delivers one event. The message id carries the event's
// dedupe key so consumers can drop repeats.
func (s *Service) Publish(event domain.Event) {
	message := domain.NewSSEMessage(event.DedupeKey, string(event.Type), event.Payload)
	if len(event.Targets) == 0 {
		s.hub.BroadcastToAll(message)
		return
	}
	for _, userID := range event.Targets {
		s.hub.BroadcastToUser(userID, message)
	}
	s.logger.Debug().
		Str("event", string(event.Type)).
		Str("dedupe_key", event.DedupeKey).
		Int("targets", len(event.Targets)).
		Msg("event delivered")
}
