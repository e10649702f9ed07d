package slot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/notification"
	domainSlot "github.com/prakhar-shukla17/SlotSwapper/internal/domain/slot"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/storage"
	domainSwap "github.com/prakhar-shukla17/SlotSwapper/internal/domain/swap"
)

// Service handles the slot CRUD surface. Overlap validation always
// runs inside the same transaction as the write it guards.
type Service struct {
	slotRepo domainSlot.Repository
	swapRepo domainSwap.Repository
	tx       storage.TxRunner
	fanout   notification.Fanout
	logger   zerolog.Logger
}

// NewService creates a slot service.
func NewService(slotRepo domainSlot.Repository, swapRepo domainSwap.Repository, tx storage.TxRunner, fanout notification.Fanout, logger zerolog.Logger) *Service {
	return &Service{
		slotRepo: slotRepo,
		swapRepo: swapRepo,
		tx:       tx,
		fanout:   fanout,
		logger:   logger.With().Str("service", "slot").Logger(),
	}
}

// CreateInput carries the fields for a new slot.
type CreateInput struct {
	Title       string
	Description *string
	Date        time.Time
	StartTime   string
	EndTime     string
	Location    *string
	Recurrence  *domainSlot.Recurrence
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Date        *time.Time
	StartTime   *string
	EndTime     *string
	Location    *string
	Recurrence  *domainSlot.Recurrence
}

// Create validates and stores a new busy slot for ownerID.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*domainSlot.Slot, error) {
	created, err := domainSlot.New(ownerID, in.Title, in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	if in.Recurrence != nil && !domainSlot.ValidRecurrence(*in.Recurrence) {
		return nil, domainSlot.ErrInvalidRecurrence
	}
	created.Description = in.Description
	created.Location = in.Location
	created.Recurrence = in.Recurrence

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		clash, err := s.slotRepo.FindOverlapping(ctx, ownerID, created.Date, created.StartTime, created.EndTime, nil)
		if err != nil {
			return err
		}
		if clash != nil {
			return domainSlot.ErrOverlap
		}
		return s.slotRepo.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.fanout.Publish(notification.NewBroadcast(
		notification.EventSlotCreated,
		notification.DedupeKeyFor(created.SlotID, "created"),
		slotPayload{Slot: created, OwnerID: ownerID},
	))
	s.logger.Info().Str("slot_id", created.SlotID.String()).Msg("slot created")
	return created, nil
}

// List returns the owner's slots ordered by date then start time.
func (s *Service) List(ctx context.Context, filter domainSlot.Filter) ([]*domainSlot.Slot, error) {
	return s.slotRepo.List(ctx, filter)
}

// Get returns one of the owner's slots.
func (s *Service) Get(ctx context.Context, slotID, ownerID uuid.UUID) (*domainSlot.Slot, error) {
	found, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if found == nil || found.OwnerID != ownerID {
		return nil, domainSlot.ErrNotFound
	}
	return found, nil
}

// Update applies a partial update to one of the owner's slots. Slots
// reserved by a pending swap cannot be edited.
func (s *Service) Update(ctx context.Context, slotID, ownerID uuid.UUID, in UpdateInput) (*domainSlot.Slot, error) {
	var updated *domainSlot.Slot
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.slotRepo.GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		if current == nil || current.OwnerID != ownerID {
			return domainSlot.ErrNotFound
		}
		if current.Status == domainSlot.StatusSwapPending {
			return domainSlot.ErrStatusLocked
		}

		next := *current
		if in.Title != nil {
			if *in.Title == "" {
				return domainSlot.ErrMissingTitle
			}
			next.Title = *in.Title
		}
		if in.Description != nil {
			next.Description = in.Description
		}
		if in.Date != nil {
			next.Date = domainSlot.DateOnly(*in.Date)
		}
		if in.StartTime != nil {
			next.StartTime = *in.StartTime
		}
		if in.EndTime != nil {
			next.EndTime = *in.EndTime
		}
		if in.Location != nil {
			next.Location = in.Location
		}
		if in.Recurrence != nil {
			if !domainSlot.ValidRecurrence(*in.Recurrence) {
				return domainSlot.ErrInvalidRecurrence
			}
			next.Recurrence = in.Recurrence
		}
		if err := domainSlot.ValidateTimes(next.StartTime, next.EndTime); err != nil {
			return err
		}

		clash, err := s.slotRepo.FindOverlapping(ctx, ownerID, next.Date, next.StartTime, next.EndTime, &next.SlotID)
		if err != nil {
			return err
		}
		if clash != nil {
			return domainSlot.ErrOverlap
		}
		if err := s.slotRepo.Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fanout.Publish(notification.NewBroadcast(
		notification.EventSlotUpdated,
		notification.DedupeKeyFor(updated.SlotID, fmt.Sprintf("updated:%d", updated.Version)),
		slotPayload{Slot: updated, OwnerID: ownerID},
	))
	return updated, nil
}

// Delete removes one of the owner's slots. Slots referenced by a
// pending swap request cannot be deleted.
func (s *Service) Delete(ctx context.Context, slotID, ownerID uuid.UUID) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.slotRepo.GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		if current == nil || current.OwnerID != ownerID {
			return domainSlot.ErrNotFound
		}
		pending, err := s.swapRepo.ListPendingBySlots(ctx, []uuid.UUID{slotID})
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return domainSlot.ErrReferencedByPending
		}
		return s.slotRepo.Delete(ctx, slotID)
	})
	if err != nil {
		return err
	}

	s.fanout.Publish(notification.NewBroadcast(
		notification.EventSlotDeleted,
		notification.DedupeKeyFor(slotID, "deleted"),
		slotDeletedPayload{SlotID: slotID, OwnerID: ownerID},
	))
	return nil
}

// SetStatus toggles a slot between busy and swappable. Slots reserved
// by a pending swap refuse the toggle; swap_pending itself is never a
// legal target here.
func (s *Service) SetStatus(ctx context.Context, slotID, ownerID uuid.UUID, target domainSlot.Status) (*domainSlot.Slot, error) {
	if target != domainSlot.StatusBusy && target != domainSlot.StatusSwappable {
		return nil, domainSlot.ErrInvalidStatus
	}
	var updated *domainSlot.Slot
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.slotRepo.GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		if current == nil || current.OwnerID != ownerID {
			return domainSlot.ErrNotFound
		}
		if !current.OwnerCanSet(target) {
			return domainSlot.ErrStatusLocked
		}
		if current.Status == target {
			updated = current
			return nil
		}
		next := *current
		next.Status = target
		if err := s.slotRepo.Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fanout.Publish(notification.NewBroadcast(
		notification.EventSlotStatusChanged,
		notification.DedupeKeyFor(updated.SlotID, fmt.Sprintf("status:%s:%d", updated.Status, updated.Version)),
		slotPayload{Slot: updated, OwnerID: ownerID},
	))
	return updated, nil
}

type slotPayload struct {
	Slot    *domainSlot.Slot `json:"slot"`
	OwnerID uuid.UUID        `json:"ownerId"`
}

type slotDeletedPayload struct {
	SlotID  uuid.UUID `json:"slotId"`
	OwnerID uuid.UUID `json:"ownerId"`
}
