package swap

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

// Service runs the swap negotiation state machine. Every multi-entity
// step (propose, respond, cancel, expire) executes inside a single
// transaction; events are published only after the transaction commits.
type Service struct {
	slotRepo domainSlot.Repository
	swapRepo domainSwap.Repository
	tx       storage.TxRunner
	fanout   notification.Fanout
	ttl      time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a swap service. ttl <= 0 falls back to
// swap.DefaultTTL.
func NewService(slotRepo domainSlot.Repository, swapRepo domainSwap.Repository, tx storage.TxRunner, fanout notification.Fanout, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = domainSwap.DefaultTTL
	}
	return &Service{
		slotRepo: slotRepo,
		swapRepo: swapRepo,
		tx:       tx,
		fanout:   fanout,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("service", "swap").Logger(),
	}
}

// Propose creates a pending request to exchange the requester's
// offered slot with the counterpart's requested slot. Both slots must
// be swappable; the proposal reserves them as swap_pending so no
// competing request can reference either one.
func (s *Service) Propose(ctx context.Context, requesterID, offeredSlotID, requestedSlotID uuid.UUID, message *string) (*domainSwap.Request, error) {
	var (
		created *domainSwap.Request
		events  []notification.Event
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		events = events[:0]

		offered, err := s.slotRepo.GetByID(ctx, offeredSlotID)
		if err != nil {
			return err
		}
		if offered == nil || offered.OwnerID != requesterID {
			return domainSlot.ErrNotFound
		}
		requested, err := s.slotRepo.GetByID(ctx, requestedSlotID)
		if err != nil {
			return err
		}
		if requested == nil {
			return domainSlot.ErrNotFound
		}
		if requested.OwnerID == requesterID {
			return domainSwap.ErrSelfSwap
		}
		if offered.Status != domainSlot.StatusSwappable || requested.Status != domainSlot.StatusSwappable {
			return domainSwap.ErrSlotUnavailable
		}

		dupes, err := s.swapRepo.ListPendingBySlots(ctx, []uuid.UUID{offeredSlotID, requestedSlotID})
		if err != nil {
			return err
		}
		if len(dupes) > 0 {
			return domainSwap.ErrDuplicatePending
		}

		for _, sl := range []*domainSlot.Slot{offered, requested} {
			sl.Status = domainSlot.StatusSwapPending
			if err := s.slotRepo.Update(ctx, sl); err != nil {
				return err
			}
			events = append(events, slotStatusEvent(sl))
		}

		created = domainSwap.New(requesterID, requested.OwnerID, offeredSlotID, requestedSlotID, message, s.ttl)
		if err := s.swapRepo.Create(ctx, created); err != nil {
			return err
		}
		events = append(events, notification.NewTargeted(
			notification.EventSwapProposed,
			notification.DedupeKeyFor(created.RequestID, "proposed"),
			requestPayload{Request: created},
			created.CounterpartID,
		))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events)
	s.logger.Info().
		Str("request_id", created.RequestID.String()).
		Str("requester_id", requesterID.String()).
		Str("counterpart_id", created.CounterpartID.String()).
		Msg("swap proposed")
	return created, nil
}

// Respond resolves a pending request as either party. Accepting
// exchanges the two slots' date and times while ownership stays put,
// marks both slots busy, and force-expires any other pending request
// referencing either slot. Rejecting releases both slots back to
// swappable. Requests that are missing, already resolved, or not the
// responder's all look the same: not found.
func (s *Service) Respond(ctx context.Context, requestID, responderID uuid.UUID, accept bool, message *string) (*domainSwap.Request, error) {
	var (
		resolved *domainSwap.Request
		events   []notification.Event
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		events = events[:0]

		req, err := s.swapRepo.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil || !req.IsParty(responderID) || req.IsTerminal() {
			return domainSwap.ErrNotFound
		}

		offered, requested, err := s.requestSlots(ctx, req)
		if err != nil {
			return err
		}

		if accept {
			offered.Date, requested.Date = requested.Date, offered.Date
			offered.StartTime, requested.StartTime = requested.StartTime, offered.StartTime
			offered.EndTime, requested.EndTime = requested.EndTime, offered.EndTime
			offered.Status = domainSlot.StatusBusy
			requested.Status = domainSlot.StatusBusy
			if err := req.Resolve(domainSwap.StatusAccepted, message, s.now()); err != nil {
				return err
			}
		} else {
			offered.Status = domainSlot.StatusSwappable
			requested.Status = domainSlot.StatusSwappable
			if err := req.Resolve(domainSwap.StatusRejected, message, s.now()); err != nil {
				return err
			}
		}

		for _, sl := range []*domainSlot.Slot{offered, requested} {
			if err := s.slotRepo.Update(ctx, sl); err != nil {
				return err
			}
			events = append(events, slotStatusEvent(sl))
		}
		if err := s.swapRepo.Update(ctx, req); err != nil {
			return err
		}
		events = append(events, requestUpdatedEvent(req))

		if accept {
			superseded, err := s.supersedePending(ctx, req, &events)
			if err != nil {
				return err
			}
			if superseded > 0 {
				s.logger.Info().Int("count", superseded).
					Str("request_id", req.RequestID.String()).
					Msg("force-expired competing requests")
			}
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events)
	return resolved, nil
}

// Cancel withdraws a pending request as its requester and releases
// both slots back to swappable.
func (s *Service) Cancel(ctx context.Context, requestID, requesterID uuid.UUID) (*domainSwap.Request, error) {
	var (
		cancelled *domainSwap.Request
		events    []notification.Event
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		events = events[:0]

		req, err := s.swapRepo.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil || req.RequesterID != requesterID || req.IsTerminal() {
			return domainSwap.ErrNotFound
		}
		if err := req.Resolve(domainSwap.StatusCancelled, nil, s.now()); err != nil {
			return err
		}
		if err := s.releaseSlots(ctx, req, &events); err != nil {
			return err
		}
		if err := s.swapRepo.Update(ctx, req); err != nil {
			return err
		}
		events = append(events, requestUpdatedEvent(req))
		cancelled = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events)
	return cancelled, nil
}

// ExpireStale resolves every pending request whose deadline has passed
// and releases its slots. Each request expires in its own transaction
// so one conflict cannot stall the rest; already-resolved requests are
// skipped, which makes the sweep idempotent.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.swapRepo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stale {
		var events []notification.Event
		err := s.tx.InTx(ctx, func(ctx context.Context) error {
			events = events[:0]

			req, err := s.swapRepo.GetByID(ctx, candidate.RequestID)
			if err != nil {
				return err
			}
			if req == nil || req.IsTerminal() {
				return nil
			}
			msg := domainSwap.ResponseTimedOut
			if err := req.Resolve(domainSwap.StatusExpired, &msg, now); err != nil {
				return err
			}
			if err := s.releaseSlots(ctx, req, &events); err != nil {
				return err
			}
			if err := s.swapRepo.Update(ctx, req); err != nil {
				return err
			}
			events = append(events, requestUpdatedEvent(req))
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).
				Str("request_id", candidate.RequestID.String()).
				Msg("expire failed")
			continue
		}
		if len(events) > 0 {
			expired++
			s.publish(events)
		}
	}
	return expired, nil
}

// Marketplace returns future swappable slots owned by anyone except
// userID.
func (s *Service) Marketplace(ctx context.Context, userID uuid.UUID) ([]*domainSlot.Slot, error) {
	return s.slotRepo.ListMarketplace(ctx, userID, s.now())
}

// ListSent returns the user's outgoing requests, newest first.
func (s *Service) ListSent(ctx context.Context, userID uuid.UUID) ([]*domainSwap.Request, error) {
	return s.swapRepo.ListByRequester(ctx, userID)
}

// ListReceived returns the user's incoming requests, newest first.
func (s *Service) ListReceived(ctx context.Context, userID uuid.UUID) ([]*domainSwap.Request, error) {
	return s.swapRepo.ListByCounterpart(ctx, userID)
}

// Get returns a request visible only to its two parties.
func (s *Service) Get(ctx context.Context, requestID, userID uuid.UUID) (*domainSwap.Request, error) {
	req, err := s.swapRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil || !req.IsParty(userID) {
		return nil, domainSwap.ErrNotFound
	}
	return req, nil
}

// requestSlots loads the two slots a request references.
func (s *Service) requestSlots(ctx context.Context, req *domainSwap.Request) (offered, requested *domainSlot.Slot, err error) {
	offered, err = s.slotRepo.GetByID(ctx, req.OfferedSlotID)
	if err != nil {
		return nil, nil, err
	}
	requested, err = s.slotRepo.GetByID(ctx, req.RequestedSlotID)
	if err != nil {
		return nil, nil, err
	}
	if offered == nil || requested == nil {
		return nil, nil, domainSlot.ErrNotFound
	}
	return offered, requested, nil
}

// releaseSlots returns a request's reserved slots to swappable. Slots
// already moved on (or deleted) are left alone.
func (s *Service) releaseSlots(ctx context.Context, req *domainSwap.Request, events *[]notification.Event) error {
	for _, slotID := range []uuid.UUID{req.OfferedSlotID, req.RequestedSlotID} {
		sl, err := s.slotRepo.GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		if sl == nil || sl.Status != domainSlot.StatusSwapPending {
			continue
		}
		sl.Status = domainSlot.StatusSwappable
		if err := s.slotRepo.Update(ctx, sl); err != nil {
			return err
		}
		*events = append(*events, slotStatusEvent(sl))
	}
	return nil
}

// supersedePending force-expires every other pending request that
// references either slot of the accepted request, releasing any third
// slot those requests had reserved.
func (s *Service) supersedePending(ctx context.Context, accepted *domainSwap.Request, events *[]notification.Event) (int, error) {
	others, err := s.swapRepo.ListPendingBySlots(ctx, []uuid.UUID{accepted.OfferedSlotID, accepted.RequestedSlotID})
	if err != nil {
		return 0, err
	}
	count := 0
	for _, other := range others {
		if other.RequestID == accepted.RequestID {
			continue
		}
		msg := domainSwap.ResponseSuperseded
		if err := other.Resolve(domainSwap.StatusExpired, &msg, s.now()); err != nil {
			return count, err
		}
		for _, slotID := range []uuid.UUID{other.OfferedSlotID, other.RequestedSlotID} {
			if accepted.References(slotID) {
				continue
			}
			sl, err := s.slotRepo.GetByID(ctx, slotID)
			if err != nil {
				return count, err
			}
			if sl == nil || sl.Status != domainSlot.StatusSwapPending {
				continue
			}
			sl.Status = domainSlot.StatusSwappable
			if err := s.slotRepo.Update(ctx, sl); err != nil {
				return count, err
			}
			*events = append(*events, slotStatusEvent(sl))
		}
		if err := s.swapRepo.Update(ctx, other); err != nil {
			return count, err
		}
		*events = append(*events, requestUpdatedEvent(other))
		count++
	}
	return count, nil
}

func (s *Service) publish(events []notification.Event) {
	for _, ev := range events {
		s.fanout.Publish(ev)
	}
}

func slotStatusEvent(sl *domainSlot.Slot) notification.Event {
	return notification.NewBroadcast(
		notification.EventSlotStatusChanged,
		notification.DedupeKeyFor(sl.SlotID, fmt.Sprintf("status:%s:%d", sl.Status, sl.Version)),
		slotPayload{Slot: sl, OwnerID: sl.OwnerID},
	)
}

func requestUpdatedEvent(req *domainSwap.Request) notification.Event {
	return notification.NewTargeted(
		notification.EventSwapUpdated,
		notification.DedupeKeyFor(req.RequestID, string(req.Status)),
		requestPayload{Request: req},
		req.RequesterID, req.CounterpartID,
	)
}

type slotPayload struct {
	Slot    *domainSlot.Slot `json:"slot"`
	OwnerID uuid.UUID        `json:"ownerId"`
}

type requestPayload struct {
	Request *domainSwap.Request `json:"request"`
}
