// Package apptest provides in-memory doubles for application service
// tests: map-backed repositories, a mutex-serialized transaction
// runner, and a recording fanout.
package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/notification"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/slot"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/storage"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/swap"
)

// Store bundles the in-memory state shared by the fakes so that the
// transaction runner can serialize access to all of it at once.
type Store struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot.Slot
	swaps map[uuid.UUID]*swap.Request
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		slots: make(map[uuid.UUID]*slot.Slot),
		swaps: make(map[uuid.UUID]*swap.Request),
	}
}

// Tx returns a storage.TxRunner that serializes every transaction on
// the store mutex. Conflicting writers therefore never interleave, so
// no retry loop is needed here.
func (s *Store) Tx() storage.TxRunner { return &fakeTx{store: s} }

// Slots returns a slot.Repository view of the store.
func (s *Store) Slots() slot.Repository { return &fakeSlotRepo{store: s} }

// Swaps returns a swap.Repository view of the store.
func (s *Store) Swaps() swap.Repository { return &fakeSwapRepo{store: s} }

// SeedSlot inserts a copy of sl.
func (s *Store) SeedSlot(sl *slot.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sl
	s.slots[sl.SlotID] = &cp
}

// SeedSwap inserts a copy of r.
func (s *Store) SeedSwap(r *swap.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.swaps[r.RequestID] = &cp
}

// Slot returns a copy of the stored slot, or nil.
func (s *Store) Slot(slotID uuid.UUID) *slot.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySlot(s.slots[slotID])
}

// Swap returns a copy of the stored request, or nil.
func (s *Store) Swap(requestID uuid.UUID) *swap.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySwap(s.swaps[requestID])
}

type txKey struct{}

type fakeTx struct {
	store *Store
}

func (t *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, struct{}{}))
}

// lock takes the store mutex unless an enclosing fake transaction
// already holds it.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type fakeSlotRepo struct {
	store *Store
}

func (r *fakeSlotRepo) Create(ctx context.Context, sl *slot.Slot) error {
	defer r.store.lock(ctx)()
	cp := *sl
	r.store.slots[sl.SlotID] = &cp
	return nil
}

func (r *fakeSlotRepo) Update(ctx context.Context, sl *slot.Slot) error {
	defer r.store.lock(ctx)()
	current, ok := r.store.slots[sl.SlotID]
	if !ok || current.Version != sl.Version {
		return storage.ErrVersionConflict
	}
	cp := *sl
	cp.Version++
	cp.UpdatedAt = time.Now().UTC()
	r.store.slots[sl.SlotID] = &cp
	sl.Version = cp.Version
	sl.UpdatedAt = cp.UpdatedAt
	return nil
}

func (r *fakeSlotRepo) GetByID(ctx context.Context, slotID uuid.UUID) (*slot.Slot, error) {
	defer r.store.lock(ctx)()
	return copySlot(r.store.slots[slotID]), nil
}

func (r *fakeSlotRepo) Delete(ctx context.Context, slotID uuid.UUID) error {
	defer r.store.lock(ctx)()
	if _, ok := r.store.slots[slotID]; !ok {
		return slot.ErrNotFound
	}
	delete(r.store.slots, slotID)
	return nil
}

func (r *fakeSlotRepo) List(ctx context.Context, filter slot.Filter) ([]*slot.Slot, error) {
	defer r.store.lock(ctx)()
	var out []*slot.Slot
	for _, sl := range r.store.slots {
		if sl.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != nil && sl.Status != *filter.Status {
			continue
		}
		if filter.From != nil && sl.Date.Before(slot.DateOnly(*filter.From)) {
			continue
		}
		if filter.To != nil && sl.Date.After(slot.DateOnly(*filter.To)) {
			continue
		}
		out = append(out, copySlot(sl))
	}
	sortSlots(out)
	return out, nil
}

func (r *fakeSlotRepo) FindOverlapping(ctx context.Context, ownerID uuid.UUID, date time.Time, start, end string, exclude *uuid.UUID) (*slot.Slot, error) {
	defer r.store.lock(ctx)()
	day := slot.DateOnly(date)
	for _, sl := range r.store.slots {
		if sl.OwnerID != ownerID || !sl.Date.Equal(day) {
			continue
		}
		if exclude != nil && sl.SlotID == *exclude {
			continue
		}
		if slot.Overlaps(start, end, sl.StartTime, sl.EndTime) {
			return copySlot(sl), nil
		}
	}
	return nil, nil
}

func (r *fakeSlotRepo) ListMarketplace(ctx context.Context, excludeOwner uuid.UUID, now time.Time) ([]*slot.Slot, error) {
	defer r.store.lock(ctx)()
	today := slot.DateOnly(now)
	clock := now.UTC().Format("15:04")
	var out []*slot.Slot
	for _, sl := range r.store.slots {
		if sl.OwnerID == excludeOwner || sl.Status != slot.StatusSwappable {
			continue
		}
		if sl.Date.Before(today) {
			continue
		}
		if sl.Date.Equal(today) && sl.StartTime <= clock {
			continue
		}
		out = append(out, copySlot(sl))
	}
	sortSlots(out)
	return out, nil
}

type fakeSwapRepo struct {
	store *Store
}

func (r *fakeSwapRepo) Create(ctx context.Context, req *swap.Request) error {
	defer r.store.lock(ctx)()
	cp := *req
	r.store.swaps[req.RequestID] = &cp
	return nil
}

func (r *fakeSwapRepo) Update(ctx context.Context, req *swap.Request) error {
	defer r.store.lock(ctx)()
	current, ok := r.store.swaps[req.RequestID]
	if !ok || current.Version != req.Version {
		return storage.ErrVersionConflict
	}
	cp := *req
	cp.Version++
	r.store.swaps[req.RequestID] = &cp
	req.Version = cp.Version
	return nil
}

func (r *fakeSwapRepo) GetByID(ctx context.Context, requestID uuid.UUID) (*swap.Request, error) {
	defer r.store.lock(ctx)()
	return copySwap(r.store.swaps[requestID]), nil
}

func (r *fakeSwapRepo) ListByRequester(ctx context.Context, userID uuid.UUID) ([]*swap.Request, error) {
	return r.list(ctx, func(req *swap.Request) bool { return req.RequesterID == userID })
}

func (r *fakeSwapRepo) ListByCounterpart(ctx context.Context, userID uuid.UUID) ([]*swap.Request, error) {
	return r.list(ctx, func(req *swap.Request) bool { return req.CounterpartID == userID })
}

func (r *fakeSwapRepo) ListPendingBySlots(ctx context.Context, slotIDs []uuid.UUID) ([]*swap.Request, error) {
	return r.list(ctx, func(req *swap.Request) bool {
		if req.Status != swap.StatusPending {
			return false
		}
		for _, id := range slotIDs {
			if req.References(id) {
				return true
			}
		}
		return false
	})
}

func (r *fakeSwapRepo) ListExpired(ctx context.Context, now time.Time) ([]*swap.Request, error) {
	return r.list(ctx, func(req *swap.Request) bool {
		return req.Status == swap.StatusPending && !req.ExpiresAt.After(now)
	})
}

func (r *fakeSwapRepo) list(ctx context.Context, match func(*swap.Request) bool) ([]*swap.Request, error) {
	defer r.store.lock(ctx)()
	var out []*swap.Request
	for _, req := range r.store.swaps {
		if match(req) {
			out = append(out, copySwap(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// RecordingFanout captures every published event for assertions.
type RecordingFanout struct {
	mu     sync.Mutex
	events []notification.Event
}

func (f *RecordingFanout) Publish(event notification.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

// Events returns a copy of the captured events in publish order.
func (f *RecordingFanout) Events() []notification.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notification.Event, len(f.events))
	copy(out, f.events)
	return out
}

// ByType returns the captured events with the given type.
func (f *RecordingFanout) ByType(t notification.EventType) []notification.Event {
	var out []notification.Event
	for _, ev := range f.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func copySlot(sl *slot.Slot) *slot.Slot {
	if sl == nil {
		return nil
	}
	cp := *sl
	return &cp
}

func copySwap(req *swap.Request) *swap.Request {
	if req == nil {
		return nil
	}
	cp := *req
	return &cp
}

func sortSlots(slots []*slot.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Date.Equal(slots[j].Date) {
			return slots[i].Date.Before(slots[j].Date)
		}
		return slots[i].StartTime < slots[j].StartTime
	})
}
