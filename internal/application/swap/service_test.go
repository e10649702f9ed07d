package swap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakhar-shukla17/SlotSwapper/internal/application/apptest"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/notification"
	domainSlot "github.com/prakhar-shukla17/SlotSwapper/internal/domain/slot"
	domainSwap "github.com/prakhar-shukla17/SlotSwapper/internal/domain/swap"
)

func newTestService(t *testing.T) (*Service, *apptest.Store, *apptest.RecordingFanout) {
	t.Helper()
	store := apptest.NewStore()
	fanout := &apptest.RecordingFanout{}
	svc := NewService(store.Slots(), store.Swaps(), store.Tx(), fanout, 0, zerolog.Nop())
	return svc, store, fanout
}

func seedSwappable(t *testing.T, store *apptest.Store, owner uuid.UUID, day int, start, end string) *domainSlot.Slot {
	t.Helper()
	date := time.Date(2026, 9, day, 0, 0, 0, 0, time.UTC)
	sl, err := domainSlot.New(owner, "shift", date, start, end)
	require.NoError(t, err)
	sl.Status = domainSlot.StatusSwappable
	store.SeedSlot(sl)
	return sl
}

func TestProposeReservesBothSlots(t *testing.T) {
	svc, store, fanout := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	msg := "trade you"
	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, &msg)
	require.NoError(t, err)
	assert.Equal(t, domainSwap.StatusPending, req.Status)
	assert.Equal(t, bob, req.CounterpartID)
	assert.WithinDuration(t, req.CreatedAt.Add(domainSwap.DefaultTTL), req.ExpiresAt, time.Second)

	assert.Equal(t, domainSlot.StatusSwapPending, store.Slot(offered.SlotID).Status)
	assert.Equal(t, domainSlot.StatusSwapPending, store.Slot(requested.SlotID).Status)

	assert.Len(t, fanout.ByType(notification.EventSlotStatusChanged), 2)
	proposed := fanout.ByType(notification.EventSwapProposed)
	require.Len(t, proposed, 1)
	assert.Equal(t, []uuid.UUID{bob}, proposed[0].Targets, "proposal goes to the counterpart only")
}

func TestProposeRejectsSelfSwap(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, alice, 15, "14:00", "15:00")

	_, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	assert.ErrorIs(t, err, domainSwap.ErrSelfSwap)
}

func TestProposeRequiresOwnedOfferedSlot(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	theirs := seedSwappable(t, store, bob, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	_, err := svc.Propose(context.Background(), alice, theirs.SlotID, requested.SlotID, nil)
	assert.ErrorIs(t, err, domainSlot.ErrNotFound)
}

func TestProposeLeavesNoPartialStateOnUnavailableSlot(t *testing.T) {
	svc, store, fanout := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")
	busy := store.Slot(requested.SlotID)
	busy.Status = domainSlot.StatusBusy
	store.SeedSlot(busy)

	_, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	assert.ErrorIs(t, err, domainSwap.ErrSlotUnavailable)

	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(offered.SlotID).Status, "offered slot must not stay reserved")
	assert.Empty(t, fanout.Events())
}

func TestAcceptExchangesScheduleNotOwnership(t *testing.T) {
	svc, store, fanout := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)

	note := "works for me"
	resolved, err := svc.Respond(context.Background(), req.RequestID, bob, true, &note)
	require.NoError(t, err)
	assert.Equal(t, domainSwap.StatusAccepted, resolved.Status)
	require.NotNil(t, resolved.RespondedAt)

	gotOffered := store.Slot(offered.SlotID)
	gotRequested := store.Slot(requested.SlotID)
	assert.Equal(t, alice, gotOffered.OwnerID, "ownership never moves")
	assert.Equal(t, bob, gotRequested.OwnerID)
	assert.Equal(t, requested.Date, gotOffered.Date)
	assert.Equal(t, "14:00", gotOffered.StartTime)
	assert.Equal(t, "15:00", gotOffered.EndTime)
	assert.Equal(t, offered.Date, gotRequested.Date)
	assert.Equal(t, "09:00", gotRequested.StartTime)
	assert.Equal(t, domainSlot.StatusBusy, gotOffered.Status)
	assert.Equal(t, domainSlot.StatusBusy, gotRequested.Status)

	updated := fanout.ByType(notification.EventSwapUpdated)
	require.Len(t, updated, 1)
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, updated[0].Targets)
}

func TestRejectReleasesBothSlots(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)

	resolved, err := svc.Respond(context.Background(), req.RequestID, bob, false, nil)
	require.NoError(t, err)
	assert.Equal(t, domainSwap.StatusRejected, resolved.Status)

	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(offered.SlotID).Status)
	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(requested.SlotID).Status)
	assert.Equal(t, "09:00", store.Slot(offered.SlotID).StartTime, "reject leaves schedules untouched")
}

func TestRespondOnlyPartiesMayAnswer(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)

	_, err = svc.Respond(context.Background(), req.RequestID, uuid.New(), true, nil)
	assert.ErrorIs(t, err, domainSwap.ErrNotFound, "strangers never see the request")
	assert.Equal(t, domainSwap.StatusPending, store.Swap(req.RequestID).Status)
}

func TestRequesterMayRespond(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)

	// Either party may resolve a pending request; only cancellation is
	// requester-exclusive.
	resolved, err := svc.Respond(context.Background(), req.RequestID, alice, false, nil)
	require.NoError(t, err)
	assert.Equal(t, domainSwap.StatusRejected, resolved.Status)
	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(offered.SlotID).Status)
	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(requested.SlotID).Status)
}

func TestRespondResolvedRequestLooksMissing(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)
	_, err = svc.Respond(context.Background(), req.RequestID, bob, true, nil)
	require.NoError(t, err)

	_, err = svc.Respond(context.Background(), req.RequestID, bob, false, nil)
	assert.ErrorIs(t, err, domainSwap.ErrNotFound)

	_, err = svc.Cancel(context.Background(), req.RequestID, alice)
	assert.ErrorIs(t, err, domainSwap.ErrNotFound)
}

func TestAcceptSupersedesCompetingRequest(t *testing.T) {
	svc, store, fanout := newTestService(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)

	// A pre-existing pending request from carol still references bob's
	// slot and holds a third slot of her own reserved.
	carols := seedSwappable(t, store, carol, 16, "08:00", "09:00")
	locked := store.Slot(carols.SlotID)
	locked.Status = domainSlot.StatusSwapPending
	store.SeedSlot(locked)
	competing := domainSwap.New(carol, bob, carols.SlotID, requested.SlotID, nil, 0)
	store.SeedSwap(competing)

	_, err = svc.Respond(context.Background(), req.RequestID, bob, true, nil)
	require.NoError(t, err)

	got := store.Swap(competing.RequestID)
	assert.Equal(t, domainSwap.StatusExpired, got.Status)
	require.NotNil(t, got.ResponseMessage)
	assert.Equal(t, domainSwap.ResponseSuperseded, *got.ResponseMessage)
	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(carols.SlotID).Status, "third slot is released")

	updated := fanout.ByType(notification.EventSwapUpdated)
	require.Len(t, updated, 2)
}

func TestCancelIsRequesterOnly(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), req.RequestID, bob)
	assert.ErrorIs(t, err, domainSwap.ErrNotFound)

	cancelled, err := svc.Cancel(context.Background(), req.RequestID, alice)
	require.NoError(t, err)
	assert.Equal(t, domainSwap.StatusCancelled, cancelled.Status)
	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(offered.SlotID).Status)
	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(requested.SlotID).Status)

	// The released slots can be proposed against again.
	retry, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)
	assert.Equal(t, domainSwap.StatusPending, retry.Status)
}

func TestExpireStaleReleasesSlots(t *testing.T) {
	svc, store, fanout := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)

	// Not yet due.
	n, err := svc.ExpireStale(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, n)

	after := req.ExpiresAt.Add(time.Minute)
	n, err = svc.ExpireStale(context.Background(), after)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := store.Swap(req.RequestID)
	assert.Equal(t, domainSwap.StatusExpired, got.Status)
	require.NotNil(t, got.ResponseMessage)
	assert.Equal(t, domainSwap.ResponseTimedOut, *got.ResponseMessage)
	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(offered.SlotID).Status)
	assert.Equal(t, domainSlot.StatusSwappable, store.Slot(requested.SlotID).Status)
	require.NotEmpty(t, fanout.ByType(notification.EventSwapUpdated))

	// Sweeping again is a no-op.
	n, err = svc.ExpireStale(context.Background(), after)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConcurrentProposalsExactlyOneWins(t *testing.T) {
	svc, store, _ := newTestService(t)
	bob := uuid.New()
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	const rivals = 8
	offers := make([]uuid.UUID, rivals)
	requesters := make([]uuid.UUID, rivals)
	for i := range offers {
		requesters[i] = uuid.New()
		offers[i] = seedSwappable(t, store, requesters[i], 14, "09:00", "10:00").SlotID
	}

	var wg sync.WaitGroup
	errs := make([]error, rivals)
	for i := 0; i < rivals; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Propose(context.Background(), requesters[i], offers[i], requested.SlotID, nil)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domainSwap.ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, won, "exactly one rival reserves the slot")
	assert.Equal(t, domainSlot.StatusSwapPending, store.Slot(requested.SlotID).Status)
}

func TestGetIsPartyOnly(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	offered := seedSwappable(t, store, alice, 14, "09:00", "10:00")
	requested := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	req, err := svc.Propose(context.Background(), alice, offered.SlotID, requested.SlotID, nil)
	require.NoError(t, err)

	for _, party := range []uuid.UUID{alice, bob} {
		got, err := svc.Get(context.Background(), req.RequestID, party)
		require.NoError(t, err)
		assert.Equal(t, req.RequestID, got.RequestID)
	}
	_, err = svc.Get(context.Background(), req.RequestID, uuid.New())
	assert.ErrorIs(t, err, domainSwap.ErrNotFound)
}

func TestMarketplaceHidesOwnAndPastSlots(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	seedSwappable(t, store, alice, 14, "09:00", "10:00")
	future := seedSwappable(t, store, bob, 15, "14:00", "15:00")

	past, err := domainSlot.New(bob, "old", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "09:00", "10:00")
	require.NoError(t, err)
	past.Status = domainSlot.StatusSwappable
	store.SeedSlot(past)

	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	listed, err := svc.Marketplace(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, future.SlotID, listed[0].SlotID)
}
