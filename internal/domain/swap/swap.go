package swap

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the negotiation state of a swap request. Every
// state except pending is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// DefaultTTL is how long a request stays open before the sweeper
// expires it.
const DefaultTTL = 7 * 24 * time.Hour

const (
	// ResponseSuperseded is stamped on requests force-expired because
	// another request touching one of their slots was accepted.
	ResponseSuperseded = "This request has been automatically expired due to another accepted swap."
	// ResponseTimedOut is stamped on requests the sweeper expires.
	ResponseTimedOut = "This request has expired."
)

var (
	ErrNotFound         = errors.New("swap request not found")
	ErrSelfSwap         = errors.New("cannot request a swap against your own slot")
	ErrSlotUnavailable  = errors.New("slot is not available for swap")
	ErrDuplicatePending = errors.New("a pending swap request already references one of these slots")
	ErrTerminal         = errors.New("swap request already resolved")
)

// Request is a proposal to exchange the requester's offered slot with
// the counterpart's requested slot. It holds non-owning slot ids; the
// slot store stays the sole owner of slot lifecycle.
type Request struct {
	ID              int64      `json:"-"`
	RequestID       uuid.UUID  `json:"requestId"`
	RequesterID     uuid.UUID  `json:"requesterId"`
	CounterpartID   uuid.UUID  `json:"counterpartId"`
	OfferedSlotID   uuid.UUID  `json:"offeredSlotId"`
	RequestedSlotID uuid.UUID  `json:"requestedSlotId"`
	Status          Status     `json:"status"`
	Message         *string    `json:"message,omitempty"`
	ResponseMessage *string    `json:"responseMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	RespondedAt     *time.Time `json:"respondedAt,omitempty"`
	Version         int        `json:"version"`
}

// New creates a pending request with the default expiry window.
func New(requesterID, counterpartID, offeredSlotID, requestedSlotID uuid.UUID, message *string, ttl time.Duration) *Request {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now().UTC()
	return &Request{
		RequestID:       uuid.New(),
		RequesterID:     requesterID,
		CounterpartID:   counterpartID,
		OfferedSlotID:   offeredSlotID,
		RequestedSlotID: requestedSlotID,
		Status:          StatusPending,
		Message:         message,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
		Version:         1,
	}
}

func (r *Request) IsTerminal() bool {
	return r.Status != StatusPending
}

func (r *Request) IsParty(userID uuid.UUID) bool {
	return r.RequesterID == userID || r.CounterpartID == userID
}

func (r *Request) References(slotID uuid.UUID) bool {
	return r.OfferedSlotID == slotID || r.RequestedSlotID == slotID
}

// Resolve moves a pending request into a terminal state exactly once.
func (r *Request) Resolve(target Status, responseMessage *string, now time.Time) error {
	if r.IsTerminal() {
		return ErrTerminal
	}
	if target == StatusPending {
		return ErrTerminal
	}
	r.Status = target
	r.ResponseMessage = responseMessage
	at := now.UTC()
	r.RespondedAt = &at
	return nil
}
