package swap

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for swap requests. Update is
// version-checked like slot.Repository.Update. All methods participate
// in an enclosing transaction when one is present on the context.
type Repository interface {
	Create(ctx context.Context, request *Request) error
	Update(ctx context.Context, request *Request) error
	GetByID(ctx context.Context, requestID uuid.UUID) (*Request, error)

	// ListByRequester / ListByCounterpart return a participant's sent or
	// received requests, newest first.
	ListByRequester(ctx context.Context, userID uuid.UUID) ([]*Request, error)
	ListByCounterpart(ctx context.Context, userID uuid.UUID) ([]*Request, error)

	// ListPendingBySlots returns every pending request referencing any
	// of the given slots in either role.
	ListPendingBySlots(ctx context.Context, slotIDs []uuid.UUID) ([]*Request, error)

	// ListExpired returns pending requests whose expiry has passed.
	ListExpired(ctx context.Context, now time.Time) ([]*Request, error)
}
