package slot

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter controls slot listing for a single owner.
type Filter struct {
	OwnerID uuid.UUID
	Status  *Status
	From    *time.Time
	To      *time.Time
}

// Repository defines persistence for slots. Update takes the new value
// with its expected prior version and must fail with
// storage.ErrVersionConflict when a concurrent writer got there first.
// All methods participate in an enclosing transaction when one is
// present on the context.
type Repository interface {
	Create(ctx context.Context, slot *Slot) error
	Update(ctx context.Context, slot *Slot) error
	GetByID(ctx context.Context, slotID uuid.UUID) (*Slot, error)
	Delete(ctx context.Context, slotID uuid.UUID) error

	// List returns the owner's slots ordered by date then start time.
	List(ctx context.Context, filter Filter) ([]*Slot, error)

	// FindOverlapping returns a slot of ownerID on date whose half-open
	// interval intersects [start,end), ignoring exclude when non-nil.
	// Returns nil when no slot overlaps.
	FindOverlapping(ctx context.Context, ownerID uuid.UUID, date time.Time, start, end string, exclude *uuid.UUID) (*Slot, error)

	// ListMarketplace returns future-dated swappable slots owned by
	// anyone except excludeOwner, ordered by date then start time.
	ListMarketplace(ctx context.Context, excludeOwner uuid.UUID, now time.Time) ([]*Slot, error)
}
