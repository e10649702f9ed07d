package slot

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Status represents a slot's exchange-eligibility state.
type Status string

const (
	StatusBusy        Status = "busy"
	StatusSwappable   Status = "swappable"
	StatusSwapPending Status = "swap_pending"
)

// Recurrence tags a slot with a repeat pattern. The negotiation engine
// ignores it.
type Recurrence string

const (
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

var (
	ErrNotFound            = errors.New("slot not found")
	ErrMissingTitle        = errors.New("title is required")
	ErrInvalidTimeFormat   = errors.New("time must be zero-padded 24-hour HH:MM")
	ErrInvalidTimeRange    = errors.New("end time must be after start time")
	ErrInvalidStatus       = errors.New("invalid slot status")
	ErrInvalidRecurrence   = errors.New("invalid recurrence pattern")
	ErrOverlap             = errors.New("slot overlaps an existing slot")
	ErrStatusLocked        = errors.New("slot is reserved by a pending swap")
	ErrReferencedByPending = errors.New("slot is referenced by a pending swap request")
)

// Slot represents an owned calendar interval. Start and end are
// zero-padded "HH:MM" strings, so lexicographic order equals clock
// order and intervals are half-open [start,end).
type Slot struct {
	ID          int64       `json:"-"`
	SlotID      uuid.UUID   `json:"slotId"`
	OwnerID     uuid.UUID   `json:"ownerId"`
	Title       string      `json:"title"`
	Description *string     `json:"description,omitempty"`
	Date        time.Time   `json:"date"`
	StartTime   string      `json:"startTime"`
	EndTime     string      `json:"endTime"`
	Status      Status      `json:"status"`
	Location    *string     `json:"location,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// New creates a busy slot for owner after validating the time range.
func New(ownerID uuid.UUID, title string, date time.Time, start, end string) (*Slot, error) {
	if title == "" {
		return nil, ErrMissingTitle
	}
	if err := ValidateTimes(start, end); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Slot{
		SlotID:    uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Date:      DateOnly(date),
		StartTime: start,
		EndTime:   end,
		Status:    StatusBusy,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidateTimes checks HH:MM format and start < end.
func ValidateTimes(start, end string) error {
	if !clockPattern.MatchString(start) || !clockPattern.MatchString(end) {
		return ErrInvalidTimeFormat
	}
	if end <= start {
		return ErrInvalidTimeRange
	}
	return nil
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && aEnd > bStart
}

// DateOnly truncates t to UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	return s == StatusBusy || s == StatusSwappable || s == StatusSwapPending
}

// ValidRecurrence reports whether r is a known recurrence pattern.
func ValidRecurrence(r Recurrence) bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// OwnerCanSet reports whether the owner may directly set the slot to
// target. Owners only toggle busy<->swappable; swap_pending belongs to
// the negotiation engine.
func (s *Slot) OwnerCanSet(target Status) bool {
	if s.Status == StatusSwapPending {
		return false
	}
	return target == StatusBusy || target == StatusSwappable
}

// CanTransitionTo checks the slot state machine:
// busy<->swappable (owner), swappable->swap_pending (propose),
// swap_pending->busy (accept), swap_pending->swappable (reject/cancel).
func (s *Slot) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusBusy:        {StatusSwappable},
		StatusSwappable:   {StatusBusy, StatusSwapPending},
		StatusSwapPending: {StatusBusy, StatusSwappable},
	}
	for _, next := range transitions[s.Status] {
		if next == target {
			return true
		}
	}
	return false
}
