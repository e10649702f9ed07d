package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/slot"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/storage"
)

// SlotRepository implements slot.Repository.
type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

const slotColumns = `id, slot_id, owner_id, title, description, date, start_time, end_time, status, location, recurrence, version, created_at, updated_at`

func (r *SlotRepository) Create(ctx context.Context, s *slot.Slot) error {
	return querier(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO slots
		(slot_id, owner_id, title, description, date, start_time, end_time, status, location, recurrence, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`, s.SlotID, s.OwnerID, s.Title, s.Description, s.Date, s.StartTime, s.EndTime, s.Status, s.Location, s.Recurrence, s.Version, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
}

// Update writes the new value guarded by the expected prior version.
// Zero affected rows means a concurrent writer won the race.
func (r *SlotRepository) Update(ctx context.Context, s *slot.Slot) error {
	now := time.Now().UTC()
	res, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE slots
		SET title=$1, description=$2, date=$3, start_time=$4, end_time=$5,
		    status=$6, location=$7, recurrence=$8, version=version+1, updated_at=$9
		WHERE slot_id=$10 AND version=$11
	`, s.Title, s.Description, s.Date, s.StartTime, s.EndTime, s.Status, s.Location, s.Recurrence, now, s.SlotID, s.Version)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrVersionConflict
	}
	s.Version++
	s.UpdatedAt = now
	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, slotID uuid.UUID) (*slot.Slot, error) {
	row := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT `+slotColumns+` FROM slots WHERE slot_id=$1
	`, slotID)
	return scanSlot(row)
}

func (r *SlotRepository) Delete(ctx context.Context, slotID uuid.UUID) error {
	_, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM slots WHERE slot_id=$1`, slotID)
	return err
}

func (r *SlotRepository) List(ctx context.Context, filter slot.Filter) ([]*slot.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE owner_id=$1`
	args := []any{filter.OwnerID}
	idx := 2
	if filter.Status != nil {
		query += ` AND status=$` + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.From != nil {
		query += ` AND date >= $` + itoa(idx)
		args = append(args, slot.DateOnly(*filter.From))
		idx++
	}
	if filter.To != nil {
		query += ` AND date <= $` + itoa(idx)
		args = append(args, slot.DateOnly(*filter.To))
		idx++
	}
	query += ` ORDER BY date, start_time`
	return r.querySlots(ctx, query, args...)
}

func (r *SlotRepository) FindOverlapping(ctx context.Context, ownerID uuid.UUID, date time.Time, start, end string, exclude *uuid.UUID) (*slot.Slot, error) {
	row := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT `+slotColumns+` FROM slots
		WHERE owner_id=$1 AND date=$2 AND start_time < $3 AND end_time > $4
		  AND ($5::uuid IS NULL OR slot_id <> $5)
		LIMIT 1
	`, ownerID, slot.DateOnly(date), end, start, exclude)
	return scanSlot(row)
}

func (r *SlotRepository) ListMarketplace(ctx context.Context, excludeOwner uuid.UUID, now time.Time) ([]*slot.Slot, error) {
	today := slot.DateOnly(now)
	clock := now.UTC().Format("15:04")
	return r.querySlots(ctx, `
		SELECT `+slotColumns+` FROM slots
		WHERE owner_id <> $1 AND status=$2
		  AND (date > $3 OR (date = $3 AND start_time > $4))
		ORDER BY date, start_time
	`, excludeOwner, slot.StatusSwappable, today, clock)
}

func (r *SlotRepository) querySlots(ctx context.Context, query string, args ...any) ([]*slot.Slot, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []*slot.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func scanSlot(row pgx.Row) (*slot.Slot, error) {
	var s slot.Slot
	if err := row.Scan(&s.ID, &s.SlotID, &s.OwnerID, &s.Title, &s.Description, &s.Date, &s.StartTime, &s.EndTime, &s.Status, &s.Location, &s.Recurrence, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
