package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/storage"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/swap"
)

// SwapRepository implements swap.Repository.
type SwapRepository struct {
	pool *pgxpool.Pool
}

func NewSwapRepository(pool *pgxpool.Pool) *SwapRepository {
	return &SwapRepository{pool: pool}
}

const swapColumns = `id, request_id, requester_id, counterpart_id, offered_slot_id, requested_slot_id, status, message, response_message, created_at, expires_at, responded_at, version`

func (r *SwapRepository) Create(ctx context.Context, req *swap.Request) error {
	return querier(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO swap_requests
		(request_id, requester_id, counterpart_id, offered_slot_id, requested_slot_id, status, message, response_message, created_at, expires_at, responded_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id
	`, req.RequestID, req.RequesterID, req.CounterpartID, req.OfferedSlotID, req.RequestedSlotID, req.Status, req.Message, req.ResponseMessage, req.CreatedAt, req.ExpiresAt, req.RespondedAt, req.Version).Scan(&req.ID)
}

func (r *SwapRepository) Update(ctx context.Context, req *swap.Request) error {
	res, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE swap_requests
		SET status=$1, response_message=$2, responded_at=$3, version=version+1
		WHERE request_id=$4 AND version=$5
	`, req.Status, req.ResponseMessage, req.RespondedAt, req.RequestID, req.Version)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrVersionConflict
	}
	req.Version++
	return nil
}

func (r *SwapRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*swap.Request, error) {
	row := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT `+swapColumns+` FROM swap_requests WHERE request_id=$1
	`, requestID)
	return scanSwap(row)
}

func (r *SwapRepository) ListByRequester(ctx context.Context, userID uuid.UUID) ([]*swap.Request, error) {
	return r.querySwaps(ctx, `
		SELECT `+swapColumns+` FROM swap_requests
		WHERE requester_id=$1 ORDER BY created_at DESC
	`, userID)
}

func (r *SwapRepository) ListByCounterpart(ctx context.Context, userID uuid.UUID) ([]*swap.Request, error) {
	return r.querySwaps(ctx, `
		SELECT `+swapColumns+` FROM swap_requests
		WHERE counterpart_id=$1 ORDER BY created_at DESC
	`, userID)
}

func (r *SwapRepository) ListPendingBySlots(ctx context.Context, slotIDs []uuid.UUID) ([]*swap.Request, error) {
	ids := make([]string, 0, len(slotIDs))
	for _, id := range slotIDs {
		ids = append(ids, id.String())
	}
	return r.querySwaps(ctx, `
		SELECT `+swapColumns+` FROM swap_requests
		WHERE status=$1 AND (offered_slot_id::text = ANY($2) OR requested_slot_id::text = ANY($2))
		ORDER BY created_at
	`, swap.StatusPending, ids)
}

func (r *SwapRepository) ListExpired(ctx context.Context, now time.Time) ([]*swap.Request, error) {
	return r.querySwaps(ctx, `
		SELECT `+swapColumns+` FROM swap_requests
		WHERE status=$1 AND expires_at <= $2
		ORDER BY created_at
	`, swap.StatusPending, now.UTC())
}

func (r *SwapRepository) querySwaps(ctx context.Context, query string, args ...any) ([]*swap.Request, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []*swap.Request
	for rows.Next() {
		req, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanSwap(row pgx.Row) (*swap.Request, error) {
	var req swap.Request
	if err := row.Scan(&req.ID, &req.RequestID, &req.RequesterID, &req.CounterpartID, &req.OfferedSlotID, &req.RequestedSlotID, &req.Status, &req.Message, &req.ResponseMessage, &req.CreatedAt, &req.ExpiresAt, &req.RespondedAt, &req.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
