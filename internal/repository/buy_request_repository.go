package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

const buyRequestColumns = `id, listing_id, buyer_id, seller_id, status, commission_status, created_at, updated_at`

type buyRequestRepository struct {
	db querier
}

func (r *buyRequestRepository) Create(ctx context.Context, request *domain.BuyRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO buy_requests (id, listing_id, buyer_id, seller_id, status, commission_status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		request.ID,
		request.ListingID,
		request.BuyerID,
		request.SellerID,
		request.Status,
		request.CommissionStatus,
	).Scan(&request.CreatedAt, &request.UpdatedAt)
	return mapPgError(err)
}

func (r *buyRequestRepository) GetByID(ctx context.Context, id string) (*domain.BuyRequest, error) {
	query := `SELECT ` + buyRequestColumns + ` FROM buy_requests WHERE id=$1`
	return scanBuyRequest(r.db.QueryRow(ctx, query, id))
}

func (r *buyRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.BuyRequest, error) {
	query := `SELECT ` + buyRequestColumns + ` FROM buy_requests WHERE id=$1 FOR UPDATE`
	return scanBuyRequest(r.db.QueryRow(ctx, query, id))
}

func (r *buyRequestRepository) ExistsForBuyer(ctx context.Context, listingID, buyerID string, status domain.RequestStatus) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM buy_requests WHERE listing_id=$1 AND buyer_id=$2 AND status=$3)`
	var exists bool
	err := r.db.QueryRow(ctx, query, listingID, buyerID, status).Scan(&exists)
	return exists, err
}

func (r *buyRequestRepository) CountForListing(ctx context.Context, listingID string, status domain.RequestStatus) (int64, error) {
	const query = `SELECT COUNT(*) FROM buy_requests WHERE listing_id=$1 AND status=$2`
	var n int64
	err := r.db.QueryRow(ctx, query, listingID, status).Scan(&n)
	return n, err
}

func (r *buyRequestRepository) UpdateStatus(ctx context.Context, id string, from, to domain.RequestStatus, commission *string) error {
	const query = `
        UPDATE buy_requests SET status=$1, commission_status=COALESCE($2, commission_status), updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.db.Exec(ctx, query, to, commission, id, from)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *buyRequestRepository) ListByBuyer(ctx context.Context, buyerID string) ([]domain.BuyRequest, error) {
	query := `SELECT ` + buyRequestColumns + ` FROM buy_requests WHERE buyer_id=$1 ORDER BY created_at ASC, id ASC`
	return r.query(ctx, query, buyerID)
}

func (r *buyRequestRepository) ListBySeller(ctx context.Context, sellerID string) ([]domain.BuyRequest, error) {
	query := `SELECT ` + buyRequestColumns + ` FROM buy_requests WHERE seller_id=$1 ORDER BY created_at ASC, id ASC`
	return r.query(ctx, query, sellerID)
}

func (r *buyRequestRepository) List(ctx context.Context, skip, limit int) ([]domain.BuyRequest, error) {
	skip, limit = ClampPage(skip, limit)
	query := `SELECT ` + buyRequestColumns + ` FROM buy_requests ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`
	return r.query(ctx, query, limit, skip)
}

func (r *buyRequestRepository) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM buy_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.RequestStatus]int64{}
	for rows.Next() {
		var status domain.RequestStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *buyRequestRepository) query(ctx context.Context, query string, args ...any) ([]domain.BuyRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBuyRequests(rows)
}

func scanBuyRequest(row rowScanner) (*domain.BuyRequest, error) {
	var request domain.BuyRequest
	if err := row.Scan(
		&request.ID,
		&request.ListingID,
		&request.BuyerID,
		&request.SellerID,
		&request.Status,
		&request.CommissionStatus,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &request, nil
}

func scanBuyRequests(rows pgx.Rows) ([]domain.BuyRequest, error) {
	result := []domain.BuyRequest{}
	for rows.Next() {
		request, err := scanBuyRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *request)
	}
	return result, rows.Err()
}
