package sqlitestore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
)

const buyRequestColumns = `id, listing_id, buyer_id, seller_id, status, commission_status, created_at, updated_at`

type buyRequestRow struct {
	ID               string    `db:"id"`
	ListingID        string    `db:"listing_id"`
	BuyerID          string    `db:"buyer_id"`
	SellerID         string    `db:"seller_id"`
	Status           string    `db:"status"`
	CommissionStatus *string   `db:"commission_status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r buyRequestRow) toDomain() domain.BuyRequest {
	return domain.BuyRequest{
		ID:               r.ID,
		ListingID:        r.ListingID,
		BuyerID:          r.BuyerID,
		SellerID:         r.SellerID,
		Status:           domain.RequestStatus(r.Status),
		CommissionStatus: r.CommissionStatus,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type buyRequestRepository struct {
	db sqlx.ExtContext
}

func (r *buyRequestRepository) Create(ctx context.Context, request *domain.BuyRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	request.CreatedAt = now()
	request.UpdatedAt = request.CreatedAt
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO buy_requests (id, listing_id, buyer_id, seller_id, status, commission_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID, request.ListingID, request.BuyerID, request.SellerID, string(request.Status),
		request.CommissionStatus, request.CreatedAt, request.UpdatedAt)
	return mapError(err)
}

func (r *buyRequestRepository) GetByID(ctx context.Context, id string) (*domain.BuyRequest, error) {
	var row buyRequestRow
	if err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+buyRequestColumns+` FROM buy_requests WHERE id = ?`, id); err != nil {
		return nil, mapError(err)
	}
	request := row.toDomain()
	return &request, nil
}

// GetByIDForUpdate relies on the single-connection transaction for exclusion.
func (r *buyRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.BuyRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *buyRequestRepository) ExistsForBuyer(ctx context.Context, listingID, buyerID string, status domain.RequestStatus) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists,
		`SELECT EXISTS(SELECT 1 FROM buy_requests WHERE listing_id = ? AND buyer_id = ? AND status = ?)`,
		listingID, buyerID, string(status))
	return exists, err
}

func (r *buyRequestRepository) CountForListing(ctx context.Context, listingID string, status domain.RequestStatus) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, r.db, &n,
		`SELECT COUNT(*) FROM buy_requests WHERE listing_id = ? AND status = ?`, listingID, string(status))
	return n, err
}

func (r *buyRequestRepository) UpdateStatus(ctx context.Context, id string, from, to domain.RequestStatus, commission *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE buy_requests SET status = ?, commission_status = COALESCE(?, commission_status), updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(to), commission, now(), id, string(from))
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(res)
}

func (r *buyRequestRepository) ListByBuyer(ctx context.Context, buyerID string) ([]domain.BuyRequest, error) {
	return r.selectRows(ctx, `SELECT `+buyRequestColumns+` FROM buy_requests WHERE buyer_id = ? ORDER BY rowid`, buyerID)
}

func (r *buyRequestRepository) ListBySeller(ctx context.Context, sellerID string) ([]domain.BuyRequest, error) {
	return r.selectRows(ctx, `SELECT `+buyRequestColumns+` FROM buy_requests WHERE seller_id = ? ORDER BY rowid`, sellerID)
}

func (r *buyRequestRepository) List(ctx context.Context, skip, limit int) ([]domain.BuyRequest, error) {
	skip, limit = repository.ClampPage(skip, limit)
	return r.selectRows(ctx, `SELECT `+buyRequestColumns+` FROM buy_requests ORDER BY rowid LIMIT ? OFFSET ?`, limit, skip)
}

func (r *buyRequestRepository) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int64  `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT status, COUNT(*) AS n FROM buy_requests GROUP BY status`); err != nil {
		return nil, err
	}
	counts := map[domain.RequestStatus]int64{}
	for _, row := range rows {
		counts[domain.RequestStatus(row.Status)] = row.N
	}
	return counts, nil
}

func (r *buyRequestRepository) selectRows(ctx context.Context, query string, args ...any) ([]domain.BuyRequest, error) {
	var rows []buyRequestRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	result := make([]domain.BuyRequest, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
