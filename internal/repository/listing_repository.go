package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

const listingColumns = `id, seller_id, title, description, category, brand, model, condition,
               working_parts, price, location, status, photos, created_at, updated_at`

type listingRepository struct {
	db querier
}

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	if listing.Status == "" {
		listing.Status = domain.ListingStatusActive
	}
	const query = `
        INSERT INTO listings (id, seller_id, title, description, category, brand, model, condition,
            working_parts, price, location, status, photos)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		listing.ID,
		listing.SellerID,
		listing.Title,
		listing.Description,
		listing.Category,
		listing.Brand,
		listing.Model,
		listing.Condition,
		listing.WorkingParts,
		listing.Price,
		listing.Location,
		listing.Status,
		nonNilPhotos(listing.Photos),
	).Scan(&listing.CreatedAt, &listing.UpdatedAt)
	return mapPgError(err)
}

func (r *listingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	const query = `
        UPDATE listings SET title=$1, description=$2, category=$3, brand=$4, model=$5, condition=$6,
            working_parts=$7, price=$8, location=$9, status=$10, photos=$11, updated_at=NOW()
        WHERE id=$12
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		listing.Title,
		listing.Description,
		listing.Category,
		listing.Brand,
		listing.Model,
		listing.Condition,
		listing.WorkingParts,
		listing.Price,
		listing.Location,
		listing.Status,
		nonNilPhotos(listing.Photos),
		listing.ID,
	).Scan(&listing.UpdatedAt)
	return mapPgError(err)
}

func (r *listingRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id=$1`
	return scanListing(r.db.QueryRow(ctx, query, id))
}

func (r *listingRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id=$1 FOR UPDATE`
	return scanListing(r.db.QueryRow(ctx, query, id))
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ListingStatus) error {
	const query = `UPDATE listings SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	cmd, err := r.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *listingRepository) List(ctx context.Context, filter ListingFilter) ([]domain.Listing, error) {
	clauses := []string{"1=1"}
	args := []any{}

	addLike := func(column string, value *string) {
		if value == nil || strings.TrimSpace(*value) == "" {
			return
		}
		args = append(args, ContainsPattern(*value))
		clauses = append(clauses, fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, column, len(args)))
	}
	addLike("category", filter.Category)
	addLike("brand", filter.Brand)
	addLike("model", filter.Model)
	addLike("location", filter.Location)

	if filter.Condition != nil {
		args = append(args, *filter.Condition)
		clauses = append(clauses, fmt.Sprintf("condition=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		clauses = append(clauses, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		clauses = append(clauses, fmt.Sprintf("price <= $%d", len(args)))
	}

	skip, limit := filter.Page()
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		listingColumns, strings.Join(clauses, " AND "), limit, skip)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanListings(rows)
}

func (r *listingRepository) CountByStatus(ctx context.Context) (map[domain.ListingStatus]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM listings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.ListingStatus]int64{}
	for rows.Next() {
		var status domain.ListingStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var listing domain.Listing
	if err := row.Scan(
		&listing.ID,
		&listing.SellerID,
		&listing.Title,
		&listing.Description,
		&listing.Category,
		&listing.Brand,
		&listing.Model,
		&listing.Condition,
		&listing.WorkingParts,
		&listing.Price,
		&listing.Location,
		&listing.Status,
		&listing.Photos,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	listing.Photos = nonNilPhotos(listing.Photos)
	return &listing, nil
}

func scanListings(rows pgx.Rows) ([]domain.Listing, error) {
	result := []domain.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *listing)
	}
	return result, rows.Err()
}

func nonNilPhotos(photos []string) []string {
	if photos == nil {
		return []string{}
	}
	return photos
}
