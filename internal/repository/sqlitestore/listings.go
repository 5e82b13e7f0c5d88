package sqlitestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
)

const listingColumns = `id, seller_id, title, description, category, brand, model, condition,
	working_parts, price, location, status, photos_json, created_at, updated_at`

type listingRow struct {
	ID           string          `db:"id"`
	SellerID     string          `db:"seller_id"`
	Title        string          `db:"title"`
	Description  *string         `db:"description"`
	Category     string          `db:"category"`
	Brand        *string         `db:"brand"`
	Model        *string         `db:"model"`
	Condition    string          `db:"condition"`
	WorkingParts *string         `db:"working_parts"`
	Price        decimal.Decimal `db:"price"`
	Location     string          `db:"location"`
	Status       string          `db:"status"`
	PhotosJSON   string          `db:"photos_json"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (r listingRow) toDomain() (domain.Listing, error) {
	photos := []string{}
	if r.PhotosJSON != "" {
		if err := json.Unmarshal([]byte(r.PhotosJSON), &photos); err != nil {
			return domain.Listing{}, fmt.Errorf("decode photos for listing %s: %w", r.ID, err)
		}
	}
	return domain.Listing{
		ID:           r.ID,
		SellerID:     r.SellerID,
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Brand:        r.Brand,
		Model:        r.Model,
		Condition:    domain.ListingCondition(r.Condition),
		WorkingParts: r.WorkingParts,
		Price:        r.Price,
		Location:     r.Location,
		Status:       domain.ListingStatus(r.Status),
		Photos:       photos,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

type listingRepository struct {
	db sqlx.ExtContext
}

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	if listing.Status == "" {
		listing.Status = domain.ListingStatusActive
	}
	photos, err := encodePhotos(listing.Photos)
	if err != nil {
		return err
	}
	listing.CreatedAt = now()
	listing.UpdatedAt = listing.CreatedAt
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO listings (id, seller_id, title, description, category, brand, model, condition,
			working_parts, price, location, status, photos_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listing.ID, listing.SellerID, listing.Title, listing.Description, listing.Category,
		listing.Brand, listing.Model, string(listing.Condition), listing.WorkingParts,
		listing.Price.String(), listing.Location, string(listing.Status), photos,
		listing.CreatedAt, listing.UpdatedAt)
	return mapError(err)
}

func (r *listingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	photos, err := encodePhotos(listing.Photos)
	if err != nil {
		return err
	}
	listing.UpdatedAt = now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE listings SET title = ?, description = ?, category = ?, brand = ?, model = ?, condition = ?,
			working_parts = ?, price = ?, location = ?, status = ?, photos_json = ?, updated_at = ?
		 WHERE id = ?`,
		listing.Title, listing.Description, listing.Category, listing.Brand, listing.Model,
		string(listing.Condition), listing.WorkingParts, listing.Price.String(), listing.Location,
		string(listing.Status), photos, listing.UpdatedAt, listing.ID)
	if err != nil {
		return mapError(err)
	}
	if err := rowsAffected(res); err != nil {
		return repository.ErrNotFound
	}
	return nil
}

func (r *listingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := rowsAffected(res); err != nil {
		return repository.ErrNotFound
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	var row listingRow
	if err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id); err != nil {
		return nil, mapError(err)
	}
	listing, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetByIDForUpdate needs no row lock: the store runs on a single connection,
// so the enclosing transaction already excludes every other writer.
func (r *listingRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Listing, error) {
	return r.GetByID(ctx, id)
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ListingStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE listings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), now(), id, string(from))
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

func (r *listingRepository) List(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, error) {
	clauses := []string{"1=1"}
	args := []any{}

	addLike := func(column string, value *string) {
		if value == nil || strings.TrimSpace(*value) == "" {
			return
		}
		args = append(args, repository.ContainsPattern(strings.ToLower(*value)))
		clauses = append(clauses, fmt.Sprintf(`%s(%s) LIKE ? ESCAPE '\'`, foldFunc, column))
	}
	addLike("category", filter.Category)
	addLike("brand", filter.Brand)
	addLike("model", filter.Model)
	addLike("location", filter.Location)

	if filter.Condition != nil {
		args = append(args, string(*filter.Condition))
		clauses = append(clauses, "condition = ?")
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, "status = ?")
	}
	if filter.MinPrice != nil {
		args = append(args, filter.MinPrice.String())
		clauses = append(clauses, "CAST(price AS REAL) >= CAST(? AS REAL)")
	}
	if filter.MaxPrice != nil {
		args = append(args, filter.MaxPrice.String())
		clauses = append(clauses, "CAST(price AS REAL) <= CAST(? AS REAL)")
	}

	skip, limit := filter.Page()
	args = append(args, limit, skip)
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE %s ORDER BY rowid DESC LIMIT ? OFFSET ?`,
		listingColumns, strings.Join(clauses, " AND "))

	var rows []listingRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	result := make([]domain.Listing, 0, len(rows))
	for _, row := range rows {
		listing, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, listing)
	}
	return result, nil
}

func (r *listingRepository) CountByStatus(ctx context.Context) (map[domain.ListingStatus]int64, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int64  `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT status, COUNT(*) AS n FROM listings GROUP BY status`); err != nil {
		return nil, err
	}
	counts := map[domain.ListingStatus]int64{}
	for _, row := range rows {
		counts[domain.ListingStatus(row.Status)] = row.N
	}
	return counts, nil
}

func encodePhotos(photos []string) (string, error) {
	if photos == nil {
		photos = []string{}
	}
	b, err := json.Marshal(photos)
	if err != nil {
		return "", fmt.Errorf("encode photos: %w", err)
	}
	return string(b), nil
}
