package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/marketplace-service/internal/access"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

// ListingService coordinates listing workflows.
type ListingService struct {
	store repository.Store
}

// ListingDependencies bundles requirements for the listing service.
type ListingDependencies struct {
	Store repository.Store
}

// ListingCreateInput describes a new listing.
type ListingCreateInput struct {
	Title        string
	Description  *string
	Category     string
	Brand        *string
	Model        *string
	Condition    domain.ListingCondition
	WorkingParts *string
	Price        decimal.Decimal
	Location     string
	Photos       []string
}

// ListingUpdateInput is a partial update; nil fields are left unchanged.
type ListingUpdateInput struct {
	Title        *string
	Description  *string
	Category     *string
	Brand        *string
	Model        *string
	Condition    *domain.ListingCondition
	WorkingParts *string
	Price        *decimal.Decimal
	Location     *string
	Status       *domain.ListingStatus
	Photos       *[]string
}

// ListingDetail is a listing with its seller.
type ListingDetail struct {
	Listing domain.Listing
	Seller  *domain.User
}

// NewListingService constructs the service.
func NewListingService(deps ListingDependencies) *ListingService {
	return &ListingService{store: deps.Store}
}

// Create stores a listing owned by the actor.
func (s *ListingService) Create(ctx context.Context, actor access.Subject, input ListingCreateInput) (*domain.Listing, error) {
	if err := access.Check(actor, access.ActionCreateListing, access.Resource{}); err != nil {
		return nil, err
	}
	listing := &domain.Listing{
		SellerID:     actor.UserID,
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		Category:     strings.TrimSpace(input.Category),
		Brand:        trimOptional(input.Brand),
		Model:        trimOptional(input.Model),
		Condition:    input.Condition,
		WorkingParts: input.WorkingParts,
		Price:        input.Price.Round(2),
		Location:     strings.TrimSpace(input.Location),
		Status:       domain.ListingStatusActive,
		Photos:       normalizePhotos(input.Photos),
	}
	if err := validateListing(listing); err != nil {
		return nil, err
	}
	if err := s.store.Repositories().Listings.Create(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Get returns a listing and its seller.
func (s *ListingService) Get(ctx context.Context, id string) (*ListingDetail, error) {
	repos := s.store.Repositories()
	listing, err := repos.Listings.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "listing", id)
	}
	detail := &ListingDetail{Listing: *listing}
	seller, err := repos.Users.GetByID(ctx, listing.SellerID)
	if err == nil {
		detail.Seller = seller
	}
	return detail, nil
}

// List searches listings. Filters are conjunctive.
func (s *ListingService) List(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, apperrors.NewValidationError("min_price exceeds max_price", nil)
	}
	return s.store.Repositories().Listings.List(ctx, filter)
}

// Update applies a partial change. Status may move between active and
// expired only; sold is reached through request completion.
func (s *ListingService) Update(ctx context.Context, actor access.Subject, id string, input ListingUpdateInput) (*domain.Listing, error) {
	var updated *domain.Listing
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		listing, err := repos.Listings.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "listing", id)
		}
		if err := access.Check(actor, access.ActionUpdateListing, access.ListingResource(listing)); err != nil {
			return err
		}
		if err := applyListingUpdate(listing, input); err != nil {
			return err
		}
		if err := validateListing(listing); err != nil {
			return err
		}
		if err := repos.Listings.Update(ctx, listing); err != nil {
			return notFound(err, "listing", id)
		}
		updated = listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a listing and, by cascade, its buy requests.
func (s *ListingService) Delete(ctx context.Context, actor access.Subject, id string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		listing, err := repos.Listings.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "listing", id)
		}
		if err := access.Check(actor, access.ActionDeleteListing, access.ListingResource(listing)); err != nil {
			return err
		}
		return notFound(repos.Listings.Delete(ctx, id), "listing", id)
	})
}

func applyListingUpdate(listing *domain.Listing, input ListingUpdateInput) error {
	if input.Status != nil && *input.Status != listing.Status {
		if listing.Status == domain.ListingStatusSold {
			return apperrors.NewInvalidOperation("listing already sold", map[string]any{"status": listing.Status})
		}
		switch *input.Status {
		case domain.ListingStatusActive, domain.ListingStatusExpired:
			listing.Status = *input.Status
		case domain.ListingStatusSold:
			return apperrors.NewInvalidOperation("listing is marked sold by completing a buy request", nil)
		default:
			return apperrors.NewValidationError("invalid status", map[string]any{"field": "status"})
		}
	}
	if input.Title != nil {
		listing.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		listing.Description = input.Description
	}
	if input.Category != nil {
		listing.Category = strings.TrimSpace(*input.Category)
	}
	if input.Brand != nil {
		listing.Brand = trimOptional(input.Brand)
	}
	if input.Model != nil {
		listing.Model = trimOptional(input.Model)
	}
	if input.Condition != nil {
		listing.Condition = *input.Condition
	}
	if input.WorkingParts != nil {
		listing.WorkingParts = input.WorkingParts
	}
	if input.Price != nil {
		listing.Price = input.Price.Round(2)
	}
	if input.Location != nil {
		listing.Location = strings.TrimSpace(*input.Location)
	}
	if input.Photos != nil {
		listing.Photos = normalizePhotos(*input.Photos)
	}
	return nil
}

func validateListing(l *domain.Listing) error {
	switch {
	case l.Title == "":
		return apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	case l.Category == "":
		return apperrors.NewValidationError("category is required", map[string]any{"field": "category"})
	case l.Location == "":
		return apperrors.NewValidationError("location is required", map[string]any{"field": "location"})
	case !l.Condition.Valid():
		return apperrors.NewValidationError("invalid condition", map[string]any{"field": "condition"})
	case l.Price.IsNegative():
		return apperrors.NewValidationError("price must not be negative", map[string]any{"field": "price"})
	}
	return nil
}

func normalizePhotos(photos []string) []string {
	out := make([]string, 0, len(photos))
	for _, p := range photos {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
