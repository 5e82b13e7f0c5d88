package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/access"
	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func currentSubject(c *fiber.Ctx) (access.Subject, error) {
	principal, err := currentPrincipal(c)
	if err != nil {
		return access.Subject{}, err
	}
	return principal.Subject(), nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// parsePage reads skip/limit; the repository clamps limit to its window.
func parsePage(c *fiber.Ctx) (int, int, error) {
	skip, err := parseNonNegative(c.Query("skip"), "skip")
	if err != nil {
		return 0, 0, err
	}
	limit, err := parseNonNegative(c.Query("limit"), "limit")
	if err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}

func parseNonNegative(val, field string) (int, error) {
	if val == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return 0, apperrors.NewValidationError("invalid "+field, map[string]any{"field": field})
	}
	return parsed, nil
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Phone:     u.Phone,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
	}
}

func listingResponse(l *domain.Listing) dto.ListingResponse {
	photos := l.Photos
	if photos == nil {
		photos = []string{}
	}
	return dto.ListingResponse{
		ID:           l.ID,
		SellerID:     l.SellerID,
		Title:        l.Title,
		Description:  l.Description,
		Category:     l.Category,
		Brand:        l.Brand,
		Model:        l.Model,
		Condition:    string(l.Condition),
		WorkingParts: l.WorkingParts,
		Price:        json.Number(l.Price.StringFixed(2)),
		Location:     l.Location,
		Status:       string(l.Status),
		Photos:       photos,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func listingResponses(listings []domain.Listing) []dto.ListingResponse {
	items := make([]dto.ListingResponse, 0, len(listings))
	for i := range listings {
		items = append(items, listingResponse(&listings[i]))
	}
	return items
}

func requestResponse(r *domain.BuyRequest) dto.BuyRequestResponse {
	return dto.BuyRequestResponse{
		ID:               r.ID,
		ListingID:        r.ListingID,
		BuyerID:          r.BuyerID,
		SellerID:         r.SellerID,
		Status:           string(r.Status),
		CommissionStatus: r.CommissionStatus,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func requestResponses(requests []domain.BuyRequest) []dto.BuyRequestResponse {
	items := make([]dto.BuyRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, requestResponse(&requests[i]))
	}
	return items
}
