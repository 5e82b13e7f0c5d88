package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
	"github.com/spec-kit/marketplace-service/internal/service"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

// statusAll disables the listing status filter.
const statusAll = "all"

// ListingsHandler manages listing endpoints.
type ListingsHandler struct {
	service *service.ListingService
}

// NewListingsHandler constructs handler.
func NewListingsHandler(listingService *service.ListingService) *ListingsHandler {
	return &ListingsHandler{service: listingService}
}

// List GET /listings.
func (h *ListingsHandler) List(c *fiber.Ctx) error {
	filter, err := parseListingQuery(c)
	if err != nil {
		return err
	}
	listings, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": listingResponses(listings)})
}

// Get GET /listings/:id.
func (h *ListingsHandler) Get(c *fiber.Ctx) error {
	detail, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := listingResponse(&detail.Listing)
	if detail.Seller != nil {
		seller := userResponse(detail.Seller)
		resp.Seller = &seller
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Create POST /listings.
func (h *ListingsHandler) Create(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	var req dto.CreateListingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Price == nil {
		return apperrors.NewValidationError("price required", map[string]any{"field": "price"})
	}

	listing, err := h.service.Create(c.UserContext(), subject, service.ListingCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Brand:        req.Brand,
		Model:        req.Model,
		Condition:    domain.ListingCondition(req.Condition),
		WorkingParts: req.WorkingParts,
		Price:        *req.Price,
		Location:     req.Location,
		Photos:       req.Photos,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": listingResponse(listing)})
}

// Update PUT /listings/:id.
func (h *ListingsHandler) Update(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	var req dto.UpdateListingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input := service.ListingUpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Brand:        req.Brand,
		Model:        req.Model,
		WorkingParts: req.WorkingParts,
		Price:        req.Price,
		Location:     req.Location,
		Photos:       req.Photos,
	}
	if req.Condition != nil {
		condition := domain.ListingCondition(*req.Condition)
		input.Condition = &condition
	}
	if req.Status != nil {
		status := domain.ListingStatus(*req.Status)
		input.Status = &status
	}

	listing, err := h.service.Update(c.UserContext(), subject, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": listingResponse(listing)})
}

// Delete DELETE /listings/:id.
func (h *ListingsHandler) Delete(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), subject, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseListingQuery(c *fiber.Ctx) (repository.ListingFilter, error) {
	filter := repository.ListingFilter{
		Category: optionalQuery(c, "category"),
		Brand:    optionalQuery(c, "brand"),
		Model:    optionalQuery(c, "model"),
		Location: optionalQuery(c, "location"),
	}

	if raw := c.Query("condition"); raw != "" {
		condition := domain.ListingCondition(raw)
		if !condition.Valid() {
			return filter, apperrors.NewValidationError("invalid condition", map[string]any{"field": "condition"})
		}
		filter.Condition = &condition
	}

	switch raw := strings.ToLower(c.Query("status")); raw {
	case "":
		active := domain.ListingStatusActive
		filter.Status = &active
	case statusAll:
	default:
		status := domain.ListingStatus(raw)
		if !status.Valid() {
			return filter, apperrors.NewValidationError("invalid status", map[string]any{"field": "status"})
		}
		filter.Status = &status
	}

	var err error
	if filter.MinPrice, err = optionalDecimal(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = optionalDecimal(c, "max_price"); err != nil {
		return filter, err
	}
	if filter.Skip, filter.Limit, err = parsePage(c); err != nil {
		return filter, err
	}
	return filter, nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func optionalDecimal(c *fiber.Ctx, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid "+key, map[string]any{"field": key})
	}
	return &d, nil
}
