package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/access"
	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/service"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

// RequestsHandler manages buy request endpoints.
type RequestsHandler struct {
	service *service.BuyRequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.BuyRequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	var req dto.CreateBuyRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.ListingID) == "" {
		return apperrors.NewValidationError("listing_id required", map[string]any{"field": "listing_id"})
	}

	created, err := h.service.Create(c.UserContext(), subject, req.ListingID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestResponse(created)})
}

// Accept PUT /requests/:id/accept.
func (h *RequestsHandler) Accept(c *fiber.Ctx) error {
	return h.transition(c, h.service.Accept)
}

// Reject PUT /requests/:id/reject.
func (h *RequestsHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.service.Reject)
}

// Complete PUT /requests/:id/complete.
func (h *RequestsHandler) Complete(c *fiber.Ctx) error {
	return h.transition(c, h.service.Complete)
}

// Mine GET /requests/my-requests.
func (h *RequestsHandler) Mine(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	requests, err := h.service.ListForBuyer(c.UserContext(), subject.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponses(requests)})
}

// Incoming GET /requests/incoming.
func (h *RequestsHandler) Incoming(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	requests, err := h.service.ListForSeller(c.UserContext(), subject.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponses(requests)})
}

type transitionFunc func(ctx context.Context, actor access.Subject, requestID string) (*domain.BuyRequest, error)

func (h *RequestsHandler) transition(c *fiber.Ctx, fn transitionFunc) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	updated, err := fn(c.UserContext(), subject, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(updated)})
}
