package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/observability"
	"github.com/spec-kit/marketplace-service/internal/service"
)

// AdminHandler serves the admin dashboard endpoints.
type AdminHandler struct {
	service *service.AdminService
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{service: adminService, metrics: metrics}
}

// Stats GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), subject)
	if err != nil {
		return err
	}
	var resp dto.StatsResponse
	resp.Users.Total = stats.Users.Total
	resp.Listings.Total = stats.Listings.Total
	resp.Listings.Active = stats.Listings.Active
	resp.Listings.Sold = stats.Listings.Sold
	resp.Requests.Total = stats.Requests.Total
	resp.Requests.Pending = stats.Requests.Pending
	resp.Requests.Accepted = stats.Requests.Accepted
	resp.Requests.Completed = stats.Requests.Completed
	return c.JSON(fiber.Map{"data": resp})
}

// Users GET /admin/users.
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	skip, limit, err := parsePage(c)
	if err != nil {
		return err
	}
	users, err := h.service.Users(c.UserContext(), subject, skip, limit)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Listings GET /admin/listings.
func (h *AdminHandler) Listings(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	skip, limit, err := parsePage(c)
	if err != nil {
		return err
	}
	listings, err := h.service.Listings(c.UserContext(), subject, skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": listingResponses(listings)})
}

// Requests GET /admin/requests.
func (h *AdminHandler) Requests(c *fiber.Ctx) error {
	subject, err := currentSubject(c)
	if err != nil {
		return err
	}
	skip, limit, err := parsePage(c)
	if err != nil {
		return err
	}
	requests, err := h.service.Requests(c.UserContext(), subject, skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponses(requests)})
}

// Metrics GET /admin/metrics. The route is guarded by the admin gate.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
