package service

import (
	"context"

	"github.com/spec-kit/marketplace-service/internal/access"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
)

// AdminService exposes marketplace-wide views to administrators.
type AdminService struct {
	store repository.Store
}

// NewAdminService constructs the service.
func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{store: store}
}

// Stats aggregates user, listing and request counts.
func (s *AdminService) Stats(ctx context.Context, actor access.Subject) (*domain.Stats, error) {
	if err := access.Check(actor, access.ActionAdminView, access.Resource{}); err != nil {
		return nil, err
	}
	repos := s.store.Repositories()

	users, err := repos.Users.Count(ctx)
	if err != nil {
		return nil, err
	}
	listings, err := repos.Listings.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	requests, err := repos.BuyRequests.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{}
	stats.Users.Total = users
	for _, n := range listings {
		stats.Listings.Total += n
	}
	stats.Listings.Active = listings[domain.ListingStatusActive]
	stats.Listings.Sold = listings[domain.ListingStatusSold]
	for _, n := range requests {
		stats.Requests.Total += n
	}
	stats.Requests.Pending = requests[domain.RequestStatusPending]
	stats.Requests.Accepted = requests[domain.RequestStatusAccepted]
	stats.Requests.Completed = requests[domain.RequestStatusCompleted]
	return stats, nil
}

// Users lists every account.
func (s *AdminService) Users(ctx context.Context, actor access.Subject, skip, limit int) ([]domain.User, error) {
	if err := access.Check(actor, access.ActionAdminView, access.Resource{}); err != nil {
		return nil, err
	}
	return s.store.Repositories().Users.List(ctx, skip, limit)
}

// Listings lists listings in every status.
func (s *AdminService) Listings(ctx context.Context, actor access.Subject, skip, limit int) ([]domain.Listing, error) {
	if err := access.Check(actor, access.ActionAdminView, access.Resource{}); err != nil {
		return nil, err
	}
	return s.store.Repositories().Listings.List(ctx, repository.ListingFilter{Skip: skip, Limit: limit})
}

// Requests lists every buy request in insertion order.
func (s *AdminService) Requests(ctx context.Context, actor access.Subject, skip, limit int) ([]domain.BuyRequest, error) {
	if err := access.Check(actor, access.ActionAdminView, access.Resource{}); err != nil {
		return nil, err
	}
	return s.store.Repositories().BuyRequests.List(ctx, skip, limit)
}
