package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/access"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

// BuyRequestService owns the buy request state machine:
// pending -> accepted | rejected, accepted -> completed.
// Every transition runs in one storage transaction with the request and its
// listing locked; events are published only after commit.
type BuyRequestService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// BuyRequestDependencies bundles requirements for the lifecycle engine.
type BuyRequestDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewBuyRequestService constructs the service.
func NewBuyRequestService(deps BuyRequestDependencies) *BuyRequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BuyRequestService{store: deps.Store, dispatcher: deps.Dispatcher, logger: logger}
}

// Create opens a pending request from the actor on an active listing.
func (s *BuyRequestService) Create(ctx context.Context, actor access.Subject, listingID string) (*domain.BuyRequest, error) {
	if actor.UserID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	var created *domain.BuyRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		listing, err := repos.Listings.GetByIDForUpdate(ctx, listingID)
		if err != nil {
			return notFound(err, "listing", listingID)
		}
		if listing.Status != domain.ListingStatusActive {
			return apperrors.NewInvalidOperation("listing not active", map[string]any{"status": listing.Status})
		}
		if listing.SellerID == actor.UserID {
			return apperrors.NewInvalidOperation("cannot buy own listing", nil)
		}
		exists, err := repos.BuyRequests.ExistsForBuyer(ctx, listingID, actor.UserID, domain.RequestStatusPending)
		if err != nil {
			return err
		}
		if exists {
			return errPendingExists(listingID)
		}

		request := &domain.BuyRequest{
			ListingID:        listing.ID,
			BuyerID:          actor.UserID,
			SellerID:         listing.SellerID,
			Status:           domain.RequestStatusPending,
			CommissionStatus: strPtr(domain.CommissionPendingCalculation),
		}
		if err := repos.BuyRequests.Create(ctx, request); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errPendingExists(listingID)
			}
			return err
		}
		created = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, events.EventBuyRequestCreated, created, "")
	return created, nil
}

// Accept moves a pending request to accepted. Only the seller may accept, the
// listing must still be active, and a listing holds at most one accepted request.
func (s *BuyRequestService) Accept(ctx context.Context, actor access.Subject, requestID string) (*domain.BuyRequest, error) {
	var accepted *domain.BuyRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		request, err := s.loadForTransition(ctx, repos, actor, access.ActionAcceptRequest, requestID,
			domain.RequestStatusPending, domain.RequestStatusAccepted)
		if err != nil {
			return err
		}
		listing, err := repos.Listings.GetByIDForUpdate(ctx, request.ListingID)
		if err != nil {
			return notFound(err, "listing", request.ListingID)
		}
		if listing.Status != domain.ListingStatusActive {
			return apperrors.NewInvalidOperation("listing not active", map[string]any{"status": listing.Status})
		}
		n, err := repos.BuyRequests.CountForListing(ctx, listing.ID, domain.RequestStatusAccepted)
		if err != nil {
			return err
		}
		if n > 0 {
			return errAlreadyAccepted(listing.ID)
		}

		err = repos.BuyRequests.UpdateStatus(ctx, request.ID, domain.RequestStatusPending,
			domain.RequestStatusAccepted, strPtr(domain.CommissionLogged))
		if err != nil {
			return s.transitionError(err, request.Status, domain.RequestStatusAccepted, listing.ID)
		}
		accepted, err = repos.BuyRequests.GetByID(ctx, request.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, events.EventBuyRequestAccepted, accepted, domain.RequestStatusPending)
	return accepted, nil
}

// Reject moves a pending request to rejected. Only the seller may reject.
func (s *BuyRequestService) Reject(ctx context.Context, actor access.Subject, requestID string) (*domain.BuyRequest, error) {
	var rejected *domain.BuyRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		request, err := s.loadForTransition(ctx, repos, actor, access.ActionRejectRequest, requestID,
			domain.RequestStatusPending, domain.RequestStatusRejected)
		if err != nil {
			return err
		}
		err = repos.BuyRequests.UpdateStatus(ctx, request.ID, domain.RequestStatusPending, domain.RequestStatusRejected, nil)
		if err != nil {
			return s.transitionError(err, request.Status, domain.RequestStatusRejected, request.ListingID)
		}
		rejected, err = repos.BuyRequests.GetByID(ctx, request.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, events.EventBuyRequestRejected, rejected, domain.RequestStatusPending)
	return rejected, nil
}

// Complete moves an accepted request to completed and marks its listing sold
// in the same transaction. Buyer or seller may complete.
func (s *BuyRequestService) Complete(ctx context.Context, actor access.Subject, requestID string) (*domain.BuyRequest, error) {
	var (
		completed *domain.BuyRequest
		sold      *domain.Listing
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		request, err := s.loadForTransition(ctx, repos, actor, access.ActionCompleteRequest, requestID,
			domain.RequestStatusAccepted, domain.RequestStatusCompleted)
		if err != nil {
			return err
		}
		listing, err := repos.Listings.GetByIDForUpdate(ctx, request.ListingID)
		if err != nil {
			return notFound(err, "listing", request.ListingID)
		}
		if listing.Status == domain.ListingStatusSold {
			return apperrors.NewInvalidOperation("listing already sold", map[string]any{"listing_id": listing.ID})
		}

		err = repos.BuyRequests.UpdateStatus(ctx, request.ID, domain.RequestStatusAccepted, domain.RequestStatusCompleted, nil)
		if err != nil {
			return s.transitionError(err, request.Status, domain.RequestStatusCompleted, listing.ID)
		}
		if err := repos.Listings.UpdateStatus(ctx, listing.ID, listing.Status, domain.ListingStatusSold); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return apperrors.NewConflict("listing changed concurrently", map[string]any{"listing_id": listing.ID})
			}
			return err
		}
		listing.Status = domain.ListingStatusSold
		sold = listing

		completed, err = repos.BuyRequests.GetByID(ctx, request.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, events.EventBuyRequestCompleted, completed, domain.RequestStatusAccepted)
	s.publishSold(ctx, actor, sold, completed)
	return completed, nil
}

// ListForBuyer returns requests the user sent, in insertion order.
func (s *BuyRequestService) ListForBuyer(ctx context.Context, userID string) ([]domain.BuyRequest, error) {
	return s.store.Repositories().BuyRequests.ListByBuyer(ctx, userID)
}

// ListForSeller returns requests the user received, in insertion order.
func (s *BuyRequestService) ListForSeller(ctx context.Context, userID string) ([]domain.BuyRequest, error) {
	return s.store.Repositories().BuyRequests.ListBySeller(ctx, userID)
}

// loadForTransition locks the request and checks existence, authorization and
// source state, in that order.
func (s *BuyRequestService) loadForTransition(ctx context.Context, repos repository.Repositories, actor access.Subject,
	action access.Action, requestID string, from, to domain.RequestStatus) (*domain.BuyRequest, error) {
	request, err := repos.BuyRequests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "buy request", requestID)
	}
	if err := access.Check(actor, action, access.RequestResource(request)); err != nil {
		return nil, err
	}
	if request.Status.Terminal() {
		return nil, errTerminal(request.Status, to)
	}
	if request.Status != from {
		return nil, apperrors.NewInvalidTransition(string(request.Status), string(to))
	}
	return request, nil
}

func (s *BuyRequestService) transitionError(err error, from, to domain.RequestStatus, listingID string) error {
	switch {
	case errors.Is(err, repository.ErrStaleState):
		return apperrors.NewInvalidTransition(string(from), string(to))
	case errors.Is(err, repository.ErrDuplicate):
		return errAlreadyAccepted(listingID)
	default:
		return err
	}
}

func (s *BuyRequestService) publish(ctx context.Context, actor access.Subject, eventType events.EventType,
	request *domain.BuyRequest, oldStatus domain.RequestStatus) {
	if request == nil {
		return
	}
	s.dispatch(ctx, events.Event{
		Type:      eventType,
		ListingID: request.ListingID,
		RequestID: request.ID,
		Actor:     events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.BuyRequestPayload{
			BuyerID:          request.BuyerID,
			SellerID:         request.SellerID,
			OldStatus:        oldStatus,
			NewStatus:        request.Status,
			CommissionStatus: request.CommissionStatus,
		},
	})
}

func (s *BuyRequestService) publishSold(ctx context.Context, actor access.Subject, listing *domain.Listing, request *domain.BuyRequest) {
	if listing == nil || request == nil {
		return
	}
	s.dispatch(ctx, events.Event{
		Type:      events.EventListingSold,
		ListingID: listing.ID,
		RequestID: request.ID,
		Actor:     events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.ListingSoldPayload{
			SellerID: listing.SellerID,
			BuyerID:  request.BuyerID,
			Price:    listing.Price.StringFixed(2),
		},
	})
}

func (s *BuyRequestService) dispatch(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func errPendingExists(listingID string) error {
	return apperrors.NewConflict("pending request already exists", map[string]any{"listing_id": listingID})
}

func errTerminal(status, to domain.RequestStatus) error {
	return apperrors.NewDomainError(apperrors.CodeInvalidTransition,
		fmt.Sprintf("request is already %s", status),
		http.StatusConflict,
		map[string]any{"from": string(status), "to": string(to)})
}

func errAlreadyAccepted(listingID string) error {
	return apperrors.NewConflict("listing already has an accepted request", map[string]any{"listing_id": listingID})
}
