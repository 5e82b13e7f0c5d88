// Package access decides whether an acting identity may perform an action.
// Decisions depend only on the subject, the action and the resource's
// ownership, never on storage.
package access

import (
	"github.com/spec-kit/marketplace-service/internal/domain"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

// Action names a guarded operation.
type Action string

const (
	ActionCreateListing   Action = "listing.create"
	ActionUpdateListing   Action = "listing.update"
	ActionDeleteListing   Action = "listing.delete"
	ActionAcceptRequest   Action = "request.accept"
	ActionRejectRequest   Action = "request.reject"
	ActionCompleteRequest Action = "request.complete"
	ActionAdminView       Action = "admin.view"
)

// Subject is the acting identity.
type Subject struct {
	UserID string
	Role   domain.Role
}

// Resource describes ownership of the target entity. OwnerID is the listing
// seller for listings; for buy requests SellerID and BuyerID are the
// participants.
type Resource struct {
	OwnerID  string
	SellerID string
	BuyerID  string
}

// ListingResource builds the resource view of a listing.
func ListingResource(l *domain.Listing) Resource {
	if l == nil {
		return Resource{}
	}
	return Resource{OwnerID: l.SellerID, SellerID: l.SellerID}
}

// RequestResource builds the resource view of a buy request.
func RequestResource(r *domain.BuyRequest) Resource {
	if r == nil {
		return Resource{}
	}
	return Resource{SellerID: r.SellerID, BuyerID: r.BuyerID}
}

// Allow reports whether subject may perform action on resource.
func Allow(subject Subject, action Action, resource Resource) bool {
	if subject.UserID == "" || !subject.Role.Valid() {
		return false
	}
	switch action {
	case ActionCreateListing:
		return subject.Role == domain.RoleSeller || subject.Role == domain.RoleAdmin
	case ActionUpdateListing, ActionDeleteListing:
		return subject.Role == domain.RoleAdmin || isParty(subject.UserID, resource.OwnerID)
	case ActionAcceptRequest, ActionRejectRequest:
		return isParty(subject.UserID, resource.SellerID)
	case ActionCompleteRequest:
		return isParty(subject.UserID, resource.SellerID) || isParty(subject.UserID, resource.BuyerID)
	case ActionAdminView:
		return subject.Role == domain.RoleAdmin
	default:
		return false
	}
}

// Check is Allow surfaced as a Forbidden error.
func Check(subject Subject, action Action, resource Resource) error {
	if Allow(subject, action, resource) {
		return nil
	}
	return apperrors.NewForbidden(denialMessage(action))
}

func isParty(userID, partyID string) bool {
	return partyID != "" && userID == partyID
}

func denialMessage(action Action) string {
	switch action {
	case ActionCreateListing:
		return "seller or admin role required"
	case ActionUpdateListing, ActionDeleteListing:
		return "only the listing owner or an admin may modify this listing"
	case ActionAcceptRequest, ActionRejectRequest:
		return "only the seller may respond to this request"
	case ActionCompleteRequest:
		return "only the buyer or seller may complete this request"
	case ActionAdminView:
		return "admin role required"
	default:
		return "access denied"
	}
}
