package events

import (
	"time"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventBuyRequestCreated   EventType = "buy_request_created"
	EventBuyRequestAccepted  EventType = "buy_request_accepted"
	EventBuyRequestRejected  EventType = "buy_request_rejected"
	EventBuyRequestCompleted EventType = "buy_request_completed"
	EventListingSold         EventType = "listing_sold"
)

// AllTypes lists every lifecycle event type.
var AllTypes = []EventType{
	EventBuyRequestCreated,
	EventBuyRequestAccepted,
	EventBuyRequestRejected,
	EventBuyRequestCompleted,
	EventListingSold,
}

// Actor identifies who caused the event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ListingID string      `json:"listing_id"`
	RequestID string      `json:"request_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// BuyRequestPayload accompanies buy_request_* events.
type BuyRequestPayload struct {
	BuyerID          string               `json:"buyer_id"`
	SellerID         string               `json:"seller_id"`
	OldStatus        domain.RequestStatus `json:"old_status,omitempty"`
	NewStatus        domain.RequestStatus `json:"new_status"`
	CommissionStatus *string              `json:"commission_status,omitempty"`
}

// ListingSoldPayload accompanies listing_sold.
type ListingSoldPayload struct {
	SellerID string `json:"seller_id"`
	BuyerID  string `json:"buyer_id"`
	Price    string `json:"price"`
}
