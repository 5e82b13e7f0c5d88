package domain

import "time"

// RequestStatus enumerates lifecycle states for buy requests.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
)

// Commission annotations. They carry no monetary value.
const (
	CommissionPendingCalculation = "pending_calculation"
	CommissionLogged             = "commission_logged"
)

// Terminal reports whether no transition leaves s.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusRejected || s == RequestStatusCompleted
}

// BuyRequest records one buyer's interest in one listing.
type BuyRequest struct {
	ID               string
	ListingID        string
	BuyerID          string
	SellerID         string
	Status           RequestStatus
	CommissionStatus *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
