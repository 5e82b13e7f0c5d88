package dto

import "time"

// CreateBuyRequestRequest payload for POST /requests.
type CreateBuyRequestRequest struct {
	ListingID string `json:"listing_id"`
}

// BuyRequestResponse is the public view of a buy request.
type BuyRequestResponse struct {
	ID               string    `json:"id"`
	ListingID        string    `json:"listing_id"`
	BuyerID          string    `json:"buyer_id"`
	SellerID         string    `json:"seller_id"`
	Status           string    `json:"status"`
	CommissionStatus *string   `json:"commission_status,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StatsResponse mirrors the admin dashboard counters.
type StatsResponse struct {
	Users struct {
		Total int64 `json:"total"`
	} `json:"users"`
	Listings struct {
		Total  int64 `json:"total"`
		Active int64 `json:"active"`
		Sold   int64 `json:"sold"`
	} `json:"listings"`
	Requests struct {
		Total     int64 `json:"total"`
		Pending   int64 `json:"pending"`
		Accepted  int64 `json:"accepted"`
		Completed int64 `json:"completed"`
	} `json:"requests"`
}
