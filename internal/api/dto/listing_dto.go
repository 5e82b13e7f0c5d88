package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CreateListingRequest payload for POST /listings.
type CreateListingRequest struct {
	Title        string           `json:"title"`
	Description  *string          `json:"description"`
	Category     string           `json:"category"`
	Brand        *string          `json:"brand"`
	Model        *string          `json:"model"`
	Condition    string           `json:"condition"`
	WorkingParts *string          `json:"working_parts"`
	Price        *decimal.Decimal `json:"price"`
	Location     string           `json:"location"`
	Photos       []string         `json:"photos"`
}

// UpdateListingRequest payload for PUT /listings/:id. Absent fields are unchanged.
type UpdateListingRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Category     *string          `json:"category"`
	Brand        *string          `json:"brand"`
	Model        *string          `json:"model"`
	Condition    *string          `json:"condition"`
	WorkingParts *string          `json:"working_parts"`
	Price        *decimal.Decimal `json:"price"`
	Location     *string          `json:"location"`
	Status       *string          `json:"status"`
	Photos       *[]string        `json:"photos"`
}

// ListingResponse is the public view of a listing.
type ListingResponse struct {
	ID           string        `json:"id"`
	SellerID     string        `json:"seller_id"`
	Title        string        `json:"title"`
	Description  *string       `json:"description,omitempty"`
	Category     string        `json:"category"`
	Brand        *string       `json:"brand,omitempty"`
	Model        *string       `json:"model,omitempty"`
	Condition    string        `json:"condition"`
	WorkingParts *string       `json:"working_parts,omitempty"`
	Price        json.Number   `json:"price"`
	Location     string        `json:"location"`
	Status       string        `json:"status"`
	Photos       []string      `json:"photos"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Seller       *UserResponse `json:"seller,omitempty"`
}
