package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingStatus enumerates listing availability.
type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "active"
	ListingStatusSold    ListingStatus = "sold"
	ListingStatusExpired ListingStatus = "expired"
)

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusActive, ListingStatusSold, ListingStatusExpired:
		return true
	}
	return false
}

// ListingCondition describes the physical state of the item.
type ListingCondition string

const (
	ConditionNew      ListingCondition = "new"
	ConditionUsed     ListingCondition = "used"
	ConditionBroken   ListingCondition = "broken"
	ConditionForParts ListingCondition = "for_parts"
)

// Valid reports whether c is a known condition.
func (c ListingCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionBroken, ConditionForParts:
		return true
	}
	return false
}

// Listing is an item for sale owned by exactly one seller.
type Listing struct {
	ID           string
	SellerID     string
	Title        string
	Description  *string
	Category     string
	Brand        *string
	Model        *string
	Condition    ListingCondition
	WorkingParts *string
	Price        decimal.Decimal
	Location     string
	Status       ListingStatus
	Photos       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
