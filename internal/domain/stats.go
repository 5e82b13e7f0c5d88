package domain

// Stats aggregates marketplace counters for administrators.
type Stats struct {
	Users    UserStats
	Listings ListingStats
	Requests RequestStats
}

// UserStats counts registered identities.
type UserStats struct {
	Total int64
}

// ListingStats counts listings by status.
type ListingStats struct {
	Total  int64
	Active int64
	Sold   int64
}

// RequestStats counts buy requests by status.
type RequestStats struct {
	Total     int64
	Pending   int64
	Accepted  int64
	Completed int64
}
