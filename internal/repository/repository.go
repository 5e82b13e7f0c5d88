package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleState is returned when a compare-and-swap update finds the row
	// no longer in the expected state.
	ErrStaleState = errors.New("record state changed")
)

// Default and maximum page sizes for list queries.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ListingFilter captures listing search parameters. Nil fields are ignored.
type ListingFilter struct {
	Category  *string
	Brand     *string
	Model     *string
	Location  *string
	Condition *domain.ListingCondition
	Status    *domain.ListingStatus
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Skip      int
	Limit     int
}

// Page returns skip and limit clamped to the allowed window.
func (f ListingFilter) Page() (skip, limit int) {
	return ClampPage(f.Skip, f.Limit)
}

// likeEscaper escapes LIKE metacharacters with a backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns a LIKE pattern matching v as a literal substring.
// Queries using it must declare ESCAPE '\'.
func ContainsPattern(v string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(v)) + "%"
}

// ClampPage normalizes skip/limit pagination values.
func ClampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return skip, limit
}

// UserRepository defines persistence access for identities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, skip, limit int) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// ListingRepository encapsulates listing persistence.
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	Update(ctx context.Context, listing *domain.Listing) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	// GetByIDForUpdate reads the listing and locks it for the rest of the
	// enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Listing, error)
	// UpdateStatus moves the listing from one status to another, returning
	// ErrStaleState when the listing is not in from.
	UpdateStatus(ctx context.Context, id string, from, to domain.ListingStatus) error
	List(ctx context.Context, filter ListingFilter) ([]domain.Listing, error)
	CountByStatus(ctx context.Context) (map[domain.ListingStatus]int64, error)
}

// BuyRequestRepository encapsulates buy request persistence.
type BuyRequestRepository interface {
	Create(ctx context.Context, request *domain.BuyRequest) error
	GetByID(ctx context.Context, id string) (*domain.BuyRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.BuyRequest, error)
	// ExistsForBuyer reports whether buyerID holds a request with status on listingID.
	ExistsForBuyer(ctx context.Context, listingID, buyerID string, status domain.RequestStatus) (bool, error)
	// CountForListing counts requests with status on listingID.
	CountForListing(ctx context.Context, listingID string, status domain.RequestStatus) (int64, error)
	// UpdateStatus is a compare-and-swap on status. A nil commission leaves
	// the annotation unchanged. Returns ErrStaleState when the request is not in from.
	UpdateStatus(ctx context.Context, id string, from, to domain.RequestStatus, commission *string) error
	ListByBuyer(ctx context.Context, buyerID string) ([]domain.BuyRequest, error)
	ListBySeller(ctx context.Context, sellerID string) ([]domain.BuyRequest, error)
	List(ctx context.Context, skip, limit int) ([]domain.BuyRequest, error)
	CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Users       UserRepository
	Listings    ListingRepository
	BuyRequests BuyRequestRepository
}

// TxFunc runs inside a transaction. Repositories passed to it are bound to
// that transaction and must not escape it.
type TxFunc func(ctx context.Context, repos Repositories) error

// Store is the storage handle injected into services.
type Store interface {
	Repositories() Repositories
	// WithinTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithinTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
	Close()
}
