package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/marketplace-service/internal/access"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/persistence"
	"github.com/spec-kit/marketplace-service/internal/repository"
	"github.com/spec-kit/marketplace-service/internal/repository/sqlitestore"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	store    repository.Store
	auth     *AuthService
	listings *ListingService
	requests *BuyRequestService
	admin    *AdminService
	events   *recordedEvents
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	db, err := persistence.NewSQLite(ctx, config.SQLiteConfig{DSN: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := sqlitestore.NewStore(db)
	t.Cleanup(store.Close)

	dispatcher := events.NewInMemoryDispatcher()
	recorded := &recordedEvents{}
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, recorded.handle)
	}

	return &testEnv{
		store: store,
		auth: NewAuthService(AuthDependencies{
			Store:      store,
			Tokens:     auth.NewTokenManager("test-secret", time.Hour),
			Revoker:    auth.NewMemoryRevoker(),
			BcryptCost: 4,
			Logger:     logger,
		}),
		listings: NewListingService(ListingDependencies{Store: store}),
		requests: NewBuyRequestService(BuyRequestDependencies{Store: store, Dispatcher: dispatcher, Logger: logger}),
		admin:    NewAdminService(store),
		events:   recorded,
	}
}

func (e *testEnv) user(t *testing.T, name string, role domain.Role) access.Subject {
	t.Helper()
	u := &domain.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	if err := e.store.Repositories().Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return access.Subject{UserID: u.ID, Role: u.Role}
}

func (e *testEnv) listing(t *testing.T, seller access.Subject, price string) *domain.Listing {
	t.Helper()
	l, err := e.listings.Create(context.Background(), seller, ListingCreateInput{
		Title:     "Pixel 6",
		Category:  "phones",
		Condition: domain.ConditionUsed,
		Price:     decimal.RequireFromString(price),
		Location:  "Berlin",
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return l
}

func (e *testEnv) requestStatus(t *testing.T, id string) domain.RequestStatus {
	t.Helper()
	r, err := e.store.Repositories().BuyRequests.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	return r.Status
}

func (e *testEnv) listingStatus(t *testing.T, id string) domain.ListingStatus {
	t.Helper()
	l, err := e.store.Repositories().Listings.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	return l.Status
}
