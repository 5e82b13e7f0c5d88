package service

import (
	"context"
	"sync"
	"testing"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

func TestPurchaseHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.user(t, "seller", domain.RoleSeller)
	buyer := env.user(t, "buyer", domain.RoleBuyer)
	listing := env.listing(t, seller, "50")

	req, err := env.requests.Create(ctx, buyer, listing.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.Status != domain.RequestStatusPending || req.SellerID != seller.UserID {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.CommissionStatus == nil || *req.CommissionStatus != domain.CommissionPendingCalculation {
		t.Fatalf("unexpected commission: %v", req.CommissionStatus)
	}

	if _, err := env.requests.Create(ctx, buyer, listing.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict on second create, got %v", err)
	}

	accepted, err := env.requests.Accept(ctx, seller, req.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != domain.RequestStatusAccepted || *accepted.CommissionStatus != domain.CommissionLogged {
		t.Fatalf("unexpected accepted request: %+v", accepted)
	}

	completed, err := env.requests.Complete(ctx, buyer, req.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != domain.RequestStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if got := env.listingStatus(t, listing.ID); got != domain.ListingStatusSold {
		t.Fatalf("expected listing sold, got %s", got)
	}

	want := []events.EventType{
		events.EventBuyRequestCreated,
		events.EventBuyRequestAccepted,
		events.EventBuyRequestCompleted,
		events.EventListingSold,
	}
	got := env.events.types()
	if len(got) != len(want) {
		t.Fatalf("events: want %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events: want %v got %v", want, got)
		}
	}
}

func TestCreateRejectsNonActiveListing(t *testing.T) {
	for _, status := range []domain.ListingStatus{domain.ListingStatusExpired, domain.ListingStatusSold} {
		t.Run(string(status), func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			seller := env.user(t, "seller", domain.RoleSeller)
			buyer := env.user(t, "buyer", domain.RoleBuyer)
			listing := env.listing(t, seller, "10")
			if err := env.store.Repositories().Listings.UpdateStatus(ctx, listing.ID, domain.ListingStatusActive, status); err != nil {
				t.Fatalf("set status: %v", err)
			}

			_, err := env.requests.Create(ctx, buyer, listing.ID)
			if !apperrors.HasCode(err, apperrors.CodeInvalidOperation) {
				t.Fatalf("expected invalid operation, got %v", err)
			}
		})
	}
}

func TestCreateRejectsOwnListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.user(t, "seller", domain.RoleSeller)
	listing := env.listing(t, seller, "10")

	_, err := env.requests.Create(ctx, seller, listing.ID)
	if !apperrors.HasCode(err, apperrors.CodeInvalidOperation) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
	list, err := env.requests.ListForSeller(ctx, seller.UserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("no request should be stored, found %d", len(list))
	}
	if len(env.events.types()) != 0 {
		t.Fatalf("no events expected on failure")
	}
}

func TestCreateUnknownListing(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.user(t, "buyer", domain.RoleBuyer)
	_, err := env.requests.Create(context.Background(), buyer, "missing")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewPendingAllowedAfterReject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.user(t, "seller", domain.RoleSeller)
	buyer := env.user(t, "buyer", domain.RoleBuyer)
	listing := env.listing(t, seller, "10")

	first, err := env.requests.Create(ctx, buyer, listing.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.requests.Reject(ctx, seller, first.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := env.requests.Create(ctx, buyer, listing.ID); err != nil {
		t.Fatalf("create after reject: %v", err)
	}
}

func TestNonParticipantIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.user(t, "seller", domain.RoleSeller)
	buyer := env.user(t, "buyer", domain.RoleBuyer)
	other := env.user(t, "other", domain.RoleSeller)
	admin := env.user(t, "admin", domain.RoleAdmin)
	listing := env.listing(t, seller, "10")

	req, err := env.requests.Create(ctx, buyer, listing.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.requests.Accept(ctx, other, req.ID); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("accept by stranger: %v", err)
	}
	if _, err := env.requests.Accept(ctx, buyer, req.ID); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("accept by buyer: %v", err)
	}
	if _, err := env.requests.Reject(ctx, admin, req.ID); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("reject by admin: %v", err)
	}
	if got := env.requestStatus(t, req.ID); got != domain.RequestStatusPending {
		t.Fatalf("status changed to %s", got)
	}

	if _, err := env.requests.Accept(ctx, seller, req.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.requests.Complete(ctx, other, req.ID); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("complete by stranger: %v", err)
	}
	if got := env.requestStatus(t, req.ID); got != domain.RequestStatusAccepted {
		t.Fatalf("status changed to %s", got)
	}
	if got := env.listingStatus(t, listing.ID); got != domain.ListingStatusActive {
		t.Fatalf("listing changed to %s", got)
	}
}

func TestTransitionsOutOfWrongState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.user(t, "seller", domain.RoleSeller)
	buyer := env.user(t, "buyer", domain.RoleBuyer)
	listing := env.listing(t, seller, "10")

	pending, err := env.requests.Create(ctx, buyer, listing.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.requests.Complete(ctx, buyer, pending.ID); !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("complete pending: %v", err)
	}
	if _, err := env.requests.Reject(ctx, seller, pending.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := env.requests.Accept(ctx, seller, pending.ID); !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("accept rejected: %v", err)
	}
	if got := env.requestStatus(t, pending.ID); got != domain.RequestStatusRejected {
		t.Fatalf("rejected request moved to %s", got)
	}

	again, err := env.requests.Create(ctx, buyer, listing.ID)
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if _, err := env.requests.Accept(ctx, seller, again.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.requests.Complete(ctx, seller, again.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	for name, op := range map[string]func() error{
		"accept":   func() error { _, err := env.requests.Accept(ctx, seller, again.ID); return err },
		"reject":   func() error { _, err := env.requests.Reject(ctx, seller, again.ID); return err },
		"complete": func() error { _, err := env.requests.Complete(ctx, buyer, again.ID); return err },
	} {
		err := op()
		if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
			t.Fatalf("%s on completed: %v", name, err)
		}
		if msg := apperrors.ToDomainError(err).Message; msg != "request is already completed" {
			t.Fatalf("%s on completed: unexpected message %q", name, msg)
		}
	}
	if got := env.requestStatus(t, again.ID); got != domain.RequestStatusCompleted {
		t.Fatalf("completed request moved to %s", got)
	}
}

func TestSecondAcceptOnListingConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.user(t, "seller", domain.RoleSeller)
	b1 := env.user(t, "b1", domain.RoleBuyer)
	b2 := env.user(t, "b2", domain.RoleBuyer)
	listing := env.listing(t, seller, "10")

	r1, err := env.requests.Create(ctx, b1, listing.ID)
	if err != nil {
		t.Fatalf("create r1: %v", err)
	}
	r2, err := env.requests.Create(ctx, b2, listing.ID)
	if err != nil {
		t.Fatalf("create r2: %v", err)
	}
	if _, err := env.requests.Accept(ctx, seller, r1.ID); err != nil {
		t.Fatalf("accept r1: %v", err)
	}
	if _, err := env.requests.Accept(ctx, seller, r2.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("accept r2: %v", err)
	}
	if got := env.requestStatus(t, r2.ID); got != domain.RequestStatusPending {
		t.Fatalf("r2 moved to %s", got)
	}
}

func TestConcurrentAcceptExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.user(t, "seller", domain.RoleSeller)
	listing := env.listing(t, seller, "10")

	const buyers = 5
	ids := make([]string, 0, buyers)
	for i := 0; i < buyers; i++ {
		b := env.user(t, "buyer"+string(rune('a'+i)), domain.RoleBuyer)
		r, err := env.requests.Create(ctx, b, listing.ID)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, r.ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := env.requests.Accept(ctx, seller, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperrors.HasCode(err, apperrors.CodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if successes != 1 || conflicts != buyers-1 {
		t.Fatalf("want 1 success and %d conflicts, got %d and %d", buyers-1, successes, conflicts)
	}
	n, err := env.store.Repositories().BuyRequests.CountForListing(ctx, listing.ID, domain.RequestStatusAccepted)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one accepted request, got %d", n)
	}
}

func TestAcceptRequiresActiveListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.user(t, "seller", domain.RoleSeller)
	buyer := env.user(t, "buyer", domain.RoleBuyer)
	listing := env.listing(t, seller, "10")

	req, err := env.requests.Create(ctx, buyer, listing.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	expired := domain.ListingStatusExpired
	if _, err := env.listings.Update(ctx, seller, listing.ID, ListingUpdateInput{Status: &expired}); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := env.requests.Accept(ctx, seller, req.ID); !apperrors.HasCode(err, apperrors.CodeInvalidOperation) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
}

func TestListsFilterByParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s1 := env.user(t, "s1", domain.RoleSeller)
	s2 := env.user(t, "s2", domain.RoleSeller)
	buyer := env.user(t, "buyer", domain.RoleBuyer)
	l1 := env.listing(t, s1, "10")
	l2 := env.listing(t, s2, "20")

	first, err := env.requests.Create(ctx, buyer, l1.ID)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := env.requests.Create(ctx, buyer, l2.ID)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	mine, err := env.requests.ListForBuyer(ctx, buyer.UserID)
	if err != nil {
		t.Fatalf("list buyer: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != first.ID || mine[1].ID != second.ID {
		t.Fatalf("unexpected buyer list: %+v", mine)
	}
	incoming, err := env.requests.ListForSeller(ctx, s2.UserID)
	if err != nil {
		t.Fatalf("list seller: %v", err)
	}
	if len(incoming) != 1 || incoming[0].ID != second.ID {
		t.Fatalf("unexpected seller list: %+v", incoming)
	}
}

func TestDeletingListingCascadesRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.user(t, "seller", domain.RoleSeller)
	buyer := env.user(t, "buyer", domain.RoleBuyer)
	listing := env.listing(t, seller, "10")
	req, err := env.requests.Create(ctx, buyer, listing.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.listings.Delete(ctx, seller, listing.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.store.Repositories().BuyRequests.GetByID(ctx, req.ID); err != repository.ErrNotFound {
		t.Fatalf("expected request removed, got %v", err)
	}
}
