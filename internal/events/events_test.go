package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventListingSold, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventListingSold, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventBuyRequestCreated, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventListingSold})
	if err == nil {
		t.Fatalf("expected handler error to surface")
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("unexpected calls: %v", calls)
	}
}

func TestStreamWriterAppends(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	w, err := NewStreamWriter(client, "test:events", 0)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	_, err = w.Append(context.Background(), Event{
		ID:        "evt-1",
		Type:      EventBuyRequestAccepted,
		ListingID: "listing-1",
		RequestID: "req-1",
		Actor:     Actor{UserID: "seller-1", Role: domain.RoleSeller},
		Timestamp: time.Now(),
		Payload:   BuyRequestPayload{BuyerID: "buyer-1", SellerID: "seller-1", NewStatus: domain.RequestStatusAccepted},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := client.XRange(context.Background(), "test:events", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Values["type"] != string(EventBuyRequestAccepted) || entries[0].Values["request_id"] != "req-1" {
		t.Fatalf("unexpected entry: %v", entries[0].Values)
	}
}

func TestStreamWriterRequiresName(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	if _, err := NewStreamWriter(client, " ", 0); err == nil {
		t.Fatalf("expected error for empty stream name")
	}
}
