package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

func testEvent(id string, sec int64, eventType domain.EventType) *domain.PositionEvent {
	return &domain.PositionEvent{
		ID:              id,
		Key:             "0xkey",
		Time:            time.Unix(sec, 0).UTC(),
		Timestamp:       sec,
		Account:         "0xacc",
		CollateralToken: "USDC",
		IndexToken:      "WETH",
		IsLong:          true,
		EventType:       eventType,
		SizeDelta:       decimal.RequireFromString("15000.123456789012345678901234"),
		Price:           decimal.RequireFromString("1850.5"),
		CollateralDelta: decimal.RequireFromString("1500"),
		Fee:             decimal.RequireFromString("15.000000000000000000000000000001"),
	}
}

func TestPositionEventStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPositionEventStore(pool)
	ctx := context.Background()

	events := []*domain.PositionEvent{
		testEvent("inc-1", 1000, domain.EventIncrease),
		testEvent("dec-1", 1060, domain.EventDecrease),
	}
	if _, err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByID(ctx, "inc-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.SizeDelta.Equal(events[0].SizeDelta) {
		t.Errorf("SizeDelta: expected %s, got %s", events[0].SizeDelta, got.SizeDelta)
	}
	if !got.Fee.Equal(events[0].Fee) {
		t.Errorf("Fee: expected %s, got %s", events[0].Fee, got.Fee)
	}
	if !got.Time.Equal(events[0].Time) || got.EventType != domain.EventIncrease {
		t.Errorf("unexpected event: %+v", got)
	}

	_, err = store.GetByID(ctx, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPositionEventStore_SkipsStoredIDs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPositionEventStore(pool)
	ctx := context.Background()

	n, err := store.InsertBulk(ctx, []*domain.PositionEvent{testEvent("a", 1000, domain.EventIncrease)})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 inserted, got %d", n)
	}

	n, err = store.InsertBulk(ctx, []*domain.PositionEvent{
		testEvent("b", 1001, domain.EventIncrease),
		testEvent("a", 1002, domain.EventIncrease),
	})
	if err != nil {
		t.Fatalf("InsertBulk superset failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 inserted, got %d", n)
	}

	if _, err := store.GetByID(ctx, "b"); err != nil {
		t.Errorf("new event not stored: %v", err)
	}
	got, err := store.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Timestamp != 1000 {
		t.Errorf("stored event overwritten: timestamp %d", got.Timestamp)
	}
}

func TestPositionEventStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPositionEventStore(pool)
	ctx := context.Background()

	other := testEvent("btc", 1005, domain.EventIncrease)
	other.IndexToken = "WBTC"
	events := []*domain.PositionEvent{
		testEvent("c", 1010, domain.EventDecrease),
		testEvent("b", 1000, domain.EventIncrease),
		testEvent("a", 1000, domain.EventIncrease),
		testEvent("late", 2000, domain.EventIncrease),
		other,
	}
	if _, err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, "WETH", time.Unix(1000, 0), time.Unix(1010, 0))
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("event %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}
