package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

func eventAt(id, token string, sec int64) *domain.PositionEvent {
	return &domain.PositionEvent{
		ID:         id,
		Time:       time.Unix(sec, 0).UTC(),
		Timestamp:  sec,
		Account:    "0xabc",
		IndexToken: token,
		IsLong:     true,
		EventType:  domain.EventIncrease,
		SizeDelta:  decimal.NewFromInt(1000),
		Price:      decimal.NewFromInt(1500),
	}
}

func TestPositionEventStore_InsertAndGetByID(t *testing.T) {
	store := NewPositionEventStore()
	ctx := context.Background()

	if _, err := store.InsertBulk(ctx, []*domain.PositionEvent{eventAt("e1", "WETH", 100)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Price.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Price mismatch: got %s", got.Price)
	}

	// Mutating the result must not affect the store
	got.Account = "changed"
	again, _ := store.GetByID(ctx, "e1")
	if again.Account != "0xabc" {
		t.Errorf("Store returned shared pointer")
	}
}

func TestPositionEventStore_NotFound(t *testing.T) {
	store := NewPositionEventStore()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPositionEventStore_SkipsStoredIDs(t *testing.T) {
	store := NewPositionEventStore()
	ctx := context.Background()

	n, err := store.InsertBulk(ctx, []*domain.PositionEvent{eventAt("e1", "WETH", 1), eventAt("e1", "WETH", 2)})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 inserted for repeated id, got %d", n)
	}
	got, _ := store.GetByID(ctx, "e1")
	if got.Timestamp != 1 {
		t.Errorf("Expected first event to win, got timestamp %d", got.Timestamp)
	}

	// Superset of the stored batch: only the new event is added
	n, err = store.InsertBulk(ctx, []*domain.PositionEvent{eventAt("e1", "WETH", 1), eventAt("e2", "WETH", 3)})
	if err != nil {
		t.Fatalf("InsertBulk superset failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 inserted, got %d", n)
	}
	if _, err := store.GetByID(ctx, "e2"); err != nil {
		t.Errorf("New event not stored: %v", err)
	}
}

func TestPositionEventStore_InvalidInput(t *testing.T) {
	store := NewPositionEventStore()

	_, err := store.InsertBulk(context.Background(), []*domain.PositionEvent{eventAt("e1", "WETH", 1), {}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.GetByID(context.Background(), "e1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected nothing stored for invalid batch, got %v", err)
	}
}

func TestPositionEventStore_GetByTimeRange(t *testing.T) {
	store := NewPositionEventStore()
	ctx := context.Background()

	_, _ = store.InsertBulk(ctx, []*domain.PositionEvent{
		eventAt("e3", "WETH", 30),
		eventAt("e1", "WETH", 10),
		eventAt("e2", "WBTC", 20),
		eventAt("e4", "WETH", 40),
	})

	got, err := store.GetByTimeRange(ctx, "WETH", time.Unix(10, 0), time.Unix(30, 0))
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if got[0].ID != "e1" || got[1].ID != "e3" {
		t.Errorf("Unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}
