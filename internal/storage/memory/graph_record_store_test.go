package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

func record(collection, id string, sec int64) *domain.GraphRecord {
	return &domain.GraphRecord{
		Collection: collection,
		ID:         id,
		Time:       time.Unix(sec, 0).UTC(),
		Payload:    json.RawMessage(`{"id":"` + id + `"}`),
	}
}

func TestGraphRecordStore_InsertSkipsExisting(t *testing.T) {
	store := NewGraphRecordStore()
	ctx := context.Background()

	n, err := store.InsertBulk(ctx, []*domain.GraphRecord{record("orders", "a", 2), record("orders", "b", 1)})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 inserted, got %d", n)
	}

	n, err = store.InsertBulk(ctx, []*domain.GraphRecord{record("orders", "b", 1), record("orders", "c", 3)})
	if err != nil {
		t.Fatalf("second InsertBulk failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 inserted on overlap, got %d", n)
	}

	got, _ := store.GetByCollection(ctx, "orders")
	if len(got) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Errorf("Unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}

	swaps, _ := store.GetByCollection(ctx, "swaps")
	if len(swaps) != 0 {
		t.Errorf("Expected no swaps, got %d", len(swaps))
	}
}

func TestGraphRecordStore_InvalidInput(t *testing.T) {
	store := NewGraphRecordStore()

	_, err := store.InsertBulk(context.Background(), []*domain.GraphRecord{{Collection: "orders"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
