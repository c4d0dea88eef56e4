package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"gmx-edge-lab/internal/storage"
)

// setupTestRedis starts a Redis container and returns a connected CursorStore.
func setupTestRedis(t *testing.T, prefix string) (*CursorStore, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewClient(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)

	cleanup := func() {
		client.Close()
		_ = container.Terminate(ctx)
	}

	return NewCursorStore(client, prefix), cleanup
}

func TestCursorStore_GetSet(t *testing.T) {
	store, cleanup := setupTestRedis(t, "")
	defer cleanup()

	ctx := context.Background()

	_, err := store.GetCursor(ctx, "orders")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.SetCursor(ctx, "orders", "0x01"); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}
	if err := store.SetCursor(ctx, "orders", "0x02"); err != nil {
		t.Fatalf("SetCursor overwrite failed: %v", err)
	}

	got, err := store.GetCursor(ctx, "orders")
	if err != nil {
		t.Fatalf("GetCursor failed: %v", err)
	}
	if got != "0x02" {
		t.Errorf("expected 0x02, got %s", got)
	}

	if _, err := store.GetCursor(ctx, "swaps"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for untouched collection, got %v", err)
	}
}

func TestCursorStore_EmptyCollection(t *testing.T) {
	store, cleanup := setupTestRedis(t, "test")
	defer cleanup()

	err := store.SetCursor(context.Background(), "", "x")
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNewCursorStore_KeyPrefix(t *testing.T) {
	if got := NewCursorStore(nil, "").key; got != "gmxedge:cursors" {
		t.Errorf("default key = %q", got)
	}
	if got := NewCursorStore(nil, "lab").key; got != "lab:cursors" {
		t.Errorf("custom key = %q", got)
	}
}
