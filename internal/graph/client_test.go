package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5 * time.Millisecond),
		WithTimeout(5 * time.Second),
	}
	return NewClient(url, append(base, opts...)...)
}

func TestClient_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %s", ct)
		}

		var req struct {
			Query string `json:"query"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if !strings.Contains(req.Query, "orders(first: 1000") {
			t.Errorf("unexpected query: %s", req.Query)
		}

		w.Write([]byte(`{"data":{"orders":[{"id":"0x1"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	data, err := client.Query(context.Background(), OrdersQuery("", 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"orders":[{"id":"0x1"}]}` {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":{"swaps":[]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Query(context.Background(), SwapsQuery("", 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Query(context.Background(), "{}")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestClient_GraphQLErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"errors":[{"message":"bad field"},{"message":"other"}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Query(context.Background(), "{}")
	var qErr *QueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("expected QueryError, got %v", err)
	}
	if len(qErr.Messages) != 2 || qErr.Messages[0] != "bad field" {
		t.Errorf("unexpected messages: %v", qErr.Messages)
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retry, got %d calls", calls.Load())
	}
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, WithMaxRetries(2)).Query(context.Background(), "{}")
	if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
		t.Fatalf("expected max retries error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestAPIError_IsRetryable(t *testing.T) {
	tests := []struct {
		code     int
		expected bool
	}{
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		err := &APIError{StatusCode: tt.code}
		if got := err.IsRetryable(); got != tt.expected {
			t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

func TestClient_FetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"swaps":[{"id":"a","timestamp":"10"},{"id":"b","timestamp":"5"}]}}`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchPage(context.Background(), Swaps, "", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}

	if _, err := newTestClient(server.URL).FetchPage(context.Background(), Orders, "", 2); err == nil {
		t.Error("expected error for missing collection in response")
	}
}

func TestCollection_Query(t *testing.T) {
	q := Orders.Query(`0xab"c`, 0)
	if !strings.Contains(q, `orders(first: 1000, where: {id_gt: "0xab\"c"})`) {
		t.Errorf("unexpected query header: %s", q)
	}
	for _, f := range Orders.Fields {
		if !strings.Contains(q, "    "+f+"\n") {
			t.Errorf("query missing field %s", f)
		}
	}

	if _, err := CollectionByName("positions"); err == nil {
		t.Error("expected error for unknown collection")
	}
}
