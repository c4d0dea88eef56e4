package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gmx-edge-lab/internal/graph"
	"gmx-edge-lab/internal/storage/memory"
)

type mockPageFetcher struct {
	mock.Mock
}

func (m *mockPageFetcher) FetchPage(ctx context.Context, coll graph.Collection, cursor string, first int) ([]json.RawMessage, error) {
	args := m.Called(ctx, coll.Name, cursor, first)
	records, _ := args.Get(0).([]json.RawMessage)
	return records, args.Error(1)
}

func page(ids ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(ids))
	for i, id := range ids {
		out[i] = json.RawMessage(fmt.Sprintf(`{"id":"%s","timestamp":"%d"}`, id, 1000-i))
	}
	return out
}

func TestFetcher_PersistsPagesAndCursor(t *testing.T) {
	src := new(mockPageFetcher)
	src.On("FetchPage", mock.Anything, "swaps", "", 2).Return(page("a", "b"), nil).Once()
	src.On("FetchPage", mock.Anything, "swaps", "b", 2).Return(page("c"), nil).Once()
	src.On("FetchPage", mock.Anything, "swaps", "c", 2).Return(page(), nil).Once()

	records := memory.NewGraphRecordStore()
	cursors := memory.NewCursorStore()
	f := NewFetcher(FetcherOptions{
		Source:   src,
		Records:  records,
		Cursors:  cursors,
		PageSize: 2,
		Logger:   zaptest.NewLogger(t),
	})

	res, err := f.Fetch(context.Background(), graph.Swaps)
	require.NoError(t, err)
	src.AssertExpectations(t)

	assert.False(t, res.Truncated)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, "c", res.EndCursor)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "b", res.Records[0].ID, "records sorted by timestamp")

	cursor, err := cursors.GetCursor(context.Background(), "swaps")
	require.NoError(t, err)
	assert.Equal(t, "c", cursor)

	stored, _ := records.GetByCollection(context.Background(), "swaps")
	assert.Len(t, stored, 3)
}

func TestFetcher_ResumesFromStoredCursor(t *testing.T) {
	src := new(mockPageFetcher)
	src.On("FetchPage", mock.Anything, "orders", "x", graph.DefaultPageSize).Return(page(), nil).Once()

	cursors := memory.NewCursorStore()
	require.NoError(t, cursors.SetCursor(context.Background(), "orders", "x"))

	f := NewFetcher(FetcherOptions{Source: src, Cursors: cursors})
	res, err := f.Fetch(context.Background(), graph.Orders)
	require.NoError(t, err)
	src.AssertExpectations(t)

	assert.Equal(t, "x", res.StartCursor)
	assert.Equal(t, "x", res.EndCursor)
	assert.Empty(t, res.Records)
}

func TestFetcher_TruncatedFetchKeepsEarlierPages(t *testing.T) {
	boom := errors.New("connection reset")
	src := new(mockPageFetcher)
	src.On("FetchPage", mock.Anything, "swaps", "", 1).Return(page("a"), nil).Once()
	src.On("FetchPage", mock.Anything, "swaps", "a", 1).Return(page("b"), nil).Once()
	src.On("FetchPage", mock.Anything, "swaps", "b", 1).Return(nil, boom).Once()

	cursors := memory.NewCursorStore()
	records := memory.NewGraphRecordStore()
	f := NewFetcher(FetcherOptions{Source: src, Records: records, Cursors: cursors, PageSize: 1})

	res, err := f.Fetch(context.Background(), graph.Swaps)
	require.NoError(t, err, "truncation is reported in the result")
	assert.True(t, res.Truncated)
	assert.True(t, errors.Is(res.Err, boom))
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, res.Records, 2)

	// Next run resumes after the last stored page
	cursor, _ := cursors.GetCursor(context.Background(), "swaps")
	assert.Equal(t, "b", cursor)
}

func TestFetcher_NoStores(t *testing.T) {
	src := new(mockPageFetcher)
	src.On("FetchPage", mock.Anything, "swaps", "", graph.DefaultPageSize).Return(page("a"), nil).Once()
	src.On("FetchPage", mock.Anything, "swaps", "a", graph.DefaultPageSize).Return(page(), nil).Once()

	res, err := NewFetcher(FetcherOptions{Source: src}).Fetch(context.Background(), graph.Swaps)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Len(t, res.Records, 1)
}
