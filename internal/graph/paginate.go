package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gmx-edge-lab/internal/observability"
)

// DefaultMaxPages bounds a paginated fetch.
const DefaultMaxPages = 100

// Pagination stop reasons other than fetch failures.
var (
	ErrPageLimit   = errors.New("page limit reached before an empty page")
	ErrStuckCursor = errors.New("cursor did not advance")
)

// PageFetcher fetches one page of a collection after cursor.
type PageFetcher interface {
	FetchPage(ctx context.Context, coll Collection, cursor string, first int) ([]json.RawMessage, error)
}

// PaginateOptions configures Paginate.
type PaginateOptions struct {
	Cursor   string // start after this id; "" starts from the beginning
	PageSize int    // records per page; 0 uses DefaultPageSize
	MaxPages int    // page cap; 0 uses DefaultMaxPages

	// OnPage is called with each non-empty page before it is accepted.
	// An error stops pagination and the page is not included in the result.
	OnPage func(ctx context.Context, page int, records []json.RawMessage, cursor string) error
}

// PageResult is the outcome of a paginated fetch.
// Records always holds every accepted page, also when Truncated is set.
type PageResult struct {
	Records   []json.RawMessage
	Pages     int    // accepted non-empty pages
	Cursor    string // max id of the last accepted page
	Truncated bool   // stopped before an empty page
	Err       error  // why the fetch was truncated
}

// Paginate walks a collection by id cursor until an empty page.
// The next cursor is the maximum id of the page (string order, as the subgraph compares ids).
// Stops with Truncated set when:
//   - a page fetch fails (Err holds the failure)
//   - MaxPages pages were accepted without seeing an empty page (ErrPageLimit)
//   - the cursor did not advance (ErrStuckCursor)
//   - OnPage failed
//
// Records of pages accepted before the stop are returned.
func Paginate(ctx context.Context, fetcher PageFetcher, coll Collection, opts PaginateOptions) PageResult {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	res := PageResult{Cursor: opts.Cursor}
	truncate := func(reason string, err error) PageResult {
		res.Truncated = true
		res.Err = err
		observability.RecordGraphTruncated(coll.Name, reason)
		return res
	}

	for page := 1; page <= opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return truncate("cancelled", err)
		}

		start := time.Now()
		records, err := fetcher.FetchPage(ctx, coll, res.Cursor, opts.PageSize)
		observability.RecordGraphPage(coll.Name, len(records), time.Since(start).Seconds())
		if err != nil {
			return truncate("fetch_error", fmt.Errorf("page %d: %w", page, err))
		}
		if len(records) == 0 {
			return res
		}

		next, err := maxID(records)
		if err != nil {
			return truncate("bad_record", fmt.Errorf("page %d: %w", page, err))
		}
		if next <= res.Cursor {
			return truncate("stuck_cursor", fmt.Errorf("page %d: %w: %q", page, ErrStuckCursor, next))
		}

		if opts.OnPage != nil {
			if err := opts.OnPage(ctx, page, records, next); err != nil {
				return truncate("on_page", fmt.Errorf("page %d: %w", page, err))
			}
		}

		res.Records = append(res.Records, records...)
		res.Pages++
		res.Cursor = next
	}

	return truncate("page_limit", ErrPageLimit)
}

type idOnly struct {
	ID string `json:"id"`
}

func maxID(records []json.RawMessage) (string, error) {
	var top string
	for i, r := range records {
		var rec idOnly
		if err := json.Unmarshal(r, &rec); err != nil {
			return "", fmt.Errorf("record %d: %w", i, err)
		}
		if rec.ID == "" {
			return "", fmt.Errorf("record %d: missing id", i)
		}
		if rec.ID > top {
			top = rec.ID
		}
	}
	return top, nil
}
