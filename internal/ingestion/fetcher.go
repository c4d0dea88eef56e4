package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/graph"
	"gmx-edge-lab/internal/logging"
	"gmx-edge-lab/internal/storage"
)

// Fetcher pages a subgraph collection into storage and remembers where it stopped.
type Fetcher struct {
	source   graph.PageFetcher
	records  storage.GraphRecordStore
	cursors  storage.CursorStore
	pageSize int
	maxPages int
	logger   *zap.Logger
}

// FetcherOptions contains configuration for creating a Fetcher.
type FetcherOptions struct {
	Source   graph.PageFetcher
	Records  storage.GraphRecordStore // optional; pages are only returned when nil
	Cursors  storage.CursorStore      // optional; every fetch starts from the beginning when nil
	PageSize int
	MaxPages int
	Logger   *zap.Logger
}

// NewFetcher creates a new collection fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = graph.DefaultPageSize
	}
	maxPages := opts.MaxPages
	if maxPages == 0 {
		maxPages = graph.DefaultMaxPages
	}

	return &Fetcher{
		source:   opts.Source,
		records:  opts.Records,
		cursors:  opts.Cursors,
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logging.OrNop(opts.Logger),
	}
}

// FetchResult contains the outcome of one fetch.
type FetchResult struct {
	Collection  string
	StartCursor string
	EndCursor   string
	Pages       int
	Inserted    int  // new records written to the record store
	Truncated   bool // stopped before an empty page, see Err
	Err         error
	Records     []*domain.GraphRecord // this run's records, sorted by time
	Duration    time.Duration
}

// Fetch pages coll starting after the stored cursor.
// Each page is written to the record store and the cursor advanced before the next request,
// so an interrupted fetch resumes where it stopped.
// A truncated fetch is not an error: the result carries the pages fetched so far with Truncated set.
// Errors are returned only when the stored cursor cannot be read.
func (f *Fetcher) Fetch(ctx context.Context, coll graph.Collection) (*FetchResult, error) {
	start := time.Now()

	cursor, err := f.loadCursor(ctx, coll.Name)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{Collection: coll.Name, StartCursor: cursor}
	f.logger.Info("fetching collection",
		zap.String("collection", coll.Name),
		zap.String("cursor", cursor),
		zap.Int("page_size", f.pageSize),
		zap.Int("max_pages", f.maxPages),
	)

	pages := graph.Paginate(ctx, f.source, coll, graph.PaginateOptions{
		Cursor:   cursor,
		PageSize: f.pageSize,
		MaxPages: f.maxPages,
		OnPage: func(ctx context.Context, page int, raw []json.RawMessage, next string) error {
			return f.persistPage(ctx, coll, page, raw, next, result)
		},
	})

	records, err := graph.CleanRecords(coll, pages.Records)
	if err != nil {
		return nil, fmt.Errorf("clean %s records: %w", coll.Name, err)
	}

	result.EndCursor = pages.Cursor
	result.Pages = pages.Pages
	result.Truncated = pages.Truncated
	result.Err = pages.Err
	result.Records = records
	result.Duration = time.Since(start)

	fields := []zap.Field{
		zap.String("collection", coll.Name),
		zap.Int("pages", result.Pages),
		zap.Int("records", len(records)),
		zap.Int("inserted", result.Inserted),
		zap.String("cursor", result.EndCursor),
		zap.Duration("duration", result.Duration),
	}
	if result.Truncated {
		f.logger.Warn("fetch truncated", append(fields, zap.Error(result.Err))...)
	} else {
		f.logger.Info("fetch complete", fields...)
	}

	return result, nil
}

func (f *Fetcher) loadCursor(ctx context.Context, collection string) (string, error) {
	if f.cursors == nil {
		return "", nil
	}
	cursor, err := f.cursors.GetCursor(ctx, collection)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s cursor: %w", collection, err)
	}
	return cursor, nil
}

func (f *Fetcher) persistPage(ctx context.Context, coll graph.Collection, page int, raw []json.RawMessage, next string, result *FetchResult) error {
	if f.records != nil {
		records, err := graph.CleanRecords(coll, raw)
		if err != nil {
			return fmt.Errorf("clean page: %w", err)
		}
		n, err := f.records.InsertBulk(ctx, records)
		if err != nil {
			return fmt.Errorf("store page: %w", err)
		}
		result.Inserted += n
	}

	if f.cursors != nil {
		if err := f.cursors.SetCursor(ctx, coll.Name, next); err != nil {
			return fmt.Errorf("save cursor: %w", err)
		}
	}

	f.logger.Debug("page stored",
		zap.String("collection", coll.Name),
		zap.Int("page", page),
		zap.Int("records", len(raw)),
		zap.String("cursor", next),
	)
	return nil
}
